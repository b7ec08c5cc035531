// Package cmd assembles the fbanode command tree: key management and
// running a node.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bosnet-cast/fbanode/cmd/fbanode/common"
)

var rootCmd = &cobra.Command{
	Use:   os.Args[0],
	Short: "fbanode",
	Run: func(c *cobra.Command, args []string) {
		if len(args) < 1 {
			c.Usage()
		}
	},
}

// Execute runs the command tree rooted at rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		common.PrintFlagsError(rootCmd, "", err)
	}
}

// SetArgs overrides os.Args[1:] for rootCmd, used by tests.
func SetArgs(s []string) {
	rootCmd.SetArgs(s)
}
