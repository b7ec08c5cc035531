// Package common holds the small pieces shared across the fbanode
// command tree: flag-error reporting, environment-variable defaults, and
// the interrupt signal wait used by the node-start command's run group.
package common

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bosnet-cast/fbanode/lib/errors"
)

// PrintFlagsError reports a flag validation failure on stderr, prints
// usage, and exits non-zero.
func PrintFlagsError(cmd *cobra.Command, flagName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid '%s'; %s\n\n", flagName, errorString(err))
	}
	cmd.Help()
	os.Exit(1)
}

// PrintError reports a runtime failure on stderr, prints usage, and
// exits non-zero.
func PrintError(cmd *cobra.Command, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n\n", errorString(err))
	}
	cmd.Help()
	os.Exit(1)
}

func errorString(err error) string {
	if fbaErr, ok := err.(*errors.Error); ok {
		return fbaErr.Message
	}
	return err.Error()
}

// GetENVValue returns the value of the named environment variable, or
// fallback if it is unset.
func GetENVValue(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}
