// Package key implements the fbanode key subcommand tree.
package key

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bosnet-cast/fbanode/cmd/fbanode/common"
	"github.com/bosnet-cast/fbanode/lib/keypair"
)

var (
	GenerateCmd *cobra.Command

	flagParse  bool
	flagFormat string
)

type generatedKeypair struct {
	Seed    string `json:"seed"`
	Address string `json:"address"`
}

func defaultEncode(v interface{}, w io.Writer) error {
	t := template.Must(template.New("").Parse(
		`   Secret Seed: {{ .Seed }}
Public Address: {{ .Address }}
`))
	return t.Execute(w, v)
}

func onelineEncode(v interface{}, w io.Writer) error {
	kp := v.(generatedKeypair)
	_, err := fmt.Fprintf(w, "%s %s\n", kp.Seed, kp.Address)
	return err
}

func init() {
	GenerateCmd = &cobra.Command{
		Use:   "generate [secret seed]",
		Short: "Generate a keypair, or parse an existing secret seed",
		Run: func(c *cobra.Command, args []string) {
			input := strings.TrimSpace(strings.Join(args, " "))
			if flagParse && input == "" {
				common.PrintFlagsError(c, "--parse", errors.New("--parse needs a secret seed argument"))
			}

			kp, err := generate(input, flagParse)
			if err != nil {
				common.PrintFlagsError(c, "<input>", fmt.Errorf("failed to parse secret seed: %v", err))
			}

			encoders := map[string]func(interface{}, io.Writer) error{
				"json":       common.DefaultEncodes["json"],
				"prettyjson": common.DefaultEncodes["prettyjson"],
				"yaml":       common.DefaultEncodes["yaml"],
				"default":    defaultEncode,
				"oneline":    onelineEncode,
			}

			encode, ok := encoders[flagFormat]
			if !ok {
				common.PrintFlagsError(c, "--format", fmt.Errorf("%q not recognized", flagFormat))
			}

			out := generatedKeypair{Seed: kp.Seed(), Address: kp.Address()}
			if err := encode(out, os.Stdout); err != nil {
				common.PrintError(c, err)
			}
		},
	}

	GenerateCmd.Flags().BoolVar(&flagParse, "parse", false, "parse an existing secret seed instead of generating one")
	GenerateCmd.Flags().StringVar(&flagFormat, "format", "default", "format={default, oneline, json, prettyjson, yaml}")
}

func generate(seed string, parse bool) (*keypair.Full, error) {
	if seed == "" {
		return keypair.Generate(nil)
	}

	parsed, err := keypair.Parse(seed)
	if err != nil {
		return nil, err
	}
	full, ok := parsed.(*keypair.Full)
	if !ok {
		return nil, fmt.Errorf("not a secret seed")
	}
	return full, nil
}
