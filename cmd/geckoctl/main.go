// geckoctl - a demo/debug CLI for the gecko per-application equalizer
// and mixer engine.
//
// Grounded in tphakala-birdnet-go's cmd/root.go (cobra root command,
// subcommands wired in from sibling packages, persistent flags bound
// at the root) adapted to this engine's single "run" subcommand and
// without viper: geckoctl's configuration is one explicit YAML file
// (see config.go), not a multi-source precedence stack, so a plain
// pflag-bound struct is all the indirection this CLI needs.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "geckoctl",
		Short: "Run and control the gecko per-application audio mixer",
	}
	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
