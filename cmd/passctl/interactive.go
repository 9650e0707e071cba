package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/internal/cli"
)

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"shell"},
	Short:   "Start an interactive session",
	Long: `Run the prompt loop that a bare passctl invocation starts:
list, add, reveal, help, quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunSession(v, os.Stdin, os.Stdout)
	},
}
