package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/internal/cli"
)

var listShowPath bool

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listShowPath, "show-path", false, "Print the entries file path first")
}

var listCmd = &cobra.Command{
	Use:   "list [pattern...]",
	Short: "List entries with masked passwords",
	Long: `List vault entries as INDEX  ACCOUNT  MASKED lines. Indices are
1-based and feed the reveal command.

Glob patterns filter by account name:
  passctl list
  passctl list "aws_*"
  passctl list gmail github`,
	Aliases: []string{"ls"},
	RunE:    executeList,
}

func executeList(cmd *cobra.Command, args []string) error {
	if listShowPath {
		fmt.Println(v.Path())
	}

	entries := v.List()
	if len(entries) == 0 {
		fmt.Println("vault is empty")
		return nil
	}

	selected := make(map[string]bool)
	if len(args) > 0 {
		accounts := make([]string, len(entries))
		for i, e := range entries {
			accounts[i] = e.Account
		}
		matched, err := cli.ExpandPatterns(args, accounts)
		if err != nil {
			return err
		}
		for _, account := range matched {
			selected[account] = true
		}
	}

	// Indices stay those of the full listing so reveal works on
	// filtered output too
	for i, e := range entries {
		if len(args) > 0 && !selected[e.Account] {
			continue
		}
		fmt.Printf("%3d  %-24s %s\n", i+1, e.Account, e.MaskedPassword())
	}
	return nil
}
