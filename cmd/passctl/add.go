package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/internal/cli"
)

func init() {
	rootCmd.AddCommand(addCmd)
}

var addCmd = &cobra.Command{
	Use:   "add [account]",
	Short: "Add a credential to the vault",
	Long: `Add a credential. The account name is taken from the argument or
prompted for; the password prompt disables echo when stdin is a
terminal and reads a plain line otherwise:

  passctl add gmail
  printf 's3cr3t\n' | passctl add gmail`,
	Args: cobra.MaximumNArgs(1),
	RunE: executeAdd,
}

func executeAdd(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(os.Stdin)

	var account string
	if len(args) == 1 {
		account = args[0]
	} else {
		var err error
		account, err = cli.Prompt(in, "account: ", os.Stdout)
		if err != nil {
			return fmt.Errorf("failed to read account: %w", err)
		}
	}
	account = strings.TrimSpace(account)
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}

	password, err := cli.ReadPassword(in, "password: ", os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	if err := v.Add(account, password); err != nil {
		return fmt.Errorf("failed to add entry: %w", err)
	}

	fmt.Printf("✓ added '%s' (%d entries)\n", account, v.Len())
	return nil
}
