package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(revealCmd)
}

var revealCmd = &cobra.Command{
	Use:   "reveal <index>",
	Short: "Print the plaintext password of one entry",
	Long: `Reveal decrypts a single entry, addressed by its 1-based index as
shown by list, and prints the password alone on stdout so it can be
piped or captured. The entries file is not modified.`,
	Args: cobra.ExactArgs(1),
	RunE: executeReveal,
}

func executeReveal(cmd *cobra.Command, args []string) error {
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index: %s", args[0])
	}

	n := v.Len()
	if n == 0 {
		return fmt.Errorf("vault is empty")
	}
	if index < 1 || index > n {
		return fmt.Errorf("index %d out of range (1-%d)", index, n)
	}

	password, err := v.Reveal(index - 1)
	if err != nil {
		return fmt.Errorf("failed to reveal entry %d: %w", index, err)
	}

	fmt.Println(password)
	return nil
}
