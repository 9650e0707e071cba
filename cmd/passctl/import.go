package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/pkg/importer"
)

// Import command flags
var (
	importSource       string
	importDryRun       bool
	importPreserveCase bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importSource, "source", "s", "", "Source format: csv, bitwarden, lastpass, 1password (required)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without changing the vault")
	importCmd.Flags().BoolVar(&importPreserveCase, "preserve-case", false, "Keep account name casing from the export")
	_ = importCmd.MarkFlagRequired("source")
}

var importCmd = &cobra.Command{
	Use:   "import -s <source> <file>",
	Short: "Import credentials from another password manager's export",
	Long: `Import credentials from an export file. All imported entries are
encrypted and persisted in a single save.

Sources:
  csv        generic export with username/password style columns
  bitwarden  Bitwarden unencrypted JSON export
  lastpass   LastPass CSV export (Secure Notes are skipped)
  1password  1Password CSV export (archived items are skipped)

Examples:
  passctl import -s csv logins.csv
  passctl import -s lastpass lastpass_export.csv
  passctl import -s bitwarden bitwarden_export.json --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: executeImport,
}

func executeImport(cmd *cobra.Command, args []string) error {
	parser, err := importer.GetParser(importer.Source(strings.ToLower(importSource)))
	if err != nil {
		return fmt.Errorf("%w (valid sources: %s)", err, strings.Join(importer.ValidSources(), ", "))
	}

	data, err := readImportFile(args[0])
	if err != nil {
		return err
	}

	result, err := parser.Parse(data, importer.ParseOptions{PreserveCase: importPreserveCase})
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", args[0], err)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(os.Stderr, "skipped: %s (%s)\n", s.OriginalName, s.Reason)
	}

	if len(result.Entries) == 0 {
		fmt.Println("no credentials found")
		return nil
	}

	if importDryRun {
		for _, e := range result.Entries {
			fmt.Printf("[dry-run] would import: %s\n", e.Account)
		}
		fmt.Printf("\nDry run complete: %d entries would be imported\n", len(result.Entries))
		return nil
	}

	if err := v.AddAll(result.Credentials()); err != nil {
		return fmt.Errorf("failed to import entries: %w", err)
	}

	fmt.Printf("✓ imported %d entries", len(result.Entries))
	if len(result.Skipped) > 0 {
		fmt.Printf(" (%d skipped)", len(result.Skipped))
	}
	fmt.Println()
	return nil
}

// readImportFile reads the export file, refusing symlinks. Exports hold
// plaintext passwords, so a planted link must not trick the command into
// reading an unexpected file.
func readImportFile(path string) ([]byte, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to access file: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("security: refusing to read symlink: %s", absPath)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}
