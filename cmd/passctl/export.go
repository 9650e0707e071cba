package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MamangRust/passctl/internal/cli"
)

// Export format constants
const (
	formatEnv  = "env"
	formatJSON = "json"
	formatYAML = "yaml"
)

// Export command flags
var (
	exportFormat string
	exportOutput string
	exportReveal bool
	exportForce  bool
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "env", "Output format: env, json, yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportReveal, "reveal", false, "Export plaintext passwords instead of masks")
	exportCmd.Flags().BoolVar(&exportForce, "force", false, "Overwrite an existing output file")
}

var exportCmd = &cobra.Command{
	Use:   "export [pattern...]",
	Short: "Export entries to env, JSON, or YAML format",
	Long: `Export vault entries. Passwords stay masked unless --reveal is given,
so the default output is safe to paste into an issue or a runbook.

Examples:
  # All entries to stdout in .env format (masked)
  passctl export

  # Plaintext export of matching accounts to a file
  passctl export --reveal -o .env "aws_*"

  # JSON and YAML
  passctl export -f json -o creds.json --reveal
  passctl export -f yaml

  # Overwrite an existing file
  passctl export -o .env --force`,
	RunE: executeExport,
}

// exportEntry is one entry prepared for output.
type exportEntry struct {
	envName string
	value   string
}

func executeExport(cmd *cobra.Command, args []string) error {
	if err := validateExportFormat(); err != nil {
		return err
	}

	entries, err := collectExportEntries(args)
	if err != nil {
		return err
	}

	output, err := generateExportOutput(entries)
	if err != nil {
		return err
	}

	return writeExportOutput(output, len(entries))
}

func validateExportFormat() error {
	exportFormat = strings.ToLower(exportFormat)
	switch exportFormat {
	case formatEnv, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("invalid format '%s': must be '%s', '%s', or '%s'",
			exportFormat, formatEnv, formatJSON, formatYAML)
	}
}

// collectExportEntries selects the entries to export, resolves each value
// (mask or plaintext), and assigns environment variable names.
func collectExportEntries(patterns []string) ([]exportEntry, error) {
	all := v.List()
	if len(all) == 0 {
		return nil, fmt.Errorf("no entries in vault")
	}

	selected := make(map[string]bool)
	if len(patterns) > 0 {
		accounts := make([]string, len(all))
		for i, e := range all {
			accounts[i] = e.Account
		}
		matched, err := cli.ExpandPatterns(patterns, accounts)
		if err != nil {
			return nil, err
		}
		for _, account := range matched {
			selected[account] = true
		}
	}

	// Duplicate accounts and accounts that normalize to the same env name
	// get numeric suffixes so no value silently wins
	seen := make(map[string]int)
	var entries []exportEntry
	for i, e := range all {
		if len(patterns) > 0 && !selected[e.Account] {
			continue
		}

		value := e.MaskedPassword()
		if exportReveal {
			plain, err := v.Reveal(i)
			if err != nil {
				return nil, fmt.Errorf("failed to reveal '%s': %w", e.Account, err)
			}
			value = plain
		}

		name := accountToEnvName(e.Account)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}

		entries = append(entries, exportEntry{envName: name, value: value})
	}
	return entries, nil
}

// accountToEnvName converts an account name to an environment variable name:
// uppercase, non-alphanumerics collapsed to underscores, leading digit
// guarded with an underscore.
func accountToEnvName(account string) string {
	var sb strings.Builder
	for _, r := range strings.ToUpper(account) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	name := sb.String()
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "_" + name
	}
	return name
}

func generateExportOutput(entries []exportEntry) (string, error) {
	switch exportFormat {
	case formatEnv:
		return generateEnvOutput(entries), nil
	case formatJSON:
		return generateJSONOutput(entries)
	case formatYAML:
		return generateYAMLOutput(entries)
	default:
		return "", fmt.Errorf("unknown format: %s", exportFormat)
	}
}

// generateEnvOutput generates .env format output
func generateEnvOutput(entries []exportEntry) string {
	var sb strings.Builder
	sb.WriteString("# Generated by passctl\n")
	sb.WriteString("# WARNING: DO NOT COMMIT THIS FILE TO VERSION CONTROL\n")
	sb.WriteString("#\n")

	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s=%s\n", e.envName, escapeEnvValue(e.value)))
	}

	return sb.String()
}

// escapeEnvValue escapes a value for .env format
// Values with special characters are quoted
func escapeEnvValue(value string) string {
	needsQuote := false
	for _, c := range value {
		if c == ' ' || c == '"' || c == '\'' || c == '\\' || c == '\n' || c == '\r' || c == '\t' || c == '#' || c == '$' || c == '=' {
			needsQuote = true
			break
		}
	}

	if !needsQuote {
		return value
	}

	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	escaped = strings.ReplaceAll(escaped, "\n", "\\n")
	escaped = strings.ReplaceAll(escaped, "\r", "\\r")
	escaped = strings.ReplaceAll(escaped, "\t", "\\t")
	escaped = strings.ReplaceAll(escaped, "$", "\\$")

	return "\"" + escaped + "\""
}

// generateJSONOutput generates a flat name-to-value JSON object.
func generateJSONOutput(entries []exportEntry) (string, error) {
	result := make(map[string]string, len(entries))
	for _, e := range entries {
		result[e.envName] = e.value
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data) + "\n", nil
}

// generateYAMLOutput generates a flat name-to-value YAML mapping.
func generateYAMLOutput(entries []exportEntry) (string, error) {
	result := make(map[string]string, len(entries))
	for _, e := range entries {
		result[e.envName] = e.value
	}
	data, err := yaml.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return string(data), nil
}

func writeExportOutput(output string, count int) error {
	if exportOutput == "" {
		fmt.Print(output)
		if exportReveal {
			fmt.Fprintln(os.Stderr, "\nWARNING: DO NOT COMMIT THIS OUTPUT TO VERSION CONTROL")
		}
		return nil
	}

	if err := writeSecureFile(exportOutput, output, exportForce); err != nil {
		return err
	}

	fmt.Printf("✓ exported %d entries to %s (mode 0600)\n", count, exportOutput)
	if exportReveal {
		fmt.Fprintln(os.Stderr, "WARNING: the file contains plaintext passwords, do not commit it")
	}
	return nil
}

// writeSecureFile writes content to a file with 0600 permissions. It refuses
// system directories and symlinks, and will not overwrite without force.
func writeSecureFile(path string, content string, force bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	sensitivePaths := []string{"/etc/", "/usr/", "/bin/", "/sbin/", "/var/log/", "/var/run/"}
	for _, sensitive := range sensitivePaths {
		if strings.HasPrefix(absPath, sensitive) {
			return fmt.Errorf("security: refusing to write to system directory: %s", absPath)
		}
	}

	info, err := os.Lstat(absPath)
	if err == nil {
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("security: refusing to write to symlink: %s", absPath)
		}
		if !force {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", absPath)
		}
	}

	dir := filepath.Dir(absPath)
	if dir != "." && dir != "/" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// O_EXCL unless force so a file appearing between the Lstat and the
	// open still cannot be clobbered
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(absPath, flags, 0600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("file already exists: %s (use --force to overwrite)", absPath)
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	_, writeErr := f.WriteString(content)
	closeErr := f.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to write file: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	return nil
}
