// Package importer provides parsers for importing credentials from other
// password managers. Supports generic credential CSV exports (covering
// Chrome and Bitwarden CSV), Bitwarden JSON, and dedicated LastPass and
// 1Password CSV parsers with per-format schema validation.
package importer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/MamangRust/passctl/pkg/vault"
)

// Source represents the source export format.
type Source string

const (
	SourceCSV       Source = "csv"
	SourceBitwarden Source = "bitwarden"
	SourceLastPass  Source = "lastpass"
	Source1Password Source = "1password"
)

// MaxAccountLength is the maximum allowed account name length.
const MaxAccountLength = 128

// ImportedEntry represents a credential imported from an export file.
type ImportedEntry struct {
	// Account is the sanitized account name.
	Account string

	// OriginalName is the original item name before sanitization.
	OriginalName string

	// Password is the plaintext password from the export.
	Password string
}

// ImportResult contains the results of an import operation.
type ImportResult struct {
	// Entries are the successfully parsed credentials.
	Entries []*ImportedEntry

	// Warnings are non-fatal issues encountered during parsing.
	Warnings []string

	// Skipped are items that were skipped with reasons.
	Skipped []SkippedItem
}

// SkippedItem represents an item that was skipped during import.
type SkippedItem struct {
	OriginalName string
	Reason       string
}

// Credentials converts the parsed entries for batch insertion into the store.
func (r *ImportResult) Credentials() []vault.Credential {
	creds := make([]vault.Credential, len(r.Entries))
	for i, e := range r.Entries {
		creds[i] = vault.Credential{Account: e.Account, Password: e.Password}
	}
	return creds
}

// Parser is the interface for export format parsers.
type Parser interface {
	// Parse parses the input data and returns imported credentials.
	Parse(data []byte, opts ParseOptions) (*ImportResult, error)

	// Source returns the source type for this parser.
	Source() Source
}

// ParseOptions contains options for parsing.
type ParseOptions struct {
	// PreserveCase prevents lowercasing of account names.
	PreserveCase bool
}

// accountNameRegex matches valid account characters (alphanumeric, underscore,
// hyphen, dot). Dots stay so hostname-derived accounts keep their shape.
var accountNameRegex = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// SanitizeAccountName sanitizes an item name into a store account name:
// 1. Replace spaces with underscores
// 2. Remove invalid characters (keep alphanumeric, _, -, .)
// 3. Truncate to MaxAccountLength
// 4. Convert to lowercase (unless preserveCase is true)
func SanitizeAccountName(name string, preserveCase bool) string {
	if name == "" {
		return ""
	}

	// Normalize Unicode (NFC)
	name = norm.NFC.String(name)

	// Replace spaces with underscores
	name = strings.ReplaceAll(name, " ", "_")

	// Remove invalid characters
	name = accountNameRegex.ReplaceAllString(name, "")

	// Truncate to max length
	if len(name) > MaxAccountLength {
		name = name[:MaxAccountLength]
	}

	// Convert to lowercase unless preserveCase is true
	if !preserveCase {
		name = strings.ToLower(name)
	}

	return name
}

// DeduplicateAccounts ensures all account names are unique by appending
// suffixes (_1, _2, etc.). Comparison is case-insensitive.
func DeduplicateAccounts(entries []*ImportedEntry) {
	seen := make(map[string]int)

	for _, e := range entries {
		baseAccount := e.Account
		count := seen[strings.ToLower(baseAccount)]

		if count > 0 {
			// Append suffix
			e.Account = fmt.Sprintf("%s_%d", baseAccount, count)
		}

		seen[strings.ToLower(baseAccount)] = count + 1
	}
}

// GenerateFallbackAccount generates an account name when the item name is empty:
// 1. Use the URL hostname when one exists
// 2. Otherwise use imported_item_N
func GenerateFallbackAccount(url string, counter int) string {
	if url != "" {
		hostname := extractHostname(url)
		if hostname != "" {
			return hostname
		}
	}
	return fmt.Sprintf("imported_item_%d", counter)
}

// extractHostname extracts the hostname from a URL.
func extractHostname(urlStr string) string {
	// Simple hostname extraction without full URL parsing
	// Remove protocol
	urlStr = strings.TrimPrefix(urlStr, "https://")
	urlStr = strings.TrimPrefix(urlStr, "http://")

	// Remove path
	if idx := strings.Index(urlStr, "/"); idx != -1 {
		urlStr = urlStr[:idx]
	}

	// Remove port
	if idx := strings.Index(urlStr, ":"); idx != -1 {
		urlStr = urlStr[:idx]
	}

	// Remove www. prefix
	urlStr = strings.TrimPrefix(urlStr, "www.")

	return urlStr
}

// DecodeHTMLEntities decodes common HTML entities found in CSV exports.
// LastPass in particular may HTML-encode special characters.
func DecodeHTMLEntities(s string) string {
	s = strings.ReplaceAll(s, "&amp;", "&")
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&#39;", "'")
	s = strings.ReplaceAll(s, "&apos;", "'")
	return s
}

// NormalizeValue normalizes a value for comparison.
// Trims whitespace and normalizes Unicode.
func NormalizeValue(s string) string {
	s = strings.TrimSpace(s)
	s = norm.NFC.String(s)
	return s
}

// IsEmptyOrWhitespace checks if a string is empty or contains only whitespace.
func IsEmptyOrWhitespace(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// GetParser returns a parser for the given source.
func GetParser(source Source) (Parser, error) {
	switch source {
	case SourceCSV:
		return &CSVParser{}, nil
	case SourceBitwarden:
		return &BitwardenParser{}, nil
	case SourceLastPass:
		return &LastPassParser{}, nil
	case Source1Password:
		return &OnePasswordParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported import source: %s", source)
	}
}

// ValidSources returns a list of valid source names.
func ValidSources() []string {
	return []string{
		string(SourceCSV),
		string(SourceBitwarden),
		string(SourceLastPass),
		string(Source1Password),
	}
}
