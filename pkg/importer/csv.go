package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVParser parses credential CSV exports with a header row. Column names
// vary between managers, so each concern matches a list of aliases:
//
//	LastPass:       url,username,password,totp,extra,name,grouping,fav
//	Chrome:         name,url,username,password
//	Bitwarden CSV:  folder,...,name,...,login_uri,login_username,login_password
type CSVParser struct{}

// Column aliases in priority order.
var (
	csvNameColumns     = []string{"name", "title", "account"}
	csvUsernameColumns = []string{"username", "login_username", "login", "user"}
	csvPasswordColumns = []string{"password", "login_password", "pass"}
	csvURLColumns      = []string{"url", "login_uri", "website"}
)

// Source returns the source type for this parser.
func (p *CSVParser) Source() Source {
	return SourceCSV
}

// Parse parses credential CSV data.
func (p *CSVParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
	result := &ImportResult{
		Entries:  make([]*ImportedEntry, 0),
		Warnings: make([]string, 0),
		Skipped:  make([]SkippedItem, 0),
	}

	// Strip UTF-8 BOM if present
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true // Handle malformed exports

	// Read header
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	// Build column index map (header-based parsing)
	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	// A password column is the one hard requirement
	if _, ok := findColumn(colIndex, csvPasswordColumns); !ok {
		return nil, fmt.Errorf("no password column found (expected one of: %s)",
			strings.Join(csvPasswordColumns, ", "))
	}

	// Track for account name fallback
	itemCounter := 1

	// Process rows
	rowNum := 1 // 1-indexed (header is row 1)
	for {
		rowNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: failed to parse: %v", rowNum, err))
			continue
		}

		// Validate column count
		if len(row) != len(header) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("row %d: column count mismatch (expected %d, got %d)",
					rowNum, len(header), len(row)))
			continue
		}

		entry, skipped := p.parseRow(row, colIndex, opts, &itemCounter)
		if entry != nil {
			result.Entries = append(result.Entries, entry)
		} else if skipped.Reason != "" {
			result.Skipped = append(result.Skipped, skipped)
		}
	}

	// Deduplicate account names
	DeduplicateAccounts(result.Entries)

	return result, nil
}

// parseRow parses a single CSV row into an ImportedEntry.
func (p *CSVParser) parseRow(row []string, colIndex map[string]int, opts ParseOptions, itemCounter *int) (*ImportedEntry, SkippedItem) {
	getValue := func(aliases []string) string {
		if idx, ok := findColumn(colIndex, aliases); ok && idx < len(row) {
			// LastPass HTML-encodes special characters
			return DecodeHTMLEntities(NormalizeValue(row[idx]))
		}
		return ""
	}

	name := getValue(csvNameColumns)
	username := getValue(csvUsernameColumns)
	password := getValue(csvPasswordColumns)
	url := getValue(csvURLColumns)

	displayName := name
	if displayName == "" {
		displayName = username
	}

	if password == "" {
		return nil, SkippedItem{OriginalName: displayName, Reason: "no password"}
	}

	// Account name precedence: item name, URL hostname, username, counter
	account := SanitizeAccountName(name, opts.PreserveCase)
	if account == "" && url != "" && url != "http://sn" { // LastPass uses "http://sn" for Secure Notes
		account = SanitizeAccountName(extractHostname(url), opts.PreserveCase)
	}
	if account == "" {
		account = SanitizeAccountName(username, opts.PreserveCase)
	}
	if account == "" {
		account = SanitizeAccountName(GenerateFallbackAccount("", *itemCounter), opts.PreserveCase)
		*itemCounter++
	}

	return &ImportedEntry{
		Account:      account,
		OriginalName: name,
		Password:     password,
	}, SkippedItem{}
}

// findColumn returns the index of the first alias present in the header.
func findColumn(colIndex map[string]int, aliases []string) (int, bool) {
	for _, alias := range aliases {
		if idx, ok := colIndex[alias]; ok {
			return idx, true
		}
	}
	return 0, false
}
