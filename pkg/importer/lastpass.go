package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// LastPass CSV column names. Exports carry the full header as
// url,username,password,totp,extra,name,grouping,fav.
const (
	lpColURL      = "url"
	lpColUsername = "username"
	lpColPassword = "password"
	lpColName     = "name"
)

// lastPassSecureNoteURL marks Secure Note items in LastPass exports.
const lastPassSecureNoteURL = "http://sn"

// LastPassParser parses LastPass CSV exports. Unlike the generic CSV
// parser it validates the LastPass schema up front and reports Secure
// Notes as skipped items rather than as rows missing a password.
type LastPassParser struct{}

// Source returns the source type for this parser.
func (p *LastPassParser) Source() Source {
	return SourceLastPass
}

// Parse parses LastPass CSV export data.
func (p *LastPassParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
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

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[strings.ToLower(strings.TrimSpace(col))] = i
	}

	// LastPass exports always name these columns
	for _, col := range []string{lpColName, lpColPassword} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("not a LastPass export: missing %q column", col)
		}
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

	DeduplicateAccounts(result.Entries)

	return result, nil
}

// parseRow parses a single LastPass row into an ImportedEntry.
func (p *LastPassParser) parseRow(row []string, colIndex map[string]int, opts ParseOptions, itemCounter *int) (*ImportedEntry, SkippedItem) {
	getValue := func(col string) string {
		if idx, ok := colIndex[col]; ok && idx < len(row) {
			// LastPass HTML-encodes special characters
			return DecodeHTMLEntities(NormalizeValue(row[idx]))
		}
		return ""
	}

	name := getValue(lpColName)
	username := getValue(lpColUsername)
	password := getValue(lpColPassword)
	url := getValue(lpColURL)

	displayName := name
	if displayName == "" {
		displayName = username
	}

	// Secure Notes have no credential payload
	if url == lastPassSecureNoteURL {
		return nil, SkippedItem{OriginalName: displayName, Reason: "secure note"}
	}
	if password == "" {
		return nil, SkippedItem{OriginalName: displayName, Reason: "no password"}
	}

	// Account name precedence: item name, URL hostname, username, counter
	account := SanitizeAccountName(name, opts.PreserveCase)
	if account == "" && url != "" {
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
