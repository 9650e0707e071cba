package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// 1Password CSV column names. Exports carry nine columns:
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes.
// Headers are matched case-insensitively.
const (
	op1ColTitle    = "title"
	op1ColWebsite  = "website"
	op1ColUsername = "username"
	op1ColPassword = "password"
	op1ColArchived = "archived"
)

// OnePasswordParser parses 1Password CSV exports. It validates the
// 1Password schema up front and skips archived items.
type OnePasswordParser struct{}

// Source returns the source type for this parser.
func (p *OnePasswordParser) Source() Source {
	return Source1Password
}

// Parse parses 1Password CSV export data.
func (p *OnePasswordParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
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

	// 1Password exports always name these columns
	for _, col := range []string{op1ColTitle, op1ColPassword} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("not a 1Password export: missing %q column", col)
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

// parseRow parses a single 1Password row into an ImportedEntry.
func (p *OnePasswordParser) parseRow(row []string, colIndex map[string]int, opts ParseOptions, itemCounter *int) (*ImportedEntry, SkippedItem) {
	getValue := func(col string) string {
		if idx, ok := colIndex[col]; ok && idx < len(row) {
			return NormalizeValue(row[idx])
		}
		return ""
	}

	title := getValue(op1ColTitle)
	website := getValue(op1ColWebsite)
	username := getValue(op1ColUsername)
	password := getValue(op1ColPassword)
	archived := getValue(op1ColArchived)

	displayName := title
	if displayName == "" {
		displayName = username
	}

	if isArchivedFlag(archived) {
		return nil, SkippedItem{OriginalName: displayName, Reason: "archived"}
	}
	if password == "" {
		return nil, SkippedItem{OriginalName: displayName, Reason: "no password"}
	}

	// Account name precedence: title, website hostname, username, counter
	account := SanitizeAccountName(title, opts.PreserveCase)
	if account == "" && website != "" {
		account = SanitizeAccountName(extractHostname(website), opts.PreserveCase)
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
		OriginalName: title,
		Password:     password,
	}, SkippedItem{}
}

// isArchivedFlag reports whether an Archived column value marks the row
// as archived. 1Password writes "true", older exports "Y".
func isArchivedFlag(v string) bool {
	switch strings.ToLower(v) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
