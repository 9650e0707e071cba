package importer

import (
	"encoding/json"
	"fmt"
)

// BitwardenParser parses Bitwarden JSON export files. Only login items
// (type 1) carry a password; other item types are reported as skipped.
type BitwardenParser struct{}

// Bitwarden item types.
const (
	bitwardenTypeLogin      = 1
	bitwardenTypeSecureNote = 2
	bitwardenTypeCard       = 3
	bitwardenTypeIdentity   = 4
)

// bitwardenExport represents the top-level Bitwarden export structure.
type bitwardenExport struct {
	Items []bitwardenItem `json:"items"`
}

// bitwardenItem represents a Bitwarden vault item.
type bitwardenItem struct {
	Type  int             `json:"type"`
	Name  string          `json:"name"`
	Login *bitwardenLogin `json:"login"`
}

// bitwardenLogin represents Bitwarden login data.
type bitwardenLogin struct {
	URIs     []bitwardenURI `json:"uris"`
	Username string         `json:"username"`
	Password string         `json:"password"`
}

// bitwardenURI represents a Bitwarden URI entry.
type bitwardenURI struct {
	URI string `json:"uri"`
}

// Source returns the source type for this parser.
func (p *BitwardenParser) Source() Source {
	return SourceBitwarden
}

// Parse parses Bitwarden JSON data.
func (p *BitwardenParser) Parse(data []byte, opts ParseOptions) (*ImportResult, error) {
	result := &ImportResult{
		Entries:  make([]*ImportedEntry, 0),
		Warnings: make([]string, 0),
		Skipped:  make([]SkippedItem, 0),
	}

	var export bitwardenExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to parse Bitwarden JSON: %w", err)
	}

	// Track for account name fallback
	itemCounter := 1

	// Process items
	for i := range export.Items {
		item := &export.Items[i]
		entry, skipped := p.parseItem(item, opts, &itemCounter)
		if entry != nil {
			result.Entries = append(result.Entries, entry)
		} else {
			result.Skipped = append(result.Skipped, skipped)
		}
	}

	// Deduplicate account names
	DeduplicateAccounts(result.Entries)

	return result, nil
}

// parseItem parses a single Bitwarden item.
func (p *BitwardenParser) parseItem(item *bitwardenItem, opts ParseOptions, itemCounter *int) (*ImportedEntry, SkippedItem) {
	switch item.Type {
	case bitwardenTypeLogin:
		// Fall through to login handling below
	case bitwardenTypeSecureNote, bitwardenTypeCard, bitwardenTypeIdentity:
		return nil, SkippedItem{OriginalName: item.Name, Reason: "not a login item"}
	default:
		return nil, SkippedItem{
			OriginalName: item.Name,
			Reason:       fmt.Sprintf("unsupported item type: %d", item.Type),
		}
	}

	if item.Login == nil || item.Login.Password == "" {
		return nil, SkippedItem{OriginalName: item.Name, Reason: "no password"}
	}
	login := item.Login

	// Account name precedence: item name, URI hostname, username, counter
	account := SanitizeAccountName(item.Name, opts.PreserveCase)
	if account == "" {
		for _, uri := range login.URIs {
			if uri.URI == "" {
				continue
			}
			account = SanitizeAccountName(extractHostname(uri.URI), opts.PreserveCase)
			if account != "" {
				break
			}
		}
	}
	if account == "" {
		account = SanitizeAccountName(login.Username, opts.PreserveCase)
	}
	if account == "" {
		account = SanitizeAccountName(GenerateFallbackAccount("", *itemCounter), opts.PreserveCase)
		*itemCounter++
	}

	return &ImportedEntry{
		Account:      account,
		OriginalName: item.Name,
		Password:     login.Password,
	}, SkippedItem{}
}
