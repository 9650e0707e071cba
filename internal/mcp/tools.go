package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// VaultListInput represents input for the vault_list tool.
type VaultListInput struct {
	Pattern string `json:"pattern,omitempty"`
}

// VaultListOutput represents output for the vault_list tool.
type VaultListOutput struct {
	Entries []EntryInfo `json:"entries"`
	Count   int         `json:"count"`
}

// EntryInfo represents one vault entry without its plaintext password. Index
// is the 1-based position in the full vault listing, so it stays usable with
// the CLI reveal command even when the policy or a pattern filters the list.
type EntryInfo struct {
	Index   int    `json:"index"`
	Account string `json:"account"`
	Masked  string `json:"masked_password"`
}

// VaultExistsInput represents input for the vault_exists tool.
type VaultExistsInput struct {
	Account string `json:"account"`
}

// VaultExistsOutput represents output for the vault_exists tool.
type VaultExistsOutput struct {
	Exists  bool   `json:"exists"`
	Account string `json:"account"`
	Index   int    `json:"index,omitempty"`
}

// handleVaultList handles the vault_list tool call.
func (s *Server) handleVaultList(_ context.Context, _ *mcp.CallToolRequest, input VaultListInput) (*mcp.CallToolResult, VaultListOutput, error) {
	pattern := strings.TrimSpace(input.Pattern)
	if pattern != "" {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, VaultListOutput{}, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
	}

	infos := make([]EntryInfo, 0)
	for i, entry := range s.vault.List() {
		if !s.policy.IsAccountVisible(entry.Account) {
			continue
		}
		if pattern != "" {
			matched, _ := filepath.Match(pattern, entry.Account)
			if !matched {
				continue
			}
		}
		infos = append(infos, EntryInfo{
			Index:   i + 1,
			Account: entry.Account,
			Masked:  entry.MaskedPassword(),
		})
	}

	return nil, VaultListOutput{Entries: infos, Count: len(infos)}, nil
}

// handleVaultExists handles the vault_exists tool call. Accounts hidden by
// policy report as absent, so the policy does not leak existence either.
func (s *Server) handleVaultExists(_ context.Context, _ *mcp.CallToolRequest, input VaultExistsInput) (*mcp.CallToolResult, VaultExistsOutput, error) {
	account := strings.TrimSpace(input.Account)
	if account == "" {
		return nil, VaultExistsOutput{}, errors.New("account is required")
	}

	for i, entry := range s.vault.List() {
		if entry.Account != account {
			continue
		}
		if !s.policy.IsAccountVisible(entry.Account) {
			break
		}
		return nil, VaultExistsOutput{
			Exists:  true,
			Account: account,
			Index:   i + 1,
		}, nil
	}

	return nil, VaultExistsOutput{Exists: false, Account: account}, nil
}
