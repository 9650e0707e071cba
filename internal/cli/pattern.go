// Package cli provides shared utilities for CLI commands.
package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ExpandPattern expands a glob pattern against available account names.
// If the pattern contains glob characters (*?[), it performs glob matching.
// Otherwise, it performs exact matching.
func ExpandPattern(pattern string, accounts []string) ([]string, error) {
	// Validate pattern syntax
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}

	// Check if pattern contains glob characters
	hasGlob := strings.ContainsAny(pattern, "*?[")

	if !hasGlob {
		// Exact match - verify account exists
		for _, account := range accounts {
			if account == pattern {
				return []string{pattern}, nil
			}
		}
		return nil, fmt.Errorf("account '%s' not found", pattern)
	}

	// Glob matching
	var matches []string
	for _, account := range accounts {
		matched, err := filepath.Match(pattern, account)
		if err != nil {
			return nil, err
		}
		if matched {
			matches = append(matches, account)
		}
	}

	if len(matches) == 0 {
		return nil, fmt.Errorf("no accounts match pattern '%s'", pattern)
	}

	return matches, nil
}

// ExpandPatterns expands multiple glob patterns against available accounts.
// Returns unique matching accounts preserving order of first match.
func ExpandPatterns(patterns []string, accounts []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range patterns {
		matches, err := ExpandPattern(pattern, accounts)
		if err != nil {
			return nil, err
		}
		for _, account := range matches {
			if !seen[account] {
				seen[account] = true
				result = append(result, account)
			}
		}
	}

	return result, nil
}

// SortAccounts returns a sorted copy of the accounts slice.
func SortAccounts(accounts []string) []string {
	sorted := make([]string, len(accounts))
	copy(sorted, accounts)
	sort.Strings(sorted)
	return sorted
}

// MapKeys extracts keys from a map and returns them sorted.
func MapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
