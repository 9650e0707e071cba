package cli

import (
	"testing"
)

func TestExpandPattern(t *testing.T) {
	accounts := []string{
		"aws_prod",
		"aws_dev",
		"gmail",
		"github",
		"bank",
	}

	tests := []struct {
		name     string
		pattern  string
		expected []string
		wantErr  bool
	}{
		{
			name:     "exact match",
			pattern:  "gmail",
			expected: []string{"gmail"},
		},
		{
			name:     "wildcard prefix",
			pattern:  "aws_*",
			expected: []string{"aws_prod", "aws_dev"},
		},
		{
			name:     "wildcard suffix",
			pattern:  "*mail",
			expected: []string{"gmail"},
		},
		{
			name:     "wildcard middle",
			pattern:  "g*b",
			expected: []string{"github"},
		},
		{
			name:     "question mark",
			pattern:  "ban?",
			expected: []string{"bank"},
		},
		{
			name:     "match all",
			pattern:  "*",
			expected: []string{"aws_prod", "aws_dev", "gmail", "github", "bank"},
		},
		{
			name:    "no match glob",
			pattern: "nonexistent_*",
			wantErr: true,
		},
		{
			name:    "no match exact",
			pattern: "nonexistent",
			wantErr: true,
		},
		{
			name:    "invalid pattern",
			pattern: "[invalid",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ExpandPattern(tc.pattern, accounts)

			if tc.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tc.expected) {
				t.Errorf("got %d results, want %d", len(result), len(tc.expected))
				return
			}

			for _, exp := range tc.expected {
				found := false
				for _, r := range result {
					if r == exp {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("missing expected account: %s", exp)
				}
			}
		})
	}
}

func TestExpandPatterns(t *testing.T) {
	accounts := []string{"a", "b", "c", "ab", "bc"}

	tests := []struct {
		name     string
		patterns []string
		expected []string
		wantErr  bool
	}{
		{
			name:     "single pattern",
			patterns: []string{"a"},
			expected: []string{"a"},
		},
		{
			name:     "multiple patterns",
			patterns: []string{"a", "b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "overlapping patterns",
			patterns: []string{"a*", "ab"},
			expected: []string{"a", "ab"},
		},
		{
			name:     "glob pattern",
			patterns: []string{"*b"},
			expected: []string{"b", "ab"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ExpandPatterns(tc.patterns, accounts)

			if tc.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			if len(result) != len(tc.expected) {
				t.Errorf("got %v, want %v", result, tc.expected)
			}
		})
	}
}

func TestSortAccounts(t *testing.T) {
	input := []string{"z", "a", "m", "b"}
	result := SortAccounts(input)

	// Check original is unchanged
	if input[0] != "z" {
		t.Error("original slice was modified")
	}

	// Check sorted result
	expected := []string{"a", "b", "m", "z"}
	for i, v := range result {
		if v != expected[i] {
			t.Errorf("position %d: got %s, want %s", i, v, expected[i])
		}
	}
}

func TestMapKeys(t *testing.T) {
	m := map[string]int{"z": 1, "a": 2, "m": 3}
	result := MapKeys(m)

	expected := []string{"a", "m", "z"}
	if len(result) != len(expected) {
		t.Errorf("got %d keys, want %d", len(result), len(expected))
	}

	for i, v := range result {
		if v != expected[i] {
			t.Errorf("position %d: got %s, want %s", i, v, expected[i])
		}
	}
}
