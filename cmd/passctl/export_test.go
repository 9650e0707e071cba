package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestValidateExportFormat(t *testing.T) {
	tests := []struct {
		name        string
		format      string
		expectError bool
	}{
		{name: "env", format: "env", expectError: false},
		{name: "json", format: "json", expectError: false},
		{name: "yaml", format: "yaml", expectError: false},
		{name: "uppercase is normalized", format: "JSON", expectError: false},
		{name: "unknown format", format: "xml", expectError: true},
		{name: "empty format", format: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore globals
			oldFormat := exportFormat
			defer func() { exportFormat = oldFormat }()

			exportFormat = tt.format

			err := validateExportFormat()
			if tt.expectError && err == nil {
				t.Errorf("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAccountToEnvName(t *testing.T) {
	tests := []struct {
		account  string
		expected string
	}{
		{"gmail", "GMAIL"},
		{"aws_dev", "AWS_DEV"},
		{"aws-dev", "AWS_DEV"},
		{"my mail.com", "MY_MAIL_COM"},
		{"Db.Prod-1", "DB_PROD_1"},
		{"2fa", "_2FA"},
		{"café", "CAF_"},
		{"", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.account, func(t *testing.T) {
			if got := accountToEnvName(tt.account); got != tt.expected {
				t.Errorf("accountToEnvName(%q) = %q, want %q", tt.account, got, tt.expected)
			}
		})
	}
}

func TestEscapeEnvValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{name: "plain", value: "hunter2", expected: "hunter2"},
		{name: "empty", value: "", expected: ""},
		{name: "space", value: "a b", expected: `"a b"`},
		{name: "double quote", value: `pa"ss`, expected: `"pa\"ss"`},
		{name: "dollar", value: "pa$s", expected: `"pa\$s"`},
		{name: "newline", value: "a\nb", expected: `"a\nb"`},
		{name: "tab", value: "a\tb", expected: `"a\tb"`},
		{name: "backslash", value: `a\b`, expected: `"a\\b"`},
		{name: "hash", value: "a#b", expected: `"a#b"`},
		{name: "equals", value: "a=b", expected: `"a=b"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeEnvValue(tt.value); got != tt.expected {
				t.Errorf("escapeEnvValue(%q) = %q, want %q", tt.value, got, tt.expected)
			}
		})
	}
}

func TestGenerateEnvOutput(t *testing.T) {
	entries := []exportEntry{
		{envName: "GMAIL", value: "hunter2"},
		{envName: "AWS_DEV", value: "a b"},
	}

	output := generateEnvOutput(entries)

	if !strings.HasPrefix(output, "# Generated by passctl\n") {
		t.Errorf("missing header, got: %q", output)
	}
	if !strings.Contains(output, "DO NOT COMMIT") {
		t.Error("missing do-not-commit warning")
	}
	if !strings.Contains(output, "GMAIL=hunter2\n") {
		t.Errorf("missing plain entry, got: %q", output)
	}
	if !strings.Contains(output, `AWS_DEV="a b"`) {
		t.Errorf("value with space should be quoted, got: %q", output)
	}
}

func TestGenerateJSONOutput(t *testing.T) {
	entries := []exportEntry{
		{envName: "GMAIL", value: "hunter2"},
		{envName: "GITHUB", value: `pa"ss`},
	}

	output, err := generateJSONOutput(entries)
	if err != nil {
		t.Fatalf("generateJSONOutput failed: %v", err)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Error("JSON output should end with a newline")
	}

	var parsed map[string]string
	if err := json.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if parsed["GMAIL"] != "hunter2" {
		t.Errorf("GMAIL = %q, want hunter2", parsed["GMAIL"])
	}
	if parsed["GITHUB"] != `pa"ss` {
		t.Errorf("GITHUB = %q, want pa\"ss", parsed["GITHUB"])
	}
}

func TestGenerateYAMLOutput(t *testing.T) {
	entries := []exportEntry{
		{envName: "GMAIL", value: "hunter2"},
		{envName: "AWS_DEV", value: "multi\nline"},
	}

	output, err := generateYAMLOutput(entries)
	if err != nil {
		t.Fatalf("generateYAMLOutput failed: %v", err)
	}

	var parsed map[string]string
	if err := yaml.Unmarshal([]byte(output), &parsed); err != nil {
		t.Fatalf("output is not valid YAML: %v", err)
	}
	if parsed["GMAIL"] != "hunter2" {
		t.Errorf("GMAIL = %q, want hunter2", parsed["GMAIL"])
	}
	if parsed["AWS_DEV"] != "multi\nline" {
		t.Errorf("AWS_DEV = %q, want multi\\nline", parsed["AWS_DEV"])
	}
}

func TestWriteSecureFile(t *testing.T) {
	t.Run("creates file with 0600", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.env")

		if err := writeSecureFile(path, "A=b\n", false); err != nil {
			t.Fatalf("writeSecureFile failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read back: %v", err)
		}
		if string(data) != "A=b\n" {
			t.Errorf("content = %q, want A=b\\n", data)
		}

		if runtime.GOOS != "windows" {
			info, err := os.Stat(path)
			if err != nil {
				t.Fatal(err)
			}
			if perm := info.Mode().Perm(); perm != 0600 {
				t.Errorf("permissions = %o, want 0600", perm)
			}
		}
	})

	t.Run("refuses existing file without force", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.env")
		if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
			t.Fatal(err)
		}

		err := writeSecureFile(path, "new", false)
		if err == nil {
			t.Fatal("expected error for existing file")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.env")
		if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
			t.Fatal(err)
		}

		if err := writeSecureFile(path, "new", true); err != nil {
			t.Fatalf("writeSecureFile with force failed: %v", err)
		}

		data, _ := os.ReadFile(path)
		if string(data) != "new" {
			t.Errorf("content = %q, want new", data)
		}
	})

	t.Run("refuses symlink", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("symlink creation requires privileges on Windows")
		}
		dir := t.TempDir()
		target := filepath.Join(dir, "target")
		if err := os.WriteFile(target, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
		link := filepath.Join(dir, "link")
		if err := os.Symlink(target, link); err != nil {
			t.Fatal(err)
		}

		err := writeSecureFile(link, "y", true)
		if err == nil {
			t.Fatal("expected error for symlink")
		}
		if !strings.Contains(err.Error(), "symlink") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("refuses system directories", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("sensitive path prefixes are Unix paths")
		}
		err := writeSecureFile("/etc/passctl-test.env", "x", false)
		if err == nil {
			t.Fatal("expected error for system directory")
		}
		if !strings.Contains(err.Error(), "system directory") {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("creates parent directories", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "a", "b", "out.env")

		if err := writeSecureFile(path, "A=b\n", false); err != nil {
			t.Fatalf("writeSecureFile failed: %v", err)
		}

		if runtime.GOOS != "windows" {
			info, err := os.Stat(filepath.Dir(path))
			if err != nil {
				t.Fatal(err)
			}
			if perm := info.Mode().Perm(); perm != 0700 {
				t.Errorf("directory permissions = %o, want 0700", perm)
			}
		}
	})
}
