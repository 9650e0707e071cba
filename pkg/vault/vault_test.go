package vault

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MamangRust/passctl/pkg/crypto"
	"github.com/MamangRust/passctl/pkg/payload"
)

// newTestEngine builds a cipher engine from a fixed passphrase.
func newTestEngine(t *testing.T, passphrase string) *crypto.Engine {
	t.Helper()
	key, err := crypto.DeriveKey(passphrase)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	engine, err := crypto.NewEngine(key)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

// newTestVault opens a vault on a fresh temp file that does not exist yet.
func newTestVault(t *testing.T) (*Vault, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "passwords.txt")
	v, err := Open(path, newTestEngine(t, "test-master-key"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return v, path
}

// TestOpen tests that a new vault starts empty at the given path
func TestOpen(t *testing.T) {
	v, path := newTestVault(t)

	if v.Path() != path {
		t.Errorf("expected path %s, got %s", path, v.Path())
	}
	if v.Len() != 0 {
		t.Errorf("expected empty vault, got %d entries", v.Len())
	}
}

// TestOpenNilEngine tests that Open rejects a missing cipher engine
func TestOpenNilEngine(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "passwords.txt"), nil)
	if err != ErrNilEngine {
		t.Errorf("expected ErrNilEngine, got %v", err)
	}
}

// TestLoadMissingFile tests that a missing entries file yields an empty vault
func TestLoadMissingFile(t *testing.T) {
	v, _ := newTestVault(t)

	if err := v.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Len() != 0 {
		t.Errorf("expected empty vault, got %d entries", v.Len())
	}
	if v.Migrated() {
		t.Error("expected migrated to be false for a missing file")
	}
}

func TestLoadUnreadablePathLeavesVaultEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passwords.txt")
	// A directory at the entries path makes the read fail after open
	if err := os.Mkdir(path, 0700); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}

	v, err := Open(path, newTestEngine(t, "test-master-key"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := v.Load(); err == nil {
		t.Fatal("expected Load to fail on a directory")
	}
	if v.Len() != 0 {
		t.Errorf("expected empty vault after failed load, got %d entries", v.Len())
	}
	if v.Migrated() {
		t.Error("expected migrated to be false after failed load")
	}
}

// TestLoadSkipsLinesWithoutSeparator tests that lines with no comma are dropped
func TestLoadSkipsLinesWithoutSeparator(t *testing.T) {
	v, path := newTestVault(t)

	content := "not a credential line\ngmail,s3cr3t\n\njust-an-account\n"
	if err := os.WriteFile(path, []byte(content), FileMode); err != nil {
		t.Fatalf("failed to write entries file: %v", err)
	}

	if err := v.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", v.Len())
	}
	if v.List()[0].Account != "gmail" {
		t.Errorf("expected account gmail, got %s", v.List()[0].Account)
	}
}

// TestLoadSplitsOnFirstSeparator tests that only the first comma delimits the account
func TestLoadSplitsOnFirstSeparator(t *testing.T) {
	v, path := newTestVault(t)

	if err := os.WriteFile(path, []byte("acct,pa,ss\n"), FileMode); err != nil {
		t.Fatalf("failed to write entries file: %v", err)
	}

	if err := v.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", v.Len())
	}
	if v.List()[0].Account != "acct" {
		t.Errorf("expected account acct, got %s", v.List()[0].Account)
	}

	// Everything after the first separator is the password
	plain, err := v.Reveal(0)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if plain != "pa,ss" {
		t.Errorf("expected password 'pa,ss', got %q", plain)
	}
}

func TestLoadKeepsEmptyFields(t *testing.T) {
	v, path := newTestVault(t)

	// Lines with a separator are kept even when a field is empty
	if err := os.WriteFile(path, []byte(",nameless\nempty-pass,\n"), FileMode); err != nil {
		t.Fatalf("failed to write entries file: %v", err)
	}

	if err := v.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", v.Len())
	}

	entries := v.List()
	if entries[0].Account != "" {
		t.Errorf("expected empty account, got %q", entries[0].Account)
	}
	if entries[1].Account != "empty-pass" {
		t.Errorf("expected account empty-pass, got %q", entries[1].Account)
	}

	// The empty password migrates like any other plaintext field
	plain, err := v.Reveal(1)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if plain != "" {
		t.Errorf("expected empty password, got %q", plain)
	}
}

// TestAdd tests that Add encrypts, appends, and persists immediately
func TestAdd(t *testing.T) {
	v, path := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if v.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", v.Len())
	}

	entry := v.List()[0]
	if entry.Account != "gmail" {
		t.Errorf("expected account gmail, got %s", entry.Account)
	}
	if !payload.IsEncrypted(entry.Password) {
		t.Error("expected stored password to be in encrypted form")
	}

	// The entry was persisted immediately
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read entries file: %v", err)
	}
	if !strings.HasPrefix(string(data), "gmail,") {
		t.Errorf("expected file to start with 'gmail,', got %q", string(data))
	}
	if strings.Contains(string(data), "s3cr3t") {
		t.Error("entries file contains the plaintext password")
	}
}

func TestAddTrimsInput(t *testing.T) {
	v, _ := newTestVault(t)

	if err := v.Add("  gmail  ", "  s3cr3t  "); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if v.List()[0].Account != "gmail" {
		t.Errorf("expected trimmed account gmail, got %q", v.List()[0].Account)
	}

	plain, err := v.Reveal(0)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if plain != "s3cr3t" {
		t.Errorf("expected trimmed password s3cr3t, got %q", plain)
	}
}

// TestAddValidation tests rejection of blank accounts and passwords
func TestAddValidation(t *testing.T) {
	tests := []struct {
		name     string
		account  string
		password string
		wantErr  error
	}{
		{"empty account", "", "s3cr3t", ErrEmptyAccount},
		{"whitespace account", "   ", "s3cr3t", ErrEmptyAccount},
		{"empty password", "gmail", "", ErrEmptyPassword},
		{"whitespace password", "gmail", "  \t ", ErrEmptyPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, path := newTestVault(t)

			err := v.Add(tt.account, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Add(%q, %q) error = %v, want %v", tt.account, tt.password, err, tt.wantErr)
			}
			if v.Len() != 0 {
				t.Errorf("expected no entries after rejected add, got %d", v.Len())
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Error("expected no entries file after rejected add")
			}
		})
	}
}

// TestAddPersistsAcrossLoads tests the write-then-reload round trip
func TestAddPersistsAcrossLoads(t *testing.T) {
	v, path := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := v.Add("github", "hunter2"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// A second vault with the same key reads the same credentials back
	v2, err := Open(path, newTestEngine(t, "test-master-key"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := v2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v2.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", v2.Len())
	}
	if v2.Migrated() {
		t.Error("expected no migration for already encrypted entries")
	}

	plain, err := v2.Reveal(1)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if plain != "hunter2" {
		t.Errorf("expected hunter2, got %q", plain)
	}
}

func TestAddSaveFailureKeepsEntryInMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "passwords.txt")
	v, err := Open(path, newTestEngine(t, "test-master-key"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	err = v.Add("gmail", "s3cr3t")
	if err == nil {
		t.Fatal("expected Add to fail when the entries file cannot be written")
	}
	if v.Len() != 1 {
		t.Errorf("expected entry to remain in memory after failed save, got %d entries", v.Len())
	}
}

// TestReveal tests plaintext recovery by position
func TestReveal(t *testing.T) {
	v, _ := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	plain, err := v.Reveal(0)
	if err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}
	if plain != "s3cr3t" {
		t.Errorf("expected s3cr3t, got %q", plain)
	}
}

func TestRevealIndexOutOfRange(t *testing.T) {
	v, _ := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	for _, index := range []int{-1, 1, 100} {
		if _, err := v.Reveal(index); err != ErrIndexOutOfRange {
			t.Errorf("Reveal(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
	}
}

// TestRevealWrongKey tests that a different passphrase fails authentication
func TestRevealWrongKey(t *testing.T) {
	v, path := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	v2, err := Open(path, newTestEngine(t, "another-passphrase"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := v2.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	_, err = v2.Reveal(0)
	if !errors.Is(err, crypto.ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestRevealDoesNotMutate(t *testing.T) {
	v, path := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read entries file: %v", err)
	}
	stored := v.List()[0].Password

	if _, err := v.Reveal(0); err != nil {
		t.Fatalf("Reveal failed: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read entries file: %v", err)
	}
	if string(before) != string(after) {
		t.Error("entries file changed after Reveal")
	}
	if v.List()[0].Password != stored {
		t.Error("stored password field changed after Reveal")
	}
}

// TestListReturnsSnapshot tests that callers cannot mutate vault state through List
func TestListReturnsSnapshot(t *testing.T) {
	v, _ := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	entries := v.List()
	entries[0].Account = "mutated"

	if v.List()[0].Account != "gmail" {
		t.Error("mutating the listed slice changed vault state")
	}
}

// TestSaveRewritesWholeFile tests that Save replaces the file contents entirely
func TestSaveRewritesWholeFile(t *testing.T) {
	v, path := newTestVault(t)

	// Stale content is replaced entirely, not appended to
	if err := os.WriteFile(path, []byte("stale,content\nmore,stale\n"), FileMode); err != nil {
		t.Fatalf("failed to write entries file: %v", err)
	}

	if err := v.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read entries file: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file after saving an empty vault, got %q", string(data))
	}
}

func TestSaveFilePermissions(t *testing.T) {
	v, path := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat entries file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != FileMode {
		t.Errorf("expected file mode %o, got %o", FileMode, perm)
	}
}

// TestAddAll tests batch insertion with a single save
func TestAddAll(t *testing.T) {
	v, _ := newTestVault(t)

	creds := []Credential{
		{Account: "gmail", Password: "s3cr3t"},
		{Account: "github", Password: "hunter2"},
		{Account: "aws", Password: "root123"},
	}
	if err := v.AddAll(creds); err != nil {
		t.Fatalf("AddAll failed: %v", err)
	}
	if v.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", v.Len())
	}

	for i, c := range creds {
		plain, err := v.Reveal(i)
		if err != nil {
			t.Fatalf("Reveal(%d) failed: %v", i, err)
		}
		if plain != c.Password {
			t.Errorf("Reveal(%d) = %q, want %q", i, plain, c.Password)
		}
	}
}

func TestAddAllRejectsInvalidBatch(t *testing.T) {
	v, _ := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	creds := []Credential{
		{Account: "github", Password: "hunter2"},
		{Account: "  ", Password: "pass"},
	}
	err := v.AddAll(creds)
	if !errors.Is(err, ErrEmptyAccount) {
		t.Errorf("expected ErrEmptyAccount, got %v", err)
	}
	if v.Len() != 1 {
		t.Errorf("expected batch to be rejected whole, got %d entries", v.Len())
	}
}

func TestReplaceAll(t *testing.T) {
	v, path := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	replacement := v.List()
	replacement[0].Account = "mail"

	if err := v.ReplaceAll(replacement); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if v.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", v.Len())
	}
	if v.List()[0].Account != "mail" {
		t.Errorf("expected account mail, got %s", v.List()[0].Account)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read entries file: %v", err)
	}
	if !strings.HasPrefix(string(data), "mail,") {
		t.Errorf("expected file to start with 'mail,', got %q", string(data))
	}
}

// TestMerge tests that merge adds only accounts not already present
func TestMerge(t *testing.T) {
	v, _ := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	existing := v.List()[0]

	incoming := []Entry{
		{Account: "gmail", Password: "ignored"},
		{Account: "github", Password: existing.Password},
		{Account: "github", Password: "duplicate-in-batch"},
	}
	added, err := v.Merge(incoming)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if added != 1 {
		t.Errorf("expected 1 added entry, got %d", added)
	}
	if v.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", v.Len())
	}

	// The existing entry kept its stored field
	if v.List()[0].Password != existing.Password {
		t.Error("merge overwrote an existing entry")
	}
}

func TestMergeNothingToAdd(t *testing.T) {
	v, path := newTestVault(t)

	if err := v.Add("gmail", "s3cr3t"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	added, err := v.Merge([]Entry{{Account: "gmail", Password: "dup"}})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if added != 0 {
		t.Errorf("expected 0 added entries, got %d", added)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read entries file: %v", err)
	}
	if strings.Contains(string(data), "dup") {
		t.Error("duplicate entry leaked into the entries file")
	}
}
