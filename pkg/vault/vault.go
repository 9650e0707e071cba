// Package vault implements credential storage backed by a line-oriented
// text file with AES-256-GCM protected password fields.
package vault

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/MamangRust/passctl/pkg/audit"
	"github.com/MamangRust/passctl/pkg/crypto"
)

// Constants
const (
	FileMode = 0600 // Owner read/write only
)

// Errors
var (
	ErrNilEngine       = errors.New("vault: cipher engine is required")
	ErrEmptyAccount    = errors.New("vault: account must not be empty")
	ErrEmptyPassword   = errors.New("vault: password must not be empty")
	ErrIndexOutOfRange = errors.New("vault: entry index out of range")
)

// Credential is a plaintext account and password pair prior to encryption.
type Credential struct {
	Account  string
	Password string
}

// Vault manages the ordered credential list and its backing file.
type Vault struct {
	path     string         // Path to the entries file
	engine   *crypto.Engine // Cipher for password fields
	mu       sync.RWMutex   // Concurrency control
	entries  []Entry        // Ordered in-memory list
	migrated int            // Plaintext fields upgraded by the last Load
	audit    *audit.Logger  // Audit logger, optional
}

// Open creates a Vault bound to path using engine for password fields.
// The file is not touched until Load or Save.
func Open(path string, engine *crypto.Engine) (*Vault, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	return &Vault{path: path, engine: engine}, nil
}

// SetAuditLogger attaches an audit trail. A nil logger disables auditing.
func (v *Vault) SetAuditLogger(logger *audit.Logger) {
	v.audit = logger
}

// Load reads the entries file into memory:
// 1. A missing file leaves the vault empty
// 2. Each line splits on the first comma; lines without one are skipped
// 3. Password fields already in encrypted form are kept verbatim
// 4. Plaintext password fields are encrypted and the migrated flag is set
//
// On a read error the in-memory state is left empty, so the caller can
// continue with an empty vault after reporting the failure.
func (v *Vault) Load() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries = nil
	v.migrated = 0

	file, err := os.Open(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			_ = v.audit.LogSuccess(audit.OpVaultLoad, "")
			return nil
		}
		_ = v.audit.LogError(audit.OpVaultLoad, "", "IO_ERROR", err.Error())
		return fmt.Errorf("vault: failed to open entries file: %w", err)
	}
	defer file.Close()

	var entries []Entry
	migrated := 0

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		entry, ok := ParseLine(scanner.Text())
		if !ok {
			continue
		}
		upgraded, changed, err := v.upgradeEntry(entry)
		if err != nil {
			_ = v.audit.LogError(audit.OpVaultLoad, entry.Account, "ENCRYPT_FAILED", err.Error())
			return err
		}
		if changed {
			migrated++
		}
		entries = append(entries, upgraded)
	}
	if err := scanner.Err(); err != nil {
		_ = v.audit.LogError(audit.OpVaultLoad, "", "IO_ERROR", err.Error())
		return fmt.Errorf("vault: failed to read entries file: %w", err)
	}

	v.entries = entries
	v.migrated = migrated

	if migrated > 0 {
		_ = v.audit.LogSuccess(audit.OpVaultMigrate, "")
	}
	_ = v.audit.LogSuccess(audit.OpVaultLoad, "")
	return nil
}

// Save rewrites the whole entries file from the in-memory list. The write
// truncates in place; the previous content is not kept.
func (v *Vault) Save() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.saveLocked()
}

// saveLocked writes the entries file. Callers must hold at least a read lock.
func (v *Vault) saveLocked() error {
	file, err := os.OpenFile(v.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, FileMode)
	if err != nil {
		return fmt.Errorf("vault: failed to open entries file for writing: %w", err)
	}

	w := bufio.NewWriter(file)
	for _, entry := range v.entries {
		if _, err := w.WriteString(entry.Line() + "\n"); err != nil {
			file.Close()
			return fmt.Errorf("vault: failed to write entry: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("vault: failed to flush entries file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("vault: failed to close entries file: %w", err)
	}
	return nil
}

// List returns a point-in-time copy of the entries.
func (v *Vault) List() []Entry {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Add validates, encrypts, appends, and persists a new credential:
// 1. Trim both inputs; reject an empty account or password
// 2. Encrypt the password field
// 3. Append to the in-memory list
// 4. Rewrite the entries file
// A failed save leaves the new entry in memory so the caller may retry.
func (v *Vault) Add(account, password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	account = strings.TrimSpace(account)
	password = strings.TrimSpace(password)
	if account == "" {
		_ = v.audit.LogError(audit.OpEntryAdd, account, "VALIDATION", ErrEmptyAccount.Error())
		return ErrEmptyAccount
	}
	if password == "" {
		_ = v.audit.LogError(audit.OpEntryAdd, account, "VALIDATION", ErrEmptyPassword.Error())
		return ErrEmptyPassword
	}

	encrypted, err := v.engine.Encrypt(password)
	if err != nil {
		_ = v.audit.LogError(audit.OpEntryAdd, account, "ENCRYPT_FAILED", err.Error())
		return fmt.Errorf("vault: failed to encrypt password: %w", err)
	}

	v.entries = append(v.entries, Entry{Account: account, Password: encrypted})

	if err := v.saveLocked(); err != nil {
		_ = v.audit.LogError(audit.OpEntryAdd, account, "SAVE_FAILED", err.Error())
		return err
	}

	_ = v.audit.LogSuccess(audit.OpEntryAdd, account)
	return nil
}

// AddAll encrypts and appends a batch of credentials, then saves once. Each
// credential is validated like Add; the first invalid one aborts the batch
// before anything is appended.
func (v *Vault) AddAll(creds []Credential) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	staged := make([]Entry, 0, len(creds))
	for _, c := range creds {
		account := strings.TrimSpace(c.Account)
		password := strings.TrimSpace(c.Password)
		if account == "" {
			return ErrEmptyAccount
		}
		if password == "" {
			return fmt.Errorf("%w: account %q", ErrEmptyPassword, account)
		}

		encrypted, err := v.engine.Encrypt(password)
		if err != nil {
			return fmt.Errorf("vault: failed to encrypt password for %q: %w", account, err)
		}
		staged = append(staged, Entry{Account: account, Password: encrypted})
	}

	v.entries = append(v.entries, staged...)

	if err := v.saveLocked(); err != nil {
		_ = v.audit.LogError(audit.OpEntryAdd, "", "SAVE_FAILED", err.Error())
		return err
	}

	for _, entry := range staged {
		_ = v.audit.LogSuccess(audit.OpEntryAdd, entry.Account)
	}
	return nil
}

// Reveal decrypts the password of the entry at the zero-based index without
// mutating the store.
func (v *Vault) Reveal(index int) (string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if index < 0 || index >= len(v.entries) {
		return "", ErrIndexOutOfRange
	}

	entry := v.entries[index]
	plain, err := v.engine.Decrypt(entry.Password)
	if err != nil {
		_ = v.audit.LogError(audit.OpEntryReveal, entry.Account, "DECRYPT_FAILED", err.Error())
		return "", err
	}

	_ = v.audit.LogSuccess(audit.OpEntryReveal, entry.Account)
	return plain, nil
}

// ReplaceAll swaps the in-memory list for entries and saves. Entries carry
// stored-form password fields; no re-encryption happens here.
func (v *Vault) ReplaceAll(entries []Entry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.entries = make([]Entry, len(entries))
	copy(v.entries, entries)
	v.migrated = 0

	return v.saveLocked()
}

// Merge appends entries whose account is not already present, then saves.
// Returns the number of entries added. Accounts compare exactly; the first
// occurrence of a duplicated account in the incoming list wins.
func (v *Vault) Merge(entries []Entry) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	existing := make(map[string]bool, len(v.entries))
	for _, entry := range v.entries {
		existing[entry.Account] = true
	}

	added := 0
	for _, entry := range entries {
		if existing[entry.Account] {
			continue
		}
		existing[entry.Account] = true
		v.entries = append(v.entries, entry)
		added++
	}

	if added == 0 {
		return 0, nil
	}
	if err := v.saveLocked(); err != nil {
		return added, err
	}
	return added, nil
}

// Len returns the number of entries.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Migrated reports whether the last Load upgraded any plaintext fields.
func (v *Vault) Migrated() bool {
	return v.MigratedCount() > 0
}

// MigratedCount returns how many plaintext fields the last Load upgraded.
func (v *Vault) MigratedCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.migrated
}

// Path returns the backing file path.
func (v *Vault) Path() string {
	return v.path
}
