// Package backup provides encrypted backup and restore for the credential store.
//
// Features:
//   - Encrypted backup with AES-256-GCM
//   - Argon2id key derivation from a dedicated backup passphrase
//   - HMAC-SHA256 integrity verification over header and ciphertext
//   - Restore into the live store, replacing or merging by account
//   - Optional audit log inclusion
//
// Security:
//   - Backup salt is generated fresh for each backup
//   - Entry password fields travel in their stored encrypted form, so the
//     backup passphrase alone never reveals a credential
//   - File permissions: 0600 for key files and restored audit logs
//   - Sensitive key material cleared from memory with SecureWipe
package backup

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MamangRust/passctl/pkg/crypto"
	"github.com/MamangRust/passctl/pkg/vault"
)

// CreateOptions configures the backup operation.
type CreateOptions struct {
	// Output is the destination writer for the backup.
	Output io.Writer
	// IncludeAudit includes the audit log in the backup.
	IncludeAudit bool
	// AuditLogPath is the audit log to include when IncludeAudit is set.
	AuditLogPath string
	// Password for encryption (ignored when KeyFile is set).
	Password []byte
	// KeyFile path for encryption key (overrides Password).
	KeyFile string
}

// RestoreOptions configures the restore operation.
type RestoreOptions struct {
	// Merge keeps existing entries and adds only accounts not already present.
	// Without it the whole store is replaced.
	Merge bool
	// DryRun previews restore without making changes.
	DryRun bool
	// WithAudit restores the audit log, overwriting the current one.
	WithAudit bool
	// AuditLogPath is the destination for a restored audit log.
	AuditLogPath string
	// Password for decryption.
	Password []byte
	// KeyFile path for decryption key (overrides Password).
	KeyFile string
}

// RestoreResult contains the result of a restore operation.
type RestoreResult struct {
	// EntriesRestored is the number of entries written to the store.
	EntriesRestored int
	// EntriesSkipped is the number of entries skipped during a merge.
	EntriesSkipped int
	// AuditRestored indicates if the audit log was restored.
	AuditRestored bool
	// DryRun indicates this was a dry run.
	DryRun bool
}

// VerifyResult contains the result of a verify operation.
type VerifyResult struct {
	// Valid indicates the backup passed all integrity checks.
	Valid bool
	// Version is the backup format version.
	Version int
	// CreatedAt is when the backup was created.
	CreatedAt time.Time
	// EntryCount is the number of entries in the backup.
	EntryCount int
	// IncludesAudit indicates if the audit log is included.
	IncludesAudit bool
	// Error is set if verification failed.
	Error string
}

// Create writes an encrypted backup of the store to opts.Output.
func Create(v *vault.Vault, opts CreateOptions) error {
	if opts.Output == nil {
		return fmt.Errorf("backup: output writer is required")
	}

	// Determine encryption keys
	var encKey, macKey []byte
	var kdfParams *KDFParams
	var encMode EncryptionMode
	var err error

	if opts.KeyFile != "" {
		// Use key file
		encKey, err = ReadKeyFile(opts.KeyFile)
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(encKey)

		// Derive MAC key from encryption key
		macKey, err = deriveHKDF(encKey, []byte(hkdfInfoMAC))
		if err != nil {
			return fmt.Errorf("failed to derive MAC key: %w", err)
		}
		defer crypto.SecureWipe(macKey)

		encMode = EncryptionModeKey
	} else {
		if len(opts.Password) == 0 {
			return ErrEmptyPassword
		}

		kdfParams, err = NewKDFParams()
		if err != nil {
			return err
		}

		encKey, macKey, err = DeriveBackupKeys(opts.Password, kdfParams)
		if err != nil {
			return err
		}
		defer crypto.SecureWipe(encKey)
		defer crypto.SecureWipe(macKey)

		encMode = EncryptionModePassphrase
	}

	// Collect store data
	payload, includesAudit := collectStoreData(v, opts)

	// Encode payload
	payloadBytes, err := EncodePayload(payload)
	if err != nil {
		return err
	}
	defer crypto.SecureWipe(payloadBytes)

	// Encrypt payload
	ciphertext, err := EncryptPayload(payloadBytes, encKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt payload: %w", err)
	}

	// Create header
	header := &Header{
		Version:        FormatVersion,
		CreatedAt:      time.Now().UTC(),
		EncryptionMode: encMode,
		KDFParams:      kdfParams,
		IncludesAudit:  includesAudit,
		EntryCount:     len(payload.Entries),
		ChecksumAlgo:   "sha256",
	}

	// Write to buffer first (for HMAC calculation)
	var buf bytes.Buffer

	// Write header
	if err := WriteHeader(&buf, header); err != nil {
		return err
	}

	// Write ciphertext length and data
	if err := writeUint32(&buf, uint32(len(ciphertext))); err != nil {
		return err
	}
	if _, err := buf.Write(ciphertext); err != nil {
		return fmt.Errorf("failed to write ciphertext: %w", err)
	}

	// Compute HMAC over header + ciphertext
	hmacValue := ComputeHMAC(buf.Bytes(), macKey)

	// Write everything to output
	if _, err := opts.Output.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	if _, err := opts.Output.Write(hmacValue); err != nil {
		return fmt.Errorf("failed to write HMAC: %w", err)
	}

	return nil
}

// Restore applies an encrypted backup to the store.
func Restore(backupPath string, v *vault.Vault, opts RestoreOptions) (*RestoreResult, error) {
	// Read backup file
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	// Verify and decrypt
	_, payload, err := verifyAndDecrypt(data, opts.Password, opts.KeyFile)
	if err != nil {
		return nil, err
	}

	entries := make([]vault.Entry, len(payload.Entries))
	for i, e := range payload.Entries {
		entries[i] = vault.Entry{Account: e.Account, Password: e.Password}
	}

	restoreAudit := opts.WithAudit && len(payload.AuditLog) > 0 && opts.AuditLogPath != ""

	if opts.DryRun {
		restored, skipped := len(entries), 0
		if opts.Merge {
			restored, skipped = previewMerge(v, entries)
		}
		return &RestoreResult{
			EntriesRestored: restored,
			EntriesSkipped:  skipped,
			AuditRestored:   restoreAudit,
			DryRun:          true,
		}, nil
	}

	result := &RestoreResult{}
	if opts.Merge {
		added, err := v.Merge(entries)
		if err != nil {
			return nil, fmt.Errorf("failed to merge entries: %w", err)
		}
		result.EntriesRestored = added
		result.EntriesSkipped = len(entries) - added
	} else {
		if err := v.ReplaceAll(entries); err != nil {
			return nil, fmt.Errorf("failed to replace entries: %w", err)
		}
		result.EntriesRestored = len(entries)
	}

	if restoreAudit {
		if err := os.WriteFile(opts.AuditLogPath, payload.AuditLog, 0600); err != nil {
			return nil, fmt.Errorf("failed to restore audit log: %w", err)
		}
		result.AuditRestored = true
	}

	return result, nil
}

// Verify checks backup integrity without restoring.
func Verify(backupPath string, password []byte, keyFile string) (*VerifyResult, error) {
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return &VerifyResult{Valid: false, Error: err.Error()}, nil
	}

	header, _, err := verifyAndDecrypt(data, password, keyFile)
	if err != nil {
		return &VerifyResult{Valid: false, Error: err.Error()}, nil
	}

	return &VerifyResult{
		Valid:         true,
		Version:       header.Version,
		CreatedAt:     header.CreatedAt,
		EntryCount:    header.EntryCount,
		IncludesAudit: header.IncludesAudit,
	}, nil
}

// collectStoreData snapshots the entries and, when requested, the audit log.
func collectStoreData(v *vault.Vault, opts CreateOptions) (payload *Payload, includesAudit bool) {
	entries := v.List()
	payloadEntries := make([]PayloadEntry, len(entries))
	for i, e := range entries {
		payloadEntries[i] = PayloadEntry{Account: e.Account, Password: e.Password}
	}
	payload = &Payload{Entries: payloadEntries}

	if opts.IncludeAudit && opts.AuditLogPath != "" {
		// A missing audit log is not an error; the backup just omits it
		if auditData, err := os.ReadFile(opts.AuditLogPath); err == nil {
			payload.AuditLog = auditData
			includesAudit = true
		}
	}

	return payload, includesAudit
}

// previewMerge counts how a merge would split between added and skipped.
func previewMerge(v *vault.Vault, entries []vault.Entry) (added, skipped int) {
	existing := make(map[string]bool)
	for _, e := range v.List() {
		existing[e.Account] = true
	}
	for _, e := range entries {
		if existing[e.Account] {
			skipped++
			continue
		}
		existing[e.Account] = true
		added++
	}
	return added, skipped
}

// verifyAndDecrypt verifies the backup integrity and decrypts the payload.
func verifyAndDecrypt(data []byte, password []byte, keyFile string) (*Header, *Payload, error) {
	if len(data) < 8+4+HMACLength {
		return nil, nil, ErrInvalidMagic
	}

	// Read header
	reader := bytes.NewReader(data)
	header, err := ReadHeader(reader)
	if err != nil {
		return nil, nil, err
	}

	// Get current position (after header)
	headerEnd := len(data) - reader.Len()

	// Read ciphertext length
	var ciphertextLen uint32
	if err := readUint32(reader, &ciphertextLen); err != nil {
		return nil, nil, fmt.Errorf("failed to read ciphertext length: %w", err)
	}

	// Verify we have enough data
	if reader.Len() < int(ciphertextLen)+HMACLength {
		return nil, nil, ErrTruncated
	}

	// Read ciphertext
	ciphertext := make([]byte, ciphertextLen)
	if _, err := io.ReadFull(reader, ciphertext); err != nil {
		return nil, nil, fmt.Errorf("failed to read ciphertext: %w", err)
	}

	// Read HMAC
	storedHMAC := make([]byte, HMACLength)
	if _, err := io.ReadFull(reader, storedHMAC); err != nil {
		return nil, nil, fmt.Errorf("failed to read HMAC: %w", err)
	}

	// Derive keys
	var encKey, macKey []byte

	if keyFile != "" {
		encKey, err = ReadKeyFile(keyFile)
		if err != nil {
			return nil, nil, err
		}
		defer crypto.SecureWipe(encKey)

		macKey, err = deriveHKDF(encKey, []byte(hkdfInfoMAC))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive MAC key: %w", err)
		}
		defer crypto.SecureWipe(macKey)
	} else if header.EncryptionMode == EncryptionModePassphrase && header.KDFParams != nil {
		if len(password) == 0 {
			return nil, nil, ErrEmptyPassword
		}
		encKey, macKey, err = DeriveBackupKeys(password, header.KDFParams)
		if err != nil {
			return nil, nil, err
		}
		defer crypto.SecureWipe(encKey)
		defer crypto.SecureWipe(macKey)
	} else {
		return nil, nil, fmt.Errorf("backup: cannot determine decryption key")
	}

	// Verify HMAC (header + ciphertext length + ciphertext)
	dataToVerify := data[:headerEnd+4+int(ciphertextLen)]
	if !VerifyHMAC(dataToVerify, storedHMAC, macKey) {
		return nil, nil, ErrIntegrityFailed
	}

	// Decrypt payload
	plaintext, err := DecryptPayload(ciphertext, encKey)
	if err != nil {
		return nil, nil, err
	}
	defer crypto.SecureWipe(plaintext)

	// Decode payload
	payload, err := DecodePayload(plaintext)
	if err != nil {
		return nil, nil, err
	}

	return header, payload, nil
}

// writeUint32 writes a uint32 in big-endian format.
func writeUint32(w io.Writer, v uint32) error {
	buf := make([]byte, 4)
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
	_, err := w.Write(buf)
	return err
}

// readUint32 reads a uint32 in big-endian format.
func readUint32(r io.Reader, v *uint32) error {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	*v = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
	return nil
}
