// Package backup provides encrypted backup and restore for the credential store.
package backup

import "errors"

// Backup/Restore errors
var (
	// ErrInvalidMagic indicates the backup file has an invalid magic number.
	ErrInvalidMagic = errors.New("backup: invalid backup file: magic number mismatch")

	// ErrUnsupportedVersion indicates the backup format version is not supported.
	ErrUnsupportedVersion = errors.New("backup: unsupported backup format version")

	// ErrIntegrityFailed indicates the HMAC verification failed.
	ErrIntegrityFailed = errors.New("backup: integrity check failed: HMAC mismatch")

	// ErrDecryptionFailed indicates decryption failed due to a wrong passphrase or corruption.
	ErrDecryptionFailed = errors.New("backup: decryption failed: wrong passphrase or corrupted data")

	// ErrTruncated indicates the backup file ends before the declared content.
	ErrTruncated = errors.New("backup: file truncated")

	// ErrInvalidKeyFile indicates the key file is invalid or wrong size.
	ErrInvalidKeyFile = errors.New("backup: invalid key file: must be exactly 32 bytes")

	// ErrEmptyPassword indicates an empty backup passphrase was provided.
	ErrEmptyPassword = errors.New("backup: passphrase cannot be empty")
)
