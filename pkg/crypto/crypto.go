// Package crypto provides the key derivation and authenticated encryption
// used for password fields.
//
// # Security Properties
//
//   - AES-256-GCM authenticated encryption with a fresh random 96-bit nonce
//     drawn from crypto/rand on every encryption call
//   - SHA-256 key derivation from the operator passphrase; deterministic and
//     deliberately unsalted so the same passphrase always opens the same
//     vault file on any machine
//   - Tag verification on decryption; tampered payloads never yield plaintext
//   - Secure memory wiping for transient key material
//
// The unsalted hash makes the derived key subject to precomputation attacks
// against weak passphrases. That trade-off is part of the storage contract
// and is intentionally not hardened here; the backup envelope (pkg/backup)
// uses its own salted derivation because backup files travel.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/MamangRust/passctl/pkg/payload"
)

// KeyLength is the length of encryption keys in bytes (256 bits).
const KeyLength = 32

// NonceLength is the length of GCM nonces in bytes (96 bits).
const NonceLength = payload.NonceSize

// Sentinel errors returned by crypto functions.
var (
	// ErrEmptyPassphrase indicates the passphrase is empty after trimming.
	ErrEmptyPassphrase = errors.New("crypto: passphrase is empty")

	// ErrInvalidKeyLength indicates the key is not 32 bytes.
	ErrInvalidKeyLength = errors.New("crypto: invalid key length, must be 32 bytes")

	// ErrInvalidNonceLength indicates the nonce is not 12 bytes.
	ErrInvalidNonceLength = errors.New("crypto: invalid nonce length, must be 12 bytes")

	// ErrDecryptionFailed indicates authentication tag verification failed:
	// the payload was tampered with, or it was sealed under a different key.
	ErrDecryptionFailed = errors.New("crypto: decryption failed, authentication tag verification failed")

	// ErrCiphertextTooShort indicates the ciphertext is shorter than the GCM tag.
	ErrCiphertextTooShort = errors.New("crypto: ciphertext too short")

	// ErrInvalidUTF8 indicates decryption succeeded but the plaintext is not
	// valid UTF-8, so it cannot be returned as a password string.
	ErrInvalidUTF8 = errors.New("crypto: decrypted data is not valid UTF-8")
)

// DeriveKey derives a 256-bit key from the operator passphrase.
//
// A passphrase that is empty after trimming returns ErrEmptyPassphrase.
// Otherwise the key is the SHA-256 digest of the passphrase's UTF-8 bytes as
// given (trimming applies to the emptiness check only): the same passphrase
// always yields the same key.
func DeriveKey(passphrase string) ([]byte, error) {
	if strings.TrimSpace(passphrase) == "" {
		return nil, ErrEmptyPassphrase
	}
	digest := sha256.Sum256([]byte(passphrase))
	return digest[:], nil
}

// Engine performs authenticated encryption and decryption of password
// strings. It is constructed once from a derived key and holds only the
// AEAD; it is safe for concurrent use.
type Engine struct {
	aead cipher.AEAD
}

// NewEngine builds an Engine from a 32-byte key.
func NewEngine(key []byte) (*Engine, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return &Engine{aead: aead}, nil
}

// Encrypt seals a plaintext password and returns its stored representation.
//
// A fresh 12-byte nonce is drawn from crypto/rand on every call, so
// encrypting the same plaintext twice produces different payloads. The
// result is the payload encoding of (nonce, ciphertext‖tag).
func (e *Engine) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	ciphertext := e.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return payload.Encode(nonce, ciphertext), nil
}

// Decrypt opens a stored payload and returns the plaintext password.
//
// Parse failures wrap payload.ErrInvalidFormat. Tag verification failure
// returns ErrDecryptionFailed and never partial plaintext. Plaintext that is
// not valid UTF-8 returns ErrInvalidUTF8.
func (e *Engine) Decrypt(encoded string) (string, error) {
	nonce, ciphertext, err := payload.Decode(encoded)
	if err != nil {
		return "", fmt.Errorf("crypto: malformed payload: %w", err)
	}

	if len(ciphertext) < e.aead.Overhead() {
		return "", ErrCiphertextTooShort
	}

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	if !utf8.Valid(plaintext) {
		return "", ErrInvalidUTF8
	}

	return string(plaintext), nil
}

// Encrypt encrypts plaintext bytes using AES-256-GCM with a random nonce.
//
// This is the raw-byte form used for envelope payloads (pkg/backup); the
// Engine methods cover the password-string workflow. The authentication tag
// is appended to the ciphertext.
func Encrypt(key, plaintext []byte) (ciphertext []byte, nonce []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, NonceLength)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("crypto: failed to generate nonce: %w", err)
	}

	ciphertext = gcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts ciphertext bytes produced by Encrypt.
//
// The authentication tag is verified before any plaintext is returned; a
// verification failure yields ErrDecryptionFailed.
func Decrypt(key, ciphertext, nonce []byte) (plaintext []byte, err error) {
	if len(nonce) != NonceLength {
		return nil, ErrInvalidNonceLength
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.Overhead() {
		return nil, ErrCiphertextTooShort
	}

	plaintext, err = gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}

// newGCM validates the key and constructs the AES-256-GCM AEAD.
func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLength {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: failed to create GCM: %w", err)
	}

	return gcm, nil
}

// SecureWipe overwrites a byte slice with zeros in a way that prevents
// compiler optimization from removing the operation.
func SecureWipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
	// runtime.KeepAlive ensures the write operations are not optimized away
	// by the compiler since b is still "in use" after the loop.
	runtime.KeepAlive(b)
}
