// Package config loads application configuration from environment variables.
//
// Configuration is read exactly once at process start and handed to the
// components that need it. No other package performs its own environment
// lookups, which keeps the passphrase source auditable in one place.
package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables read by Load.
const (
	// EnvPassphrase names the master passphrase variable.
	EnvPassphrase = "PASSWORD_MANAGER_KEY"
	// EnvEntriesFile names the credential store path variable.
	EnvEntriesFile = "PASSWORD_MANAGER_FILE"
)

// DefaultEntriesFile is the store path used when EnvEntriesFile is unset.
const DefaultEntriesFile = "passwords.txt"

// ErrPassphraseNotSet indicates that no source provided a passphrase at all.
// A passphrase that is set but blank is reported separately by key
// derivation, so callers can tell the two misconfigurations apart.
var ErrPassphraseNotSet = errors.New("config: PASSWORD_MANAGER_KEY is not set")

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// Passphrase is the master passphrase exactly as provided, untrimmed.
	Passphrase string
	// EntriesFile is the path of the credential store file.
	EntriesFile string
}

// AuditLogPath returns the audit trail path derived from the entries file.
func (c *Config) AuditLogPath() string {
	return c.EntriesFile + ".audit.jsonl"
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; variables already set in the real
// environment take precedence over .env values, and a missing .env file is
// not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	passphrase, ok := os.LookupEnv(EnvPassphrase)
	if !ok {
		return nil, ErrPassphraseNotSet
	}

	entriesFile := os.Getenv(EnvEntriesFile)
	if entriesFile == "" {
		entriesFile = DefaultEntriesFile
	}

	return &Config{
		Passphrase:  passphrase,
		EntriesFile: entriesFile,
	}, nil
}
