// Package vault implements credential storage backed by a line-oriented
// text file with AES-256-GCM protected password fields.
package vault

import (
	"fmt"

	"github.com/MamangRust/passctl/pkg/payload"
)

// Legacy stores kept password fields in plaintext. upgradeEntry converts such
// a field to the encrypted form during load; fields already shaped like an
// encrypted payload pass through verbatim. The shape check is syntactic, so a
// plaintext password that happens to look like a payload is never upgraded.
//
// changed reports whether the field was rewritten. The caller saves the store
// once after a load that changed anything, so the upgrade converges after a
// single run and later loads find only encrypted fields.
func (v *Vault) upgradeEntry(entry Entry) (upgraded Entry, changed bool, err error) {
	if payload.IsEncrypted(entry.Password) {
		return entry, false, nil
	}

	encrypted, encErr := v.engine.Encrypt(entry.Password)
	if encErr != nil {
		return Entry{}, false, fmt.Errorf("vault: failed to encrypt legacy password for %q: %w", entry.Account, encErr)
	}

	entry.Password = encrypted
	return entry, true, nil
}
