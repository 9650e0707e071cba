// Package vault implements credential storage backed by a line-oriented
// text file with AES-256-GCM protected password fields.
package vault

import "strings"

// Entry format constants
const (
	// FieldSeparator splits the account from the password field on disk.
	FieldSeparator = ","

	// MaxMaskLength caps the masked rendering of a password field.
	MaxMaskLength = 32
)

// Entry is a single stored credential. Password holds the field exactly as
// stored on disk, which is an encoded payload once the store has migrated.
type Entry struct {
	Account  string
	Password string
}

// ParseLine parses one stored line into an Entry. The line is split on the
// first separator only, so password fields containing the separator survive
// intact. A line without a separator carries no credential; ok is false and
// callers skip it. Neither field is trimmed or validated here.
func ParseLine(line string) (entry Entry, ok bool) {
	account, password, found := strings.Cut(line, FieldSeparator)
	if !found {
		return Entry{}, false
	}
	return Entry{Account: account, Password: password}, true
}

// Line renders the entry in its on-disk form.
func (e Entry) Line() string {
	return e.Account + FieldSeparator + e.Password
}

// MaskedPassword returns an asterisk mask sized after the stored field,
// clamped to 1..MaxMaskLength characters.
func (e Entry) MaskedPassword() string {
	n := len(e.Password)
	if n > MaxMaskLength {
		n = MaxMaskLength
	}
	if n < 1 {
		n = 1
	}
	return strings.Repeat("*", n)
}
