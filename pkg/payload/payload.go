// Package payload implements the on-disk representation of an encrypted
// password field: the base64-encoded nonce and ciphertext joined by a colon,
// as in "<b64 nonce>:<b64 ciphertext>". The ciphertext portion carries the
// GCM authentication tag appended by the cipher.
//
// The package also classifies raw stored fields as encrypted or legacy
// plaintext. Classification is purely syntactic: a field counts as encrypted
// when both sides of the first colon are non-empty. A plaintext password that
// happens to contain a colon with text on both sides is misclassified; this
// mirrors the storage format's known limitation and is not corrected here.
package payload

import (
	"encoding/base64"
	"errors"
	"strings"
)

// Separator joins the encoded nonce and ciphertext components.
const Separator = ":"

// NonceSize is the required nonce length in bytes (96 bits, GCM standard).
const NonceSize = 12

// ErrInvalidFormat indicates a payload that does not parse: no separator,
// a base64 component that fails to decode, or a nonce of the wrong length.
var ErrInvalidFormat = errors.New("payload: invalid encrypted payload format")

// IsEncrypted reports whether a raw stored field has the shape of an
// encrypted payload. Both the substring before and after the first separator
// must be non-empty. This does not verify that the components decode.
func IsEncrypted(raw string) bool {
	left, right, found := strings.Cut(raw, Separator)
	if !found {
		return false
	}
	return left != "" && right != ""
}

// Encode serializes a nonce and ciphertext into the stored string form.
// Each component is base64-encoded independently.
func Encode(nonce, ciphertext []byte) string {
	return base64.StdEncoding.EncodeToString(nonce) +
		Separator +
		base64.StdEncoding.EncodeToString(ciphertext)
}

// Decode parses a stored payload back into its nonce and ciphertext.
// Returns ErrInvalidFormat if the separator is missing, either component is
// not valid base64, or the decoded nonce is not exactly NonceSize bytes.
func Decode(encoded string) (nonce, ciphertext []byte, err error) {
	left, right, found := strings.Cut(encoded, Separator)
	if !found {
		return nil, nil, ErrInvalidFormat
	}

	nonce, err = base64.StdEncoding.DecodeString(left)
	if err != nil {
		return nil, nil, ErrInvalidFormat
	}

	ciphertext, err = base64.StdEncoding.DecodeString(right)
	if err != nil {
		return nil, nil, ErrInvalidFormat
	}

	if len(nonce) != NonceSize {
		return nil, nil, ErrInvalidFormat
	}

	return nonce, ciphertext, nil
}
