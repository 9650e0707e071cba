//go:build windows

package mcp

import (
	"os"
)

// openPolicyFile opens the policy file on Windows. There is no O_NOFOLLOW;
// creating symlinks requires elevated privileges there, so the plain open is
// accepted.
func openPolicyFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrPolicyNotFound
		}
		return nil, err
	}
	return f, nil
}

// checkFilePermissions is a no-op on Windows, where Mode().Perm() carries
// only the read-only attribute and a 0600 mode can never be observed.
func checkFilePermissions(_ os.FileInfo) error {
	return nil
}

// checkFileOwnership is a no-op on Windows. Both access and ownership are
// expressed through ACLs there.
func checkFileOwnership(_ os.FileInfo) error {
	return nil
}
