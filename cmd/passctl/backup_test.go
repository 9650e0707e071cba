package main

import "testing"

func TestValidateBackupFlags(t *testing.T) {
	tests := []struct {
		name           string
		output         string
		stdout         bool
		keyFile        string
		backupPassword bool
		expectError    bool
	}{
		{
			name:        "output only",
			output:      "backup.pcb",
			expectError: false,
		},
		{
			name:        "stdout only",
			stdout:      true,
			expectError: false,
		},
		{
			name:        "neither output nor stdout",
			expectError: true,
		},
		{
			name:        "output and stdout together",
			output:      "backup.pcb",
			stdout:      true,
			expectError: true,
		},
		{
			name:           "key file and backup password together",
			output:         "backup.pcb",
			keyFile:        "backup.key",
			backupPassword: true,
			expectError:    true,
		},
		{
			name:        "key file alone",
			output:      "backup.pcb",
			keyFile:     "backup.key",
			expectError: false,
		},
		{
			name:           "backup password alone",
			output:         "backup.pcb",
			backupPassword: true,
			expectError:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Save and restore globals
			oldOutput := backupOutput
			oldStdout := backupStdout
			oldKeyFile := backupKeyFile
			oldPassword := backupBackupPassword
			defer func() {
				backupOutput = oldOutput
				backupStdout = oldStdout
				backupKeyFile = oldKeyFile
				backupBackupPassword = oldPassword
			}()

			backupOutput = tt.output
			backupStdout = tt.stdout
			backupKeyFile = tt.keyFile
			backupBackupPassword = tt.backupPassword

			err := validateBackupFlags()
			if tt.expectError && err == nil {
				t.Errorf("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
