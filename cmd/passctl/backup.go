package main

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MamangRust/passctl/pkg/audit"
	"github.com/MamangRust/passctl/pkg/backup"
)

// Backup command flags
var (
	backupOutput         string
	backupStdout         bool
	backupWithAudit      bool
	backupBackupPassword bool
	backupKeyFile        string
	backupForce          bool
)

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file path")
	backupCmd.Flags().BoolVar(&backupStdout, "stdout", false, "Write the backup to stdout (for piping)")
	backupCmd.Flags().BoolVar(&backupWithAudit, "with-audit", false, "Include the audit log in the backup")
	backupCmd.Flags().BoolVar(&backupBackupPassword, "backup-password", false, "Prompt for a separate backup password")
	backupCmd.Flags().StringVar(&backupKeyFile, "key-file", "", "Encryption key file (32 bytes)")
	backupCmd.Flags().BoolVar(&backupForce, "force", false, "Overwrite an existing output file")
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create an encrypted backup of the vault",
	Long: `Create an encrypted backup archive of all vault entries, optionally
including the audit log.

The archive is protected with the master passphrase unless --backup-password
prompts for a separate one or --key-file supplies a raw key.

Examples:
  passctl backup -o vault-backup.pcb
  passctl backup -o vault-backup.pcb --with-audit
  passctl backup --stdout | ssh host 'cat > vault-backup.pcb'
  passctl backup -o vault-backup.pcb --backup-password
  passctl backup -o vault-backup.pcb --key-file backup.key`,
	RunE: executeBackup,
}

func executeBackup(cmd *cobra.Command, args []string) error {
	if err := validateBackupFlags(); err != nil {
		return err
	}

	var output *os.File
	if backupStdout {
		output = os.Stdout
	} else {
		if !backupForce {
			if _, err := os.Stat(backupOutput); err == nil {
				return fmt.Errorf("output file already exists: %s (use --force to overwrite)", backupOutput)
			}
		}

		var err error
		output, err = os.OpenFile(backupOutput, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	var password []byte
	switch {
	case backupKeyFile != "":
		// The key file carries the key material
	case backupBackupPassword:
		pwd, err := promptBackupPassword()
		if err != nil {
			return err
		}
		password = pwd
	default:
		password = []byte(cfg.Passphrase)
	}

	opts := backup.CreateOptions{
		Output:       output,
		IncludeAudit: backupWithAudit,
		AuditLogPath: cfg.AuditLogPath(),
		Password:     password,
		KeyFile:      backupKeyFile,
	}

	if err := backup.Create(v, opts); err != nil {
		_ = auditLog.LogError(audit.OpBackupCreate, "", "BACKUP_FAILED", err.Error())
		return fmt.Errorf("backup failed: %w", err)
	}
	_ = auditLog.LogSuccess(audit.OpBackupCreate, "")

	if !backupStdout {
		fmt.Printf("✓ backup created: %s\n", backupOutput)
	}
	return nil
}

func validateBackupFlags() error {
	if !backupStdout && backupOutput == "" {
		return fmt.Errorf("either --output or --stdout is required")
	}
	if backupStdout && backupOutput != "" {
		return fmt.Errorf("--output and --stdout are mutually exclusive")
	}
	if backupKeyFile != "" && backupBackupPassword {
		return fmt.Errorf("--key-file and --backup-password are mutually exclusive")
	}
	return nil
}

func promptBackupPassword() ([]byte, error) {
	fmt.Print("Enter backup password: ")
	password1, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm backup password: ")
	password2, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	if string(password1) != string(password2) {
		return nil, fmt.Errorf("passwords do not match")
	}
	if len(password1) == 0 {
		return nil, fmt.Errorf("password cannot be empty")
	}

	return password1, nil
}
