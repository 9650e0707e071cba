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

// Restore command flags
var (
	restoreMerge      bool
	restoreDryRun     bool
	restoreVerifyOnly bool
	restoreWithAudit  bool
	restoreKeyFile    string
	restoreForce      bool
)

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreMerge, "merge", false, "Append backup entries instead of replacing the vault")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "Show what would be restored without making changes")
	restoreCmd.Flags().BoolVar(&restoreVerifyOnly, "verify-only", false, "Verify the backup without restoring")
	restoreCmd.Flags().BoolVar(&restoreWithAudit, "with-audit", false, "Also restore the audit log if the backup includes it")
	restoreCmd.Flags().StringVar(&restoreKeyFile, "key-file", "", "Decryption key file (32 bytes)")
	restoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Skip the confirmation prompt")
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Restore the vault from an encrypted backup",
	Long: `Restore vault entries from a backup archive. By default the vault
contents are replaced; --merge appends the backup's entries instead.

Examples:
  passctl restore vault-backup.pcb
  passctl restore vault-backup.pcb --merge
  passctl restore vault-backup.pcb --dry-run
  passctl restore vault-backup.pcb --verify-only
  passctl restore vault-backup.pcb --key-file backup.key`,
	Args: cobra.ExactArgs(1),
	RunE: executeRestore,
}

func executeRestore(cmd *cobra.Command, args []string) error {
	backupPath := args[0]

	if restoreDryRun && restoreVerifyOnly {
		return fmt.Errorf("--dry-run and --verify-only are mutually exclusive")
	}

	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found: %s", backupPath)
	}

	var password []byte
	if restoreKeyFile == "" {
		fmt.Print("Enter backup password (or master passphrase): ")
		pwd, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = pwd
	}

	if restoreVerifyOnly {
		result, err := backup.Verify(backupPath, password, restoreKeyFile)
		if err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		if !result.Valid {
			return fmt.Errorf("verification failed: %s", result.Error)
		}
		fmt.Printf("Backup verification successful!\n")
		fmt.Printf("  Version: %d\n", result.Version)
		fmt.Printf("  Created: %s\n", result.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Entries: %d\n", result.EntryCount)
		fmt.Printf("  Includes Audit: %v\n", result.IncludesAudit)
		return nil
	}

	if !restoreForce && !restoreDryRun {
		action := "replace the vault contents"
		if restoreMerge {
			action = "merge the backup into the vault"
		}
		fmt.Printf("This will %s. Continue? [y/N]: ", action)
		var confirm string
		fmt.Scanln(&confirm)
		if confirm != "y" && confirm != "Y" {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	opts := backup.RestoreOptions{
		Merge:        restoreMerge,
		DryRun:       restoreDryRun,
		WithAudit:    restoreWithAudit,
		AuditLogPath: cfg.AuditLogPath(),
		Password:     password,
		KeyFile:      restoreKeyFile,
	}

	result, err := backup.Restore(backupPath, v, opts)
	if err != nil {
		_ = auditLog.LogError(audit.OpBackupRestore, "", "RESTORE_FAILED", err.Error())
		return fmt.Errorf("restore failed: %w", err)
	}

	if result.DryRun {
		fmt.Printf("Dry run complete. Would restore:\n")
	} else {
		_ = auditLog.LogSuccess(audit.OpBackupRestore, "")
		fmt.Printf("✓ restore complete\n")
	}
	fmt.Printf("  Entries restored: %d\n", result.EntriesRestored)
	if result.EntriesSkipped > 0 {
		fmt.Printf("  Entries skipped: %d\n", result.EntriesSkipped)
	}
	if result.AuditRestored {
		fmt.Printf("  Audit log: restored\n")
	}
	return nil
}
