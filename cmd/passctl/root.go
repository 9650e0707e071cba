package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/internal/cli"
	"github.com/MamangRust/passctl/internal/config"
	"github.com/MamangRust/passctl/pkg/audit"
	"github.com/MamangRust/passctl/pkg/crypto"
	"github.com/MamangRust/passctl/pkg/vault"
)

// Shared state filled in by initVault and read by every command.
var (
	cfg      *config.Config
	v        *vault.Vault
	auditLog *audit.Logger
)

var rootCmd = &cobra.Command{
	Use:   "passctl",
	Short: "passctl is a personal credential vault",
	Long: `A personal credential vault storing encrypted account,password pairs
in a flat text file.

The master passphrase comes from the PASSWORD_MANAGER_KEY environment
variable; a .env file in the working directory is honored. Entries live
in passwords.txt by default, or the file named by PASSWORD_MANAGER_FILE.

Run without arguments for an interactive session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Completion and help must work without a passphrase
		switch cmd.Name() {
		case "completion", "help", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return nil
		}

		source := audit.SourceCLI
		if cmd.Name() == "serve" && cmd.Parent() != nil && cmd.Parent().Name() == "mcp" {
			source = audit.SourceMCP
		}
		return initVault(source)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.RunSession(v, os.Stdin, os.Stdout)
	},
}

// initVault loads configuration, derives the encryption key, and brings the
// entries file into memory. It is idempotent so completion handlers can call
// it lazily.
func initVault(source string) error {
	if v != nil {
		return nil
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	key, err := crypto.DeriveKey(cfg.Passphrase)
	if err != nil {
		return err
	}
	// The engine and the audit logger copy the key material they keep
	defer crypto.SecureWipe(key)

	engine, err := crypto.NewEngine(key)
	if err != nil {
		return err
	}

	auditLog = audit.NewLogger(cfg.AuditLogPath(), source)
	if err := auditLog.SetHMACKey(key); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit logging disabled: %v\n", err)
		auditLog = nil
	}

	v, err = vault.Open(cfg.EntriesFile, engine)
	if err != nil {
		return err
	}
	v.SetAuditLogger(auditLog)

	if err := v.Load(); err != nil {
		// The on-disk file is left untouched; commands run against an
		// empty in-memory vault until it becomes readable again
		fmt.Fprintf(os.Stderr, "warning: %v (continuing with an empty vault)\n", err)
		return nil
	}

	if n := v.MigratedCount(); n > 0 {
		if err := v.Save(); err != nil {
			return fmt.Errorf("failed to persist migrated entries: %w", err)
		}
		fmt.Fprintf(os.Stderr, "migrated %d legacy entries\n", n)
	}

	return nil
}
