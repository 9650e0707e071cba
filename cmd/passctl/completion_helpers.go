package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/internal/cli"
	"github.com/MamangRust/passctl/pkg/audit"
)

// isDynamicCompletionEnabled checks whether account name completion is
// opted in. It is off by default so pressing tab never demands the
// passphrase.
func isDynamicCompletionEnabled() bool {
	return os.Getenv("PASSCTL_COMPLETION_ENABLED") == "1"
}

// completeAccounts completes account name arguments. The completion
// entrypoint skips vault initialization, so the vault is brought up lazily
// here; that requires PASSWORD_MANAGER_KEY in the environment and fails
// silently otherwise.
func completeAccounts(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if !isDynamicCompletionEnabled() {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	if v == nil {
		if err := initVault(audit.SourceCLI); err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	}

	prefix := strings.ToLower(toComplete)
	var accounts []string
	for _, entry := range v.List() {
		if strings.HasPrefix(strings.ToLower(entry.Account), prefix) {
			accounts = append(accounts, entry.Account)
		}
	}
	return cli.SortAccounts(accounts), cobra.ShellCompDirectiveNoFileComp
}

// registerCompletionFunctions wires dynamic completion into the commands
// that take account name arguments. reveal takes an index, not a name, so
// it gets no completer.
func registerCompletionFunctions() {
	listCmd.ValidArgsFunction = completeAccounts
	exportCmd.ValidArgsFunction = completeAccounts
}
