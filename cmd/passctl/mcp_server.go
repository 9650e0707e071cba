package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.AddCommand(mcpServeCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Model Context Protocol integration",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve read-only vault tools over MCP stdio",
	Long: `Start an MCP server for agent tooling.

The server speaks the Model Context Protocol over stdio and exposes only
value-free tools:
  vault_list    account names with masked passwords
  vault_exists  account lookup without the password

No tool ever returns a plaintext password.

An optional passctl-policy.yaml next to the entries file restricts which
accounts the tools may surface; without one, every account name is listed.

Example MCP client configuration:
  {
    "mcpServers": {
      "passctl": {
        "type": "stdio",
        "command": "/path/to/passctl",
        "args": ["mcp", "serve"],
        "env": {
          "PASSWORD_MANAGER_KEY": "your-master-passphrase"
        }
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer()
	},
}

func runMCPServer() error {
	server, err := mcp.NewServer(mcp.ServerOptions{Vault: v})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := server.Run(ctx); err != nil {
		// Shutdown through a signal is a clean exit
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
