// Package mcp implements the MCP (Model Context Protocol) server for passctl.
// Tools surface account names and masked passwords only; plaintext passwords
// never cross the protocol boundary.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MamangRust/passctl/pkg/vault"
)

// Server represents the MCP server for passctl.
type Server struct {
	server *mcp.Server
	vault  *vault.Vault
	policy *Policy
}

// ServerOptions contains configuration options for the MCP server.
type ServerOptions struct {
	// Vault is the opened and loaded vault the tools read from.
	Vault *vault.Vault

	// PolicyDir is the directory searched for the policy file.
	// If empty, defaults to the directory holding the entries file.
	PolicyDir string
}

// NewServer creates a new MCP server instance. A missing policy file leaves
// every account visible; any other policy load failure is fatal, since a
// policy that exists but cannot be read is a configuration error.
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.Vault == nil {
		return nil, errors.New("vault is required")
	}

	policyDir := opts.PolicyDir
	if policyDir == "" {
		policyDir = filepath.Dir(opts.Vault.Path())
	}

	policy, err := LoadPolicy(policyDir)
	if err != nil && !errors.Is(err, ErrPolicyNotFound) {
		return nil, fmt.Errorf("failed to load MCP policy: %w", err)
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "passctl",
			Version: "1.0.0",
		},
		nil,
	)

	s := &Server{
		server: mcpServer,
		vault:  opts.Vault,
		policy: policy,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all MCP tools with the server.
func (s *Server) registerTools() {
	// vault_list - List account names with masked passwords (no plaintext)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vault_list",
		Description: "List vault accounts with masked passwords. Returns account names, display indices, and masks sized after the stored field. Does NOT return plaintext passwords.",
	}, s.handleVaultList)

	// vault_exists - Check if an account exists
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "vault_exists",
		Description: "Check if an account exists in the vault. Returns the account name and its display index. Does NOT return the password.",
	}, s.handleVaultExists)
}

// Run starts the MCP server using stdio transport.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
