package mcp

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Policy restricts which accounts the MCP tools may surface. Patterns are
// filepath.Match globs over account names.
type Policy struct {
	Version         int      `yaml:"version"`
	DefaultAction   string   `yaml:"default_action"`
	HiddenAccounts  []string `yaml:"hidden_accounts"`
	VisibleAccounts []string `yaml:"visible_accounts"`
}

// PolicyFileName is the name of the policy file, looked up in the directory
// holding the entries file.
const PolicyFileName = "passctl-policy.yaml"

// Policy action constants
const (
	ActionAllow = "allow"
	ActionDeny  = "deny"
)

// ErrPolicyNotFound is returned when no policy file exists
var ErrPolicyNotFound = errors.New("MCP policy file not found")

// ErrPolicyInsecure is returned when policy file has insecure permissions
var ErrPolicyInsecure = errors.New("MCP policy file has insecure permissions")

// ErrPolicySymlink is returned when policy file is a symlink
var ErrPolicySymlink = errors.New("MCP policy file is a symlink")

// ErrPolicyNotOwnedByUser is returned when policy file is not owned by current user
var ErrPolicyNotOwnedByUser = errors.New("MCP policy file not owned by current user")

// LoadPolicy loads the MCP policy from dir. The file is opened without
// following symlinks and checked against the descriptor that is read, so the
// permission and ownership checks cannot race a file swap.
func LoadPolicy(dir string) (*Policy, error) {
	policyPath := filepath.Join(dir, PolicyFileName)

	f, err := openPolicyFile(policyPath)
	if err != nil {
		if errors.Is(err, ErrPolicyNotFound) || errors.Is(err, ErrPolicySymlink) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat policy file: %w", err)
	}

	if err := checkFilePermissions(info); err != nil {
		return nil, err
	}

	if err := checkFileOwnership(info); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(content, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	// Default to deny if not specified
	if policy.DefaultAction == "" {
		policy.DefaultAction = ActionDeny
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}

	return &policy, nil
}

// Validate checks the policy version, default action, and pattern syntax.
func (p *Policy) Validate() error {
	if p.Version != 1 {
		return fmt.Errorf("unsupported policy version: %d", p.Version)
	}

	if p.DefaultAction != ActionDeny && p.DefaultAction != ActionAllow {
		return fmt.Errorf("invalid default_action: %s (must be '%s' or '%s')", p.DefaultAction, ActionDeny, ActionAllow)
	}

	for _, patterns := range [][]string{p.HiddenAccounts, p.VisibleAccounts} {
		for _, pattern := range patterns {
			if _, err := filepath.Match(pattern, ""); err != nil {
				return fmt.Errorf("invalid account pattern '%s': %w", pattern, err)
			}
		}
	}

	return nil
}

// IsAccountVisible reports whether the policy lets MCP tools surface the
// account. A nil policy hides nothing: account names are listing metadata,
// not secret values.
// Evaluation order:
// 1. hidden_accounts → hide
// 2. visible_accounts → show
// 3. default_action
func (p *Policy) IsAccountVisible(account string) bool {
	if p == nil {
		return true
	}

	for _, pattern := range p.HiddenAccounts {
		if matchAccount(account, pattern) {
			return false
		}
	}

	for _, pattern := range p.VisibleAccounts {
		if matchAccount(account, pattern) {
			return true
		}
	}

	return p.DefaultAction == ActionAllow
}

// matchAccount checks an account name against a glob pattern.
func matchAccount(account, pattern string) bool {
	matched, err := filepath.Match(pattern, account)
	return err == nil && matched
}
