package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/MamangRust/passctl/internal/cli"
)

// Run command flags
var (
	runAccounts   []string
	runTimeout    time.Duration
	runNoSanitize bool
	runEnvPrefix  string
)

// Exit codes for the run command. The child's own exit code passes
// through unchanged.
const (
	ExitTimeout         = 124
	ExitCommandNotFound = 127
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runAccounts, "account", "a", nil, "Accounts to inject (glob patterns supported)")
	runCmd.Flags().DurationVarP(&runTimeout, "timeout", "t", 5*time.Minute, "Command timeout")
	runCmd.Flags().BoolVar(&runNoSanitize, "no-sanitize", false, "Disable output sanitization")
	runCmd.Flags().StringVar(&runEnvPrefix, "env-prefix", "", "Environment variable name prefix")

	_ = runCmd.MarkFlagRequired("account")
}

// runCmd executes a command with passwords injected as environment variables
var runCmd = &cobra.Command{
	Use:   "run [flags] -- command [args...]",
	Short: "Run a command with passwords as environment variables",
	Long: `Run a command with the selected passwords injected as environment
variables. Account names map to variable names the same way export maps
them: uppercase with non-alphanumerics as underscores.

Unless --no-sanitize is given, the child's output is streamed through a
filter that replaces any injected password with [REDACTED:NAME].

Examples:
  passctl run -a gmail -- curl https://mail.example.com
  passctl run -a db_host -a db_pass -- psql
  passctl run -a "aws_*" -- aws s3 ls
  passctl run -a api_key --timeout=30s -- ./script.sh`,
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Find the command after "--"
		dashIndex := cmd.ArgsLenAtDash()
		if dashIndex == -1 || dashIndex >= len(args) {
			return fmt.Errorf("no command specified; use: passctl run -a ACCOUNT -- command [args...]")
		}

		commandArgs := args[dashIndex:]
		if len(commandArgs) == 0 {
			return fmt.Errorf("no command specified after '--'")
		}

		return executeRun(commandArgs)
	},
}

func executeRun(commandArgs []string) error {
	injected, err := collectRunEntries(runAccounts)
	if err != nil {
		return err
	}
	// Wipe plaintext from memory when the command is done
	defer wipeRunEntries(injected)

	env, err := buildEnvironment(injected)
	if err != nil {
		return err
	}

	return executeCommand(commandArgs, env, injected)
}

// runEntry holds one account prepared for injection.
type runEntry struct {
	account string
	envName string
	value   []byte
}

// wipeRunEntries zeroes the decrypted values.
func wipeRunEntries(entries []runEntry) {
	for i := range entries {
		for j := range entries[i].value {
			entries[i].value[j] = 0
		}
	}
}

// collectRunEntries expands the account patterns and decrypts each matching
// entry. Name assignment mirrors export: duplicates get numeric suffixes.
func collectRunEntries(patterns []string) ([]runEntry, error) {
	all := v.List()
	if len(all) == 0 {
		return nil, fmt.Errorf("vault is empty")
	}

	accounts := make([]string, len(all))
	for i, e := range all {
		accounts[i] = e.Account
	}
	matched, err := cli.ExpandPatterns(patterns, accounts)
	if err != nil {
		return nil, err
	}
	selected := make(map[string]bool, len(matched))
	for _, account := range matched {
		selected[account] = true
	}

	seen := make(map[string]int)
	var entries []runEntry
	for i, e := range all {
		if !selected[e.Account] {
			continue
		}

		plain, err := v.Reveal(i)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt '%s': %w", e.Account, err)
		}

		name := accountToEnvName(e.Account)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}

		entries = append(entries, runEntry{
			account: e.Account,
			envName: name,
			value:   []byte(plain),
		})
	}
	return entries, nil
}

// buildEnvironment appends the injected variables to the current environment.
func buildEnvironment(entries []runEntry) ([]string, error) {
	env := os.Environ()

	for i := range entries {
		envName := entries[i].envName
		if runEnvPrefix != "" {
			envName = runEnvPrefix + envName
			entries[i].envName = envName
		}

		if err := validateEnvName(envName); err != nil {
			return nil, fmt.Errorf("invalid environment variable name for '%s': %w", entries[i].account, err)
		}
		if err := validateNoNulBytes(envName, entries[i].value); err != nil {
			return nil, fmt.Errorf("validation error for '%s': %w", entries[i].account, err)
		}
		if err := checkReservedEnvVar(envName); err != nil {
			return nil, err
		}

		env = append(env, fmt.Sprintf("%s=%s", envName, string(entries[i].value)))
	}

	return env, nil
}

// validateEnvName validates a POSIX environment variable name,
// ^[A-Za-z_][A-Za-z0-9_]*$.
func validateEnvName(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("environment variable name cannot be empty")
	}

	first := name[0]
	if !((first >= 'A' && first <= 'Z') ||
		(first >= 'a' && first <= 'z') || first == '_') {
		return fmt.Errorf("must start with a letter or underscore")
	}

	for i := 1; i < len(name); i++ {
		c := name[i]
		if !((c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') ||
			(c >= '0' && c <= '9') || c == '_') {
			return fmt.Errorf("contains invalid character '%c'", c)
		}
	}

	return nil
}

// validateNoNulBytes rejects NUL bytes, which would truncate the variable
// in the child's environment.
func validateNoNulBytes(name string, value []byte) error {
	if strings.ContainsRune(name, '\x00') {
		return fmt.Errorf("NUL byte in environment variable name: %q", name)
	}
	if bytes.ContainsRune(value, '\x00') {
		return fmt.Errorf("NUL byte in password for: %q", name)
	}
	return nil
}

// reservedEnvVars are critical system variables that must not be overwritten
var reservedEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"PWD": true, "OLDPWD": true, "TERM": true, "LANG": true,
	"IFS": true, "PS1": true, "PS2": true,
	// LC_ALL and LC_CTYPE can enable localization attacks
	"LC_ALL": true, "LC_CTYPE": true,
}

// ErrReservedEnvVar is returned when an injected variable would overwrite a
// reserved one.
var ErrReservedEnvVar = errors.New("cannot overwrite reserved environment variable")

func checkReservedEnvVar(name string) error {
	if reservedEnvVars[name] {
		return fmt.Errorf("%w: %s (use --env-prefix to avoid collision)", ErrReservedEnvVar, name)
	}
	if strings.HasPrefix(name, "LC_") {
		fmt.Fprintf(os.Stderr, "warning: overwriting locale environment variable: %s\n", name)
	}
	return nil
}

// executeCommand runs the command with the passwords in its environment.
func executeCommand(args []string, env []string, injected []runEntry) error {
	// Core dumps would write the injected plaintext to disk
	if err := disableCoreDumps(); err != nil {
		return fmt.Errorf("security: failed to disable core dumps: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cmdPath, err := exec.LookPath(args[0])
	if err != nil {
		return &exitError{code: ExitCommandNotFound, err: fmt.Errorf("command not found: %s", args[0])}
	}

	cmd := exec.CommandContext(ctx, cmdPath, args[1:]...)
	cmd.Env = env

	// Graceful shutdown: terminate first, kill after the wait delay
	cmd.Cancel = func() error {
		return cmd.Process.Signal(terminateSignal())
	}
	cmd.WaitDelay = 5 * time.Second

	var outputWg sync.WaitGroup

	if runNoSanitize {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdin = os.Stdin

		stdoutPipe, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("failed to create stdout pipe: %w", err)
		}
		stderrPipe, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("failed to create stderr pipe: %w", err)
		}

		sanitizer := newOutputSanitizer(injected)

		outputWg.Add(2)
		go func() {
			defer outputWg.Done()
			sanitizer.copy(os.Stdout, stdoutPipe)
		}()
		go func() {
			defer outputWg.Done()
			sanitizer.copy(os.Stderr, stderrPipe)
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, signalsToNotify()...)
	defer signal.Stop(sigChan)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start command: %w", err)
	}

	// Forward signals to the child until it exits
	done := make(chan struct{})
	var sigWg sync.WaitGroup
	sigWg.Add(1)
	go func() {
		defer sigWg.Done()
		for {
			select {
			case sig := <-sigChan:
				select {
				case <-done:
					return
				default:
					if cmd.Process != nil {
						_ = cmd.Process.Signal(sig)
					}
				}
			case <-done:
				return
			}
		}
	}()

	err = cmd.Wait()
	close(done)
	sigWg.Wait()
	outputWg.Wait()

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return &exitError{code: ExitTimeout, err: fmt.Errorf("command '%s' timed out after %v", args[0], runTimeout)}
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &exitError{code: exitErr.ExitCode(), err: nil}
		}

		return err
	}

	return nil
}

// exitError carries a specific process exit code up to main.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) ExitCode() int {
	return e.code
}

// outputSanitizer replaces injected passwords in the child's output. An
// overlap buffer catches values that span read boundaries.
type outputSanitizer struct {
	maxSecretLen int
	replacements []redaction
}

type redaction struct {
	secret      []byte
	placeholder []byte
}

func newOutputSanitizer(injected []runEntry) *outputSanitizer {
	maxLen := 0
	var replacements []redaction

	for _, e := range injected {
		// Values under 4 bytes would redact ordinary text
		if len(e.value) >= 4 {
			if len(e.value) > maxLen {
				maxLen = len(e.value)
			}
			replacements = append(replacements, redaction{
				secret:      e.value,
				placeholder: []byte(fmt.Sprintf("[REDACTED:%s]", e.envName)),
			})
		}
	}

	return &outputSanitizer{
		maxSecretLen: maxLen,
		replacements: replacements,
	}
}

// binaryThreshold is the fraction of non-printable bytes that flags a chunk
// as binary.
const binaryThreshold = 0.05

// isBinaryData detects binary output heuristically rather than by a single
// NUL check, so one planted byte cannot switch sanitization off.
func isBinaryData(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	nonPrintable := 0
	for _, b := range data {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			nonPrintable++
		} else if b == 0x7F {
			nonPrintable++
		}
	}

	return float64(nonPrintable)/float64(len(data)) > binaryThreshold
}

// copy streams src to dst through the sanitizer, holding back
// maxSecretLen-1 bytes between reads so boundary-spanning values are
// still caught.
func (s *outputSanitizer) copy(dst io.Writer, src io.Reader) {
	buf := make([]byte, 32*1024)
	var overlap []byte

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			var data []byte
			if len(overlap) > 0 {
				data = make([]byte, len(overlap)+n)
				copy(data, overlap)
				copy(data[len(overlap):], buf[:n])
			} else {
				data = buf[:n]
			}

			isBinary := isBinaryData(data)
			if !isBinary {
				data = s.sanitize(data)
			}

			var writeLen int
			if readErr == nil && s.maxSecretLen > 1 && !isBinary {
				overlapLen := s.maxSecretLen - 1
				if overlapLen > len(data) {
					overlapLen = len(data)
				}
				writeLen = len(data) - overlapLen
				if writeLen < 0 {
					writeLen = 0
				}
			} else {
				writeLen = len(data)
			}

			if writeLen > 0 {
				dst.Write(data[:writeLen])
			}

			if writeLen < len(data) {
				overlap = make([]byte, len(data)-writeLen)
				copy(overlap, data[writeLen:])
			} else {
				overlap = nil
			}
		}

		if readErr != nil {
			if len(overlap) > 0 {
				dst.Write(overlap)
			}
			break
		}
	}
}

func (s *outputSanitizer) sanitize(data []byte) []byte {
	if len(s.replacements) == 0 {
		return data
	}

	if len(s.replacements) == 1 {
		return bytes.ReplaceAll(data, s.replacements[0].secret, s.replacements[0].placeholder)
	}

	result := data
	for _, r := range s.replacements {
		if bytes.Contains(result, r.secret) {
			result = bytes.ReplaceAll(result, r.secret, r.placeholder)
		}
	}
	return result
}
