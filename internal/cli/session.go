package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/MamangRust/passctl/pkg/vault"
)

// sessionPrompt is shown before each command read.
const sessionPrompt = "passctl> "

// Session is an interactive prompt loop over a loaded vault. It covers the
// same operations as the subcommands (list, add, reveal) for users who
// prefer a live session over one-shot invocations.
type Session struct {
	vault *vault.Vault
	in    *bufio.Reader
	out   io.Writer
}

// RunSession runs the interactive loop until the user quits or in is
// exhausted. Command errors are reported to out and never abort the loop.
func RunSession(v *vault.Vault, in io.Reader, out io.Writer) error {
	s := &Session{
		vault: v,
		in:    bufio.NewReader(in),
		out:   out,
	}
	return s.run()
}

func (s *Session) run() error {
	s.info("passctl interactive session (%d entries). Type 'help' for commands.", s.vault.Len())

	for {
		if _, err := fmt.Fprint(s.out, sessionPrompt); err != nil {
			return err
		}

		line, err := ReadLine(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out)
				return nil
			}
			return err
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "l", "list":
			s.list()
		case "a", "add":
			s.add(parts[1:])
		case "r", "reveal":
			s.reveal(parts[1:])
		case "h", "help":
			s.help()
		case "q", "quit", "exit":
			s.info("Bye!")
			return nil
		default:
			s.errorf("unknown command: %s (try 'help')", cmd)
		}
	}
}

// list prints all entries with 1-based indices and masked passwords.
func (s *Session) list() {
	entries := s.vault.List()
	if len(entries) == 0 {
		s.info("vault is empty")
		return
	}
	for i, e := range entries {
		fmt.Fprintf(s.out, "%3d  %-24s %s\n", i+1, e.Account, e.MaskedPassword())
	}
}

// add runs the two-stage add flow: account (argument or prompt), then
// password. Empty input at either stage cancels.
func (s *Session) add(args []string) {
	account := strings.Join(args, " ")
	if account == "" {
		line, err := Prompt(s.in, "account: ", s.out)
		if err != nil {
			s.errorf("failed to read account: %v", err)
			return
		}
		account = line
	}
	account = strings.TrimSpace(account)
	if account == "" {
		s.info("add cancelled")
		return
	}

	password, err := ReadPassword(s.in, "password: ", s.out)
	if err != nil {
		s.errorf("failed to read password: %v", err)
		return
	}
	if strings.TrimSpace(password) == "" {
		s.info("add cancelled")
		return
	}

	if err := s.vault.Add(account, password); err != nil {
		s.errorf("failed to add entry: %v", err)
		return
	}
	s.okf("added '%s' (%d entries)", account, s.vault.Len())
}

// reveal decrypts and prints the password at the given 1-based index.
func (s *Session) reveal(args []string) {
	if len(args) != 1 {
		s.errorf("usage: reveal <index>")
		return
	}

	index, err := strconv.Atoi(args[0])
	if err != nil {
		s.errorf("invalid index: %s", args[0])
		return
	}

	entries := s.vault.List()
	if len(entries) == 0 {
		s.errorf("vault is empty")
		return
	}
	if index < 1 || index > len(entries) {
		s.errorf("index %d out of range (1-%d)", index, len(entries))
		return
	}

	password, err := s.vault.Reveal(index - 1)
	if err != nil {
		s.errorf("failed to reveal entry %d: %v", index, err)
		return
	}
	fmt.Fprintf(s.out, "%s: %s\n", entries[index-1].Account, password)
}

func (s *Session) help() {
	s.info("Commands:")
	s.info("  list             List entries with masked passwords")
	s.info("  add [account]    Add a new entry (prompts for password)")
	s.info("  reveal <index>   Decrypt and print the password at an index")
	s.info("  help             Show this help")
	s.info("  quit             Leave the session")
}

func (s *Session) info(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Session) okf(format string, args ...any) {
	fmt.Fprintf(s.out, "✓ "+format+"\n", args...)
}

func (s *Session) errorf(format string, args ...any) {
	fmt.Fprintf(s.out, "✗ "+format+"\n", args...)
}
