package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/pflag"

	"uptime/internal/auth"
	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/session"
)

// ShellHistoryFile is the shell's line history, kept in the config dir.
const ShellHistoryFile = "shell_history"

const shellPrompt = "uptime> "

func init() {
	Register(&ShellCmd{})
}

// LineReader reads shell input. *liner.State implements it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	ReadHistory(r io.Reader) (int, error)
	WriteHistory(w io.Writer) (int, error)
	Close() error
}

// ShellCmd implements the interactive shell. The session stays open for
// the whole shell, so tasks work offline and the auto-saver runs while
// signed in.
type ShellCmd struct {
	reader   LineReader
	registry *Registry
}

// SetLineReader replaces the terminal reader (for testing).
func (c *ShellCmd) SetLineReader(r LineReader) {
	c.reader = r
}

// SetRegistry sets the registry commands are looked up in (for testing).
func (c *ShellCmd) SetRegistry(r *Registry) {
	c.registry = r
}

func (c *ShellCmd) Name() string          { return "shell" }
func (c *ShellCmd) Aliases() []string     { return []string{"sh"} }
func (c *ShellCmd) Synopsis() string      { return "Start an interactive session" }
func (c *ShellCmd) Usage() string         { return "uptime shell" }
func (c *ShellCmd) Requires() Requirement { return NeedsSession }
func (c *ShellCmd) Interactive() bool     { return true }

func (c *ShellCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ShellCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	registry := c.registry
	if registry == nil {
		registry = DefaultRegistry
	}
	reader := c.reader
	if reader == nil {
		reader = newTerminalReader(registry)
	}
	defer reader.Close()

	historyPath := filepath.Join(cfg.Dir, ShellHistoryFile)
	if f, err := os.Open(historyPath); err == nil {
		_, _ = reader.ReadHistory(f)
		f.Close()
	}

	if !cfg.Quiet {
		if sess.AuthState() == auth.Authenticated {
			fmt.Fprintln(out, "online: changes sync to the backend")
		} else {
			fmt.Fprintln(out, "offline: tasks stay in this shell until you log in")
		}
		writeStatus(out, sess)
		fmt.Fprintln(out, "Type 'help' for commands, 'exit' to quit.")
	}

	code := exitcode.Success
	for ctx.Err() == nil {
		line, err := reader.Prompt(shellPrompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(out)
			break
		}
		if err != nil {
			fmt.Fprintf(errOut, "error: reading input: %v\n", err)
			code = exitcode.UserError
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		reader.AppendHistory(line)

		fields := strings.Fields(line)
		name := strings.ToLower(fields[0])
		if name == "exit" || name == "quit" || name == "q" {
			break
		}
		c.runLine(ctx, registry, cfg, sess, name, fields[1:], out, errOut)
	}

	if f, err := os.Create(historyPath); err == nil {
		_, _ = reader.WriteHistory(f)
		f.Close()
	}
	return code
}

func (c *ShellCmd) runLine(ctx context.Context, registry *Registry, cfg *config.Config, sess *session.Session, name string, args []string, out, errOut io.Writer) {
	cmd, err := registry.Resolve(name)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		fmt.Fprintf(errOut, "error: %v (type 'help' for commands)\n", err)
	case err != nil:
		fmt.Fprintf(errOut, "error: %v\n", err)
	case cmd.Name() == "help":
		writeShellHelp(out, registry)
	default:
		Execute(ctx, cmd, cfg, sess, args, out, errOut)
	}
}

func writeShellHelp(out io.Writer, registry *Registry) {
	fmt.Fprintln(out, "Commands:")
	for _, cmd := range registry.ShellCommands() {
		fmt.Fprintf(out, "  %-9s %s\n", cmd.Name(), cmd.Synopsis())
	}
	fmt.Fprintf(out, "  %-9s %s\n", "exit", "Leave the shell")
}

func newTerminalReader(registry *Registry) LineReader {
	st := liner.NewLiner()
	st.SetCtrlCAborts(true)
	st.SetCompleter(registry.Complete)
	return st
}
