// Package cli parses the command line and runs the selected command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"uptime/internal/auth"
	"uptime/internal/commands"
	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/service"
	"uptime/internal/session"
)

// DefaultCommand runs when no command is given.
const DefaultCommand = "status"

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry *commands.Registry
	factory  SessionFactory
}

// NewDispatcher creates a new dispatcher with the given registry and
// session factory. A nil factory means NewSession.
func NewDispatcher(registry *commands.Registry, factory SessionFactory) *Dispatcher {
	if factory == nil {
		factory = NewSession
	}
	return &Dispatcher{
		registry: registry,
		factory:  factory,
	}
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		return d.dispatch(ctx, DefaultCommand, nil, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command.
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := commands.NewFlagSet(cmd)

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	if err := fs.Parse(args); err != nil {
		return commands.ReportFlagError(cmd, err, out, errOut)
	}

	cfg, err := config.New(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	if cmd.Requires() == commands.NeedsNothing {
		return cmd.Run(ctx, cfg, nil, fs.Args(), out, errOut)
	}

	log := NewLogger(errOut, cfg)
	sess, err := d.factory(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	defer sess.Close()

	if code, ok := checkSession(cmd, cfg, sess, sess.Open(ctx), errOut); !ok {
		return code
	}

	code := cmd.Run(ctx, cfg, sess, fs.Args(), out, errOut)
	log.V(1).Info("command finished", "command", cmd.Name(), "exit", exitcode.Name(code))
	return code
}

// checkSession decides whether cmd can run after Open returned openErr.
func checkSession(cmd commands.Command, cfg *config.Config, sess *session.Session, openErr error, errOut io.Writer) (int, bool) {
	needsAuth := cmd.Requires() == commands.NeedsAuth

	switch {
	case needsAuth && sess.AuthState() != auth.Authenticated:
		if openErr != nil {
			fmt.Fprintf(errOut, "error: auth error: %s\n", openErr)
		} else {
			fmt.Fprintln(errOut, "error: not logged in (run: uptime login)")
		}
		return exitcode.AuthError, false
	case openErr == nil:
		return exitcode.Success, true
	case errors.Is(openErr, service.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: auth error: %s (run: uptime login)\n", openErr)
		return exitcode.AuthError, false
	case needsAuth:
		fmt.Fprintf(errOut, "error: backend error: %s\n", openErr)
		return exitcode.BackendError, false
	}

	if !cfg.Quiet {
		fmt.Fprintf(errOut, "warning: %s\n", openErr)
	}
	return exitcode.Success, true
}
