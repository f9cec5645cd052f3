// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"io"

	"github.com/spf13/pflag"

	"uptime/internal/config"
	"uptime/internal/session"
)

// Requirement says what the dispatcher must set up before Run.
type Requirement int

const (
	// NeedsNothing commands get a nil session (help, version, login, logout).
	NeedsNothing Requirement = iota

	// NeedsSession commands get an open session, signed in or not.
	NeedsSession

	// NeedsAuth commands get an open, authenticated session when run from
	// the command line. Inside the shell they also run offline.
	NeedsAuth
)

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// Requires reports what Run needs.
	Requires() Requirement

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *pflag.FlagSet)

	// Run executes the command.
	// cfg is always provided (config dir, paths, settings).
	// sess is nil if Requires returns NeedsNothing and the command was not
	// started from the shell.
	// args contains positional arguments after flag parsing.
	// Returns exit code.
	Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int
}
