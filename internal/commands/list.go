package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"uptime/internal/auth"
	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/output"
	"uptime/internal/session"
)

func init() {
	Register(&StatusCmd{})
	Register(&ListCmd{})
	Register(&RefreshCmd{})
}

// StatusCmd implements the status command, the default when no command
// is given.
type StatusCmd struct{}

func (c *StatusCmd) Name() string          { return "status" }
func (c *StatusCmd) Aliases() []string     { return []string{"st"} }
func (c *StatusCmd) Synopsis() string      { return "Show tasks, score and inputs" }
func (c *StatusCmd) Usage() string         { return "uptime [status]" }
func (c *StatusCmd) Requires() Requirement { return NeedsAuth }

func (c *StatusCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	writeStatus(out, sess)
	return exitcode.Success
}

func writeStatus(out io.Writer, sess *session.Session) {
	in := sess.Inputs()
	output.FormatTasks(out, in.Tasks)
	output.FormatScore(out, sess.Score())
	output.FormatInputs(out, output.Inputs{
		Energy:       in.EnergyLevel,
		FocusSeconds: in.FocusSeconds,
		FocusRunning: sess.FocusRunning(),
		LastBreak:    in.LastBreak,
	})
}

// ListCmd implements the list command.
type ListCmd struct{}

func (c *ListCmd) Name() string          { return "list" }
func (c *ListCmd) Aliases() []string     { return []string{"ls"} }
func (c *ListCmd) Synopsis() string      { return "List tasks" }
func (c *ListCmd) Usage() string         { return "uptime list" }
func (c *ListCmd) Requires() Requirement { return NeedsAuth }

func (c *ListCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	output.FormatTasks(out, sess.Tasks().Tasks())
	return exitcode.Success
}

// RefreshCmd implements the refresh command: it re-fetches the task list,
// picking up changes made on other devices.
type RefreshCmd struct{}

func (c *RefreshCmd) Name() string          { return "refresh" }
func (c *RefreshCmd) Aliases() []string     { return []string{"sync"} }
func (c *RefreshCmd) Synopsis() string      { return "Re-fetch tasks from the backend" }
func (c *RefreshCmd) Usage() string         { return "uptime refresh" }
func (c *RefreshCmd) Requires() Requirement { return NeedsAuth }

func (c *RefreshCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *RefreshCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if sess.AuthState() != auth.Authenticated {
		if !cfg.Quiet {
			fmt.Fprintln(out, "nothing to refresh (offline)")
		}
		return exitcode.Success
	}
	if err := sess.RefreshTasks(ctx); err != nil {
		return reportError(err, errOut)
	}
	if !cfg.Quiet {
		output.FormatTasks(out, sess.Tasks().Tasks())
	}
	return exitcode.Success
}
