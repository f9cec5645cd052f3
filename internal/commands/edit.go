package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/session"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command.
type EditCmd struct{}

func (c *EditCmd) Name() string          { return "edit" }
func (c *EditCmd) Aliases() []string     { return nil }
func (c *EditCmd) Synopsis() string      { return "Replace a task's text" }
func (c *EditCmd) Usage() string         { return "uptime edit <n> <text...>" }
func (c *EditCmd) Requires() Requirement { return NeedsAuth }

func (c *EditCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	task, code := resolveTask(sess, args, errOut)
	if code != exitcode.Success {
		return code
	}

	text := strings.Join(args[1:], " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	}

	if err := sess.EditTask(ctx, task.ID, text); err != nil {
		return reportError(err, errOut)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok%s\n", modeNote(sess))
	}
	return exitcode.Success
}
