package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/session"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct{}

func (c *RmCmd) Name() string          { return "rm" }
func (c *RmCmd) Aliases() []string     { return []string{"delete"} }
func (c *RmCmd) Synopsis() string      { return "Delete a task" }
func (c *RmCmd) Usage() string         { return "uptime rm <n>" }
func (c *RmCmd) Requires() Requirement { return NeedsAuth }

func (c *RmCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	task, code := resolveTask(sess, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := sess.RemoveTask(ctx, task.ID); err != nil {
		return reportError(err, errOut)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok%s\n", modeNote(sess))
	}
	return exitcode.Success
}
