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
	Register(&DoneCmd{})
	Register(&BlockCmd{})
}

// DoneCmd implements the done command. Running it on a completed task
// reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string          { return "done" }
func (c *DoneCmd) Aliases() []string     { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string      { return "Toggle a task completed" }
func (c *DoneCmd) Usage() string         { return "uptime done <n>" }
func (c *DoneCmd) Requires() Requirement { return NeedsAuth }

func (c *DoneCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	task, code := resolveTask(sess, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := sess.ToggleTask(ctx, task.ID); err != nil {
		return reportError(err, errOut)
	}

	if !cfg.Quiet {
		state := "done"
		if task.Completed {
			state = "reopened"
		}
		fmt.Fprintf(out, "ok %s%s\n", state, modeNote(sess))
	}
	return exitcode.Success
}

// BlockCmd implements the block command, which toggles the blocker flag.
type BlockCmd struct{}

func (c *BlockCmd) Name() string          { return "block" }
func (c *BlockCmd) Aliases() []string     { return []string{"blocker"} }
func (c *BlockCmd) Synopsis() string      { return "Toggle a task's blocker flag" }
func (c *BlockCmd) Usage() string         { return "uptime block <n>" }
func (c *BlockCmd) Requires() Requirement { return NeedsAuth }

func (c *BlockCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *BlockCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	task, code := resolveTask(sess, args, errOut)
	if code != exitcode.Success {
		return code
	}

	if err := sess.ToggleBlocker(ctx, task.ID); err != nil {
		return reportError(err, errOut)
	}

	if !cfg.Quiet {
		state := "blocked"
		if task.HasBlocker {
			state = "unblocked"
		}
		fmt.Fprintf(out, "ok %s%s\n", state, modeNote(sess))
	}
	return exitcode.Success
}
