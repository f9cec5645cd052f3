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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct{}

func (c *AddCmd) Name() string          { return "add" }
func (c *AddCmd) Aliases() []string     { return []string{"create"} }
func (c *AddCmd) Synopsis() string      { return "Add a task" }
func (c *AddCmd) Usage() string         { return "uptime add <text...>" }
func (c *AddCmd) Requires() Requirement { return NeedsAuth }

func (c *AddCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	}

	if _, err := sess.AddTask(ctx, text); err != nil {
		return reportError(err, errOut)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok #%d%s\n", sess.Tasks().Len(), modeNote(sess))
	}
	return exitcode.Success
}
