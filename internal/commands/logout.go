package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"uptime/internal/auth"
	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/session"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string          { return "logout" }
func (c *LogoutCmd) Aliases() []string     { return nil }
func (c *LogoutCmd) Synopsis() string      { return "Remove the stored access token" }
func (c *LogoutCmd) Usage() string         { return "uptime logout" }
func (c *LogoutCmd) Requires() Requirement { return NeedsNothing }

func (c *LogoutCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	provider := auth.NewFileProvider(cfg.TokenPath())
	if !provider.HasToken() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	var err error
	if sess != nil {
		err = sess.Logout(ctx)
	} else {
		err = provider.Remove()
	}
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
