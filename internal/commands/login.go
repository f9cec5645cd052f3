package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/oauth2"

	"uptime/internal/auth"
	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/session"
)

// TokenEnv is the environment variable login reads a credential from.
const TokenEnv = "UPTIME_TOKEN"

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command. The credential is the bearer
// token issued by the web app's sign-in; it comes from --token, the first
// argument, $UPTIME_TOKEN, or a line on stdin, in that order.
type LoginCmd struct {
	token string
	in    io.Reader
}

// SetInput sets the reader used for the stdin prompt (for testing).
func (c *LoginCmd) SetInput(r io.Reader) {
	c.in = r
}

func (c *LoginCmd) Name() string          { return "login" }
func (c *LoginCmd) Aliases() []string     { return nil }
func (c *LoginCmd) Synopsis() string      { return "Store an access token" }
func (c *LoginCmd) Usage() string         { return "uptime login [--token <token>]" }
func (c *LoginCmd) Requires() Requirement { return NeedsNothing }

func (c *LoginCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.token, "token", "t", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	raw := c.token
	if raw == "" && len(args) > 0 {
		raw = args[0]
	}
	if raw == "" {
		raw = os.Getenv(TokenEnv)
	}
	if raw == "" && sess == nil {
		raw = c.prompt(errOut)
	}

	tok, err := auth.ParseCredential(raw)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyCredential) {
			fmt.Fprintln(errOut, "error: access token required")
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return exitcode.AuthError
	}

	if !tok.Expiry.IsZero() && !tok.Expiry.After(time.Now()) {
		fmt.Fprintf(errOut, "error: access token expired at %s\n", tok.Expiry.Local().Format(time.RFC3339))
		return exitcode.AuthError
	}

	if sess != nil {
		if err := sess.Login(ctx, tok); err != nil {
			return reportError(err, errOut)
		}
	} else if code := saveToken(cfg, tok, errOut); code != exitcode.Success {
		return code
	}

	if !cfg.Quiet {
		if tok.Expiry.IsZero() {
			fmt.Fprintln(out, "ok")
		} else {
			fmt.Fprintf(out, "ok (expires %s)\n", tok.Expiry.Local().Format("2006-01-02 15:04"))
		}
	}
	return exitcode.Success
}

func (c *LoginCmd) prompt(errOut io.Writer) string {
	in := c.in
	if in == nil {
		in = os.Stdin
	}
	fmt.Fprint(errOut, "Paste your access token: ")
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 4096), 64*1024)
	if sc.Scan() {
		return sc.Text()
	}
	return ""
}

func saveToken(cfg *config.Config, tok *oauth2.Token, errOut io.Writer) int {
	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config dir: %v\n", err)
		return exitcode.AuthError
	}
	if err := auth.NewFileProvider(cfg.TokenPath()).Save(tok); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	return exitcode.Success
}
