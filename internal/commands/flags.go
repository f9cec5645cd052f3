package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/session"
)

// NewFlagSet returns a flag set with cmd's flags registered. Parse errors
// are returned, never printed.
func NewFlagSet(cmd Command) *pflag.FlagSet {
	fs := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	cmd.RegisterFlags(fs)
	return fs
}

// ReportFlagError prints a parse error and returns the exit code for it.
func ReportFlagError(cmd Command, err error, out, errOut io.Writer) int {
	var (
		notExist      *pflag.NotExistError
		valueRequired *pflag.ValueRequiredError
		invalidValue  *pflag.InvalidValueError
	)
	switch {
	case errors.Is(err, pflag.ErrHelp):
		fmt.Fprintf(out, "usage: %s\n", cmd.Usage())
		return exitcode.Success
	case errors.As(err, &notExist):
		fmt.Fprintf(errOut, "error: %s\n", notExist)
	case errors.As(err, &valueRequired):
		name := "--" + valueRequired.GetSpecifiedName()
		if valueRequired.GetSpecifiedShortnames() != "" {
			name = "-" + valueRequired.GetSpecifiedName()
		}
		fmt.Fprintf(errOut, "error: flag needs an argument: %s\n", name)
	case errors.As(err, &invalidValue):
		fmt.Fprintf(errOut, "error: invalid value %q for --%s\n", invalidValue.GetValue(), invalidValue.GetFlag().Name)
	default:
		fmt.Fprintf(errOut, "error: %s\n", err)
	}
	return exitcode.UserError
}

// Execute parses args against cmd's flags and runs it with sess.
// The shell uses it for each line.
func Execute(ctx context.Context, cmd Command, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	fs := NewFlagSet(cmd)
	if err := fs.Parse(args); err != nil {
		return ReportFlagError(cmd, err, out, errOut)
	}
	return cmd.Run(ctx, cfg, sess, fs.Args(), out, errOut)
}
