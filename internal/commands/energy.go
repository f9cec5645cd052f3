package commands

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/output"
	"uptime/internal/score"
	"uptime/internal/session"
)

func init() {
	Register(&EnergyCmd{})
	Register(&FocusCmd{})
	Register(&BreakCmd{})
}

// EnergyCmd implements the energy command.
type EnergyCmd struct{}

func (c *EnergyCmd) Name() string          { return "energy" }
func (c *EnergyCmd) Aliases() []string     { return nil }
func (c *EnergyCmd) Synopsis() string      { return "Set energy level (1-5)" }
func (c *EnergyCmd) Usage() string         { return "uptime energy <1-5>" }
func (c *EnergyCmd) Requires() Requirement { return NeedsSession }

func (c *EnergyCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *EnergyCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(out, "energy %d/%d\n", sess.Inputs().EnergyLevel, score.MaxEnergy)
		return exitcode.Success
	}
	level, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: invalid energy level: %s\n", args[0])
		return exitcode.UserError
	}
	if err := sess.SetEnergy(level); err != nil {
		return reportError(err, errOut)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// FocusCmd implements the focus command.
type FocusCmd struct{}

func (c *FocusCmd) Name() string          { return "focus" }
func (c *FocusCmd) Aliases() []string     { return nil }
func (c *FocusCmd) Synopsis() string      { return "Start or stop the focus timer" }
func (c *FocusCmd) Usage() string         { return "uptime focus start|stop" }
func (c *FocusCmd) Requires() Requirement { return NeedsSession }

func (c *FocusCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *FocusCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintf(errOut, "error: usage: %s\n", c.Usage())
		return exitcode.UserError
	}

	switch args[0] {
	case "start":
		if err := sess.StartFocus(); err != nil {
			return reportError(err, errOut)
		}
		if !cfg.Quiet {
			fmt.Fprintln(out, "ok")
		}
	case "stop":
		elapsed, err := sess.StopFocus()
		if err != nil {
			return reportError(err, errOut)
		}
		if !cfg.Quiet {
			fmt.Fprintf(out, "ok focused %s (total %s)\n",
				output.FormatMinutes(int(elapsed.Minutes())),
				output.FormatMinutes(sess.Inputs().FocusMinutes()))
		}
	default:
		fmt.Fprintf(errOut, "error: unknown focus action: %s\n", args[0])
		return exitcode.UserError
	}
	return exitcode.Success
}

// BreakCmd implements the break command.
type BreakCmd struct{}

func (c *BreakCmd) Name() string          { return "break" }
func (c *BreakCmd) Aliases() []string     { return nil }
func (c *BreakCmd) Synopsis() string      { return "Record a break (stops the focus timer)" }
func (c *BreakCmd) Usage() string         { return "uptime break" }
func (c *BreakCmd) Requires() Requirement { return NeedsSession }

func (c *BreakCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *BreakCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	if err := sess.TakeBreak(); err != nil {
		return reportError(err, errOut)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
