package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/history"
	"uptime/internal/output"
	"uptime/internal/session"
)

func init() {
	Register(&HistoryCmd{})
	Register(&StatsCmd{})
}

// HistoryCmd implements the history command.
type HistoryCmd struct {
	days int
}

func (c *HistoryCmd) Name() string          { return "history" }
func (c *HistoryCmd) Aliases() []string     { return nil }
func (c *HistoryCmd) Synopsis() string      { return "Show past sessions" }
func (c *HistoryCmd) Usage() string         { return "uptime history [--days <n>]" }
func (c *HistoryCmd) Requires() Requirement { return NeedsAuth }

func (c *HistoryCmd) RegisterFlags(fs *pflag.FlagSet) {
	fs.IntVarP(&c.days, "days", "d", 0, "")
}

func (c *HistoryCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	days := c.days
	if days <= 0 {
		days = cfg.HistoryDays
	}

	records, err := sess.History().LoadHistory(ctx, days)
	if err != nil {
		if errors.Is(err, history.ErrNotAuthenticated) || records == nil {
			return reportError(err, errOut)
		}
		source := "previously loaded"
		if sess.History().Stale() {
			source = "cached"
		}
		fmt.Fprintf(errOut, "warning: showing %s history: %v\n", source, err)
		output.FormatHistory(out, records)
		return exitcode.BackendError
	}

	output.FormatHistory(out, records)
	return exitcode.Success
}

// StatsCmd implements the stats command.
type StatsCmd struct{}

func (c *StatsCmd) Name() string          { return "stats" }
func (c *StatsCmd) Aliases() []string     { return nil }
func (c *StatsCmd) Synopsis() string      { return "Show this week's stats" }
func (c *StatsCmd) Usage() string         { return "uptime stats" }
func (c *StatsCmd) Requires() Requirement { return NeedsAuth }

func (c *StatsCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *StatsCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	stats, err := sess.History().LoadWeeklyStats(ctx)
	if err != nil {
		if errors.Is(err, history.ErrNotAuthenticated) || stats == nil {
			return reportError(err, errOut)
		}
		fmt.Fprintf(errOut, "warning: showing saved stats: %v\n", err)
		output.FormatStats(out, *stats)
		return exitcode.BackendError
	}

	output.FormatStats(out, *stats)
	return exitcode.Success
}
