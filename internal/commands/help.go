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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string          { return "help" }
func (c *HelpCmd) Aliases() []string     { return nil }
func (c *HelpCmd) Synopsis() string      { return "Print usage" }
func (c *HelpCmd) Usage() string         { return "uptime help" }
func (c *HelpCmd) Requires() Requirement { return NeedsNothing }

func (c *HelpCmd) RegisterFlags(fs *pflag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, sess *session.Session, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  uptime                               Show tasks, score and inputs
  uptime status [common flags]
  uptime list [common flags]
  uptime refresh [common flags]        Re-fetch tasks (alias: sync)
  uptime add [common flags] <text...>
  uptime done [common flags] <n>       Toggle completed
  uptime block [common flags] <n>      Toggle blocker
  uptime edit [common flags] <n> <text...>
  uptime rm [common flags] <n>
  uptime energy [common flags] <1-5>
  uptime focus [common flags] start|stop
  uptime break [common flags]          Record a break
  uptime history [common flags] [--days <n>]
  uptime stats [common flags]
  uptime login [common flags] [--token <token>]
  uptime logout [common flags]
  uptime shell [common flags]          Interactive session, works offline
  uptime help
  uptime version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr

Environment:
  UPTIME_API_URL, UPTIME_API_TIMEOUT, UPTIME_AUTOSAVE_INTERVAL,
  UPTIME_HISTORY_DAYS override config.json; UPTIME_TOKEN is read by login.
`
