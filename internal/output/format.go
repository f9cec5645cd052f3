// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"uptime/internal/score"
	"uptime/internal/service"
)

const (
	markOpen    = "[ ]"
	markDone    = "[x]"
	markBlocked = "[!]"
)

var (
	tierColors = map[score.Tier]*color.Color{
		score.Optimal:  color.New(color.FgGreen, color.Bold),
		score.Degraded: color.New(color.FgYellow, color.Bold),
		score.Critical: color.New(color.FgRed, color.Bold),
	}
	faint = color.New(color.Faint)
)

// FormatTask formats a numbered task line.
// Format: "{N:>4}  {MARK} {TEXT}\n" where MARK is [ ], [x] or [!] for an
// unresolved blocker.
func FormatTask(w io.Writer, num int, task service.Task) {
	fmt.Fprintf(w, "%4d  %s %s\n", num, mark(task), normalizeText(task.Text))
}

// FormatTasks writes every task, or a placeholder for an empty list.
func FormatTasks(w io.Writer, tasks []service.Task) {
	if len(tasks) == 0 {
		faint.Fprintln(w, "  no tasks")
		return
	}
	for i, t := range tasks {
		FormatTask(w, i+1, t)
	}
}

// FormatScore writes the score line, colored by tier.
// Format: "Uptime: {N}% [{TIER}]\n"
func FormatScore(w io.Writer, n int) {
	tier := score.TierFor(n)
	c, ok := tierColors[tier]
	if !ok {
		c = color.New()
	}
	fmt.Fprintf(w, "Uptime: %s\n", c.Sprintf("%d%% [%s]", n, strings.ToUpper(string(tier))))
}

// Inputs describes the non-task score inputs for display.
type Inputs struct {
	Energy       int
	FocusSeconds int64
	FocusRunning bool
	LastBreak    *time.Time
}

// FormatInputs writes the energy, focus and break line.
func FormatInputs(w io.Writer, in Inputs) {
	focus := FormatMinutes(int(in.FocusSeconds / 60))
	if in.FocusRunning {
		focus += " (running)"
	}
	brk := "none"
	if in.LastBreak != nil {
		brk = in.LastBreak.Local().Format("15:04")
	}
	fmt.Fprintf(w, "Energy: %d/%d  Focus: %s  Break: %s\n", in.Energy, score.MaxEnergy, focus, brk)
}

// FormatMinutes renders minutes as "45m" or "2h05m".
func FormatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

func mark(t service.Task) string {
	switch {
	case t.Completed:
		return markDone
	case t.HasBlocker:
		return markBlocked
	default:
		return markOpen
	}
}

// normalizeText normalizes a task's text for display.
// - Empty or whitespace-only text becomes "(untitled)"
// - Newlines are replaced with spaces
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r", " ")
	text = strings.ReplaceAll(text, "\n", " ")

	if strings.TrimSpace(text) == "" {
		return "(untitled)"
	}
	return text
}
