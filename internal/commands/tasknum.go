package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode"

	"uptime/internal/auth"
	"uptime/internal/exitcode"
	"uptime/internal/history"
	"uptime/internal/service"
	"uptime/internal/session"
	"uptime/internal/tasks"
)

// ErrTaskNumRequired indicates no task number was provided.
var ErrTaskNumRequired = errors.New("task number required")

// ParseTaskNum parses the 1-based task number in args[0], as printed by
// the list and status commands.
func ParseTaskNum(args []string) (int, error) {
	if len(args) == 0 {
		return 0, ErrTaskNumRequired
	}
	if !isAllDigits(args[0]) {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	num, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid task number: %s", args[0])
	}
	return num, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// resolveTask parses the task number in args and looks it up. On failure it
// prints the error and returns a non-zero exit code.
func resolveTask(sess *session.Session, args []string, errOut io.Writer) (service.Task, int) {
	num, err := ParseTaskNum(args)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Task{}, exitcode.UserError
	}
	task, err := sess.Tasks().At(num)
	if err != nil {
		fmt.Fprintf(errOut, "error: task number out of range: %d\n", num)
		return service.Task{}, exitcode.UserError
	}
	return task, exitcode.Success
}

// reportError prints err and maps it to an exit code.
func reportError(err error, errOut io.Writer) int {
	switch {
	case errors.Is(err, tasks.ErrEmptyText):
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	case errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, session.ErrEnergyRange),
		errors.Is(err, session.ErrFocusRunning),
		errors.Is(err, session.ErrFocusStopped):
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, tasks.ErrNotReady),
		errors.Is(err, history.ErrNotAuthenticated):
		fmt.Fprintln(errOut, "error: not logged in (run: uptime login)")
		return exitcode.AuthError
	case errors.Is(err, service.ErrUnauthorized):
		fmt.Fprintf(errOut, "error: auth error: %v\n", err)
		return exitcode.AuthError
	default:
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
		return exitcode.BackendError
	}
}

// modeNote returns a short suffix for confirmations made while offline.
func modeNote(sess *session.Session) string {
	if sess.AuthState() != auth.Authenticated {
		return " (offline)"
	}
	return ""
}
