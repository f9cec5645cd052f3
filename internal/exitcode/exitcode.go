// Package exitcode holds the process exit statuses uptime reports.
package exitcode

const (
	// Success: the command did what was asked.
	Success = 0

	// UserError: bad arguments, an unknown task number or an invalid value.
	UserError = 1

	// AuthError: no stored credential, or the backend rejected it.
	AuthError = 2

	// BackendError: the backend failed or could not be reached.
	BackendError = 3
)

var names = map[int]string{
	Success:      "success",
	UserError:    "user error",
	AuthError:    "auth error",
	BackendError: "backend error",
}

// Name describes code for logs.
func Name(code int) string {
	if n, ok := names[code]; ok {
		return n
	}
	return "unknown"
}
