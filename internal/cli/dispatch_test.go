package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"uptime/internal/auth"
	"uptime/internal/backend/uptimeapi"
	"uptime/internal/cli"
	"uptime/internal/commands"
	"uptime/internal/config"
	"uptime/internal/exitcode"
	"uptime/internal/localstate"
	"uptime/internal/service"
	"uptime/internal/session"
	"uptime/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// testFactory builds sessions backed by svc.
func testFactory(svc *testutil.FakeService) cli.SessionFactory {
	return func(ctx context.Context, cfg *config.Config, log logr.Logger) (*session.Session, error) {
		return session.New(session.Config{
			Remote:      svc,
			Provider:    auth.NewFileProvider(cfg.TokenPath()),
			Credentials: &uptimeapi.Credentials{},
			State:       localstate.Open(cfg.StatePath()),
			Log:         logr.Discard(),
		}), nil
	}
}

func run(t *testing.T, svc *testutil.FakeService, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(svc))
	var outBuf, errBuf bytes.Buffer
	code = dispatcher.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func loggedIn(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := auth.NewFileProvider(filepath.Join(dir, config.TokenFile))
	if err := p.Save(&oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("save token: %v", err)
	}
	return dir
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	_, stderr, code := run(t, testutil.NewFakeService(), "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	_, stderr, code := run(t, testutil.NewFakeService(), "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	stdout, stderr, code := run(t, testutil.NewFakeService(), "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	stdout, stderr, code := run(t, testutil.NewFakeService(), "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "uptime 0.1.0\n" {
		t.Errorf("expected 'uptime 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_CommandHelpFlag(t *testing.T) {
	stdout, _, code := run(t, testutil.NewFakeService(), "add", "--help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "usage: uptime add <text...>\n" {
		t.Errorf("expected usage line, got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	_, stderr, code := run(t, testutil.NewFakeService(), "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: --unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_MissingFlagValue(t *testing.T) {
	_, stderr, code := run(t, testutil.NewFakeService(), "list", "--config")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: flag needs an argument: --config\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_InvalidSettings(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.SettingsFile), []byte(`{"history_days": -1}`), 0600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	_, stderr, code := run(t, testutil.NewFakeService(), "version", "--config", dir)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if !strings.HasPrefix(stderr, "error: ") {
		t.Errorf("expected settings error, got %q", stderr)
	}
}

func TestDispatcher_NotLoggedIn(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := run(t, svc, "list", "--config", t.TempDir())

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: not logged in (run: uptime login)\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
	if svc.TotalCalls() != 0 {
		t.Errorf("expected no remote calls, got %d", svc.TotalCalls())
	}
}

func TestDispatcher_DefaultsToStatus(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(1, "Ship it", true, false)
	t.Setenv("XDG_CONFIG_HOME", loggedInXDG(t))

	stdout, stderr, code := run(t, svc)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if !strings.Contains(stdout, "[x] Ship it") || !strings.Contains(stdout, "Uptime: ") {
		t.Errorf("expected status output, got %q", stdout)
	}
}

// loggedInXDG returns an XDG config home holding a stored token.
func loggedInXDG(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	dir := filepath.Join(home, config.AppName)
	p := auth.NewFileProvider(filepath.Join(dir, config.TokenFile))
	if err := p.Save(&oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("save token: %v", err)
	}
	return home
}

func TestDispatcher_AddWithToken(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := loggedIn(t)

	stdout, stderr, code := run(t, svc, "add", "--config", dir, "Write", "tests")

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if stdout != "ok #1\n" {
		t.Errorf("expected %q, got %q", "ok #1\n", stdout)
	}
	stored := svc.StoredTasks()
	if len(stored) != 1 || stored[0].Text != "Write tests" {
		t.Errorf("expected task stored remotely, got %+v", stored)
	}
}

func TestDispatcher_QuietFlag(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := loggedIn(t)

	stdout, _, code := run(t, svc, "add", "--quiet", "--config", dir, "task")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
}

func TestDispatcher_RejectedToken(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = &service.RequestError{Status: 401, Message: "invalid token"}
	dir := loggedIn(t)

	_, stderr, code := run(t, svc, "list", "--config", dir)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.HasPrefix(stderr, "error: auth error: ") {
		t.Errorf("expected auth error, got %q", stderr)
	}
}

func TestDispatcher_FetchFailure(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = &service.RequestError{Status: 500, Message: "db down"}
	dir := loggedIn(t)

	_, stderr, code := run(t, svc, "list", "--config", dir)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: ") {
		t.Errorf("expected backend error, got %q", stderr)
	}
}

func TestDispatcher_SessionCommandWorksOffline(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := t.TempDir()

	if _, stderr, code := run(t, svc, "energy", "--config", dir, "4"); code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	stdout, _, _ := run(t, svc, "energy", "--config", dir)

	if stdout != "energy 4/5\n" {
		t.Errorf("expected persisted energy, got %q", stdout)
	}
}

func TestDispatcher_LoginThenLogout(t *testing.T) {
	svc := testutil.NewFakeService()
	dir := t.TempDir()

	if _, stderr, code := run(t, svc, "login", "--config", dir, "--token", "abc"); code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	if _, _, code := run(t, svc, "list", "--config", dir); code != exitcode.Success {
		t.Errorf("expected list to succeed after login, got %d", code)
	}
	if _, _, code := run(t, svc, "logout", "--config", dir); code != exitcode.Success {
		t.Errorf("expected logout to succeed, got %d", code)
	}
	if _, _, code := run(t, svc, "list", "--config", dir); code != exitcode.AuthError {
		t.Errorf("expected exit code %d after logout, got %d", exitcode.AuthError, code)
	}
}
