package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"uptime/internal/auth"
	"uptime/internal/autosave"
	"uptime/internal/backend/uptimeapi"
	"uptime/internal/history"
	"uptime/internal/localstate"
	"uptime/internal/score"
	"uptime/internal/service"
	"uptime/internal/session"
	"uptime/internal/tasks"
	"uptime/internal/testutil"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type manualTicker struct{ c chan time.Time }

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               {}

type fixture struct {
	dir    string
	fs     *testutil.FakeService
	creds  *uptimeapi.Credentials
	clock  *clock
	ticker *manualTicker
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		dir:    t.TempDir(),
		fs:     testutil.NewFakeService(),
		creds:  &uptimeapi.Credentials{},
		clock:  &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		ticker: &manualTicker{c: make(chan time.Time)},
	}
}

func (f *fixture) provider() *auth.FileProvider {
	return auth.NewFileProvider(filepath.Join(f.dir, "token.json"))
}

func (f *fixture) saveToken(t *testing.T, access string) {
	t.Helper()
	require.NoError(t, f.provider().Save(&oauth2.Token{AccessToken: access}))
}

func (f *fixture) open(t *testing.T) *session.Session {
	t.Helper()
	s := f.build(t)
	require.NoError(t, s.Open(context.Background()))
	return s
}

func (f *fixture) build(t *testing.T) *session.Session {
	t.Helper()
	s := session.New(session.Config{
		Remote:      f.fs,
		Provider:    f.provider(),
		Credentials: f.creds,
		State:       localstate.Open(filepath.Join(f.dir, "state")),
		Log:         logr.Discard(),
		Now:         f.clock.Now,
		Ticker:      func(time.Duration) autosave.Ticker { return f.ticker },
	})
	t.Cleanup(s.Close)
	return s
}

func TestSession_OfflineWithoutCredential(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()

	assert.Equal(t, auth.Unauthenticated, s.AuthState())
	assert.Equal(t, tasks.Offline, s.Tasks().Mode())

	_, err := s.AddTask(ctx, "offline task")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Tasks().Len())
	assert.False(t, s.AutosaveRunning(), "no auto-save while signed out")
	assert.Zero(t, f.fs.TotalCalls())
	assert.Nil(t, f.creds.Credential())
}

func TestSession_OpenWithCredentialFetches(t *testing.T) {
	f := newFixture(t)
	f.fs.AddTask(1, "remote", false, false)
	f.saveToken(t, "abc")

	s := f.open(t)

	assert.Equal(t, auth.Authenticated, s.AuthState())
	assert.Equal(t, tasks.Online, s.Tasks().Mode())
	assert.Equal(t, 1, f.fs.Calls("ListTasks"))
	require.NotNil(t, f.creds.Credential())
	assert.Equal(t, "abc", f.creds.Credential().AccessToken)
	assert.True(t, s.AutosaveRunning())
}

func TestSession_OpenReturnsFetchError(t *testing.T) {
	f := newFixture(t)
	f.saveToken(t, "abc")
	f.fs.ListTasksErr = errors.New("backend down")

	s := session.New(session.Config{
		Remote:      f.fs,
		Provider:    f.provider(),
		Credentials: f.creds,
		Log:         logr.Discard(),
	})
	defer s.Close()

	err := s.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, auth.Authenticated, s.AuthState())
	assert.Zero(t, s.Tasks().Len())
}

func TestSession_AutosaveFollowsTasks(t *testing.T) {
	f := newFixture(t)
	f.saveToken(t, "abc")
	s := f.open(t)
	ctx := context.Background()

	assert.False(t, s.AutosaveRunning(), "no auto-save with an empty task list")

	task, err := s.AddTask(ctx, "first")
	require.NoError(t, err)
	assert.True(t, s.AutosaveRunning())

	require.NoError(t, s.RemoveTask(ctx, task.ID))
	assert.False(t, s.AutosaveRunning())
}

func TestSession_AutosaveSendsSnapshot(t *testing.T) {
	f := newFixture(t)
	f.fs.AddTask(1, "done", true, false)
	f.fs.AddTask(2, "open", false, false)
	f.saveToken(t, "abc")

	saved := make(chan service.SessionSnapshot, 1)
	f.fs.OnSaveSession = func(snap service.SessionSnapshot) { saved <- snap }

	s := f.open(t)
	require.NoError(t, s.SetEnergy(5))

	f.ticker.c <- f.clock.Now()

	select {
	case snap := <-saved:
		// 25 tasks + 25 energy + 10 sustainable
		assert.Equal(t, 60, snap.UptimeScore)
		assert.Equal(t, 5, snap.EnergyLevel)
		assert.Len(t, snap.Tasks, 2)
		assert.False(t, snap.HadBreak)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestSession_LogoutStopsEverything(t *testing.T) {
	f := newFixture(t)
	f.fs.AddTask(1, "remote", false, false)
	f.saveToken(t, "abc")
	s := f.open(t)
	require.True(t, s.AutosaveRunning())

	require.NoError(t, s.Logout(context.Background()))

	assert.Equal(t, auth.Unauthenticated, s.AuthState())
	assert.Equal(t, tasks.Offline, s.Tasks().Mode())
	assert.Zero(t, s.Tasks().Len())
	assert.False(t, s.AutosaveRunning())
	assert.Nil(t, f.creds.Credential())
}

func TestSession_LogoutDuringSignInFetch(t *testing.T) {
	f := newFixture(t)
	f.fs.AddTask(1, "remote", false, false)
	f.saveToken(t, "abc")
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.fs.OnListTasks = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}
	s := f.build(t)

	opened := make(chan error, 1)
	go func() { opened <- s.Open(context.Background()) }()
	<-entered

	loggedOut := make(chan error, 1)
	go func() { loggedOut <- s.Logout(context.Background()) }()
	require.Eventually(t, func() bool { return s.AuthState() == auth.Unauthenticated }, 2*time.Second, time.Millisecond)

	close(release)
	require.NoError(t, <-opened)
	require.NoError(t, <-loggedOut)

	_, err := s.History().LoadHistory(context.Background(), 7)
	assert.ErrorIs(t, err, history.ErrNotAuthenticated)
	assert.Zero(t, f.fs.Calls("History"))
	assert.Equal(t, tasks.Offline, s.Tasks().Mode())
	assert.Zero(t, s.Tasks().Len())
	assert.False(t, s.AutosaveRunning())
	assert.Nil(t, f.creds.Credential())
}

func TestSession_LoginGoesOnline(t *testing.T) {
	f := newFixture(t)
	f.fs.AddTask(1, "remote", false, false)
	s := f.open(t)
	require.Equal(t, auth.Unauthenticated, s.AuthState())

	require.NoError(t, s.Login(context.Background(), &oauth2.Token{AccessToken: "new"}))

	assert.Equal(t, auth.Authenticated, s.AuthState())
	assert.Equal(t, 1, s.Tasks().Len())
	assert.Equal(t, "new", f.creds.Credential().AccessToken)
}

func TestSession_Energy(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	assert.Equal(t, session.DefaultEnergy, s.Inputs().EnergyLevel)

	for _, bad := range []int{0, 6, -1} {
		assert.ErrorIs(t, s.SetEnergy(bad), session.ErrEnergyRange)
	}
	require.NoError(t, s.SetEnergy(4))

	// Inputs survive into the next session.
	next := f.open(t)
	assert.Equal(t, 4, next.Inputs().EnergyLevel)
}

func TestSession_FocusTimer(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	assert.ErrorIs(t, func() error { _, err := s.StopFocus(); return err }(), session.ErrFocusStopped)

	require.NoError(t, s.StartFocus())
	assert.ErrorIs(t, s.StartFocus(), session.ErrFocusRunning)
	assert.True(t, s.FocusRunning())

	f.clock.Advance(30*time.Minute + 20*time.Second)
	assert.Equal(t, int64(1820), s.Inputs().FocusSeconds, "running timer counts toward focus")

	elapsed, err := s.StopFocus()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute+20*time.Second, elapsed)

	f.clock.Advance(time.Hour)
	in := s.Inputs()
	assert.Equal(t, int64(1820), in.FocusSeconds, "stopped timer stays put")
	assert.Equal(t, 30, in.FocusMinutes())

	// Focus state persists across runs.
	require.NoError(t, s.StartFocus())
	next := f.open(t)
	assert.True(t, next.FocusRunning())
}

func TestSession_BreakStopsFocus(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	require.NoError(t, s.StartFocus())
	f.clock.Advance(10 * time.Minute)
	require.NoError(t, s.TakeBreak())

	assert.False(t, s.FocusRunning())
	in := s.Inputs()
	assert.Equal(t, int64(600), in.FocusSeconds)
	require.NotNil(t, in.LastBreak)
	assert.True(t, in.LastBreak.Equal(f.clock.Now()))
	assert.True(t, s.Snapshot().HadBreak)
}

func TestSession_ScoreAndSnapshot(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)
	ctx := context.Background()

	assert.Zero(t, s.Score(), "empty task list scores zero")

	a, err := s.AddTask(ctx, "a")
	require.NoError(t, err)
	b, err := s.AddTask(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, s.ToggleTask(ctx, a.ID))
	require.NoError(t, s.ToggleBlocker(ctx, b.ID))
	require.NoError(t, s.SetEnergy(5))

	// 25 + 25 - 10 + 10
	assert.Equal(t, 50, s.Score())
	assert.Equal(t, score.Compute(s.Inputs()), s.Score())

	snap := s.Snapshot()
	assert.Equal(t, 50, snap.UptimeScore)
	assert.Equal(t, 5, snap.EnergyLevel)
	assert.Equal(t, 0, snap.FocusMinutes)
	assert.Len(t, snap.Tasks, 2)

	require.NoError(t, s.EditTask(ctx, b.ID, "b2"))
	got, err := s.Tasks().At(2)
	require.NoError(t, err)
	assert.Equal(t, "b2", got.Text)
}

func TestSession_SnapshotEmptyTasks(t *testing.T) {
	f := newFixture(t)
	s := f.open(t)

	snap := s.Snapshot()
	assert.NotNil(t, snap.Tasks)
	assert.Empty(t, snap.Tasks)
}
