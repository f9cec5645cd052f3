// Package session owns the auth gate, task store, auto-saver and history
// loader, and the score inputs that are not tasks.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/oauth2"

	"uptime/internal/auth"
	"uptime/internal/autosave"
	"uptime/internal/history"
	"uptime/internal/score"
	"uptime/internal/service"
	"uptime/internal/tasks"
)

// DefaultEnergy is the energy level before the user sets one.
const DefaultEnergy = 3

const inputsKey = "inputs"

var (
	// ErrEnergyRange is returned for an energy level outside 1..MaxEnergy.
	ErrEnergyRange = fmt.Errorf("energy must be between 1 and %d", score.MaxEnergy)

	// ErrFocusRunning is returned by StartFocus when the timer already runs.
	ErrFocusRunning = errors.New("focus timer already running")

	// ErrFocusStopped is returned by StopFocus when no timer runs.
	ErrFocusStopped = errors.New("focus timer not running")
)

// Provider is the auth collaborator plus the operations login and logout
// need. auth.FileProvider implements it.
type Provider interface {
	auth.Provider
	Load() error
	Save(tok *oauth2.Token) error
	Remove() error
}

// StateStore keeps the inputs between runs. localstate.Store implements it.
type StateStore interface {
	history.Cache
}

// Inputs are the persisted non-task score inputs.
type Inputs struct {
	Energy         int        `json:"energy"`
	FocusSeconds   int64      `json:"focus_seconds"`
	FocusStartedAt *time.Time `json:"focus_started_at,omitempty"`
	LastBreak      *time.Time `json:"last_break,omitempty"`
}

// Config wires a Session.
type Config struct {
	Remote      service.Service
	Provider    Provider
	Credentials auth.CredentialSink
	State       StateStore
	Log         logr.Logger

	// AutosaveInterval is the snapshot period; zero means the saver default.
	AutosaveInterval time.Duration

	// Now and Ticker are overridden in tests.
	Now    func() time.Time
	Ticker autosave.TickerFunc
}

// Session is the single owner of the client state.
type Session struct {
	provider Provider
	state    StateStore
	log      logr.Logger
	now      func() time.Time

	gate    *auth.Gate
	tasks   *tasks.Store
	saver   *autosave.Saver
	history *history.Loader

	mu     sync.Mutex
	inputs Inputs
}

// New builds the components. Nothing runs until Open.
func New(cfg Config) *Session {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		provider: cfg.Provider,
		state:    cfg.State,
		log:      cfg.Log,
		now:      now,
		inputs:   Inputs{Energy: DefaultEnergy},
	}

	s.gate = auth.NewGate(cfg.Provider, cfg.Credentials, cfg.Log)
	s.tasks = tasks.New(cfg.Remote, cfg.Log, tasks.WithClock(now))
	s.history = history.New(cfg.Remote, cfg.State, cfg.Log)

	var opts []autosave.Option
	if cfg.Ticker != nil {
		opts = append(opts, autosave.WithTicker(cfg.Ticker))
	}
	s.saver = autosave.New(cfg.Remote, s.Snapshot, cfg.AutosaveInterval, cfg.Log, opts...)

	s.gate.OnTransition(s.handleTransition)
	return s
}

// Open loads the provider and saved inputs, then reports the first auth
// observation. A failed task fetch is returned; the session is still usable.
func (s *Session) Open(ctx context.Context) error {
	var errs []error
	if err := s.provider.Load(); err != nil {
		errs = append(errs, fmt.Errorf("load credential: %w", err))
	}
	s.loadInputs()
	if err := s.observe(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Login stores tok with the provider and re-observes auth.
func (s *Session) Login(ctx context.Context, tok *oauth2.Token) error {
	if err := s.provider.Save(tok); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return s.observe(ctx)
}

// Logout removes the stored credential and re-observes auth.
func (s *Session) Logout(ctx context.Context) error {
	if err := s.provider.Remove(); err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}
	return s.observe(ctx)
}

// Close stops the auto-saver.
func (s *Session) Close() {
	s.saver.Stop()
}

// AuthState returns the gate's state.
func (s *Session) AuthState() auth.State { return s.gate.State() }

// Tasks exposes the task store for reads.
func (s *Session) Tasks() *tasks.Store { return s.tasks }

// History exposes the history loader.
func (s *Session) History() *history.Loader { return s.history }

// AutosaveRunning reports whether snapshots are being sent.
func (s *Session) AutosaveRunning() bool { return s.saver.Running() }

func (s *Session) observe(ctx context.Context) error {
	return s.gate.Observe(ctx, s.provider.Ready(), s.provider.Authenticated())
}

func (s *Session) handleTransition(ctx context.Context, state auth.State) error {
	err := s.tasks.HandleAuth(ctx, state)
	if herr := s.history.HandleAuth(ctx, state); herr != nil {
		err = errors.Join(err, herr)
	}
	s.syncSaver()
	return err
}

// syncSaver must not be called with s.mu held; the saver's capture takes it.
func (s *Session) syncSaver() {
	s.saver.Sync(s.gate.State() == auth.Authenticated && s.tasks.Len() > 0)
}

// AddTask adds a task.
func (s *Session) AddTask(ctx context.Context, text string) (service.Task, error) {
	t, err := s.tasks.Add(ctx, text)
	s.syncSaver()
	return t, err
}

// ToggleTask flips a task's completed flag.
func (s *Session) ToggleTask(ctx context.Context, id int64) error {
	return s.afterMutation(s.tasks.Toggle(ctx, id))
}

// ToggleBlocker flips a task's blocker flag.
func (s *Session) ToggleBlocker(ctx context.Context, id int64) error {
	return s.afterMutation(s.tasks.ToggleBlocker(ctx, id))
}

// EditTask replaces a task's text.
func (s *Session) EditTask(ctx context.Context, id int64, text string) error {
	return s.afterMutation(s.tasks.Edit(ctx, id, text))
}

// RemoveTask deletes a task.
func (s *Session) RemoveTask(ctx context.Context, id int64) error {
	return s.afterMutation(s.tasks.Remove(ctx, id))
}

// RefreshTasks re-fetches tasks when online.
func (s *Session) RefreshTasks(ctx context.Context) error {
	return s.afterMutation(s.tasks.Refresh(ctx))
}

func (s *Session) afterMutation(err error) error {
	s.syncSaver()
	return err
}

// SetEnergy sets the energy level.
func (s *Session) SetEnergy(level int) error {
	if level < 1 || level > score.MaxEnergy {
		return ErrEnergyRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs.Energy = level
	return s.saveInputsLocked()
}

// StartFocus starts the focus timer.
func (s *Session) StartFocus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inputs.FocusStartedAt != nil {
		return ErrFocusRunning
	}
	now := s.now()
	s.inputs.FocusStartedAt = &now
	return s.saveInputsLocked()
}

// StopFocus stops the focus timer and returns the length of the run.
func (s *Session) StopFocus() (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inputs.FocusStartedAt == nil {
		return 0, ErrFocusStopped
	}
	elapsed := s.stopFocusLocked()
	return elapsed, s.saveInputsLocked()
}

// TakeBreak records a break now, stopping a running focus timer first.
func (s *Session) TakeBreak() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inputs.FocusStartedAt != nil {
		s.stopFocusLocked()
	}
	now := s.now()
	s.inputs.LastBreak = &now
	return s.saveInputsLocked()
}

// FocusRunning reports whether the focus timer runs.
func (s *Session) FocusRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs.FocusStartedAt != nil
}

func (s *Session) stopFocusLocked() time.Duration {
	elapsed := s.now().Sub(*s.inputs.FocusStartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	s.inputs.FocusSeconds += int64(elapsed / time.Second)
	s.inputs.FocusStartedAt = nil
	return elapsed
}

// Inputs returns the current score inputs. A running focus timer counts
// up to now.
func (s *Session) Inputs() score.Inputs {
	taskList := s.tasks.Tasks()

	s.mu.Lock()
	defer s.mu.Unlock()
	focus := s.inputs.FocusSeconds
	if started := s.inputs.FocusStartedAt; started != nil {
		if d := s.now().Sub(*started); d > 0 {
			focus += int64(d / time.Second)
		}
	}
	var lastBreak *time.Time
	if s.inputs.LastBreak != nil {
		b := *s.inputs.LastBreak
		lastBreak = &b
	}
	return score.Inputs{
		Tasks:        taskList,
		EnergyLevel:  s.inputs.Energy,
		FocusSeconds: focus,
		LastBreak:    lastBreak,
	}
}

// Score computes the uptime score from the current inputs.
func (s *Session) Score() int {
	return score.Compute(s.Inputs())
}

// Snapshot captures the session for the backend.
func (s *Session) Snapshot() service.SessionSnapshot {
	in := s.Inputs()
	taskList := in.Tasks
	if taskList == nil {
		taskList = []service.Task{}
	}
	return service.SessionSnapshot{
		UptimeScore:  score.Compute(in),
		EnergyLevel:  in.EnergyLevel,
		FocusMinutes: in.FocusMinutes(),
		Tasks:        taskList,
		HadBreak:     in.HadBreak(),
	}
}

func (s *Session) loadInputs() {
	if s.state == nil {
		return
	}
	var in Inputs
	ok, err := s.state.Get(inputsKey, &in)
	if err != nil {
		s.log.Error(err, "failed to read saved inputs, using defaults")
		return
	}
	if !ok {
		return
	}
	if in.Energy < 1 || in.Energy > score.MaxEnergy {
		in.Energy = DefaultEnergy
	}
	if in.FocusSeconds < 0 {
		in.FocusSeconds = 0
	}
	s.mu.Lock()
	s.inputs = in
	s.mu.Unlock()
}

func (s *Session) saveInputsLocked() error {
	if s.state == nil {
		return nil
	}
	if err := s.state.Put(inputsKey, s.inputs); err != nil {
		return fmt.Errorf("save inputs: %w", err)
	}
	return nil
}
