// Package tasks holds the ordered task collection and reconciles local
// edits with the remote backend once a credential is available.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"uptime/internal/auth"
	"uptime/internal/service"
)

var (
	// ErrNotReady is returned by every operation until auth has settled.
	ErrNotReady = errors.New("task store not ready")

	// ErrEmptyText is returned when a task's text is blank.
	ErrEmptyText = errors.New("task text is empty")

	// ErrTaskNotFound is returned for an unknown task ID or position.
	ErrTaskNotFound = errors.New("task not found")
)

// Mode says where mutations go.
type Mode int

const (
	// Offline keeps every mutation in memory.
	Offline Mode = iota
	// Online sends mutations to the backend.
	Online
)

func (m Mode) String() string {
	if m == Online {
		return "online"
	}
	return "offline"
}

// Patch is a partial task update. Nil fields are left alone.
type Patch struct {
	Text       *string
	Completed  *bool
	HasBlocker *bool
}

func (p Patch) apply(t service.Task) service.Task {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.HasBlocker != nil {
		t.HasBlocker = *p.HasBlocker
	}
	return t
}

func (p Patch) remote() service.TaskUpdate {
	return service.TaskUpdate{
		Text:       p.Text,
		Completed:  p.Completed,
		HasBlocker: p.HasBlocker,
	}
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for offline task IDs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the task collection. It starts out not ready and follows the
// auth gate through HandleAuth.
type Store struct {
	remote service.TaskService
	log    logr.Logger
	now    func() time.Time

	mu      sync.Mutex
	auth    auth.State
	mode    Mode
	tasks   []service.Task
	loading bool
	epoch   uint64 // bumped on every auth transition
	lastID  int64
}

// New creates a store backed by remote.
func New(remote service.TaskService, log logr.Logger, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		log:    log.WithName("tasks"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleAuth moves the store to the mode matching state.
// Entering Authenticated fetches the remote collection; if that fails the
// collection is left empty and the error is returned.
func (s *Store) HandleAuth(ctx context.Context, state auth.State) error {
	s.mu.Lock()
	s.auth = state
	s.epoch++
	switch state {
	case auth.Unauthenticated:
		s.mode = Offline
		s.tasks = nil
		s.loading = false
		s.mu.Unlock()
		return nil
	case auth.Authenticated:
		s.mode = Online
		s.tasks = nil
		s.mu.Unlock()
		return s.fetch(ctx)
	default:
		s.mu.Unlock()
		return nil
	}
}

// Refresh re-fetches the collection when online. Offline it does nothing.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	online := s.mode == Online
	s.mu.Unlock()

	if !online {
		return nil
	}
	return s.fetch(ctx)
}

func (s *Store) fetch(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	epoch := s.epoch
	s.mu.Unlock()

	list, err := s.remote.ListTasks(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.log.V(1).Info("discarding task fetch from previous session")
		return nil
	}
	s.loading = false
	if err != nil {
		s.tasks = nil
		return fmt.Errorf("fetch tasks: %w", err)
	}
	s.tasks = append([]service.Task(nil), list...)
	s.log.V(1).Info("fetched tasks", "count", len(list))
	return nil
}

// Add appends a task. Offline the task gets a local ID; online the
// backend creates it and a failure leaves the collection unchanged.
func (s *Store) Add(ctx context.Context, text string) (service.Task, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return service.Task{}, ErrEmptyText
	}

	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return service.Task{}, err
	}
	if s.mode == Offline {
		t := service.Task{ID: s.nextLocalIDLocked(), Text: text}
		s.tasks = append(s.tasks, t)
		s.mu.Unlock()
		return t, nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	created, err := s.remote.CreateTask(ctx, text)
	if err != nil {
		return service.Task{}, fmt.Errorf("create task: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch == epoch {
		s.tasks = append(s.tasks, created)
	}
	return created, nil
}

// Update applies p to the task with the given ID. Online, a backend
// failure is logged and the change is applied locally anyway.
func (s *Store) Update(ctx context.Context, id int64, p Patch) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	if s.mode == Offline {
		s.tasks[i] = p.apply(s.tasks[i])
		s.mu.Unlock()
		return nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	updated, err := s.remote.UpdateTask(ctx, id, p.remote())

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil
	}
	i = s.indexLocked(id)
	if i < 0 {
		return nil
	}
	if err != nil {
		s.log.Error(err, "failed to update task, keeping local change", "id", id)
		s.tasks[i] = p.apply(s.tasks[i])
		return nil
	}
	s.tasks[i] = updated
	return nil
}

// Toggle flips the completed flag.
func (s *Store) Toggle(ctx context.Context, id int64) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	done := !t.Completed
	return s.Update(ctx, id, Patch{Completed: &done})
}

// ToggleBlocker flips the blocker flag.
func (s *Store) ToggleBlocker(ctx context.Context, id int64) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	blocked := !t.HasBlocker
	return s.Update(ctx, id, Patch{HasBlocker: &blocked})
}

// Edit replaces the task's text.
func (s *Store) Edit(ctx context.Context, id int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}
	return s.Update(ctx, id, Patch{Text: &text})
}

// Remove deletes a task. Online, the local copy goes away whatever the
// backend answers.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	online := s.mode == Online
	s.mu.Unlock()

	if online {
		if err := s.remote.DeleteTask(ctx, id); err != nil {
			s.log.Error(err, "failed to delete task, removing locally", "id", id)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	}
	return nil
}

// Tasks returns a copy of the collection in insertion order.
func (s *Store) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]service.Task(nil), s.tasks...)
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// At returns the task at the 1-based position pos.
func (s *Store) At(pos int) (service.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pos < 1 || pos > len(s.tasks) {
		return service.Task{}, fmt.Errorf("%w: no task #%d", ErrTaskNotFound, pos)
	}
	return s.tasks[pos-1], nil
}

// Mode returns the current mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Loading reports whether a remote fetch is in progress.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Ready reports whether auth has settled.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth != auth.Initializing
}

func (s *Store) get(id int64) (service.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return service.Task{}, err
	}
	i := s.indexLocked(id)
	if i < 0 {
		return service.Task{}, fmt.Errorf("%w: %d", ErrTaskNotFound, id)
	}
	return s.tasks[i], nil
}

func (s *Store) readyLocked() error {
	if s.auth == auth.Initializing {
		return ErrNotReady
	}
	return nil
}

func (s *Store) indexLocked(id int64) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// nextLocalIDLocked returns the current time in milliseconds, bumped past
// the last issued ID so two adds in the same millisecond stay distinct.
func (s *Store) nextLocalIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	for s.indexLocked(id) >= 0 {
		id++
	}
	s.lastID = id
	return id
}
