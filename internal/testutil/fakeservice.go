// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"sync"

	"uptime/internal/service"
)

// FakeService is an in-memory implementation of service.Service for testing.
// IDs assigned by CreateTask start at 1000 to stay clear of hand-seeded tasks.
type FakeService struct {
	mu       sync.Mutex
	tasks    []service.Task
	nextID   int64
	sessions []service.SessionSnapshot
	history  []service.HistoryRecord
	stats    service.WeeklyStats
	days     []int
	calls    map[string]int

	// Error injection for testing
	ListTasksErr   error
	CreateTaskErr  error
	UpdateTaskErr  error
	DeleteTaskErr  error
	SaveSessionErr error
	HistoryErr     error
	WeeklyStatsErr error

	// OnListTasks runs at the start of ListTasks, outside the lock.
	// Tests use it to block a fetch in flight.
	OnListTasks func()

	// OnSaveSession runs after a snapshot has been recorded.
	OnSaveSession func(service.SessionSnapshot)
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		nextID: 1000,
		calls:  make(map[string]int),
	}
}

// AddTask seeds a task and returns it.
func (f *FakeService) AddTask(id int64, text string, completed, hasBlocker bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := service.Task{ID: id, Text: text, Completed: completed, HasBlocker: hasBlocker}
	f.tasks = append(f.tasks, t)
	return t
}

// SetHistory replaces the records returned by History.
func (f *FakeService) SetHistory(records ...service.HistoryRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append([]service.HistoryRecord(nil), records...)
}

// SetWeeklyStats sets the value returned by WeeklyStats.
func (f *FakeService) SetWeeklyStats(stats service.WeeklyStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats = stats
}

// StoredTasks returns the backend's copy of the collection.
func (f *FakeService) StoredTasks() []service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.Task(nil), f.tasks...)
}

// Sessions returns every snapshot received so far.
func (f *FakeService) Sessions() []service.SessionSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.SessionSnapshot(nil), f.sessions...)
}

// HistoryDays returns the days argument of every History call.
func (f *FakeService) HistoryDays() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.days...)
}

// Calls returns how many times method was called, errors included.
func (f *FakeService) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (f *FakeService) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeService) record(method string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.record("ListTasks")
	if f.OnListTasks != nil {
		f.OnListTasks()
	}
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	return f.StoredTasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, text string) (service.Task, error) {
	f.record("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := service.Task{ID: f.nextID, Text: text}
	f.tasks = append(f.tasks, t)
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id int64, update service.TaskUpdate) (service.Task, error) {
	f.record("UpdateTask")
	if f.UpdateTaskErr != nil {
		return service.Task{}, f.UpdateTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID != id {
			continue
		}
		if update.Text != nil {
			t.Text = *update.Text
		}
		if update.Completed != nil {
			t.Completed = *update.Completed
		}
		if update.HasBlocker != nil {
			t.HasBlocker = *update.HasBlocker
		}
		f.tasks[i] = t
		return t, nil
	}
	return service.Task{}, &service.RequestError{Status: 404, Message: "Task not found"}
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id int64) error {
	f.record("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &service.RequestError{Status: 404, Message: "Task not found"}
}

// SaveSession implements service.Service.
func (f *FakeService) SaveSession(ctx context.Context, snap service.SessionSnapshot) error {
	f.record("SaveSession")
	if f.SaveSessionErr != nil {
		return f.SaveSessionErr
	}
	f.mu.Lock()
	f.sessions = append(f.sessions, snap)
	hook := f.OnSaveSession
	f.mu.Unlock()
	if hook != nil {
		hook(snap)
	}
	return nil
}

// History implements service.Service.
func (f *FakeService) History(ctx context.Context, days int) ([]service.HistoryRecord, error) {
	f.record("History")
	f.mu.Lock()
	f.days = append(f.days, days)
	f.mu.Unlock()
	if f.HistoryErr != nil {
		return nil, f.HistoryErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]service.HistoryRecord(nil), f.history...), nil
}

// WeeklyStats implements service.Service.
func (f *FakeService) WeeklyStats(ctx context.Context) (service.WeeklyStats, error) {
	f.record("WeeklyStats")
	if f.WeeklyStatsErr != nil {
		return service.WeeklyStats{}, f.WeeklyStatsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats, nil
}
