// Package service defines the backend-agnostic interface for uptime operations.
package service

import "context"

// Service defines the interface for the remote uptime backend.
// The task store, auto-saver and history loader only talk to the backend
// through this interface; none of them import the HTTP client directly.
type Service interface {
	TaskService
	SessionService
	HistoryService
}

// TaskService covers the task collection endpoints.
type TaskService interface {
	// ListTasks returns the full task collection in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the server's copy,
	// including the server-assigned ID.
	CreateTask(ctx context.Context, text string) (Task, error)

	// UpdateTask applies the non-nil fields of update and returns the
	// server's updated copy.
	UpdateTask(ctx context.Context, id int64, update TaskUpdate) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id int64) error
}

// SessionService accepts session snapshots.
type SessionService interface {
	// SaveSession submits a snapshot. The backend owns it afterwards.
	SaveSession(ctx context.Context, snap SessionSnapshot) error
}

// HistoryService serves historical data.
type HistoryService interface {
	// History returns session records for the last days days.
	History(ctx context.Context, days int) ([]HistoryRecord, error)

	// WeeklyStats returns aggregate stats for the current week.
	WeeklyStats(ctx context.Context) (WeeklyStats, error)
}
