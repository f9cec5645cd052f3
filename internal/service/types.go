package service

import "time"

// Task represents a single task item.
type Task struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	Completed  bool   `json:"completed"`
	HasBlocker bool   `json:"hasBlocker"`
}

// Blocked reports whether the task is an unresolved blocker.
func (t Task) Blocked() bool {
	return t.HasBlocker && !t.Completed
}

// TaskUpdate is a partial task update in the backend's schema.
// Nil fields are left untouched.
type TaskUpdate struct {
	Text       *string `json:"text,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
	HasBlocker *bool   `json:"has_blocker,omitempty"`
}

// SessionSnapshot is the periodic session record sent to the backend.
type SessionSnapshot struct {
	UptimeScore  int    `json:"uptime_score"`
	EnergyLevel  int    `json:"energy_level"`
	FocusMinutes int    `json:"focus_minutes"`
	Tasks        []Task `json:"tasks"`
	HadBreak     bool   `json:"had_break"`
}

// HistoryRecord is one stored session as returned by the history endpoint.
type HistoryRecord struct {
	ID           int64     `json:"id"`
	UptimeScore  int       `json:"uptime_score"`
	EnergyLevel  int       `json:"energy_level"`
	FocusMinutes int       `json:"focus_minutes"`
	HadBreak     bool      `json:"had_break"`
	CreatedAt    time.Time `json:"created_at"`
}

// WeeklyStats is the aggregate returned by the weekly stats endpoint.
type WeeklyStats struct {
	AverageUptime     float64 `json:"average_uptime"`
	TotalSessions     int     `json:"total_sessions"`
	TotalFocusMinutes int     `json:"total_focus_minutes"`
	BreakCount        int     `json:"break_count"`
	BestDay           string  `json:"best_day,omitempty"`
}
