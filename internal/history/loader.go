// Package history loads past sessions and weekly stats on demand.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-logr/logr"

	"uptime/internal/auth"
	"uptime/internal/service"
)

// DefaultDays is the history window used when none is given.
const DefaultDays = 7

// ErrNotAuthenticated is returned, without contacting the backend, when no
// user is signed in.
var ErrNotAuthenticated = errors.New("history requires a signed-in user")

const statsKey = "stats-weekly"

func historyKey(days int) string { return "history-" + strconv.Itoa(days) }

// Cache persists the last successful loads. localstate.Store satisfies it.
type Cache interface {
	Get(key string, v any) (bool, error)
	Put(key string, v any) error
}

// Loader fetches history and weekly stats. Data from the last successful
// load is kept when a later load fails.
type Loader struct {
	remote service.HistoryService
	cache  Cache
	log    logr.Logger

	mu             sync.Mutex
	authed         bool
	records        []service.HistoryRecord
	days           int
	stats          *service.WeeklyStats
	loadingHistory bool
	loadingStats   bool
	stale          bool
}

// New creates a loader. cache may be nil.
func New(remote service.HistoryService, cache Cache, log logr.Logger) *Loader {
	return &Loader{
		remote: remote,
		cache:  cache,
		log:    log.WithName("history"),
	}
}

// HandleAuth tracks the auth state. Losing authentication drops loaded data.
func (l *Loader) HandleAuth(ctx context.Context, state auth.State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.authed = state == auth.Authenticated
	if !l.authed {
		l.records, l.stats, l.days, l.stale = nil, nil, 0, false
	}
	return nil
}

// LoadHistory fetches records for the last days days; days <= 0 means
// DefaultDays. On failure the error is returned together with whatever was
// loaded before, or the cached copy when nothing was.
func (l *Loader) LoadHistory(ctx context.Context, days int) ([]service.HistoryRecord, error) {
	if days <= 0 {
		days = DefaultDays
	}

	l.mu.Lock()
	if !l.authed {
		l.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	l.loadingHistory = true
	l.mu.Unlock()

	records, err := l.remote.History(ctx, days)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadingHistory = false

	if err != nil {
		l.log.Error(err, "failed to load history", "days", days)
		if l.records == nil && l.cache != nil {
			var cached []service.HistoryRecord
			if ok, cerr := l.cache.Get(historyKey(days), &cached); cerr != nil {
				l.log.Error(cerr, "failed to read history cache")
			} else if ok {
				l.records, l.days, l.stale = cached, days, true
			}
		}
		return copyRecords(l.records), fmt.Errorf("load history: %w", err)
	}

	if records == nil {
		records = []service.HistoryRecord{}
	}
	l.records, l.days, l.stale = records, days, false
	if l.cache != nil {
		if err := l.cache.Put(historyKey(days), records); err != nil {
			l.log.Error(err, "failed to cache history")
		}
	}
	return copyRecords(records), nil
}

// LoadWeeklyStats fetches the weekly aggregate with the same failure
// policy as LoadHistory.
func (l *Loader) LoadWeeklyStats(ctx context.Context) (*service.WeeklyStats, error) {
	l.mu.Lock()
	if !l.authed {
		l.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	l.loadingStats = true
	l.mu.Unlock()

	stats, err := l.remote.WeeklyStats(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadingStats = false

	if err != nil {
		l.log.Error(err, "failed to load weekly stats")
		if l.stats == nil && l.cache != nil {
			var cached service.WeeklyStats
			if ok, cerr := l.cache.Get(statsKey, &cached); cerr != nil {
				l.log.Error(cerr, "failed to read stats cache")
			} else if ok {
				l.stats = &cached
			}
		}
		return copyStats(l.stats), fmt.Errorf("load weekly stats: %w", err)
	}

	l.stats = &stats
	if l.cache != nil {
		if err := l.cache.Put(statsKey, stats); err != nil {
			l.log.Error(err, "failed to cache weekly stats")
		}
	}
	return copyStats(l.stats), nil
}

// History returns the last loaded records and the window they cover.
func (l *Loader) History() ([]service.HistoryRecord, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyRecords(l.records), l.days
}

// WeeklyStats returns the last loaded stats, or nil.
func (l *Loader) WeeklyStats() *service.WeeklyStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return copyStats(l.stats)
}

// Stale reports whether the records came from the local cache.
func (l *Loader) Stale() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stale
}

// LoadingHistory reports whether a history request is in flight.
func (l *Loader) LoadingHistory() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadingHistory
}

// LoadingStats reports whether a stats request is in flight.
func (l *Loader) LoadingStats() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadingStats
}

func copyRecords(r []service.HistoryRecord) []service.HistoryRecord {
	if r == nil {
		return nil
	}
	return append([]service.HistoryRecord{}, r...)
}

func copyStats(s *service.WeeklyStats) *service.WeeklyStats {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
