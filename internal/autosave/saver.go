// Package autosave periodically pushes session snapshots to the backend.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"uptime/internal/service"
)

// DefaultInterval is the period between snapshots.
const DefaultInterval = 5 * time.Minute

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker with the given period.
type TickerFunc func(d time.Duration) Ticker

// CaptureFunc returns the snapshot to send on a tick.
type CaptureFunc func() service.SessionSnapshot

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Option configures a Saver.
type Option func(*Saver)

// WithTicker replaces the wall-clock ticker.
func WithTicker(f TickerFunc) Option {
	return func(s *Saver) { s.newTicker = f }
}

// Saver runs the periodic save loop while the session is active.
type Saver struct {
	remote    service.SessionService
	capture   CaptureFunc
	interval  time.Duration
	newTicker TickerFunc
	log       logr.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped saver. A non-positive interval means DefaultInterval.
func New(remote service.SessionService, capture CaptureFunc, interval time.Duration, log logr.Logger, opts ...Option) *Saver {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Saver{
		remote:    remote,
		capture:   capture,
		interval:  interval,
		newTicker: newTimeTicker,
		log:       log.WithName("autosave"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync starts the loop when active is true and stops it when false.
// Calling it repeatedly with the same value does nothing.
func (s *Saver) Sync(active bool) {
	if active {
		s.start()
		return
	}
	s.Stop()
}

// Running reports whether the loop is active.
func (s *Saver) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Stop cancels the loop and waits for it to exit. It is safe to call on a
// stopped saver.
func (s *Saver) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.V(1).Info("stopped")
}

func (s *Saver) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	t := s.newTicker(s.interval)
	go s.loop(ctx, t, done)
	s.log.V(1).Info("started", "interval", s.interval)
}

func (s *Saver) loop(ctx context.Context, t Ticker, done chan struct{}) {
	defer close(done)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			s.save(ctx)
		}
	}
}

func (s *Saver) save(ctx context.Context) {
	snap := s.capture()
	if err := s.remote.SaveSession(ctx, snap); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.Error(err, "failed to save session")
		return
	}
	s.log.V(1).Info("session saved", "score", snap.UptimeScore, "tasks", len(snap.Tasks))
}
