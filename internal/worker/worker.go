package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"storefront/internal/util"

	"go.uber.org/zap"
)

// Sessions is the registry as seen by the reaper
type Sessions interface {
	Reap(maxIdle time.Duration) int
}

// Purger drops expired snapshot records from a process-local store
type Purger interface {
	Purge() int
}

// SessionReaper periodically evicts idle browser sessions and, when the
// snapshot store is in-memory, its expired records.
type SessionReaper struct {
	sessions Sessions
	purger   Purger
	interval time.Duration
	maxIdle  time.Duration
	logger   *zap.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

const (
	DefaultReapInterval = time.Minute
	DefaultMaxIdle      = 30 * time.Minute
)

// NewSessionReaper creates a reaper; purger may be nil. Non-positive
// durations fall back to DefaultReapInterval and DefaultMaxIdle.
func NewSessionReaper(sessions Sessions, purger Purger, interval, maxIdle time.Duration) *SessionReaper {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	return &SessionReaper{
		sessions: sessions,
		purger:   purger,
		interval: interval,
		maxIdle:  maxIdle,
		logger:   util.Component("worker"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the reaper until ctx is cancelled or Stop is called
func (w *SessionReaper) Start(ctx context.Context) error {
	w.logger.Info("Starting session reaper",
		zap.Duration("interval", w.interval),
		zap.Duration("max_idle", w.maxIdle))
	w.started.Store(true)
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce performs a single sweep
func (w *SessionReaper) RunOnce() {
	removed := w.sessions.Reap(w.maxIdle)
	purged := 0
	if w.purger != nil {
		purged = w.purger.Purge()
	}
	if removed > 0 || purged > 0 {
		w.logger.Debug("Sweep finished", zap.Int("sessions", removed), zap.Int("snapshots", purged))
	}
}

// Stop stops the reaper and waits for the loop to exit
func (w *SessionReaper) Stop() error {
	w.logger.Info("Stopping session reaper...")
	w.stopOnce.Do(func() { close(w.stop) })
	if w.started.Load() {
		<-w.done
	}
	return nil
}
