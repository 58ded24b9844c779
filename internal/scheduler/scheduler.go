// Package scheduler provides the one-shot timer used to space cron-mode
// sync batches.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

// TimerScheduler runs at most one pending callback. Scheduling while a
// callback is pending replaces it; ClearScheduled drops it.
type TimerScheduler struct {
	mu     sync.Mutex
	timer  *time.Timer
	logger *slog.Logger
}

var _ vsync.Scheduler = (*TimerScheduler)(nil)

// New creates a scheduler. logger may be nil.
func New(logger *slog.Logger) *TimerScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimerScheduler{logger: logger}
}

// ScheduleOnce arms the timer for fn after delay, replacing any pending
// callback.
func (s *TimerScheduler) ScheduleOnce(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.logger.Debug("batch tick scheduled", "delay", delay)
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()
		fn()
	})
}

// ClearScheduled drops the pending callback, if any.
func (s *TimerScheduler) ClearScheduled() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
		s.logger.Debug("pending batch tick cleared")
	}
}

// Pending reports whether a callback is currently armed.
func (s *TimerScheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
