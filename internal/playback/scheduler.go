// Package playback drives the year animation with a cancellable ticker.
package playback

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is the delay between ticks when none is configured.
const DefaultInterval = 800 * time.Millisecond

// TickFunc is invoked once per interval while the scheduler runs. ctx is
// cancelled when the scheduler stops, so a tick blocked on a send must
// select on it.
type TickFunc func(ctx context.Context)

// Scheduler fires a TickFunc at a fixed interval until stopped. At most one
// ticker runs at a time. No tick is delivered after Stop returns.
type Scheduler struct {
	interval time.Duration
	tick     TickFunc

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped scheduler.
func New(interval time.Duration, tick TickFunc) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{interval: interval, tick: tick}
}

// Interval returns the tick interval.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// Running reports whether a ticker is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// Start launches the ticker. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	zap.L().Debug("playback: started", zap.Duration("interval", s.interval))
	go s.run(ctx, done)
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A stop racing the ticker wins.
			if ctx.Err() != nil {
				return
			}
			s.tick(ctx)
		}
	}
}

// Stop cancels the ticker and waits for the in-flight tick, if any. It is
// safe to call on a stopped scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	zap.L().Debug("playback: stopped")
}

// Toggle starts a stopped scheduler or stops a running one, and reports
// whether it is running afterwards.
func (s *Scheduler) Toggle(parent context.Context) bool {
	if s.Running() {
		s.Stop()
		return false
	}
	s.Start(parent)
	return true
}
