package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickFunc runs one pass of a background job and reports how many items it
// processed.
type TickFunc func(ctx context.Context) (int, error)

// Loop runs a named job on a fixed interval until its context is cancelled.
// Ticks are single-flight: if a pass is still running when the next tick
// fires, that tick is skipped rather than stacked.
type Loop struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	tick     TickFunc

	running sync.Mutex
}

// NewLoop builds a loop. It does not start anything.
func NewLoop(name string, interval time.Duration, logger *zap.Logger, tick TickFunc) *Loop {
	return &Loop{
		name:     name,
		interval: interval,
		logger:   logger,
		tick:     tick,
	}
}

// Run blocks, ticking on the interval until ctx is cancelled. An immediate
// first pass runs on startup so restarts do not delay overdue work by a full
// interval.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("scheduler loop started",
		zap.String("job", l.name),
		zap.Duration("interval", l.interval),
	)

	l.Tick(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler loop stopped", zap.String("job", l.name))
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one pass now. Safe to call from outside the loop, such as an
// admin endpoint; a pass already in flight makes it a no-op.
func (l *Loop) Tick(ctx context.Context) {
	if !l.running.TryLock() {
		l.logger.Warn("scheduler tick skipped, previous pass still running",
			zap.String("job", l.name))
		return
	}
	defer l.running.Unlock()

	start := time.Now()
	processed, err := l.tick(ctx)
	if err != nil {
		l.logger.Error("scheduler pass failed",
			zap.String("job", l.name),
			zap.Error(err),
		)
		return
	}
	if processed > 0 {
		l.logger.Info("scheduler pass complete",
			zap.String("job", l.name),
			zap.Int("processed", processed),
			zap.Duration("took", time.Since(start)),
		)
	}
}
