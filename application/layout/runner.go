package layout

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Names of the supported layouts
const (
	NameForceAtlas2 = "forceatlas2"
	NameCircular    = "circular"
)

// Runner drives an iterative layout once per tick on its own goroutine.
// tick must re-check Alive under the same lock that guards the graph, so
// that Stop takes effect within one tick.
type Runner struct {
	interval time.Duration
	tick     func() bool
	logger   *zap.Logger

	alive    atomic.Bool
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
	ticks    atomic.Int64
}

// StartRunner launches the loop. tick returning false ends the run.
func StartRunner(interval time.Duration, tick func() bool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	r := &Runner{
		interval: interval,
		tick:     tick,
		logger:   logger,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	r.alive.Store(true)
	go r.loop()
	return r
}

func (r *Runner) loop() {
	defer close(r.done)
	defer r.alive.Store(false)
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Layout tick panicked, stopping layout", zap.Any("panic", rec))
		}
	}()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if !r.alive.Load() {
				return
			}
			if !r.tick() {
				return
			}
			r.ticks.Add(1)
		}
	}
}

// Alive reports whether the run has not been stopped
func (r *Runner) Alive() bool { return r.alive.Load() }

// Ticks returns the number of completed ticks
func (r *Runner) Ticks() int64 { return r.ticks.Load() }

// Stop cancels the run without waiting; safe to call repeatedly
func (r *Runner) Stop() {
	r.alive.Store(false)
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Wait blocks until the loop goroutine has exited
func (r *Runner) Wait() { <-r.done }
