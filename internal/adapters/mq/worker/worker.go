package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/wrchecker/pkg/logger"
)

// TickFunc performs one iteration.
type TickFunc func(ctx context.Context)

// Worker runs iterations until stopped.
type Worker interface {
	// Run starts the loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop.
	// It waits for the in-flight iteration to finish.
	Shutdown(ctx context.Context) error
}

// Runner calls a TickFunc strictly sequentially with a fixed delay between
// the end of one iteration and the start of the next.
type Runner struct {
	tick TickFunc
	wait time.Duration
	name string

	iterations uint64

	// Shutdown control
	once     sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(tick TickFunc, wait time.Duration, opts ...Option) *Runner {
	r := &Runner{
		tick:     tick,
		wait:     wait,
		name:     "runner",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.name != "runner" {
		r.logger = r.logger.Named(r.name)
	}

	return r
}

// Run starts the loop. The first iteration starts immediately.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.shutdown:
			return
		case <-timer.C:
		}

		start := time.Now()
		r.tick(ctx)
		r.iterations++
		r.logger.Info(ctx, "finished iteration",
			logger.Any("iteration", r.iterations),
			logger.Duration("elapsed", time.Since(start)))

		timer.Reset(r.wait)
	}
}

// Shutdown stops the loop and waits for the in-flight iteration.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.once.Do(func() { close(r.shutdown) })

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
