// Package worker runs a job on a fixed schedule for the lifetime of the server.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is how often a job runs when no interval is configured.
const DefaultInterval = 30 * time.Second

// Job is a unit of periodic work.
type Job interface {
	RunOnce(ctx context.Context) error
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) error

// RunOnce calls f(ctx).
func (f JobFunc) RunOnce(ctx context.Context) error {
	return f(ctx)
}

// Worker runs a Job once on start, then every interval and whenever triggered.
// Runs never overlap.
type Worker struct {
	job      Job
	name     string
	interval time.Duration

	trigger  chan struct{}
	done     chan struct{}
	exited   chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
}

// Option is a functional option for configuring Worker.
type Option func(*Worker)

// WithInterval sets how often the job runs.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithName sets the name used in log records.
func WithName(name string) Option {
	return func(w *Worker) {
		w.name = name
	}
}

// New creates a new Worker for job.
func New(job Job, opts ...Option) *Worker {
	w := &Worker{
		job:      job,
		name:     "worker",
		interval: DefaultInterval,
		trigger:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Start runs the ticker loop until ctx is cancelled or Stop is called.
// Returns ctx.Err() on cancellation and nil after Stop.
func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return nil
	}
	defer close(w.exited)

	select {
	case <-w.done:
		return nil
	default:
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.done:
			cancel()
		case <-runCtx.Done():
		}
	}()

	slog.InfoContext(ctx, "Worker started", "worker", w.name, "interval", w.interval)

	w.runOnce(runCtx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(runCtx)
		case <-w.trigger:
			w.runOnce(runCtx)
		case <-ctx.Done():
			slog.Info("Worker context cancelled, shutting down", "worker", w.name)
			return ctx.Err()
		case <-w.done:
			slog.Info("Worker stopped", "worker", w.name)
			return nil
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.job.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Worker run failed", "worker", w.name, "error", err)
	}
}

// Trigger requests an extra run as soon as the current one finishes.
// Triggers that arrive while one is already pending are coalesced.
func (w *Worker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Stop cancels the schedule and waits for an in-progress run to return.
// It is safe to call more than once and before Start.
func (w *Worker) Stop() error {
	w.stopOnce.Do(func() { close(w.done) })
	if w.started.Load() {
		<-w.exited
	}
	return nil
}
