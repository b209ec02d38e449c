package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"pdfscan/internal/pipeline"
)

// ErrRunInProgress is returned when a run is triggered while another is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// BatchRunner performs one batch run.
type BatchRunner interface {
	Run(ctx context.Context) (*pipeline.Stats, error)
}

// Runner serializes batch runs between the cron schedule and manual triggers.
type Runner struct {
	batch    BatchRunner
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	running sync.Mutex

	mu      sync.Mutex
	last    *pipeline.Stats
	lastErr error
}

// NewRunner creates a runner. An empty schedule disables scheduled runs.
func NewRunner(batch BatchRunner, schedule string) *Runner {
	return &Runner{
		batch:    batch,
		schedule: schedule,
		logger:   slog.Default().With("component", "runner"),
	}
}

// RunNow runs a batch immediately unless one is already running.
func (r *Runner) RunNow(ctx context.Context) (*pipeline.Stats, error) {
	if !r.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.running.Unlock()
	return r.run(ctx)
}

// RunAsync starts a batch in the background unless one is already running.
// The outcome is available from Last once the run ends.
func (r *Runner) RunAsync(ctx context.Context) error {
	if !r.running.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer r.running.Unlock()
		if _, err := r.run(ctx); err != nil {
			r.logger.Error("triggered run failed", "error", err)
		}
	}()
	return nil
}

func (r *Runner) run(ctx context.Context) (*pipeline.Stats, error) {
	stats, err := r.batch.Run(ctx)

	r.mu.Lock()
	r.last, r.lastErr = stats, err
	r.mu.Unlock()

	return stats, err
}

// Running reports whether a batch is in progress.
func (r *Runner) Running() bool {
	if r.running.TryLock() {
		r.running.Unlock()
		return false
	}
	return true
}

// Last returns the result of the most recent run, if any.
func (r *Runner) Last() (*pipeline.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.lastErr
}

// Start schedules runs on the configured cron spec. Scheduled runs use ctx.
func (r *Runner) Start(ctx context.Context) error {
	if r.schedule == "" {
		r.logger.Info("scheduled runs disabled")
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(r.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		_, err := r.RunNow(ctx)
		switch {
		case errors.Is(err, ErrRunInProgress):
			r.logger.Info("skipping scheduled run, previous run still in progress")
		case err != nil:
			r.logger.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid run schedule %q: %w", r.schedule, err)
	}

	r.cron = c
	c.Start()
	r.logger.Info("scheduled runs started", "schedule", r.schedule)
	return nil
}

// Stop halts the schedule and waits for a scheduled run in flight.
func (r *Runner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.logger.Info("scheduled runs stopped")
}
