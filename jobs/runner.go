package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/edulinkhq/schoolkit/pkg/logger"
)

// Runner drives registered jobs on their intervals. A run that fails
// outright, which only happens when the catalog cannot be enumerated, is
// retried after the cooldown instead of waiting a full interval.
type Runner struct {
	jobs     []Job
	cooldown time.Duration
	log      *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithCooldown sets the retry delay after a failed run.
func WithCooldown(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.cooldown = d
		}
	}
}

// NewRunner returns a runner for the given jobs.
func NewRunner(log *slog.Logger, jobs []Job, opts ...RunnerOption) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{jobs: jobs, cooldown: time.Minute, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start blocks until ctx is cancelled, running each job on its own
// schedule in its own goroutine.
func (r *Runner) Start(ctx context.Context) {
	for _, job := range r.jobs {
		go r.loop(ctx, job)
	}
	<-ctx.Done()
}

func (r *Runner) loop(ctx context.Context, job Job) {
	interval, err := time.ParseDuration(job.Interval())
	if err != nil || interval <= 0 {
		r.log.Error("job has invalid interval, not scheduling",
			logger.Job(job.Name()), slog.String("interval", job.Interval()))
		return
	}

	// First pass runs right away; later passes wait the full interval.
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		report, err := job.Run(ctx)
		if err != nil {
			r.log.ErrorContext(ctx, "job run failed, retrying after cooldown",
				logger.Job(job.Name()), logger.Error(err))
			timer.Reset(r.cooldown)
			continue
		}

		r.log.InfoContext(ctx, "job run complete", report.LogAttrs()...)
		timer.Reset(interval)
	}
}
