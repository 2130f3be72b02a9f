package jobs_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/edulinkhq/schoolkit/jobs"
	"github.com/edulinkhq/schoolkit/tenant"
)

type stubJob struct {
	name     string
	interval string
	runs     atomic.Int64
	failures atomic.Int64 // fail the first N runs
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Interval() string { return j.interval }

func (j *stubJob) Run(context.Context) (*tenant.Report, error) {
	n := j.runs.Add(1)
	if n <= j.failures.Load() {
		return nil, errors.New("catalog unavailable")
	}
	return &tenant.Report{Job: j.name, Started: time.Now(), Finished: time.Now()}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestRunner(t *testing.T) {
	t.Parallel()

	t.Run("runs jobs on their interval", func(t *testing.T) {
		t.Parallel()

		job := &stubJob{name: "digest", interval: "10ms"}
		runner := jobs.NewRunner(quietLogger(), []jobs.Job{job})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go runner.Start(ctx)

		waitFor(t, func() bool { return job.runs.Load() >= 2 })
	})

	t.Run("failed run retries after cooldown", func(t *testing.T) {
		t.Parallel()

		job := &stubJob{name: "digest", interval: "1h"}
		job.failures.Store(1)
		runner := jobs.NewRunner(quietLogger(), []jobs.Job{job},
			jobs.WithCooldown(10*time.Millisecond))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go runner.Start(ctx)

		// The interval is an hour, so a second run within the test window
		// can only come from the cooldown retry.
		waitFor(t, func() bool { return job.runs.Load() >= 2 })
	})

	t.Run("invalid interval is not scheduled", func(t *testing.T) {
		t.Parallel()

		job := &stubJob{name: "broken", interval: "soon"}
		runner := jobs.NewRunner(quietLogger(), []jobs.Job{job})

		ctx, cancel := context.WithCancel(context.Background())
		go runner.Start(ctx)
		time.Sleep(50 * time.Millisecond)
		cancel()

		assert.Zero(t, job.runs.Load())
	})

	t.Run("stops with the context", func(t *testing.T) {
		t.Parallel()

		job := &stubJob{name: "digest", interval: "5ms"}
		runner := jobs.NewRunner(quietLogger(), []jobs.Job{job})

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			runner.Start(ctx)
			close(done)
		}()

		waitFor(t, func() bool { return job.runs.Load() >= 1 })
		cancel()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("runner did not stop")
		}
	})
}
