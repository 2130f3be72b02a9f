package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/edulinkhq/schoolkit/pkg/logger"
)

// Lister enumerates the catalog. *Catalog satisfies it.
type Lister interface {
	List(ctx context.Context) ([]*Tenant, error)
}

// SweepFunc performs one tenant's share of a sweep. The context carries
// that tenant's binding for the duration of the call and nothing beyond
// it; counters accumulate per-operation totals across the whole sweep.
type SweepFunc func(ctx context.Context, t *Tenant, counters *Counters) error

// Counters collects named totals (rows deleted, messages sent) across a
// sweep. Safe for concurrent use.
type Counters struct {
	mu sync.Mutex
	m  map[string]int64
}

// Add increments the named counter.
func (c *Counters) Add(name string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[string]int64)
	}
	c.m[name] += n
}

// Snapshot returns a copy of all counters.
func (c *Counters) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

// SweepError records one tenant's failure inside a sweep.
type SweepError struct {
	TenantID  uuid.UUID
	Subdomain string
	Err       error
}

func (e SweepError) Error() string {
	return fmt.Sprintf("tenant %s (%s): %v", e.TenantID, e.Subdomain, e.Err)
}

func (e SweepError) Unwrap() error { return e.Err }

// Report aggregates the outcome of one full sweep.
type Report struct {
	Job       string
	Processed int
	Succeeded int
	Failed    int
	Counters  map[string]int64
	Errors    []SweepError
	Started   time.Time
	Finished  time.Time
}

// LogAttrs renders the report for structured logging.
func (r *Report) LogAttrs() []any {
	return []any{
		logger.Job(r.Job),
		slog.Int("processed", r.Processed),
		slog.Int("succeeded", r.Succeeded),
		slog.Int("failed", r.Failed),
		slog.Any("counters", r.Counters),
		logger.Duration(r.Finished.Sub(r.Started).Truncate(time.Millisecond)),
	}
}

// Sweeper visits every tenant in the catalog once per run, with
// per-tenant fault isolation: one tenant's failure or panic is recorded
// and the sweep moves on. Only a catalog enumeration failure aborts a
// run, and that is returned to the owning scheduler to retry after its
// cooldown.
type Sweeper struct {
	catalog     Lister
	log         *slog.Logger
	concurrency int
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithConcurrency allows up to n tenants in flight at once. The default
// is strictly sequential.
func WithConcurrency(n int) SweeperOption {
	return func(s *Sweeper) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewSweeper returns a sweeper over the catalog.
func NewSweeper(catalog Lister, log *slog.Logger, opts ...SweeperOption) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	s := &Sweeper{catalog: catalog, log: log, concurrency: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes fn once per catalog tenant and returns the aggregate
// report. The error return is non-nil only when the catalog itself could
// not be enumerated.
func (s *Sweeper) Run(ctx context.Context, job string, fn SweepFunc) (*Report, error) {
	tenants, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep %s: %w", job, err)
	}

	report := &Report{Job: job, Started: time.Now()}
	counters := &Counters{}

	var mu sync.Mutex
	record := func(t *Tenant, err error) {
		mu.Lock()
		defer mu.Unlock()
		report.Processed++
		if err == nil {
			report.Succeeded++
			return
		}
		report.Failed++
		report.Errors = append(report.Errors, SweepError{
			TenantID:  t.ID,
			Subdomain: t.Subdomain,
			Err:       err,
		})
		s.log.ErrorContext(ctx, "sweep iteration failed",
			logger.Job(job), logger.TenantID(t.ID), logger.Error(err))
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, t := range tenants {
		g.Go(func() error {
			record(t, s.runOne(ctx, t, fn, counters))
			// Iteration failures are aggregated, never propagated.
			return nil
		})
	}
	_ = g.Wait()

	report.Counters = counters.Snapshot()
	report.Finished = time.Now()
	return report, nil
}

// runOne executes fn for a single tenant with the binding scoped to this
// call. The tenant context is derived here, explicitly, for each
// iteration's goroutine; nothing is inherited from a previous iteration.
func (s *Sweeper) runOne(ctx context.Context, t *Tenant, fn SweepFunc, counters *Counters) (err error) {
	if !t.Provisioned() {
		return ErrNotProvisioned
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn(WithTenant(ctx, t), t, counters)
}
