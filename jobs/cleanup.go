// Package jobs holds the recurring background processes that visit every
// tenant through the sweeper: each job binds one tenant at a time, works
// through that tenant's schema-scoped handle, and reports an aggregate.
package jobs

import (
	"context"
	"log/slog"

	"github.com/edulinkhq/schoolkit/tenant"
)

// Job is one recurring cross-tenant process.
type Job interface {
	Name() string
	Interval() string
	Run(ctx context.Context) (*tenant.Report, error)
}

// CodeCleanup deletes expired one-time codes from every tenant schema.
type CodeCleanup struct {
	sweeper  *tenant.Sweeper
	registry *tenant.Registry
	log      *slog.Logger
}

// NewCodeCleanup wires the cleanup job.
func NewCodeCleanup(sweeper *tenant.Sweeper, registry *tenant.Registry, log *slog.Logger) *CodeCleanup {
	if log == nil {
		log = slog.Default()
	}
	return &CodeCleanup{sweeper: sweeper, registry: registry, log: log}
}

func (j *CodeCleanup) Name() string { return "one_time_code_cleanup" }

func (j *CodeCleanup) Interval() string { return "1h" }

// Run sweeps all tenants once. One tenant's failure does not stop the
// others; the caller gets the aggregate report.
func (j *CodeCleanup) Run(ctx context.Context) (*tenant.Report, error) {
	return j.sweeper.Run(ctx, j.Name(), func(ctx context.Context, t *tenant.Tenant, counters *tenant.Counters) error {
		pool, err := j.registry.Get(ctx, t.SchemaName)
		if err != nil {
			return err
		}

		tag, err := pool.Exec(ctx,
			`DELETE FROM one_time_codes WHERE expires_at < now() OR consumed_at IS NOT NULL`)
		if err != nil {
			return err
		}

		counters.Add("codes_deleted", tag.RowsAffected())
		return nil
	})
}
