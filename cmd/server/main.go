package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edulinkhq/schoolkit/handler"
	"github.com/edulinkhq/schoolkit/jobs"
	"github.com/edulinkhq/schoolkit/migrations"
	"github.com/edulinkhq/schoolkit/pkg/config"
	"github.com/edulinkhq/schoolkit/pkg/httpserver"
	"github.com/edulinkhq/schoolkit/pkg/logger"
	"github.com/edulinkhq/schoolkit/pkg/pg"
	"github.com/edulinkhq/schoolkit/tenant"
)

type appConfig struct {
	LogLevel  slog.Level    `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat logger.Format `env:"LOG_FORMAT" envDefault:"json"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	var appCfg appConfig
	config.MustLoad(&appCfg)
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	var httpCfg httpserver.Config
	config.MustLoad(&httpCfg)

	log := logger.New(
		logger.WithLevel(appCfg.LogLevel),
		logger.WithFormat(appCfg.LogFormat),
		logger.WithAttrs(slog.String("service", "schoolkit")),
		logger.WithContextExtractors(tenant.LogExtractor()),
	)
	slog.SetDefault(log)

	// System pool and catalog migration.
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, migrations.VersionTable, log); err != nil {
		return err
	}

	// Tenant core.
	catalog := tenant.NewCatalog(pool)
	registry := tenant.NewRegistry(tenant.PoolOpener(pgCfg.ConnectionString), log)
	defer registry.Close()

	provisioner := tenant.NewProvisioner(catalog, tenant.NewSchemaBuilder(registry, log), log)
	sweeper := tenant.NewSweeper(catalog, log)

	// Background jobs.
	runner := jobs.NewRunner(log, []jobs.Job{
		jobs.NewCodeCleanup(sweeper, registry, log),
	})
	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	go runner.Start(jobCtx)

	// Router. Management endpoints sit under a reserved prefix the gate
	// skips; everything else resolves a tenant first.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(tenant.ResolutionGate(catalog, tenant.WithGateLogger(log)))

	r.Mount("/api/v1/tenants", handler.NewTenants(provisioner, catalog, log).Routes())

	r.Get("/api/v1/console/health", func(w http.ResponseWriter, req *http.Request) {
		if err := pg.Healthcheck(pool)(req.Context()); err != nil {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Get("/api/v1/me/tenant", func(w http.ResponseWriter, req *http.Request) {
		t := tenant.MustFromContext(req.Context())
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`{"success":true,"data":{"schema_name":"` + t.SchemaName + `"}}`))
	})

	return httpserver.New(httpCfg, log).Run(ctx, r)
}
