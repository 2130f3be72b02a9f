package pg

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// Migrate applies goose migrations from fsys against pool. The version
// table name is configurable because tenant schemas each carry their own
// copy; the table is created unqualified, so it lands in whatever schema
// the pool's search_path points at.
//
// A goose.Provider is built per call instead of using the package-level
// goose API: provisioning runs migrations for different tenant schemas
// concurrently, and the provider form has no shared global state.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, versionTable string, log *slog.Logger) error {
	store, err := database.NewStore(database.DialectPostgres, versionTable)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}

	// goose speaks database/sql; bridge the pgx pool without opening a
	// second set of connections.
	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if cerr := db.Close(); cerr != nil {
			log.ErrorContext(ctx, "failed to close migration db handle", "error", cerr)
		}
	}()

	provider, err := goose.NewProvider("", db, fsys, goose.WithStore(store))
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	for _, r := range results {
		log.InfoContext(ctx, "applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("version", r.Source.Version),
			slog.Duration("took", r.Duration))
	}

	return nil
}
