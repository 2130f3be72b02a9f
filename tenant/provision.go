package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/edulinkhq/schoolkit/pkg/logger"
	"github.com/edulinkhq/schoolkit/pkg/pg"
	"github.com/edulinkhq/schoolkit/tenantschema"
)

// MaxSubdomainLength keeps routing tokens DNS-label sized.
const MaxSubdomainLength = 63

// subdomainPattern allows lowercase DNS-safe labels: alphanumeric start,
// hyphens inside.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// catalogStore is the slice of Catalog the provisioner writes through.
type catalogStore interface {
	insert(ctx context.Context, id uuid.UUID, name, subdomain string) (int64, error)
	assignSchema(ctx context.Context, id uuid.UUID, schemaName string) error
}

// schemaMaterializer turns an assigned schema name into a physical
// schema holding the full application table set.
type schemaMaterializer interface {
	Materialize(ctx context.Context, schemaName string) error
}

// Provisioner creates tenants: it allocates identity, obtains the
// engine-assigned tenant number, derives and records the schema name,
// and materializes the physical schema.
//
// The catalog write is deliberately two-phase (insert, then update with
// the derived schema name) because the schema name depends on the
// sequence value the insert produces. A crash between the phases leaves
// a row with an empty schema name; Catalog.Orphaned surfaces such rows
// and they are never resolvable as tenants.
type Provisioner struct {
	catalog catalogStore
	schemas schemaMaterializer
	log     *slog.Logger
}

// NewProvisioner wires a provisioner over the catalog and a schema
// materializer.
func NewProvisioner(catalog *Catalog, schemas schemaMaterializer, log *slog.Logger) *Provisioner {
	if log == nil {
		log = slog.Default()
	}
	return &Provisioner{catalog: catalog, schemas: schemas, log: log}
}

// CreateTenant provisions a new tenant and returns its identity.
//
// Concurrent calls are safe for distinct subdomains: tenant numbers come
// from the catalog's own sequence, so schema names cannot collide
// without application-level locking.
func (p *Provisioner) CreateTenant(ctx context.Context, name, subdomain string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, ErrInvalidName
	}
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" || len(subdomain) > MaxSubdomainLength || !subdomainPattern.MatchString(subdomain) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSubdomain, subdomain)
	}

	id := uuid.New()

	number, err := p.catalog.insert(ctx, id, name, subdomain)
	if err != nil {
		return nil, err
	}

	schemaName := SchemaName(number)
	if err := p.catalog.assignSchema(ctx, id, schemaName); err != nil {
		return nil, err
	}

	if err := p.schemas.Materialize(ctx, schemaName); err != nil {
		return nil, fmt.Errorf("materialize schema %s: %w", schemaName, err)
	}

	p.log.InfoContext(ctx, "tenant provisioned",
		logger.TenantID(id),
		logger.SchemaName(schemaName),
		slog.String("sub_domain", subdomain))

	return &Tenant{
		ID:         id,
		Number:     number,
		Name:       name,
		Subdomain:  subdomain,
		SchemaName: schemaName,
		CreatedAt:  time.Now(),
	}, nil
}

// SchemaBuilder is the production schemaMaterializer: it creates the
// schema through the registry's schema-scoped handle and applies the
// embedded, versioned table set into it. Each tenant schema carries its
// own migration version table, so the full set is reapplied cleanly if
// provisioning is retried for a schema that partially exists.
type SchemaBuilder struct {
	registry *Registry
	log      *slog.Logger
}

// NewSchemaBuilder returns a builder that materializes schemas via the
// given registry.
func NewSchemaBuilder(registry *Registry, log *slog.Logger) *SchemaBuilder {
	if log == nil {
		log = slog.Default()
	}
	return &SchemaBuilder{registry: registry, log: log}
}

// Materialize creates schemaName if absent and applies the per-tenant
// table migrations inside it.
func (b *SchemaBuilder) Materialize(ctx context.Context, schemaName string) error {
	pool, err := b.registry.Get(ctx, schemaName)
	if err != nil {
		return err
	}

	// The handle's search_path already points at the schema; the schema
	// itself must exist before unqualified DDL can land in it.
	ident := pgx.Identifier{schemaName}.Sanitize()
	if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+ident); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	if err := pg.Migrate(ctx, pool, tenantschema.FS, tenantschema.VersionTable, b.log); err != nil {
		return err
	}

	b.log.InfoContext(ctx, "tenant schema materialized", logger.SchemaName(schemaName))
	return nil
}
