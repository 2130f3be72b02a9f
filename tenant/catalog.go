package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edulinkhq/schoolkit/pkg/pg"
)

// querier is the subset of pgxpool.Pool the catalog needs; tests may
// substitute their own implementation.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Catalog is the system-wide table enumerating all tenants. It is the
// single source of truth for identity and schema-name assignment and
// lives in the system schema, never inside a tenant schema.
type Catalog struct {
	db querier
}

// NewCatalog returns a catalog backed by the system pool.
func NewCatalog(db querier) *Catalog {
	return &Catalog{db: db}
}

const tenantColumns = `id, tenant_number, name, sub_domain, schema_name, created_at`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Number, &t.Name, &t.Subdomain, &t.SchemaName, &t.CreatedAt)
	if err != nil {
		if pg.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("tenant catalog: %w", err)
	}
	return &t, nil
}

// GetByID returns the tenant for an identity id.
func (c *Catalog) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	row := c.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

// GetBySubdomain returns the tenant for a routing subdomain.
func (c *Catalog) GetBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	row := c.db.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE sub_domain = $1`, subdomain)
	return scanTenant(row)
}

// List returns every catalog row in provisioning order, including rows
// whose schema assignment never completed. Consumers that need only
// usable tenants must check Provisioned.
func (c *Catalog) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := c.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants ORDER BY tenant_number`)
	if err != nil {
		return nil, fmt.Errorf("tenant catalog: %w", err)
	}
	defer rows.Close()

	var out []*Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Number, &t.Name, &t.Subdomain, &t.SchemaName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("tenant catalog: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenant catalog: %w", err)
	}
	return out, nil
}

// Orphaned returns rows left half-written by an interrupted provisioning
// run: catalog entries with no schema assigned. They require manual
// intervention and are never handed out as resolvable tenants.
func (c *Catalog) Orphaned(ctx context.Context) ([]*Tenant, error) {
	rows, err := c.db.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE schema_name = '' ORDER BY tenant_number`)
	if err != nil {
		return nil, fmt.Errorf("tenant catalog: %w", err)
	}
	defer rows.Close()

	var out []*Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Number, &t.Name, &t.Subdomain, &t.SchemaName, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("tenant catalog: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("tenant catalog: %w", err)
	}
	return out, nil
}

// insert writes phase one of the two-phase provisioning record: the row
// goes in with an empty schema name so the engine can hand back the
// tenant number that the schema name is derived from.
func (c *Catalog) insert(ctx context.Context, id uuid.UUID, name, subdomain string) (int64, error) {
	var number int64
	err := c.db.QueryRow(ctx,
		`INSERT INTO tenants (id, name, sub_domain, schema_name)
		 VALUES ($1, $2, $3, '')
		 RETURNING tenant_number`,
		id, name, subdomain,
	).Scan(&number)
	if err != nil {
		if pg.IsDuplicateKey(err) {
			return 0, fmt.Errorf("%w: subdomain %q", ErrAlreadyExists, subdomain)
		}
		return 0, fmt.Errorf("tenant catalog: %w", err)
	}
	return number, nil
}

// assignSchema completes phase two by recording the derived schema name.
func (c *Catalog) assignSchema(ctx context.Context, id uuid.UUID, schemaName string) error {
	tag, err := c.db.Exec(ctx,
		`UPDATE tenants SET schema_name = $1 WHERE id = $2`, schemaName, id)
	if err != nil {
		return fmt.Errorf("tenant catalog: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("assign schema %s: %w", schemaName, ErrNotFound)
	}
	return nil
}
