// Package tenant implements the multi-tenant core of schoolkit: the
// tenant catalog, schema-per-tenant provisioning, request-scoped tenant
// context, the HTTP resolution gate, the schema connection registry, and
// the cross-tenant sweeper used by background jobs.
//
// Every tenant owns one physical PostgreSQL schema named after its
// catalog sequence number (tenant_0001, tenant_0002, ...). All
// tenant-scoped data access goes through a pool whose search_path is
// pinned to that schema; which tenant a piece of code acts for is
// carried exclusively on the context.
package tenant

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaPrefix is the common prefix of every tenant schema.
const SchemaPrefix = "tenant_"

// Tenant describes one organization served by the system. Values are
// derived from a catalog row on every resolution and are immutable;
// they live only for the request or sweep iteration that resolved them.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Number     int64     `json:"tenant_number"`
	Name       string    `json:"name"`
	Subdomain  string    `json:"sub_domain"`
	SchemaName string    `json:"schema_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// Provisioned reports whether the tenant's schema assignment completed.
// A row with an empty schema name is the half-written state left behind
// when provisioning crashed between the insert and the update.
func (t *Tenant) Provisioned() bool {
	return t != nil && t.SchemaName != ""
}

// SchemaName derives the physical schema name from a catalog sequence
// number: the fixed prefix plus the number zero-padded to four digits.
// Numbers beyond 9999 widen naturally and stay collision-free.
func SchemaName(number int64) string {
	return fmt.Sprintf("%s%04d", SchemaPrefix, number)
}
