// Package tenantschema embeds the versioned table set applied into each
// tenant schema at provisioning time. The migrations use unqualified
// table names on purpose: they are executed through a handle whose
// search_path is pinned to the target schema, and each schema keeps its
// own copy of the goose version table.
package tenantschema

import "embed"

// VersionTable is the per-schema goose version table.
const VersionTable = "schema_migrations"

//go:embed *.sql
var FS embed.FS
