// Package migrations embeds the system-schema migrations: the tenant
// catalog table lives here, outside every tenant schema.
package migrations

import "embed"

// VersionTable tracks applied system migrations.
const VersionTable = "goose_db_version"

//go:embed *.sql
var FS embed.FS
