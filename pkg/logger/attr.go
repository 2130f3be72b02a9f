package logger

import "log/slog"

// Error records a single error under the key "error".
// Nil errors produce an empty attribute, which slog drops.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// TenantID records the tenant identifier under the key "tenant_id".
func TenantID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("tenant_id", id)
}

// SchemaName records the tenant schema under the key "schema".
func SchemaName(name string) slog.Attr {
	return slog.String("schema", name)
}

// Job records a background job name under the key "job".
func Job(name string) slog.Attr {
	return slog.String("job", name)
}

// Duration records an elapsed time under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}
