package tenant

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edulinkhq/schoolkit/pkg/logger"
)

// contextKey is private so no other package can forge or shadow the
// tenant binding.
type contextKey struct{}

// WithTenant binds t to a derived context. The binding lives and dies
// with that context: it never leaks to sibling requests, and it does not
// follow control into a goroutine unless the derived context is passed
// explicitly. Code spawning background work for the same tenant must
// hand the derived context over itself.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// WithoutTenant shadows any bound tenant in the returned context. Used
// by sweeps between iterations so no stale binding survives past the
// tenant it belongs to.
func WithoutTenant(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, (*Tenant)(nil))
}

// FromContext returns the bound tenant. An unbound context is a normal
// state (system routes, startup code); callers that require a tenant
// treat the false return as their own error.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(contextKey{}).(*Tenant)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// IDFromContext returns just the bound tenant's id.
func IDFromContext(ctx context.Context) (uuid.UUID, bool) {
	t, ok := FromContext(ctx)
	if !ok {
		return uuid.UUID{}, false
	}
	return t.ID, true
}

// MustFromContext returns the bound tenant or panics. Only for handlers
// behind the resolution gate, where absence is a programming error.
func MustFromContext(ctx context.Context) *Tenant {
	t, ok := FromContext(ctx)
	if !ok {
		panic("tenant: no tenant in context")
	}
	return t
}

// LogExtractor reports the bound tenant's id and schema for structured
// log records.
func LogExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		t, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		return slog.Group("tenant",
			slog.String("id", t.ID.String()),
			slog.String("schema", t.SchemaName),
		), true
	}
}
