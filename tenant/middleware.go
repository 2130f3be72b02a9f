package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/edulinkhq/schoolkit/pkg/logger"
)

// Reserved path prefixes that never resolve a tenant: tenant management
// and the operator console run against the system schema.
var DefaultSkipPrefixes = []string{"/api/v1/tenants", "/api/v1/console"}

// Provider looks a tenant up by identity id. *Catalog satisfies it.
type Provider interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

type gateConfig struct {
	resolver     Resolver
	skipPrefixes []string
	log          *slog.Logger
}

// GateOption configures the resolution gate.
type GateOption func(*gateConfig)

// WithResolver replaces the default header resolver.
func WithResolver(r Resolver) GateOption {
	return func(c *gateConfig) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithSkipPrefixes replaces the reserved prefixes that bypass
// resolution.
func WithSkipPrefixes(prefixes ...string) GateOption {
	return func(c *gateConfig) { c.skipPrefixes = prefixes }
}

// WithGateLogger sets the gate's logger.
func WithGateLogger(log *slog.Logger) GateOption {
	return func(c *gateConfig) {
		if log != nil {
			c.log = log
		}
	}
}

// ResolutionGate returns middleware that binds the active tenant for the
// duration of each request.
//
// Requests under a reserved prefix pass through untouched. For all other
// requests the gate extracts the tenant id from the header, looks the
// catalog up, and serves the handler with the tenant bound on the
// request context. A missing header, malformed id, unknown id, or
// half-provisioned row short-circuits with the "tenant not found"
// envelope and the downstream handler never runs.
//
// The binding lives on the per-request context, so it is released on
// every exit path, panics and client cancellation included, and cannot
// be observed by any other request sharing the same worker.
func ResolutionGate(provider Provider, opts ...GateOption) func(http.Handler) http.Handler {
	cfg := &gateConfig{
		resolver:     NewHeaderResolver(DefaultHeader),
		skipPrefixes: DefaultSkipPrefixes,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range cfg.skipPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			id, err := cfg.resolver(r)
			if err != nil {
				writeTenantNotFound(w)
				return
			}

			t, err := provider.GetByID(r.Context(), id)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					writeTenantNotFound(w)
					return
				}
				cfg.log.ErrorContext(r.Context(), "tenant resolution failed",
					logger.TenantID(id), logger.Error(err))
				writeResolutionError(w)
				return
			}
			if !t.Provisioned() {
				// Half-written catalog row from an interrupted
				// provisioning run; not a resolvable tenant.
				cfg.log.WarnContext(r.Context(), "resolved tenant has no schema assigned",
					logger.TenantID(id))
				writeTenantNotFound(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), t)))
		})
	}
}

// RequireTenant guards routes that must only run with a bound tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			writeTenantNotFound(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type gateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeEnvelope(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(gateResponse{Success: false, Message: message})
}

func writeTenantNotFound(w http.ResponseWriter) {
	writeEnvelope(w, http.StatusNotFound, "Tenant not found")
}

func writeResolutionError(w http.ResponseWriter) {
	writeEnvelope(w, http.StatusInternalServerError, "Internal server error")
}
