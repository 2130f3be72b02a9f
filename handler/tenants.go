package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edulinkhq/schoolkit/pkg/logger"
	"github.com/edulinkhq/schoolkit/tenant"
)

// ProvisioningService creates tenants. *tenant.Provisioner satisfies it.
type ProvisioningService interface {
	CreateTenant(ctx context.Context, name, subdomain string) (*tenant.Tenant, error)
}

// CatalogReader is the read side of the tenant catalog used by the
// management endpoints.
type CatalogReader interface {
	List(ctx context.Context) ([]*tenant.Tenant, error)
	GetBySubdomain(ctx context.Context, subdomain string) (*tenant.Tenant, error)
	Orphaned(ctx context.Context) ([]*tenant.Tenant, error)
}

// Tenants serves the tenant-management API.
type Tenants struct {
	svc     ProvisioningService
	catalog CatalogReader
	log     *slog.Logger
}

// NewTenants wires the management endpoints.
func NewTenants(svc ProvisioningService, catalog CatalogReader, log *slog.Logger) *Tenants {
	if log == nil {
		log = slog.Default()
	}
	return &Tenants{svc: svc, catalog: catalog, log: log}
}

// Routes returns the chi router for mounting under the reserved prefix.
func (h *Tenants) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/orphaned", h.orphaned)
	r.Get("/by-subdomain/{subdomain}", h.bySubdomain)
	return r
}

type createTenantRequest struct {
	Name      string `json:"name"`
	Subdomain string `json:"sub_domain"`
}

func (h *Tenants) create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed request body")
		return
	}

	t, err := h.svc.CreateTenant(r.Context(), req.Name, req.Subdomain)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrInvalidName), errors.Is(err, tenant.ErrInvalidSubdomain):
			respondError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, tenant.ErrAlreadyExists):
			respondError(w, http.StatusConflict, "Subdomain already taken")
		default:
			h.log.ErrorContext(r.Context(), "tenant provisioning failed", logger.Error(err))
			respondError(w, http.StatusInternalServerError, "Failed to provision tenant")
		}
		return
	}

	respondData(w, http.StatusCreated, t)
}

func (h *Tenants) list(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.catalog.List(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "catalog list failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to list tenants")
		return
	}
	respondData(w, http.StatusOK, tenants)
}

func (h *Tenants) orphaned(w http.ResponseWriter, r *http.Request) {
	rows, err := h.catalog.Orphaned(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "orphan scan failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to scan catalog")
		return
	}
	respondData(w, http.StatusOK, rows)
}

func (h *Tenants) bySubdomain(w http.ResponseWriter, r *http.Request) {
	sub := chi.URLParam(r, "subdomain")

	t, err := h.catalog.GetBySubdomain(r.Context(), sub)
	if err != nil {
		if errors.Is(err, tenant.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Tenant not found")
			return
		}
		h.log.ErrorContext(r.Context(), "catalog lookup failed", logger.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to look up tenant")
		return
	}
	respondData(w, http.StatusOK, t)
}
