package tenant

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DefaultHeader carries the tenant's identity id on inbound requests.
const DefaultHeader = "X-Tenant"

// Resolver extracts the tenant id from an HTTP request. A missing or
// malformed token yields ErrInvalidIdentifier; the gate maps both to the
// same "tenant not found" outcome.
type Resolver func(r *http.Request) (uuid.UUID, error)

// NewHeaderResolver resolves the tenant id from the named header.
// An empty headerName falls back to DefaultHeader.
func NewHeaderResolver(headerName string) Resolver {
	if headerName == "" {
		headerName = DefaultHeader
	}

	return func(r *http.Request) (uuid.UUID, error) {
		raw := strings.TrimSpace(r.Header.Get(headerName))
		if raw == "" {
			return uuid.Nil, fmt.Errorf("%w: missing %s header", ErrInvalidIdentifier, headerName)
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, raw)
		}
		return id, nil
	}
}
