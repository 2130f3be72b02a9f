package tenant

import "errors"

var (
	// ErrNotFound is returned when no catalog row matches the lookup.
	ErrNotFound = errors.New("tenant not found")

	// ErrInvalidIdentifier is returned when a tenant token is missing or
	// not a valid identity id. The resolution gate treats it exactly like
	// ErrNotFound.
	ErrInvalidIdentifier = errors.New("invalid tenant identifier")

	// ErrNoTenantInContext is returned by code that requires a bound
	// tenant and found none.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrNotProvisioned marks a catalog row whose schema assignment never
	// completed. Such rows are detectable inconsistencies, not tenants.
	ErrNotProvisioned = errors.New("tenant schema not provisioned")

	// ErrAlreadyExists is returned when the subdomain is taken.
	ErrAlreadyExists = errors.New("tenant already exists")

	// ErrInvalidName is returned for an empty or oversized display name.
	ErrInvalidName = errors.New("invalid tenant name")

	// ErrInvalidSubdomain is returned for a routing token that is not a
	// DNS-safe label.
	ErrInvalidSubdomain = errors.New("invalid tenant subdomain")

	// ErrRegistryClosed is returned by a registry after Close.
	ErrRegistryClosed = errors.New("schema registry closed")
)
