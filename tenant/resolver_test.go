package tenant_test

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulinkhq/schoolkit/tenant"
)

func TestNewHeaderResolver(t *testing.T) {
	t.Parallel()

	t.Run("parses a valid id", func(t *testing.T) {
		t.Parallel()

		want := uuid.New()
		resolver := tenant.NewHeaderResolver("")

		req := httptest.NewRequest("GET", "/students", nil)
		req.Header.Set(tenant.DefaultHeader, want.String())

		got, err := resolver(req)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		t.Parallel()

		want := uuid.New()
		resolver := tenant.NewHeaderResolver("X-Tenant")

		req := httptest.NewRequest("GET", "/students", nil)
		req.Header.Set("X-Tenant", "  "+want.String()+"  ")

		got, err := resolver(req)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing header", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("X-Tenant")
		req := httptest.NewRequest("GET", "/students", nil)

		_, err := resolver(req)
		assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier)
	})

	t.Run("malformed token", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewHeaderResolver("X-Tenant")

		for _, raw := range []string{"not-a-uuid", "123", "acme.example.com"} {
			req := httptest.NewRequest("GET", "/students", nil)
			req.Header.Set("X-Tenant", raw)

			_, err := resolver(req)
			assert.ErrorIs(t, err, tenant.ErrInvalidIdentifier, "token %q", raw)
		}
	})

	t.Run("custom header name", func(t *testing.T) {
		t.Parallel()

		want := uuid.New()
		resolver := tenant.NewHeaderResolver("X-Org")

		req := httptest.NewRequest("GET", "/students", nil)
		req.Header.Set("X-Org", want.String())

		got, err := resolver(req)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})
}
