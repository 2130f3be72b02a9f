package tenant_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edulinkhq/schoolkit/tenant"
)

func newTestTenant(number int64, subdomain string) *tenant.Tenant {
	return &tenant.Tenant{
		ID:         uuid.New(),
		Number:     number,
		Name:       "School " + subdomain,
		Subdomain:  subdomain,
		SchemaName: tenant.SchemaName(number),
	}
}

func TestContextCarrier(t *testing.T) {
	t.Parallel()

	t.Run("unbound context is a normal state", func(t *testing.T) {
		t.Parallel()

		got, ok := tenant.FromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, got)

		_, ok = tenant.IDFromContext(context.Background())
		assert.False(t, ok)
	})

	t.Run("bind and read back", func(t *testing.T) {
		t.Parallel()

		want := newTestTenant(1, "acme")
		ctx := tenant.WithTenant(context.Background(), want)

		got, ok := tenant.FromContext(ctx)
		require.True(t, ok)
		assert.Same(t, want, got)

		id, ok := tenant.IDFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, want.ID, id)
	})

	t.Run("binding does not escape its scope", func(t *testing.T) {
		t.Parallel()

		parent := context.Background()
		_ = tenant.WithTenant(parent, newTestTenant(1, "acme"))

		_, ok := tenant.FromContext(parent)
		assert.False(t, ok)
	})

	t.Run("WithoutTenant shadows an existing binding", func(t *testing.T) {
		t.Parallel()

		bound := tenant.WithTenant(context.Background(), newTestTenant(1, "acme"))
		cleared := tenant.WithoutTenant(bound)

		_, ok := tenant.FromContext(cleared)
		assert.False(t, ok)

		// The original scope keeps its binding.
		_, ok = tenant.FromContext(bound)
		assert.True(t, ok)
	})

	t.Run("concurrent flows stay isolated", func(t *testing.T) {
		t.Parallel()

		const flows = 50
		var wg sync.WaitGroup
		wg.Add(flows)

		for i := range flows {
			go func(n int64) {
				defer wg.Done()

				want := newTestTenant(n+1, "sub")
				ctx := tenant.WithTenant(context.Background(), want)

				for range 100 {
					got, ok := tenant.FromContext(ctx)
					assert.True(t, ok)
					assert.Same(t, want, got)
				}
			}(int64(i))
		}

		wg.Wait()
	})

	t.Run("crossing into a goroutine requires the derived context", func(t *testing.T) {
		t.Parallel()

		want := newTestTenant(7, "acme")
		bound := tenant.WithTenant(context.Background(), want)

		done := make(chan struct{})
		go func() {
			defer close(done)

			// A task built from a fresh context sees nothing.
			_, ok := tenant.FromContext(context.Background())
			assert.False(t, ok)

			// Only the explicitly handed-over context carries the tenant.
			got, ok := tenant.FromContext(bound)
			assert.True(t, ok)
			assert.Same(t, want, got)
		}()
		<-done
	})

	t.Run("MustFromContext panics when unbound", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			tenant.MustFromContext(context.Background())
		})
	})
}

func TestLogExtractor(t *testing.T) {
	t.Parallel()

	ex := tenant.LogExtractor()

	_, ok := ex(context.Background())
	assert.False(t, ok)

	tt := newTestTenant(3, "acme")
	attr, ok := ex(tenant.WithTenant(context.Background(), tt))
	require.True(t, ok)
	assert.Equal(t, "tenant", attr.Key)
}
