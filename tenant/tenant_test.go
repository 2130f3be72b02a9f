package tenant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edulinkhq/schoolkit/tenant"
)

func TestSchemaName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		number int64
		want   string
	}{
		{1, "tenant_0001"},
		{42, "tenant_0042"},
		{999, "tenant_0999"},
		{9999, "tenant_9999"},
		{10000, "tenant_10000"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, tenant.SchemaName(tc.number))
	}
}

func TestTenant_Provisioned(t *testing.T) {
	t.Parallel()

	assert.False(t, (*tenant.Tenant)(nil).Provisioned())
	assert.False(t, (&tenant.Tenant{}).Provisioned())
	assert.True(t, (&tenant.Tenant{SchemaName: "tenant_0001"}).Provisioned())
}
