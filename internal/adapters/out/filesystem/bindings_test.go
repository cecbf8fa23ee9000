package filesystem

import (
	"context"
	"testing"

	"github.com/bnema/zerowrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/envrefresh/internal/domain"
	"github.com/bnema/envrefresh/internal/testutils"
)

func TestBindingKey(t *testing.T) {
	assert.Equal(t, "DB_ORDERS", BindingKey("orders"))
	assert.Equal(t, "DB_ORDER_HISTORY", BindingKey("order-history"))
	assert.Equal(t, "DB_A_B", BindingKey(" a.b "))
}

func TestBindingFile_AdjustPreservesOtherKeys(t *testing.T) {
	fs := testutils.MemFs(t, map[string]string{
		"/etc/envrefresh/env/staging.env": "API_URL=https://staging.example.com\nDB_ORDERS=old\n",
	})
	bf, err := NewBindingFile(fs, "/etc/envrefresh/env", zerowrap.Default())
	require.NoError(t, err)

	env := domain.EnvironmentRef{Name: "staging"}
	err = bf.Adjust(context.Background(), env, map[string]string{
		"orders":  "acme-database-staging-weu-orders",
		"billing": "acme-database-staging-weu-billing",
	})
	require.NoError(t, err)

	values, err := bf.Read(env)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"API_URL":    "https://staging.example.com",
		"DB_ORDERS":  "acme-database-staging-weu-orders",
		"DB_BILLING": "acme-database-staging-weu-billing",
	}, values)
}

func TestBindingFile_AdjustCreatesNamespaceFile(t *testing.T) {
	fs := testutils.MemFs(t, nil)
	bf, err := NewBindingFile(fs, "/env", zerowrap.Default())
	require.NoError(t, err)

	env := domain.EnvironmentRef{Name: "staging", Namespace: "tenant-a"}
	require.NoError(t, bf.Adjust(context.Background(), env, map[string]string{"orders": "db1"}))

	assert.Equal(t, "/env/staging/tenant-a.env", bf.Path(env))
	values, err := bf.Read(env)
	require.NoError(t, err)
	assert.Equal(t, "db1", values["DB_ORDERS"])
}

func TestBindingFile_ReadMissingIsEmpty(t *testing.T) {
	bf, err := NewBindingFile(testutils.MemFs(t, nil), "/env", zerowrap.Default())
	require.NoError(t, err)

	values, err := bf.Read(domain.EnvironmentRef{Name: "nowhere"})
	require.NoError(t, err)
	assert.Empty(t, values)
}
