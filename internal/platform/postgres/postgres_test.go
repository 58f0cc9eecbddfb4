package postgres

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buession/buession-logging-sub001/internal/platform/config"
)

func TestOpenSQL_SQLite(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQL(ctx, "sqlite", filepath.Join(t.TempDir(), "audit.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, "CREATE TABLE t (id TEXT)")
	require.NoError(t, err)
	_, err = db.NamedExecContext(ctx, "INSERT INTO t (id) VALUES (:id)", map[string]any{"id": "a"})
	require.NoError(t, err)

	var n int
	require.NoError(t, db.GetContext(ctx, &n, "SELECT COUNT(*) FROM t"))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, db.Stats().MaxOpenConnections)
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	_, err := OpenSQL(context.Background(), "oracle", "x", 0)
	assert.Error(t, err)
}

func TestOpenPool_InvalidDSN(t *testing.T) {
	_, err := OpenPool(context.Background(), config.PostgresConfig{DSN: "postgres://%zz"})
	assert.Error(t, err)
}
