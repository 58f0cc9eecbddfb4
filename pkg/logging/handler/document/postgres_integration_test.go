//go:build integration

package document

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buession/buession-logging-sub001/internal/platform/config"
	"github.com/buession/buession-logging-sub001/internal/platform/postgres"
	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/testutil/containers"
)

func TestPostgresIndex_Integration(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)

	pool, err := postgres.OpenPool(ctx, config.PostgresConfig{DSN: pg.DSN, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	index := NewPostgresIndex(pool)
	h, err := New(Config{Index: index, Name: "audit_documents", AutoCreate: true},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	exists, err := index.Exists(ctx, "audit_documents")
	require.NoError(t, err)
	assert.False(t, exists)

	at := time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)
	e := logging.NewBuilder().
		WithPrincipal("alice").
		WithOccurredAt(at).
		WithEventType(logging.Category("LOGIN")).
		WithStatus(logging.StatusSuccess).
		Build()

	require.Equal(t, logging.Success, h.Deliver(ctx, e))
	require.Equal(t, logging.Success, h.Deliver(ctx, e))

	exists, err = index.Exists(ctx, "audit_documents")
	require.NoError(t, err)
	assert.True(t, exists)

	var count int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM audit_documents WHERE document->>'principal' = 'alice'`).Scan(&count))
	assert.Equal(t, 2, count)

	var occurredAt time.Time
	var event string
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT occurred_at, document->>'event' FROM audit_documents LIMIT 1`).Scan(&occurredAt, &event))
	assert.True(t, at.Equal(occurredAt))
	assert.Equal(t, "LOGIN", event)
}

func TestPostgresIndex_SchemaQualified_Integration(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)

	pool, err := postgres.OpenPool(ctx, config.PostgresConfig{DSN: pg.DSN})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `CREATE SCHEMA audit`)
	require.NoError(t, err)

	index := NewPostgresIndex(pool)
	require.NoError(t, index.Create(ctx, "audit.events"))
	require.NoError(t, index.Create(ctx, "audit.events"))

	exists, err := index.Exists(ctx, "audit.events")
	require.NoError(t, err)
	assert.True(t, exists)

	e := logging.NewBuilder().WithPrincipal("bob").Build()
	require.NoError(t, index.Save(ctx, "audit.events", "id-1", e))
	assert.Error(t, index.Save(ctx, "audit.events", "id-1", e), "duplicate id")
}
