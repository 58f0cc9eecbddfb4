package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buession/buession-logging-sub001/internal/platform/config"
	"github.com/buession/buession-logging-sub001/internal/platform/postgres"
	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/convert"
	"github.com/buession/buession-logging-sub001/pkg/logging/handler/relational"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)
	cfg.Sinks.Console.Enabled = false
	return cfg
}

func createAuditTable(t *testing.T, dsn string) {
	t.Helper()
	db, err := postgres.OpenSQL(context.Background(), "sqlite", dsn, 1)
	require.NoError(t, err)
	defer db.Close()

	cols := make([]string, 0, len(convert.Params))
	for _, p := range convert.Params {
		cols = append(cols, relational.Column(p)+" TEXT")
	}
	_, err = db.Exec("CREATE TABLE audit_log (" + strings.Join(cols, ", ") + ")")
	require.NoError(t, err)
}

func TestOpenSinks_DeliversToEveryEnabledSink(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	var hooks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)

	dsn := filepath.Join(dir, "audit.db")
	createAuditTable(t, dsn)

	cfg := defaultConfig(t)
	cfg.Sinks.File.Enabled = true
	cfg.Sinks.File.Path = filepath.Join(dir, "audit.log")
	cfg.Sinks.Relational.Enabled = true
	cfg.Sinks.Relational.Driver = "sqlite"
	cfg.Sinks.Relational.DSN = dsn
	cfg.Sinks.Relational.TimeFormat = "T"
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Sinks.RedisStream.Enabled = true
	cfg.Sinks.Webhook.Enabled = true
	cfg.Sinks.Webhook.URL = srv.URL
	cfg.Sinks.Webhook.SigningKey = "secret"

	sinks, err := openSinks(ctx, cfg, quiet)
	require.NoError(t, err)
	t.Cleanup(sinks.Close)

	assert.Len(t, sinks.handlers, 4)
	assert.Contains(t, sinks.checks, "relational")
	assert.Contains(t, sinks.checks, "redis-stream")
	for name, check := range sinks.checks {
		assert.NoError(t, check(ctx), name)
	}

	e := logging.NewBuilder().WithPrincipal("alice").WithStatus(logging.StatusSuccess).Build()
	results := logging.NewDispatcher(sinks.handlers, logging.WithDispatchLogger(quiet)).Dispatch(ctx, e)
	for name, res := range results {
		assert.Equal(t, logging.Success, res, name)
	}

	data, err := os.ReadFile(cfg.Sinks.File.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"principal":"alice"`)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	n, err := rdb.XLen(ctx, cfg.Sinks.RedisStream.Stream).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	db, err := postgres.OpenSQL(ctx, "sqlite", dsn, 1)
	require.NoError(t, err)
	defer db.Close()
	var principal string
	require.NoError(t, db.Get(&principal, "SELECT principal FROM audit_log"))
	assert.Equal(t, "alice", principal)

	assert.Equal(t, int32(1), hooks.Load())
}

func TestOpenSinks_AsyncWebhookWaitsOnClose(t *testing.T) {
	var hooks atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks.Add(1)
	}))
	t.Cleanup(srv.Close)

	cfg := defaultConfig(t)
	cfg.Sinks.Webhook.Enabled = true
	cfg.Sinks.Webhook.URL = srv.URL
	cfg.Sinks.Webhook.Async = true

	sinks, err := openSinks(context.Background(), cfg, quiet)
	require.NoError(t, err)

	e := logging.NewBuilder().WithPrincipal("bob").Build()
	assert.Equal(t, logging.Success, sinks.handlers["webhook"].Deliver(context.Background(), e))

	sinks.Close()
	assert.Equal(t, int32(1), hooks.Load())
}

func TestOpenSinks_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{
			name: "unknown webhook codec",
			mutate: func(c *config.Config) {
				c.Sinks.Webhook.Enabled = true
				c.Sinks.Webhook.URL = "http://localhost"
				c.Sinks.Webhook.Codec = "xml"
			},
		},
		{
			name: "redis stream without redis",
			mutate: func(c *config.Config) {
				c.Sinks.RedisStream.Enabled = true
			},
		},
		{
			name: "kafka without brokers",
			mutate: func(c *config.Config) {
				c.Sinks.Kafka.Enabled = true
			},
		},
		{
			name: "relational with unknown driver",
			mutate: func(c *config.Config) {
				c.Sinks.Relational.Enabled = true
				c.Sinks.Relational.Driver = "oracle"
				c.Sinks.Relational.DSN = "x"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig(t)
			tt.mutate(&cfg)
			_, err := openSinks(context.Background(), cfg, quiet)
			assert.Error(t, err)
		})
	}
}

func TestOpenSinks_NoneEnabled(t *testing.T) {
	sinks, err := openSinks(context.Background(), defaultConfig(t), quiet)
	require.NoError(t, err)
	defer sinks.Close()
	assert.Empty(t, sinks.handlers)
}
