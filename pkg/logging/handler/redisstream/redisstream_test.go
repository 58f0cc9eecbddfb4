package redisstream

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNew(t *testing.T) {
	_, rdb := newClient(t)

	_, err := New(Config{Stream: "audit"})
	assert.ErrorIs(t, err, logging.ErrInvalidConfig)

	_, err = New(Config{Client: rdb})
	assert.ErrorIs(t, err, logging.ErrInvalidConfig)

	_, err = New(Config{Client: rdb, Stream: "audit", MaxLen: -1})
	assert.ErrorIs(t, err, logging.ErrInvalidConfig)
}

func TestHandler_Deliver(t *testing.T) {
	ctx := context.Background()
	e := logging.NewBuilder().WithPrincipal("alice").WithDescription("login").Build()

	t.Run("appends json entry", func(t *testing.T) {
		_, rdb := newClient(t)
		h, err := New(Config{Client: rdb, Stream: "audit"})
		require.NoError(t, err)

		require.Equal(t, logging.Success, h.Deliver(ctx, e))

		msgs, err := rdb.XRange(ctx, "audit", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "application/json", msgs[0].Values[FieldContentType])

		payload, ok := msgs[0].Values[FieldPayload].(string)
		require.True(t, ok)
		assert.Contains(t, payload, `"principal":"alice"`)
		assert.Contains(t, payload, `"description":"login"`)
	})

	t.Run("cbor codec with capped stream", func(t *testing.T) {
		_, rdb := newClient(t)
		codec, err := format.NewCBORCodec()
		require.NoError(t, err)
		h, err := New(Config{Client: rdb, Stream: "audit", MaxLen: 100, Codec: codec})
		require.NoError(t, err)

		for range 3 {
			require.Equal(t, logging.Success, h.Deliver(ctx, e))
		}

		msgs, err := rdb.XRange(ctx, "audit", "-", "+").Result()
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "application/cbor", msgs[0].Values[FieldContentType])
	})

	t.Run("server unavailable", func(t *testing.T) {
		mr, rdb := newClient(t)
		h, err := New(Config{Client: rdb, Stream: "audit"}, WithLogger(quiet))
		require.NoError(t, err)

		mr.Close()
		assert.Equal(t, logging.Failure, h.Deliver(ctx, e))
	})
}
