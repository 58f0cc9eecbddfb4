// Package redisstream appends events to a Redis stream.
package redisstream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

const name = "redis-stream"

// Stream entry field names.
const (
	FieldPayload     = "payload"
	FieldContentType = "content_type"
)

// Streamer is the subset of redis.Cmdable the handler uses.
type Streamer interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Config holds the Redis stream handler settings.
type Config struct {
	Client Streamer
	Stream string
	// MaxLen caps the stream with approximate trimming; zero disables it.
	MaxLen int64
	// Codec encodes the sparse payload; nil selects JSON.
	Codec format.Codec
}

// Handler adds one stream entry per event.
type Handler struct {
	client Streamer
	stream string
	maxLen int64
	codec  format.Codec
	logger *slog.Logger
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New validates cfg and creates a Redis stream handler.
func New(cfg Config, opts ...Option) (*Handler, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: redis client is required", logging.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Stream) == "" {
		return nil, fmt.Errorf("%w: redis stream is required", logging.ErrInvalidConfig)
	}
	if cfg.MaxLen < 0 {
		return nil, fmt.Errorf("%w: redis stream max length must not be negative", logging.ErrInvalidConfig)
	}

	codec := cfg.Codec
	if codec == nil {
		codec = format.JSONCodec{}
	}
	h := &Handler{
		client: cfg.Client,
		stream: cfg.Stream,
		maxLen: cfg.MaxLen,
		codec:  codec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// NewFactory returns a lazily constructing factory for cfg.
func NewFactory(cfg Config, opts ...Option) *logging.Factory[*Handler] {
	return logging.NewFactory(
		func() (*Handler, error) { return New(cfg, opts...) },
		logging.WithFactoryLogger(optionLogger(opts)),
	)
}

// optionLogger returns the logger opts configure, or nil when they set none.
func optionLogger(opts []Option) *slog.Logger {
	var h Handler
	for _, opt := range opts {
		opt(&h)
	}
	return h.logger
}

func (h *Handler) Deliver(ctx context.Context, e *logging.Event) (result logging.DispatchResult) {
	defer logging.Recover(ctx, h.logger, name, &result)

	body, err := h.codec.Marshal(logging.NewPayload(e))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode event",
			"handler", name,
			"codec", h.codec.Name(),
			"error", err,
		)
		return logging.Failure
	}

	args := &redis.XAddArgs{
		Stream: h.stream,
		Values: map[string]any{
			FieldPayload:     body,
			FieldContentType: h.codec.ContentType(),
		},
	}
	if h.maxLen > 0 {
		args.MaxLen = h.maxLen
		args.Approx = true
	}

	if err := h.client.XAdd(ctx, args).Err(); err != nil {
		h.logger.ErrorContext(ctx, "failed to append to stream",
			"handler", name,
			"stream", h.stream,
			"error", err,
		)
		return logging.Failure
	}
	return logging.Success
}
