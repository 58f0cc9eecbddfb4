// Package kafka publishes events to a Kafka topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/convert"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

const (
	name = "kafka"

	HeaderContentType = "content-type"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// TopicAdmin is the subset of *kadm.Client used for topic auto-creation.
type TopicAdmin interface {
	ListTopics(ctx context.Context, topics ...string) (kadm.TopicDetails, error)
	CreateTopic(ctx context.Context, partitions int32, replicationFactor int16, configs map[string]*string, topic string) (kadm.CreateTopicResponse, error)
}

// Config holds the Kafka handler settings.
type Config struct {
	Producer Producer
	Topic    string
	// Codec encodes the sparse payload; nil selects JSON.
	Codec format.Codec
	// Admin enables topic creation on first delivery when set.
	Admin TopicAdmin
	// Partitions and ReplicationFactor apply to created topics; -1 (or 0)
	// leaves the choice to the broker.
	Partitions        int32
	ReplicationFactor int16
}

// Handler produces one record per event, keyed by a time-ordered event id.
type Handler struct {
	producer Producer
	topic    string
	codec    format.Codec
	ids      convert.IDGenerator
	logger   *slog.Logger

	admin             TopicAdmin
	partitions        int32
	replicationFactor int16
	mu                sync.Mutex
	ready             atomic.Bool
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithIDGenerator overrides the UUIDv7 record keys.
func WithIDGenerator(g convert.IDGenerator) Option {
	return func(h *Handler) {
		h.ids = g
	}
}

// New validates cfg and creates a Kafka handler.
func New(cfg Config, opts ...Option) (*Handler, error) {
	if cfg.Producer == nil {
		return nil, fmt.Errorf("%w: kafka producer is required", logging.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("%w: kafka topic is required", logging.ErrInvalidConfig)
	}

	codec := cfg.Codec
	if codec == nil {
		codec = format.JSONCodec{}
	}
	h := &Handler{
		producer:          cfg.Producer,
		topic:             cfg.Topic,
		codec:             codec,
		ids:               convert.UUIDv7Generator{},
		logger:            slog.Default(),
		admin:             cfg.Admin,
		partitions:        brokerDefault32(cfg.Partitions),
		replicationFactor: int16(brokerDefault32(int32(cfg.ReplicationFactor))),
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

	if h.admin != nil && !h.ready.Load() {
		if err := h.ensureTopic(ctx); err != nil {
			h.logger.ErrorContext(ctx, "failed to prepare topic",
				"handler", name,
				"topic", h.topic,
				"error", err,
			)
			return logging.Failure
		}
	}

	value, err := h.codec.Marshal(logging.NewPayload(e))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode event",
			"handler", name,
			"codec", h.codec.Name(),
			"error", err,
		)
		return logging.Failure
	}

	key, err := h.ids.NextID()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate record key",
			"handler", name,
			"error", err,
		)
		return logging.Failure
	}

	record := &kgo.Record{
		Topic: h.topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: HeaderContentType, Value: []byte(h.codec.ContentType())},
		},
	}
	if err := h.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		h.logger.ErrorContext(ctx, "failed to publish event",
			"handler", name,
			"topic", h.topic,
			"error", err,
		)
		return logging.Failure
	}
	return logging.Success
}

func (h *Handler) ensureTopic(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready.Load() {
		return nil
	}

	details, err := h.admin.ListTopics(ctx, h.topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if d, ok := details[h.topic]; !ok || d.Err != nil {
		resp, err := h.admin.CreateTopic(ctx, h.partitions, h.replicationFactor, nil, h.topic)
		if err == nil {
			err = resp.Err
		}
		if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %q: %w", h.topic, err)
		}
	}

	h.ready.Store(true)
	return nil
}

func brokerDefault32(v int32) int32 {
	if v <= 0 {
		return -1
	}
	return v
}
