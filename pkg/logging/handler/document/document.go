// Package document persists events into a document store or search index,
// optionally creating the target collection on first use.
package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/convert"
)

const name = "document"

// Index is a named collection of documents.
type Index interface {
	// Exists reports whether the collection called name exists.
	Exists(ctx context.Context, name string) (bool, error)
	// Create creates the collection called name.
	Create(ctx context.Context, name string) error
	// Save stores e under id in the collection called name.
	Save(ctx context.Context, name, id string, e *logging.Event) error
}

// Config holds the document handler settings.
type Config struct {
	Index Index
	// Name of the collection, index or table.
	Name string
	// AutoCreate creates the collection on first delivery when it is missing.
	AutoCreate bool
}

// Handler saves each event as one document.
//
// With AutoCreate, the first delivery checks for the collection and creates
// it if missing. The check runs once per handler even under concurrent first
// deliveries; if it fails, the next delivery checks again.
type Handler struct {
	index      Index
	target     string
	autoCreate bool
	ids        convert.IDGenerator
	logger     *slog.Logger

	mu    sync.Mutex
	ready atomic.Bool
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithIDGenerator overrides the UUIDv7 document ids.
func WithIDGenerator(g convert.IDGenerator) Option {
	return func(h *Handler) {
		h.ids = g
	}
}

// New validates cfg and creates a document handler. No call is made to the
// index until the first delivery.
func New(cfg Config, opts ...Option) (*Handler, error) {
	if cfg.Index == nil {
		return nil, fmt.Errorf("%w: index is required", logging.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("%w: index name is required", logging.ErrInvalidConfig)
	}

	h := &Handler{
		index:      cfg.Index,
		target:     cfg.Name,
		autoCreate: cfg.AutoCreate,
		ids:        convert.UUIDv7Generator{},
		logger:     slog.Default(),
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

	if h.autoCreate && !h.ready.Load() {
		if err := h.ensureIndex(ctx); err != nil {
			h.logger.ErrorContext(ctx, "failed to prepare index",
				"handler", name,
				"index", h.target,
				"error", err,
			)
			return logging.Failure
		}
	}

	id, err := h.ids.NextID()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate document id",
			"handler", name,
			"error", err,
		)
		return logging.Failure
	}

	if err := h.index.Save(ctx, h.target, id, e); err != nil {
		h.logger.ErrorContext(ctx, "failed to save document",
			"handler", name,
			"index", h.target,
			"error", err,
		)
		return logging.Failure
	}
	return logging.Success
}

func (h *Handler) ensureIndex(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready.Load() {
		return nil
	}

	exists, err := h.index.Exists(ctx, h.target)
	if err != nil {
		return fmt.Errorf("check index %q: %w", h.target, err)
	}
	if !exists {
		if err := h.index.Create(ctx, h.target); err != nil {
			return fmt.Errorf("create index %q: %w", h.target, err)
		}
		h.logger.InfoContext(ctx, "created index",
			"handler", name,
			"index", h.target,
		)
	}

	h.ready.Store(true)
	return nil
}
