// Package relational inserts events into a SQL database through a
// caller-supplied statement with named parameters.
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/convert"
	"github.com/buession/buession-logging-sub001/pkg/platform/tx"
)

const name = "relational"

// NamedExecer is the subset of *sqlx.DB and *sqlx.Tx the handler needs.
type NamedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

// Config holds the relational handler settings.
type Config struct {
	// DB is an already connected database, usually *sqlx.DB.
	DB NamedExecer
	// SQL is the statement to execute, with :name placeholders drawn from
	// convert.Params. InsertSQL builds one for a table.
	SQL string
	// Converter maps events to parameters. Nil selects a
	// convert.ParamsConverter with default strategies on first delivery.
	Converter convert.Converter
}

// Handler executes Config.SQL once per event. When ctx carries a transaction
// (see tx.WithTx) the statement runs inside it and commits or rolls back with
// the caller's work.
type Handler struct {
	db     NamedExecer
	sql    string
	logger *slog.Logger

	converterOnce sync.Once
	configured    convert.Converter
	converter     convert.Converter
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// New validates cfg and creates a relational handler.
func New(cfg Config, opts ...Option) (*Handler, error) {
	if cfg.DB == nil {
		return nil, fmt.Errorf("%w: database is required", logging.ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.SQL) == "" {
		return nil, fmt.Errorf("%w: sql is required", logging.ErrInvalidConfig)
	}

	h := &Handler{
		db:         cfg.DB,
		sql:        cfg.SQL,
		configured: cfg.Converter,
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

	params, err := h.convert().Convert(e)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to convert event to sql parameters",
			"handler", name,
			"error", err,
		)
		return logging.Failure
	}

	var db NamedExecer = h.db
	if t, ok := tx.From(ctx); ok {
		db = t
	}
	if _, err := db.NamedExecContext(ctx, h.sql, params); err != nil {
		h.logger.ErrorContext(ctx, "failed to persist event",
			"handler", name,
			"error", err,
		)
		return logging.Failure
	}
	return logging.Success
}

func (h *Handler) convert() convert.Converter {
	h.converterOnce.Do(func() {
		h.converter = h.configured
		if h.converter == nil {
			h.converter = convert.NewParamsConverter()
		}
	})
	return h.converter
}
