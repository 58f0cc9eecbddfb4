// Package console writes events as templated text lines to standard output.
package console

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

const name = "console"

// Config holds the console handler settings.
type Config struct {
	// Template uses ${...} placeholders; empty selects format.DefaultTemplate.
	Template string
	// Writer defaults to os.Stdout.
	Writer io.Writer
}

// Handler renders events through a template and writes one line per event.
type Handler struct {
	formatter *format.TemplateFormatter
	logger    *slog.Logger

	mu     sync.Mutex
	writer io.Writer
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithTimeFormatter changes how ${time} is rendered.
func WithTimeFormatter(f format.TimeFormatter) Option {
	return func(h *Handler) {
		h.formatter.Time = f
	}
}

// New creates a console handler. Console output needs no mandatory settings,
// so New never fails; the error keeps the constructor shape of the other
// handlers.
func New(cfg Config, opts ...Option) (*Handler, error) {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	h := &Handler{
		formatter: format.NewTemplateFormatter(cfg.Template),
		logger:    slog.Default(),
		writer:    w,
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
	h := Handler{formatter: &format.TemplateFormatter{}}
	for _, opt := range opts {
		opt(&h)
	}
	return h.logger
}

// Deliver renders and writes e. Rendering and write errors are both reported
// as Failure, like every other handler.
func (h *Handler) Deliver(ctx context.Context, e *logging.Event) (result logging.DispatchResult) {
	defer logging.Recover(ctx, h.logger, name, &result)

	line, err := h.formatter.Format(e)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to render console line",
			"handler", name,
			"error", err,
		)
		return logging.Failure
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := io.WriteString(h.writer, line+"\n"); err != nil {
		h.logger.ErrorContext(ctx, "failed to write console line",
			"handler", name,
			"error", err,
		)
		return logging.Failure
	}
	return logging.Success
}
