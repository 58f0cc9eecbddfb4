// Package file appends one line per event to a local file.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

const name = "file"

var (
	ErrOpenFile  = errors.New("file: open log file")
	ErrWriteLine = errors.New("file: write line")
)

// Config holds the file handler settings.
type Config struct {
	// Path of the log file. Its directory must exist; the file is created on
	// demand.
	Path string
	// Template renders text lines with ${...} placeholders. When empty each
	// line is the event's sparse payload as JSON.
	Template string
	// Perm is used when the file is created. Defaults to 0644.
	Perm os.FileMode
}

// LineFormatter renders one event as one line, without the trailing newline.
type LineFormatter interface {
	Format(e *logging.Event) (string, error)
}

// JSONLineFormatter renders the sparse payload as a single JSON object.
type JSONLineFormatter struct{}

func (JSONLineFormatter) Format(e *logging.Event) (string, error) {
	b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(logging.NewPayload(e))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Handler appends formatted events to a file. It is safe for concurrent use.
// Each line is fully rendered before the file is touched, so a failed
// delivery never leaves a partial line behind.
type Handler struct {
	path      string
	perm      os.FileMode
	formatter LineFormatter
	logger    *slog.Logger

	mu sync.Mutex
}

// Option configures the Handler.
type Option func(*Handler)

// WithLogger sets the logger for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithFormatter replaces the line formatter chosen from Config.
func WithFormatter(f LineFormatter) Option {
	return func(h *Handler) {
		h.formatter = f
	}
}

// New validates cfg and creates a file handler. The path must be writable:
// New opens it once in append mode, creating it if missing.
func New(cfg Config, opts ...Option) (*Handler, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: file path is required", logging.ErrInvalidConfig)
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: directory %q: %v", logging.ErrInvalidConfig, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a directory", logging.ErrInvalidConfig, dir)
	}

	perm := cfg.Perm
	if perm == 0 {
		perm = 0o644
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not writable: %v", logging.ErrInvalidConfig, path, err)
	}
	_ = f.Close()

	h := &Handler{
		path:   path,
		perm:   perm,
		logger: slog.Default(),
	}
	if cfg.Template != "" {
		h.formatter = format.NewTemplateFormatter(cfg.Template)
	} else {
		h.formatter = JSONLineFormatter{}
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

// Path returns the target file.
func (h *Handler) Path() string { return h.path }

func (h *Handler) Deliver(ctx context.Context, e *logging.Event) (result logging.DispatchResult) {
	defer logging.Recover(ctx, h.logger, name, &result)

	line, err := h.formatter.Format(e)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to format log line",
			"handler", name,
			"path", h.path,
			"error", err,
		)
		return logging.Failure
	}

	if err := h.appendLine(line); err != nil {
		h.logger.ErrorContext(ctx, "failed to append log line",
			"handler", name,
			"path", h.path,
			"error", err,
		)
		return logging.Failure
	}
	return logging.Success
}

func (h *Handler) appendLine(line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, h.perm)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOpenFile, err)
	}

	_, werr := f.Write([]byte(line + "\n"))
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("%w: %w", ErrWriteLine, werr)
	}
	if cerr != nil {
		return fmt.Errorf("%w: %w", ErrWriteLine, cerr)
	}
	return nil
}
