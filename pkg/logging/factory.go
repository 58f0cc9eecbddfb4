package logging

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Factory constructs a handler on first use and caches it. Get is safe for
// concurrent use: build runs at most once per successful construction, and
// every caller observes the same fully built handler. A failed build is not
// cached; the error is returned to the caller that triggered it.
//
// A Factory is itself a Handler, so it can be registered with a Dispatcher
// and the backend is only constructed when the first event arrives.
type Factory[H Handler] struct {
	build  func() (H, error)
	logger *slog.Logger

	mu      sync.Mutex
	handler atomic.Pointer[H]
}

// FactoryOption configures a Factory.
type FactoryOption func(*factoryOptions)

type factoryOptions struct {
	logger *slog.Logger
}

// WithFactoryLogger sets the logger build failures are reported to. A nil
// logger keeps slog.Default().
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(o *factoryOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewFactory returns a Factory that builds handlers with build.
func NewFactory[H Handler](build func() (H, error), opts ...FactoryOption) *Factory[H] {
	o := factoryOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Factory[H]{build: build, logger: o.logger}
}

// Get returns the cached handler, building it if needed.
func (f *Factory[H]) Get() (H, error) {
	if h := f.handler.Load(); h != nil {
		return *h, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Double-check after acquiring the lock
	if h := f.handler.Load(); h != nil {
		return *h, nil
	}

	h, err := f.build()
	if err != nil {
		var zero H
		return zero, err
	}
	f.handler.Store(&h)
	return h, nil
}

// Deliver builds the handler if needed and delivers e to it. A build error is
// logged and reported as Failure; the next delivery tries to build again.
func (f *Factory[H]) Deliver(ctx context.Context, e *Event) DispatchResult {
	h, err := f.Get()
	if err != nil {
		f.logger.ErrorContext(ctx, "failed to build log handler", "error", err)
		return Failure
	}
	return h.Deliver(ctx, e)
}
