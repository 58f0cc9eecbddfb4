package logging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/buession/buession-logging-sub001/pkg/logging"

// Observer records the outcome of each delivery made by a Dispatcher.
type Observer interface {
	ObserveDelivery(handler string, result DispatchResult, elapsed time.Duration)
}

type namedHandler struct {
	name    string
	handler Handler
}

// Dispatcher fans one event out to a fixed set of named handlers. Handlers
// run concurrently and independently: a failure or panic in one never
// changes the result of another.
type Dispatcher struct {
	handlers []namedHandler
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer
	limit    int
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatchLogger sets the logger used for handler panics.
func WithDispatchLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithObserver records per-handler outcomes, typically as metrics.
func WithObserver(o Observer) DispatcherOption {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) DispatcherOption {
	return func(d *Dispatcher) {
		d.tracer = t
	}
}

// WithConcurrency bounds how many handlers run at once for a single event.
// Zero or negative means unbounded.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		d.limit = n
	}
}

// NewDispatcher creates a dispatcher over handlers, keyed by a name used in
// results, logs and metrics.
func NewDispatcher(handlers map[string]Handler, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for name, h := range handlers {
		if h == nil {
			continue
		}
		d.handlers = append(d.handlers, namedHandler{name: name, handler: h})
	}
	sort.Slice(d.handlers, func(i, j int) bool { return d.handlers[i].name < d.handlers[j].name })
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Names returns the registered handler names in sorted order.
func (d *Dispatcher) Names() []string {
	names := make([]string, len(d.handlers))
	for i, h := range d.handlers {
		names[i] = h.name
	}
	return names
}

// Dispatch delivers e to every handler and waits for all of them.
func (d *Dispatcher) Dispatch(ctx context.Context, e *Event) map[string]DispatchResult {
	results := make([]DispatchResult, len(d.handlers))

	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i, nh := range d.handlers {
		g.Go(func() error {
			results[i] = d.deliver(ctx, nh, e)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]DispatchResult, len(results))
	for i, nh := range d.handlers {
		out[nh.name] = results[i]
	}
	return out
}

func (d *Dispatcher) deliver(ctx context.Context, nh namedHandler, e *Event) (result DispatchResult) {
	ctx, span := d.tracer.Start(ctx, "logging.deliver",
		trace.WithAttributes(attribute.String("logging.handler", nh.name)))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			d.logger.ErrorContext(ctx, "handler panicked",
				"handler", nh.name,
				"error", fmt.Sprint(r),
			)
			result = Failure
		}
		if result == Failure {
			span.SetStatus(codes.Error, "delivery failed")
		}
		span.SetAttributes(attribute.String("logging.result", result.String()))
		span.End()
		if d.observer != nil {
			d.observer.ObserveDelivery(nh.name, result, time.Since(start))
		}
	}()

	return nh.handler.Deliver(ctx, e)
}
