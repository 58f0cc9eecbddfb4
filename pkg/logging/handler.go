// Package logging defines the audit event model and the Handler contract that
// every delivery backend implements.
//
// A capture component builds an Event with a Builder and hands it to one or
// more Handlers, directly or through a Dispatcher. Handlers never return
// errors from Deliver; every failure is logged and reported as Failure so
// that other handlers keep going.
package logging

import "context"

// DispatchResult is the outcome of one delivery attempt.
type DispatchResult int

const (
	Success DispatchResult = iota
	Failure
)

func (r DispatchResult) String() string {
	if r == Success {
		return "success"
	}
	return "failure"
}

// Handler delivers events to one backend.
// Implementations must be safe for concurrent use and must not retain or
// modify the event after Deliver returns.
type Handler interface {
	Deliver(ctx context.Context, e *Event) DispatchResult
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e *Event) DispatchResult

func (f HandlerFunc) Deliver(ctx context.Context, e *Event) DispatchResult {
	return f(ctx, e)
}
