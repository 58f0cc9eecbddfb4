// Package ingest exposes the HTTP API through which remote services submit
// audit events for delivery.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/platform/httputil"
	"github.com/buession/buession-logging-sub001/pkg/requestcontext"
)

// DefaultMaxBodyBytes bounds a single event request.
const DefaultMaxBodyBytes = 1 << 20

// Dispatcher delivers an event to every configured sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, e *logging.Event) map[string]logging.DispatchResult
}

// Recorder counts received events; *metrics.Metrics implements it.
type Recorder interface {
	IncrementReceived(outcome string)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// EventResponse reports the outcome per sink.
type EventResponse struct {
	Results map[string]string `json:"results"`
}

// Handler serves the ingestion endpoints.
type Handler struct {
	dispatcher   Dispatcher
	logger       *slog.Logger
	recorder     Recorder
	checks       map[string]HealthCheck
	maxBodyBytes int64
}

// Option configures the Handler.
type Option func(*Handler)

// WithRecorder counts accepted and rejected events.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) {
		h.recorder = r
	}
}

// WithHealthCheck adds a named dependency check to /healthz.
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *Handler) {
		h.checks[name] = check
	}
}

// WithMaxBodyBytes bounds the request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// New constructs an ingestion handler.
func New(dispatcher Dispatcher, logger *slog.Logger, opts ...Option) (*Handler, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		dispatcher:   dispatcher,
		logger:       logger,
		checks:       map[string]HealthCheck{},
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the ingestion endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/events", h.HandleEvent)
	r.Get("/healthz", h.HandleHealth)
}

// HandleEvent handles POST /v1/events.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	var req EventRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.reject(ctx, w, requestID, decodeError(err))
		return
	}

	e, err := req.ToEvent(ctx)
	if err != nil {
		h.reject(ctx, w, requestID, err)
		return
	}

	results := h.dispatcher.Dispatch(ctx, e)
	h.count("accepted")

	resp := EventResponse{Results: make(map[string]string, len(results))}
	var failed []string
	for name, res := range results {
		resp.Results[name] = res.String()
		if res == logging.Failure {
			failed = append(failed, name)
		}
	}
	sort.Strings(failed)

	h.logger.InfoContext(ctx, "event dispatched",
		"request_id", requestID,
		"sinks", len(results),
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failing := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		h.logger.WarnContext(ctx, "health check failed", "failing", failing)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "unavailable",
			"failing": failing,
		})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) reject(ctx context.Context, w http.ResponseWriter, requestID string, err error) {
	h.count("rejected")
	h.logger.WarnContext(ctx, "event rejected",
		"request_id", requestID,
		"error", err,
	)
	httputil.WriteError(w, err)
}

func (h *Handler) count(outcome string) {
	if h.recorder != nil {
		h.recorder.IncrementReceived(outcome)
	}
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &httputil.Error{
			Status:      http.StatusRequestEntityTooLarge,
			Code:        httputil.CodePayloadTooLarge,
			Description: "request body too large",
		}
	}
	return httputil.BadRequest("invalid event: " + err.Error())
}
