// Package webhook sends events to an HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/buession/buession-logging-sub001/pkg/logging"
	"github.com/buession/buession-logging-sub001/pkg/logging/format"
)

const (
	name = "webhook"

	// drainLimit bounds how much of a response body is read before closing,
	// so connections can be reused.
	drainLimit = 64 << 10
)

// ErrUnexpectedStatus is reported for non-2xx responses.
var ErrUnexpectedStatus = errors.New("webhook: unexpected response status")

// Doer sends HTTP requests; *http.Client implements it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// BodyBuilder renders the request body for an event.
type BodyBuilder interface {
	Build(e *logging.Event) (body []byte, contentType string, err error)
}

// PayloadBody encodes the sparse payload with Codec (JSON when nil).
type PayloadBody struct {
	Codec format.Codec
}

func (b PayloadBody) Build(e *logging.Event) ([]byte, string, error) {
	codec := b.Codec
	if codec == nil {
		codec = format.JSONCodec{}
	}
	body, err := codec.Marshal(logging.NewPayload(e))
	if err != nil {
		return nil, "", err
	}
	return body, codec.ContentType(), nil
}

// Config holds the webhook handler settings. Exactly one of Client and Async
// must be set.
type Config struct {
	URL string
	// Method defaults to POST.
	Method string
	Header http.Header

	// Client sends synchronously: Deliver waits for the response.
	Client Doer
	// Async sends in the background: Deliver reports Success once the request
	// is accepted and logs the eventual outcome.
	Async *AsyncTransport

	// Body defaults to PayloadBody with JSON.
	Body BodyBuilder
	// Signer, when set, adds a bearer token to every request.
	Signer *Signer
}

// Handler issues one HTTP request per event.
type Handler struct {
	url    string
	method string
	header http.Header
	client Doer
	async  *AsyncTransport
	body   BodyBuilder
	signer *Signer
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

// New validates cfg and creates a webhook handler.
func New(cfg Config, opts ...Option) (*Handler, error) {
	raw := strings.TrimSpace(cfg.URL)
	if raw == "" {
		return nil, fmt.Errorf("%w: url is required", logging.ErrInvalidConfig)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", logging.ErrInvalidConfig, raw)
	}
	if (cfg.Client == nil) == (cfg.Async == nil) {
		return nil, fmt.Errorf("%w: exactly one of a synchronous client or an asynchronous transport is required", logging.ErrInvalidConfig)
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}
	body := cfg.Body
	if body == nil {
		body = PayloadBody{}
	}

	h := &Handler{
		url:    u.String(),
		method: method,
		header: cfg.Header.Clone(),
		client: cfg.Client,
		async:  cfg.Async,
		body:   body,
		signer: cfg.Signer,
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

	if h.async != nil {
		// The request outlives Deliver, so it must not die with the caller's context.
		ctx = context.WithoutCancel(ctx)
	}

	req, err := h.newRequest(ctx, e)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build webhook request",
			"handler", name,
			"url", h.url,
			"error", err,
		)
		return logging.Failure
	}

	if h.async != nil {
		accepted := h.async.Submit(req, func(resp *http.Response, err error) {
			if err := checkResponse(resp, err); err != nil {
				h.logger.ErrorContext(ctx, "async webhook delivery failed",
					"handler", name,
					"url", h.url,
					"error", err,
				)
			}
		})
		if !accepted {
			h.logger.ErrorContext(ctx, "async webhook transport is saturated",
				"handler", name,
				"url", h.url,
			)
			return logging.Failure
		}
		return logging.Success
	}

	if err := checkResponse(h.client.Do(req)); err != nil {
		h.logger.ErrorContext(ctx, "webhook delivery failed",
			"handler", name,
			"url", h.url,
			"error", err,
		)
		return logging.Failure
	}
	return logging.Success
}

func (h *Handler) newRequest(ctx context.Context, e *logging.Event) (*http.Request, error) {
	body, contentType, err := h.body.Build(e)
	if err != nil {
		return nil, fmt.Errorf("build body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, h.method, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range h.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if h.signer != nil {
		token, err := h.signer.Token()
		if err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func checkResponse(resp *http.Response, err error) error {
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	return nil
}
