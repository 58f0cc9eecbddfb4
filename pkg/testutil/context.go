package testutil

import (
	"net/http"
	"time"

	"github.com/buession/buession-logging-sub001/pkg/requestcontext"
)

// WithClient adds client metadata to the request context, as the metadata
// middleware would.
func WithClient(req *http.Request, clientIP, userAgent, remoteAddr string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), clientIP, userAgent)
	ctx = requestcontext.WithRemoteAddr(ctx, remoteAddr)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request start time in the context.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
