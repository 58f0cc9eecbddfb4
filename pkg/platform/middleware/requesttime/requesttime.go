// Package requesttime captures one "now" per request, so an event received
// without a timestamp is stamped with the moment its request arrived rather
// than whenever a handler got around to it.
package requesttime

import (
	"net/http"
	"time"

	"github.com/buession/buession-logging-sub001/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
