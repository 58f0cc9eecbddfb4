package logging

import (
	"context"
	"fmt"
	"log/slog"
)

// Recover turns a panic raised inside Deliver into a logged Failure. It must
// be deferred directly:
//
//	func (h *Handler) Deliver(ctx context.Context, e *logging.Event) (result logging.DispatchResult) {
//		defer logging.Recover(ctx, h.logger, "file", &result)
//		...
//	}
func Recover(ctx context.Context, logger *slog.Logger, handler string, result *DispatchResult) {
	r := recover()
	if r == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.ErrorContext(ctx, "log handler panicked",
		"handler", handler,
		"error", fmt.Sprint(r),
	)
	*result = Failure
}
