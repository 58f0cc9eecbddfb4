package logging

import "errors"

// ErrInvalidConfig is returned, wrapped with the reason, when a handler is
// constructed from incomplete or contradictory configuration.
var ErrInvalidConfig = errors.New("logging: invalid handler config")
