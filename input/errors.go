package input

import (
	"github.com/juju/errors"
)

// Startup failures of a raw source. All are terminal for the monitor instance.
// Sources wrap the underlying cause: errors.Cause(err) returns one of these.
var (
	ErrDisplayUnavailable = errors.New("input: display connection unavailable")
	ErrRangeAllocation    = errors.New("input: event range allocation failed")
	ErrContextCreation    = errors.New("input: interception context creation failed")
	ErrEnable             = errors.New("input: interception enable failed")
)

// StartupKind names the startup failure class of err, or "" if err is not one.
func StartupKind(err error) string {
	switch errors.Cause(err) {
	case ErrDisplayUnavailable:
		return "DisplayUnavailable"
	case ErrRangeAllocation:
		return "RangeAllocationFailed"
	case ErrContextCreation:
		return "ContextCreationFailed"
	case ErrEnable:
		return "EnableFailed"
	}
	return ""
}

// IsStartupError reports whether err is one of the startup failures.
func IsStartupError(err error) bool { return StartupKind(err) != "" }

// WrapStartup keeps cause for logs, sets kind as errors.Cause.
func WrapStartup(cause, kind error, format string, args ...interface{}) error {
	if cause == nil {
		cause = kind
	}
	err := errors.Wrap(cause, kind)
	if format == "" {
		return err
	}
	return errors.Annotatef(err, format, args...)
}
