package target

import "errors"

// Sentinel errors for the target/evaluator subsystem (spec.md §7 "Error
// handling design"). Wrapped with fmt.Errorf("%w: ...") at the call site so
// the offending identifier stays in the message while callers can still
// errors.Is against the sentinel.
var (
	ErrDuplicateTarget   = errors.New("duplicate target")
	ErrBadIdentifier     = errors.New("malformed target identifier")
	ErrUnknownTarget     = errors.New("unknown target")
	ErrCycleDetected     = errors.New("dependency cycle detected")
	ErrShapeError        = errors.New("using-and-products returned a malformed value")
	ErrOutputNotFound    = errors.New("referenced output not found")
	ErrConflictingOutput = errors.New("conflicting products for the same target/environment pair")
	ErrNoIncomingEnv     = errors.New("non-concrete target evaluated with no incoming environment")
	ErrInvalidTarget     = errors.New("invalid target definition")
)
