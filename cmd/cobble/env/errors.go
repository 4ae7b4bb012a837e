package env

import "errors"

// Sentinel errors for the environment/key-registry subsystem. Wrapped with
// fmt.Errorf("%w: ...") at the call site so the offending key/value stays in
// the message while callers can still errors.Is against the sentinel.
var (
	ErrUnknownKey      = errors.New("unknown environment key")
	ErrMergeConflict   = errors.New("merge conflict")
	ErrBadLiteral      = errors.New("literal rejected by key")
	ErrMissingRequired = errors.New("missing required key")
	ErrDuplicateKey    = errors.New("environment key defined twice")
	ErrInvalidKey      = errors.New("invalid environment key")
	ErrInvalidDelta    = errors.New("invalid delta")
)
