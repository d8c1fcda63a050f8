package glr

import "errors"

// Error kinds, per spec.md section 7.
//
// Malformed input is never surfaced as an error: it is encoded in the
// tree via error recovery. Table inconsistencies and host I/O failures
// are programming/environment errors and fail loudly. Budget exhaustion
// is not an error at all — callers should check Resumable != nil instead
// of treating it as a Go error.
var (
	// ErrTableInconsistent marks a fatal, structural problem with the
	// parse tables themselves (unknown state, action out of range). Wrap
	// it with the offending state ID using fmt.Errorf("%w: state %d", ...).
	ErrTableInconsistent = errors.New("glr: table inconsistency")
)
