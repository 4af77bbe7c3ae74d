package timesync

import "errors"

// Error kinds shared by the alignment pipeline. Callers discriminate with
// errors.Is; everything fatal wraps one of these.
var (
	// ErrInvalidInput marks malformed or non-monotonic raw data. Never
	// silently corrected.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlignment marks a failed self-consistency check after computation.
	// It indicates upstream data corruption, not a condition to retry past.
	ErrAlignment = errors.New("alignment failure")

	// ErrInvalidArgument marks an unrecognized configuration value passed by
	// the caller. Raised before any data is processed.
	ErrInvalidArgument = errors.New("invalid argument")
)
