package nets

import "errors"

// Error kinds, every error returned by this package wraps one of them so callers can tell them apart with errors.Is.
// All of them are fatal, nothing in here retries
var (
	// ErrValidation is returned for bad topology or config values and for vectors with the wrong size
	ErrValidation = errors.New("validation error")
	// ErrHandle is returned when a nil or closed network (or one of its units) is used
	ErrHandle = errors.New("invalid handle")
	// ErrArgument is returned when the training data or options are missing or malformed
	ErrArgument = errors.New("invalid argument")
	// ErrSequencing is returned when the forward/backward protocol is not respected
	ErrSequencing = errors.New("sequencing error")
	// ErrTimeout is returned when a unit doesn't answer in time
	ErrTimeout = errors.New("unresponsive unit")
)
