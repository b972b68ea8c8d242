package dispatch

import "errors"

var (
	// ErrInvalidArgument covers zero/negative round-robin moduli, empty
	// user ids and other caller mistakes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned by lookups on unknown ids. Handlers map it
	// to success=false rather than an error status.
	ErrNotFound = errors.New("not found")

	// ErrCapacityConflict signals that the capacity an assignment relied
	// on is gone, or that a session is no longer in an assignable state.
	// The assigner handles it locally: the reservation is released and
	// the session keeps its queue position.
	ErrCapacityConflict = errors.New("capacity conflict")
)
