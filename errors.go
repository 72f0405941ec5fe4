package cowtarget

import "errors"

// Error taxonomy, per spec.md §7. Each sentinel is returned (optionally
// wrapped with fmt.Errorf("%w: ...") for context) so callers can classify
// a failure with errors.Is without parsing a message string.
var (
	// ErrInvalidArgument covers activation with the wrong argument count
	// or an oversized target.
	ErrInvalidArgument = errors.New("cowtarget: invalid argument")

	// ErrResourceExhaustion covers allocation failures at activation
	// (memory, worker pool, sync-I/O client, job pool) or an empty job
	// pool observed by the mapper while handling one request.
	ErrResourceExhaustion = errors.New("cowtarget: resource exhaustion")

	// ErrIO covers any failed synchronous read or write to origin or cow.
	ErrIO = errors.New("cowtarget: I/O error")

	// ErrOutOfBounds covers a request sector outside the target's range,
	// or a bitmap metadata sector index outside the reserved region.
	ErrOutOfBounds = errors.New("cowtarget: out of bounds")
)
