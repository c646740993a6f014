package shm

import "errors"

// Allocation errors returned by Pool.TryAllocate. Loan propagates them to
// the caller unchanged; retry policy is the caller's business.
var (
	// ErrRunningOutOfChunks means every chunk class large enough for the
	// request is currently exhausted.
	ErrRunningOutOfChunks = errors.New("running out of chunks")
	// ErrChunkTooLarge means no chunk class can ever satisfy the request.
	ErrChunkTooLarge = errors.New("requested size exceeds every chunk class")
)

// Pool construction errors.
var (
	ErrInvalidLayout   = errors.New("invalid pool layout")
	ErrSegmentTooSmall = errors.New("segment too small for pool layout")
)
