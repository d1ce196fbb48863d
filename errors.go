package vp9lf

import "errors"

// Errors returned by the filter. Call sites wrap them with details; use
// errors.Is to test for them.
var (
	// ErrInvalidParameter indicates a sharpness, level, delta, segment or
	// geometry argument outside its documented range.
	ErrInvalidParameter = errors.New("vp9lf: invalid parameter")

	// ErrInconsistentState indicates an operation attempted out of the
	// Uninitialized → TablesBuilt → LevelsResolved → Filtering → Done order,
	// such as applying a plan twice or after its tables were rebuilt.
	ErrInconsistentState = errors.New("vp9lf: inconsistent state")

	// ErrInvalidHeader indicates a malformed or truncated VP9 frame header.
	ErrInvalidHeader = errors.New("vp9lf: invalid frame header")
)
