package schema

import "errors"

// Common errors for schema operations. All of them are local, recoverable
// errors surfaced to the caller; the engine never retries internally.
var (
	// ErrDuplicateName is returned when a column is added with a name that
	// collides with an active top-level field.
	ErrDuplicateName = errors.New("duplicate column name")

	// ErrUnknownColumn is returned when a lookup or drop names a column
	// that is not currently active.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidPath is returned when a projection path does not resolve
	// to an existing node.
	ErrInvalidPath = errors.New("invalid projection path")

	// ErrTypeMismatch is returned when a supplied type tree cannot be
	// matched against the original schema node at the same location.
	ErrTypeMismatch = errors.New("type mismatch")
)
