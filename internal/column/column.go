// Package column provides the column builder abstraction consumed while
// materializing leaf values into physical columns: append a present value,
// append a null, finalize into an immutable column, parameterized by the
// leaf scalar kind.
package column

import "errors"

// Common errors for column building.
var (
	// ErrValueType is returned when an appended value has the wrong
	// dynamic type for the builder's scalar kind.
	ErrValueType = errors.New("value type mismatch")

	// ErrNotNullable is returned when a null is appended to a builder for
	// a non-nullable leaf.
	ErrNotNullable = errors.New("column is not nullable")

	// ErrNotLeaf is returned when a builder is requested for a field whose
	// type is not a leaf scalar.
	ErrNotLeaf = errors.New("field is not a leaf column")
)

// Column is an immutable finalized column of values with an optional
// validity bitmap. A nil bitmap means every row is valid.
type Column[T any] struct {
	values []T
	valid  []uint64
	nulls  int
}

// Len returns the number of rows.
func (c *Column[T]) Len() int { return len(c.values) }

// NullCount returns the number of null rows.
func (c *Column[T]) NullCount() int { return c.nulls }

// IsNull reports whether row i is null.
func (c *Column[T]) IsNull(i int) bool {
	if c.valid == nil {
		return false
	}
	return c.valid[i>>6]&(1<<(uint(i)&63)) == 0
}

// Value returns the value at row i and whether it is present.
func (c *Column[T]) Value(i int) (T, bool) {
	if c.IsNull(i) {
		var zero T
		return zero, false
	}
	return c.values[i], true
}

// Values returns the backing value slice, including zero values at null
// rows. Callers must not modify it.
func (c *Column[T]) Values() []T { return c.values }

// NewFromSlice creates a non-nullable column from values.
func NewFromSlice[T any](values []T) *Column[T] {
	b := NewBuilder[T](len(values))
	for _, v := range values {
		b.AppendValue(v)
	}
	return b.Finish()
}

// NewFromOptSlice creates a nullable column from optional values, with nil
// entries stored as nulls.
func NewFromOptSlice[T any](values []*T) *Column[T] {
	b := NewBuilder[T](len(values))
	for _, v := range values {
		b.AppendOption(v)
	}
	return b.Finish()
}
