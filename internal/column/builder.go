package column

// Builder accumulates leaf values for one physical column and finalizes
// them into an immutable Column. Builders are not safe for concurrent use;
// one builder belongs to one writer goroutine.
type Builder[T any] struct {
	values []T
	valid  []uint64
	nulls  int
}

// NewBuilder creates a builder with room for capacity rows.
func NewBuilder[T any](capacity int) *Builder[T] {
	return &Builder[T]{
		values: make([]T, 0, capacity),
		valid:  make([]uint64, 0, (capacity+63)/64),
	}
}

// AppendValue appends a present value.
func (b *Builder[T]) AppendValue(v T) {
	b.setBit(len(b.values), true)
	b.values = append(b.values, v)
}

// AppendNull appends a null row.
func (b *Builder[T]) AppendNull() {
	b.setBit(len(b.values), false)
	var zero T
	b.values = append(b.values, zero)
	b.nulls++
}

// AppendOption appends a value or a null: nil dispatches to AppendNull,
// anything else to AppendValue.
func (b *Builder[T]) AppendOption(v *T) {
	if v == nil {
		b.AppendNull()
		return
	}
	b.AppendValue(*v)
}

// Len returns the number of rows appended so far.
func (b *Builder[T]) Len() int { return len(b.values) }

// Finish seals the accumulated rows into an immutable column and resets
// the builder for reuse. A column without nulls drops its validity bitmap.
func (b *Builder[T]) Finish() *Column[T] {
	col := &Column[T]{values: b.values, nulls: b.nulls}
	if b.nulls > 0 {
		col.valid = b.valid
	}
	b.values = nil
	b.valid = nil
	b.nulls = 0
	return col
}

func (b *Builder[T]) setBit(i int, set bool) {
	word := i >> 6
	for len(b.valid) <= word {
		b.valid = append(b.valid, 0)
	}
	if set {
		b.valid[word] |= 1 << (uint(i) & 63)
	} else {
		b.valid[word] &^= 1 << (uint(i) & 63)
	}
}
