package column

import (
	"fmt"

	"github.com/stratumdb/stratum/internal/schema"
)

// Sealed is the kind-erased view of a finalized column handed back to the
// physical writer.
type Sealed interface {
	Len() int
	NullCount() int
	IsNull(i int) bool
}

// Appender is the kind-erased builder surface the physical writer drives
// for one leaf column while decomposing row values. Values are loosely
// typed because the writer walks heterogeneous leaves; the concrete
// builder checks the dynamic type.
type Appender interface {
	// Append appends a present value of the leaf's scalar kind.
	Append(v any) error

	// AppendNull appends a null row; only nullable leaves accept it.
	AppendNull() error

	// AppendOption appends a value, or a null when v is nil.
	AppendOption(v any) error

	// Len returns the number of rows appended so far.
	Len() int

	// Finish seals the accumulated rows into an immutable column.
	Finish() Sealed
}

type appender[T any] struct {
	b        *Builder[T]
	nullable bool
}

func (a *appender[T]) Append(v any) error {
	tv, ok := v.(T)
	if !ok {
		return fmt.Errorf("%w: got %T", ErrValueType, v)
	}
	a.b.AppendValue(tv)
	return nil
}

func (a *appender[T]) AppendNull() error {
	if !a.nullable {
		return ErrNotNullable
	}
	a.b.AppendNull()
	return nil
}

func (a *appender[T]) AppendOption(v any) error {
	if v == nil {
		return a.AppendNull()
	}
	return a.Append(v)
}

func (a *appender[T]) Len() int { return a.b.Len() }

func (a *appender[T]) Finish() Sealed { return a.b.Finish() }

// ForLeaf returns a fresh appender for one leaf field as enumerated by
// Schema.LeafFields. A leaf wrapped in a nullable routes nulls through the
// validity bitmap; any other composite type is rejected with ErrNotLeaf.
func ForLeaf(f schema.Field, capacity int) (Appender, error) {
	leaf := &f.Type
	nullable := false
	if leaf.Kind == schema.KindNullable {
		nullable = true
		leaf = leaf.Inner
	}
	if !leaf.IsLeaf() {
		return nil, fmt.Errorf("%w: %q has type %s", ErrNotLeaf, f.Name, f.Type.String())
	}

	switch leaf.Kind {
	case schema.KindBoolean:
		return &appender[bool]{b: NewBuilder[bool](capacity), nullable: nullable}, nil
	case schema.KindString:
		return &appender[string]{b: NewBuilder[string](capacity), nullable: nullable}, nil
	case schema.KindNumber:
		switch leaf.Number {
		case schema.NumberInt8:
			return &appender[int8]{b: NewBuilder[int8](capacity), nullable: nullable}, nil
		case schema.NumberInt16:
			return &appender[int16]{b: NewBuilder[int16](capacity), nullable: nullable}, nil
		case schema.NumberInt32:
			return &appender[int32]{b: NewBuilder[int32](capacity), nullable: nullable}, nil
		case schema.NumberInt64:
			return &appender[int64]{b: NewBuilder[int64](capacity), nullable: nullable}, nil
		case schema.NumberUInt8:
			return &appender[uint8]{b: NewBuilder[uint8](capacity), nullable: nullable}, nil
		case schema.NumberUInt16:
			return &appender[uint16]{b: NewBuilder[uint16](capacity), nullable: nullable}, nil
		case schema.NumberUInt32:
			return &appender[uint32]{b: NewBuilder[uint32](capacity), nullable: nullable}, nil
		case schema.NumberUInt64:
			return &appender[uint64]{b: NewBuilder[uint64](capacity), nullable: nullable}, nil
		case schema.NumberFloat32:
			return &appender[float32]{b: NewBuilder[float32](capacity), nullable: nullable}, nil
		case schema.NumberFloat64:
			return &appender[float64]{b: NewBuilder[float64](capacity), nullable: nullable}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q has type %s", ErrNotLeaf, f.Name, f.Type.String())
}
