// Package schema implements the logical table schema engine: it maps nested
// logical table definitions onto a flat space of stable integer column ids
// that index physical leaf columns, and keeps that mapping valid across
// schema evolution (add/drop column) and nested-column projection.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TypeKind identifies a DataType variant. The set is closed: leaf scalar
// kinds (Boolean, String, Number) and composite kinds (Nullable, Array,
// Map, Tuple).
type TypeKind uint8

const (
	KindBoolean TypeKind = iota + 1
	KindString
	KindNumber
	KindNullable
	KindArray
	KindMap
	KindTuple
)

var typeKindNames = map[TypeKind]string{
	KindBoolean:  "boolean",
	KindString:   "string",
	KindNumber:   "number",
	KindNullable: "nullable",
	KindArray:    "array",
	KindMap:      "map",
	KindTuple:    "tuple",
}

// String returns the lowercase name used in the persisted representation.
func (k TypeKind) String() string {
	if name, ok := typeKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("typekind(%d)", uint8(k))
}

// MarshalJSON encodes the kind as its lowercase name.
func (k TypeKind) MarshalJSON() ([]byte, error) {
	name, ok := typeKindNames[k]
	if !ok {
		return nil, fmt.Errorf("schema: cannot marshal unknown type kind %d", uint8(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a lowercase kind name.
func (k *TypeKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, kn := range typeKindNames {
		if kn == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("schema: unknown type kind %q", name)
}

// NumberKind identifies the width and signedness of a Number leaf.
type NumberKind uint8

const (
	NumberInt8 NumberKind = iota + 1
	NumberInt16
	NumberInt32
	NumberInt64
	NumberUInt8
	NumberUInt16
	NumberUInt32
	NumberUInt64
	NumberFloat32
	NumberFloat64
)

var numberKindNames = map[NumberKind]string{
	NumberInt8:    "int8",
	NumberInt16:   "int16",
	NumberInt32:   "int32",
	NumberInt64:   "int64",
	NumberUInt8:   "uint8",
	NumberUInt16:  "uint16",
	NumberUInt32:  "uint32",
	NumberUInt64:  "uint64",
	NumberFloat32: "float32",
	NumberFloat64: "float64",
}

// String returns the lowercase name used in the persisted representation.
func (k NumberKind) String() string {
	if name, ok := numberKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("numberkind(%d)", uint8(k))
}

// MarshalJSON encodes the number kind as its lowercase name.
func (k NumberKind) MarshalJSON() ([]byte, error) {
	name, ok := numberKindNames[k]
	if !ok {
		return nil, fmt.Errorf("schema: cannot marshal unknown number kind %d", uint8(k))
	}
	return json.Marshal(name)
}

// UnmarshalJSON decodes a lowercase number kind name.
func (k *NumberKind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for kind, kn := range numberKindNames {
		if kn == name {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("schema: unknown number kind %q", name)
}

// DataType is a recursive description of a logical column type.
//
// The variant set is closed, so code operating on DataType switches
// exhaustively on Kind rather than relying on dynamic dispatch. Values are
// treated as immutable once they enter a Schema; they may be shared freely
// between schema versions and projections.
type DataType struct {
	Kind TypeKind `json:"kind"`

	// Number is set when Kind is KindNumber.
	Number NumberKind `json:"number,omitempty"`

	// Inner is the single child of Nullable, Array and Map types: the
	// wrapped type, the element type or the key/value entry type.
	Inner *DataType `json:"inner,omitempty"`

	// MemberNames and MemberTypes describe Tuple members. They have equal
	// length and are positionally aligned; names are unique per level only.
	MemberNames []string   `json:"member_names,omitempty"`
	MemberTypes []DataType `json:"member_types,omitempty"`
}

// BooleanType returns the Boolean leaf type.
func BooleanType() DataType { return DataType{Kind: KindBoolean} }

// StringType returns the String leaf type.
func StringType() DataType { return DataType{Kind: KindString} }

// NumberType returns a Number leaf type of the given kind.
func NumberType(k NumberKind) DataType { return DataType{Kind: KindNumber, Number: k} }

// NullableType wraps inner in a nullable wrapper.
func NullableType(inner DataType) DataType {
	return DataType{Kind: KindNullable, Inner: &inner}
}

// ArrayType returns an array of the given element type.
func ArrayType(element DataType) DataType {
	return DataType{Kind: KindArray, Inner: &element}
}

// MapType returns a map whose entries have the given type, conventionally a
// tuple of key and value.
func MapType(entry DataType) DataType {
	return DataType{Kind: KindMap, Inner: &entry}
}

// TupleType returns a named tuple. Names and types must be equal length;
// this is validated when the type is admitted into a Schema.
func TupleType(names []string, types []DataType) DataType {
	return DataType{Kind: KindTuple, MemberNames: names, MemberTypes: types}
}

// IsLeaf reports whether the type is a primitive scalar with no children.
// Leaves are the only nodes stored as physical columns.
func (t *DataType) IsLeaf() bool {
	switch t.Kind {
	case KindBoolean, KindString, KindNumber:
		return true
	}
	return false
}

// ForEachNode visits every node of the type tree in pre-order: the node
// itself first, then its children left to right. Nullable, Array and Map
// contribute exactly one child; Tuple contributes one child per member in
// declared order.
//
// This order is load-bearing: column-id assignment and the derived id
// sequences are defined in terms of it, and it must stay reproducible for
// on-disk compatibility.
func (t *DataType) ForEachNode(visit func(*DataType)) {
	visit(t)
	switch t.Kind {
	case KindNullable, KindArray, KindMap:
		t.Inner.ForEachNode(visit)
	case KindTuple:
		for i := range t.MemberTypes {
			t.MemberTypes[i].ForEachNode(visit)
		}
	}
}

// NodeCount returns the number of nodes in the tree, leaves and composites.
func (t *DataType) NodeCount() int {
	n := 0
	t.ForEachNode(func(*DataType) { n++ })
	return n
}

// LeafCount returns the number of leaf nodes in the tree, which equals the
// number of physical columns the type occupies.
func (t *DataType) LeafCount() int {
	n := 0
	t.ForEachNode(func(node *DataType) {
		if node.IsLeaf() {
			n++
		}
	})
	return n
}

// Equal reports deep structural equality.
func (t *DataType) Equal(other *DataType) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case KindNumber:
		return t.Number == other.Number
	case KindNullable, KindArray, KindMap:
		return t.Inner.Equal(other.Inner)
	case KindTuple:
		if len(t.MemberTypes) != len(other.MemberTypes) {
			return false
		}
		for i := range t.MemberTypes {
			if t.MemberNames[i] != other.MemberNames[i] {
				return false
			}
			if !t.MemberTypes[i].Equal(&other.MemberTypes[i]) {
				return false
			}
		}
		return true
	}
	return true
}

// Validate checks the structural invariants of the tree: tuple member names
// and types are aligned and unique per level, composite children are
// present, and every subtree contains at least one leaf. Types that fail
// validation cannot be admitted into a Schema because a leafless subtree
// has no column id to borrow.
func (t *DataType) Validate() error {
	switch t.Kind {
	case KindBoolean, KindString:
		return nil
	case KindNumber:
		if _, ok := numberKindNames[t.Number]; !ok {
			return fmt.Errorf("%w: number type missing a number kind", ErrTypeMismatch)
		}
		return nil
	case KindNullable, KindArray, KindMap:
		if t.Inner == nil {
			return fmt.Errorf("%w: %s type missing inner type", ErrTypeMismatch, t.Kind)
		}
		return t.Inner.Validate()
	case KindTuple:
		if len(t.MemberNames) != len(t.MemberTypes) {
			return fmt.Errorf("%w: tuple has %d names but %d types",
				ErrTypeMismatch, len(t.MemberNames), len(t.MemberTypes))
		}
		if len(t.MemberTypes) == 0 {
			return fmt.Errorf("%w: tuple must have at least one member", ErrTypeMismatch)
		}
		seen := make(map[string]struct{}, len(t.MemberNames))
		for i := range t.MemberTypes {
			if _, dup := seen[t.MemberNames[i]]; dup {
				return fmt.Errorf("%w: duplicate tuple member name %q", ErrTypeMismatch, t.MemberNames[i])
			}
			seen[t.MemberNames[i]] = struct{}{}
			if err := t.MemberTypes[i].Validate(); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("%w: unknown type kind %d", ErrTypeMismatch, uint8(t.Kind))
}

// String renders the type in a compact human-readable form, e.g.
// Tuple(b1 Tuple(b11 Boolean, b12 String), b2 Int64).
func (t *DataType) String() string {
	var b strings.Builder
	t.writeString(&b)
	return b.String()
}

func (t *DataType) writeString(b *strings.Builder) {
	switch t.Kind {
	case KindBoolean:
		b.WriteString("Boolean")
	case KindString:
		b.WriteString("String")
	case KindNumber:
		switch t.Number {
		case NumberFloat32, NumberFloat64:
			b.WriteString("Float")
			b.WriteString(t.Number.String()[len("float"):])
		case NumberUInt8, NumberUInt16, NumberUInt32, NumberUInt64:
			b.WriteString("UInt")
			b.WriteString(t.Number.String()[len("uint"):])
		default:
			b.WriteString("Int")
			b.WriteString(t.Number.String()[len("int"):])
		}
	case KindNullable:
		b.WriteString("Nullable(")
		t.Inner.writeString(b)
		b.WriteByte(')')
	case KindArray:
		b.WriteString("Array(")
		t.Inner.writeString(b)
		b.WriteByte(')')
	case KindMap:
		b.WriteString("Map(")
		t.Inner.writeString(b)
		b.WriteByte(')')
	case KindTuple:
		b.WriteString("Tuple(")
		for i := range t.MemberTypes {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(t.MemberNames[i])
			b.WriteByte(' ')
			t.MemberTypes[i].writeString(b)
		}
		b.WriteByte(')')
	default:
		fmt.Fprintf(b, "Unknown(%d)", uint8(t.Kind))
	}
}
