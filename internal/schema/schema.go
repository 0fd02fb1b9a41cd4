package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Schema is one version of a table's logical schema: an ordered collection
// of active fields, a monotonically increasing column-id counter and a
// tombstone record of columns removed by past drops.
//
// A Schema is an immutable value snapshot once published. Any number of
// readers may traverse it and derive id sequences concurrently without
// synchronization; AddColumns and DropColumn return a new version and leave
// the receiver untouched. Serializing mutations against each other is the
// business of the surrounding DDL layer.
type Schema struct {
	fields       []Field
	nextColumnID ColumnID

	// tombstones maps every node id of every dropped field to the retired
	// field. Each schema version carries its own complete tombstone set so
	// historical id queries keep working after the field is gone.
	tombstones map[ColumnID]Field
}

// New creates a schema from an initial field list, assigning column ids
// starting at zero. Each leaf node receives the next unused id in
// pre-order; each composite node borrows the id of its leftmost leaf.
// Returns ErrDuplicateName if two fields share a name.
func New(fields []Field) (*Schema, error) {
	s := &Schema{tombstones: make(map[ColumnID]Field)}
	if err := s.admit(fields); err != nil {
		return nil, err
	}
	return s, nil
}

// admit validates newFields against the active field set and appends them,
// assigning fresh ids from nextColumnID. The receiver must be a private
// copy: admit either fully applies or leaves it untouched.
func (s *Schema) admit(newFields []Field) error {
	active := make(map[string]struct{}, len(s.fields)+len(newFields))
	for i := range s.fields {
		active[s.fields[i].Name] = struct{}{}
	}
	for i := range newFields {
		if _, dup := active[newFields[i].Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, newFields[i].Name)
		}
		active[newFields[i].Name] = struct{}{}
		if err := newFields[i].Type.Validate(); err != nil {
			return fmt.Errorf("column %q: %w", newFields[i].Name, err)
		}
	}
	for i := range newFields {
		f := newFields[i]
		f.ColumnID = s.nextColumnID
		f.nodeIDs = nil
		s.nextColumnID += ColumnID(f.Type.LeafCount())
		s.fields = append(s.fields, f)
	}
	return nil
}

// clone returns a private mutable copy sharing the immutable field types.
func (s *Schema) clone() *Schema {
	c := &Schema{
		fields:       make([]Field, len(s.fields)),
		nextColumnID: s.nextColumnID,
		tombstones:   make(map[ColumnID]Field, len(s.tombstones)),
	}
	copy(c.fields, s.fields)
	for id, f := range s.tombstones {
		c.tombstones[id] = f
	}
	return c
}

// derived returns a read-only projection result sharing this schema's id
// space and tombstone set. Projection never renumbers, so next stays put.
func (s *Schema) derived(fields []Field) *Schema {
	return &Schema{
		fields:       fields,
		nextColumnID: s.nextColumnID,
		tombstones:   s.tombstones,
	}
}

// AddColumns returns a new schema version with newFields appended. Ids for
// the new fields are assigned from the live counter, so a re-added column
// never reuses ids retired by an earlier drop. Returns ErrDuplicateName if
// any new field collides with an active field.
func (s *Schema) AddColumns(newFields []Field) (*Schema, error) {
	c := s.clone()
	if err := c.admit(newFields); err != nil {
		return nil, err
	}
	return c, nil
}

// DropColumn returns a new schema version without the named top-level
// field. The field moves into the tombstone record keyed by every id in
// its node id sequence; the id counter and all other fields' ids are
// untouched. Returns ErrUnknownColumn if no active field has that name.
func (s *Schema) DropColumn(name string) (*Schema, error) {
	idx := s.indexOf(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	c := s.clone()
	dropped := c.fields[idx]
	c.fields = append(c.fields[:idx:idx], c.fields[idx+1:]...)
	for _, id := range dropped.NodeIDs() {
		c.tombstones[id] = dropped
	}
	return c, nil
}

func (s *Schema) indexOf(name string) int {
	for i := range s.fields {
		if s.fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Fields returns the active fields in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// NumFields returns the number of active fields.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the active field at position i.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// FieldByName returns the active top-level field with the given name.
// Returns ErrUnknownColumn if absent or previously dropped.
func (s *Schema) FieldByName(name string) (Field, error) {
	idx := s.indexOf(name)
	if idx < 0 {
		return Field{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return s.fields[idx], nil
}

// NextColumnID returns the id that the next admitted leaf would receive.
// It is metadata about the id space, not about which fields are present:
// drops and projections leave it unchanged.
func (s *Schema) NextColumnID() ColumnID { return s.nextColumnID }

// ColumnIDOf returns the representative column id of the named active
// field. Dropped names are not found: a drop is not reversible by re-add,
// and a later AddColumns with the same name carries brand-new ids.
func (s *Schema) ColumnIDOf(name string) (ColumnID, error) {
	f, err := s.FieldByName(name)
	if err != nil {
		return 0, err
	}
	return f.ColumnID, nil
}

// IsColumnDeleted reports whether id was assigned at some point and is no
// longer reachable from any active field. An id shared between an active
// field and a historically dropped composite through the borrowing rule is
// not deleted.
func (s *Schema) IsColumnDeleted(id ColumnID) bool {
	if _, ok := s.tombstones[id]; !ok {
		return false
	}
	for i := range s.fields {
		for _, nid := range s.fields[i].NodeIDs() {
			if nid == id {
				return false
			}
		}
	}
	return true
}

// ToColumnIDs returns NodeIDs of every active field concatenated in
// declaration order. The repeated composite ids mark tree branch points;
// the physical layer uses them to reconstruct nested values from flat leaf
// columns.
func (s *Schema) ToColumnIDs() []ColumnID {
	var ids []ColumnID
	for i := range s.fields {
		ids = append(ids, s.fields[i].NodeIDs()...)
	}
	return ids
}

// ToLeafColumnIDs returns LeafIDs of every active field concatenated in
// declaration order: the physical list of columns that must exist on
// storage for this schema version.
func (s *Schema) ToLeafColumnIDs() []ColumnID {
	var ids []ColumnID
	for i := range s.fields {
		ids = append(ids, s.fields[i].LeafIDs()...)
	}
	return ids
}

// FieldColumnIDs returns the per-field node id sequences in declaration
// order.
func (s *Schema) FieldColumnIDs() [][]ColumnID {
	out := make([][]ColumnID, len(s.fields))
	for i := range s.fields {
		out[i] = s.fields[i].NodeIDs()
	}
	return out
}

// LeafFields enumerates the leaf columns of every active field in
// pre-order, returning their ids and synthesized fields.
//
// Names are local per level: descending into a tuple resets the name to
// the bare member name, array and map children append ":0" to the parent
// name, and a nullable wrapper is name-transparent. A leaf sitting
// directly under a nullable wrapper keeps the wrapper in its type so the
// column-building layer routes it through optional append. Path-index
// projection uses a different, root-qualified naming convention; the two
// are deliberately not unified.
func (s *Schema) LeafFields() ([]ColumnID, []Field) {
	var ids []ColumnID
	var leaves []Field
	for i := range s.fields {
		f := &s.fields[i]
		node := f.NodeIDs()
		pos := 0
		var walk func(name string, t *DataType, nullable bool)
		walk = func(name string, t *DataType, nullable bool) {
			id := node[pos]
			pos++
			switch t.Kind {
			case KindNullable:
				walk(name, t.Inner, true)
			case KindArray, KindMap:
				walk(name+":0", t.Inner, false)
			case KindTuple:
				for j := range t.MemberTypes {
					walk(t.MemberNames[j], &t.MemberTypes[j], false)
				}
			default:
				leafType := *t
				if nullable {
					leafType = NullableType(leafType)
				}
				ids = append(ids, id)
				leaves = append(leaves, NewFieldWithColumnID(name, leafType, id))
			}
		}
		walk(f.Name, &f.Type, false)
	}
	return ids, leaves
}

// schemaJSON is the persisted representation: ordered field list, the id
// counter and the tombstone set, which together are enough to answer
// historical id queries against old data files.
type schemaJSON struct {
	Fields       []Field         `json:"fields"`
	NextColumnID ColumnID        `json:"next_column_id"`
	Tombstones   []tombstoneJSON `json:"tombstones,omitempty"`
}

type tombstoneJSON struct {
	ColumnID ColumnID `json:"column_id"`
	Field    Field    `json:"field"`
}

// MarshalJSON encodes the schema deterministically: fields in declaration
// order, tombstones sorted by column id. Determinism matters because the
// catalog fingerprints the encoding for version dedupe.
func (s *Schema) MarshalJSON() ([]byte, error) {
	enc := schemaJSON{
		Fields:       s.fields,
		NextColumnID: s.nextColumnID,
	}
	if len(s.tombstones) > 0 {
		enc.Tombstones = make([]tombstoneJSON, 0, len(s.tombstones))
		for id, f := range s.tombstones {
			enc.Tombstones = append(enc.Tombstones, tombstoneJSON{ColumnID: id, Field: f})
		}
		sort.Slice(enc.Tombstones, func(i, j int) bool {
			return enc.Tombstones[i].ColumnID < enc.Tombstones[j].ColumnID
		})
	}
	return json.Marshal(enc)
}

// UnmarshalJSON decodes a persisted schema, restoring the field list, the
// id counter and the tombstone set exactly as written.
func (s *Schema) UnmarshalJSON(data []byte) error {
	var dec schemaJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	s.fields = dec.Fields
	s.nextColumnID = dec.NextColumnID
	s.tombstones = make(map[ColumnID]Field, len(dec.Tombstones))
	for _, t := range dec.Tombstones {
		s.tombstones[t.ColumnID] = t.Field
	}
	return nil
}
