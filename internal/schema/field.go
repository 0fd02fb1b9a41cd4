package schema

// ColumnID is a storage-stable integer identifying one physical leaf column
// or a composite node's representative leaf. Ids survive schema evolution:
// once assigned they are never reassigned, even after the owning column is
// dropped.
type ColumnID uint32

// Field is a named column: a name paired with a type tree and the
// representative column id of the tree's root. For a composite root the
// representative id equals the id of the leftmost leaf in the subtree;
// composite nodes never consume an id of their own.
type Field struct {
	Name     string   `json:"name"`
	Type     DataType `json:"type"`
	ColumnID ColumnID `json:"column_id"`

	// nodeIDs overrides the derived per-node ids for fields produced by
	// explicit-field projection, where a pruned tuple can leave holes that
	// the contiguous derivation cannot represent.
	nodeIDs []ColumnID
}

// NewField creates a field that has not yet been admitted into a schema.
// Its column id is assigned when the field is added.
func NewField(name string, typ DataType) Field {
	return Field{Name: name, Type: typ}
}

// NewFieldWithColumnID creates a field with an explicit representative
// column id, as recorded in persisted schema metadata.
func NewFieldWithColumnID(name string, typ DataType, id ColumnID) Field {
	return Field{Name: name, Type: typ, ColumnID: id}
}

// NodeIDs returns the column id of every node of the field's type tree in
// pre-order, one entry per node. Each leaf carries its own id; each
// composite node repeats the id of its leftmost leaf descendant, so a
// composite's borrowed id appears once per composite ancestor sharing that
// first leaf. The physical read path uses the repeated ids to locate tree
// branch points in the flat column list.
func (f *Field) NodeIDs() []ColumnID {
	if f.nodeIDs != nil {
		out := make([]ColumnID, len(f.nodeIDs))
		copy(out, f.nodeIDs)
		return out
	}
	ids := make([]ColumnID, 0, f.Type.NodeCount())
	next := f.ColumnID
	var walk func(t *DataType)
	walk = func(t *DataType) {
		// A composite visited here records the id its first leaf is about
		// to receive, which is exactly the borrowing rule.
		ids = append(ids, next)
		if t.IsLeaf() {
			next++
			return
		}
		switch t.Kind {
		case KindNullable, KindArray, KindMap:
			walk(t.Inner)
		case KindTuple:
			for i := range t.MemberTypes {
				walk(&t.MemberTypes[i])
			}
		}
	}
	walk(&f.Type)
	return ids
}

// LeafIDs returns the ids of the field's leaf nodes only, in pre-order.
// The result is a strict subsequence of NodeIDs with no duplicates and is
// the list of physical columns the field occupies on storage.
func (f *Field) LeafIDs() []ColumnID {
	node := f.NodeIDs()
	leaves := make([]ColumnID, 0, f.Type.LeafCount())
	i := 0
	var walk func(t *DataType)
	walk = func(t *DataType) {
		id := node[i]
		i++
		if t.IsLeaf() {
			leaves = append(leaves, id)
			return
		}
		switch t.Kind {
		case KindNullable, KindArray, KindMap:
			walk(t.Inner)
		case KindTuple:
			for j := range t.MemberTypes {
				walk(&t.MemberTypes[j])
			}
		}
	}
	walk(&f.Type)
	return leaves
}

// Equal reports whether two fields have the same name, type and
// representative column id.
func (f *Field) Equal(other *Field) bool {
	return f.Name == other.Name &&
		f.ColumnID == other.ColumnID &&
		f.Type.Equal(&other.Type)
}
