package schema

import (
	"fmt"
	"sort"
	"strconv"
)

// InnerProject derives a read-only sub-schema from structural descent
// paths, used by the query layer to push nested-field pruning down to the
// physical reader.
//
// pathIndices maps an output position to a path: the first index selects a
// top-level field by position, each further index descends into a
// composite child (tuple member index, or 0 for the single child of a
// nullable, array or map). Resulting fields appear in output position
// order and keep the original column ids of the nodes they denote; the
// result's NextColumnID equals the source's.
//
// Names of nested results are the colon-joined chain of names met while
// descending: tuple members contribute their member name, array and map
// children contribute "0", nullable wrappers contribute nothing. A path of
// length one keeps the field's own name.
func (s *Schema) InnerProject(pathIndices map[int][]int) (*Schema, error) {
	positions := make([]int, 0, len(pathIndices))
	for pos := range pathIndices {
		positions = append(positions, pos)
	}
	sort.Ints(positions)

	fields := make([]Field, 0, len(positions))
	for _, pos := range positions {
		f, err := s.fieldAtPath(pathIndices[pos])
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return s.derived(fields), nil
}

// fieldAtPath resolves one descent path to a field carrying the qualified
// name, the sub-type and the original id of the reached node. Ids inside a
// field are contiguous in pre-order, so the id of a tuple member is the
// parent's id advanced past the leaves of the preceding siblings.
func (s *Schema) fieldAtPath(path []int) (Field, error) {
	if len(path) == 0 {
		return Field{}, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if path[0] < 0 || path[0] >= len(s.fields) {
		return Field{}, fmt.Errorf("%w: field index %d out of range [0,%d)",
			ErrInvalidPath, path[0], len(s.fields))
	}
	top := &s.fields[path[0]]
	name := top.Name
	cur := &top.Type
	id := top.ColumnID

	for depth, idx := range path[1:] {
		switch cur.Kind {
		case KindNullable:
			if idx != 0 {
				return Field{}, fmt.Errorf("%w: index %d into nullable at %q", ErrInvalidPath, idx, name)
			}
			cur = cur.Inner
		case KindArray, KindMap:
			if idx != 0 {
				return Field{}, fmt.Errorf("%w: index %d into %s at %q", ErrInvalidPath, idx, cur.Kind, name)
			}
			name += ":" + strconv.Itoa(idx)
			cur = cur.Inner
		case KindTuple:
			if idx < 0 || idx >= len(cur.MemberTypes) {
				return Field{}, fmt.Errorf("%w: member index %d out of range in tuple %q", ErrInvalidPath, idx, name)
			}
			for j := 0; j < idx; j++ {
				id += ColumnID(cur.MemberTypes[j].LeafCount())
			}
			name += ":" + cur.MemberNames[idx]
			cur = &cur.MemberTypes[idx]
		default:
			return Field{}, fmt.Errorf("%w: path descends below leaf %q at depth %d", ErrInvalidPath, name, depth+1)
		}
	}
	return NewFieldWithColumnID(name, *cur, id), nil
}

// flatNode is one entry of the flattened pre-order node list that
// ToColumnIDs enumerates, pairing the node's type with its id.
type flatNode struct {
	typ *DataType
	id  ColumnID
}

func (s *Schema) flattenNodes() []flatNode {
	var flat []flatNode
	for i := range s.fields {
		f := &s.fields[i]
		node := f.NodeIDs()
		pos := 0
		var walk func(t *DataType)
		walk = func(t *DataType) {
			flat = append(flat, flatNode{typ: t, id: node[pos]})
			pos++
			if t.IsLeaf() {
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
	}
	return flat
}

// ProjectByFields derives a read-only sub-schema from caller-supplied
// pruned field definitions, used when the narrowed type shape has already
// been computed by type inference elsewhere (e.g. array-of-struct element
// pruning).
//
// projected maps a flattened node offset — an index into the ToColumnIDs
// sequence — to a field describing the pruned type of the node at that
// offset. Each resulting field keeps the original id of that node, and its
// per-node ids are resolved by matching the supplied tree against the
// original node structurally, so pruning interior tuple members leaves the
// surviving members' storage ids intact. Supplied names are kept verbatim.
func (s *Schema) ProjectByFields(projected map[int]Field) (*Schema, error) {
	flat := s.flattenNodes()
	offsets := make([]int, 0, len(projected))
	for off := range projected {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	fields := make([]Field, 0, len(offsets))
	for _, off := range offsets {
		if off < 0 || off >= len(flat) {
			return nil, fmt.Errorf("%w: node offset %d out of range [0,%d)", ErrInvalidPath, off, len(flat))
		}
		pf := projected[off]
		ids, err := resolveNodeIDs(&pf.Type, flat[off].typ, flat[off].id)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", pf.Name, err)
		}
		fields = append(fields, Field{
			Name:     pf.Name,
			Type:     pf.Type,
			ColumnID: flat[off].id,
			nodeIDs:  ids,
		})
	}
	return s.derived(fields), nil
}

// resolveNodeIDs matches a pruned type tree against the original node it
// projects and returns the pruned tree's per-node ids. The pruned tree must
// have the same kind at every matched node; tuple members may be dropped
// but the survivors must appear in original order under their original
// names. A matched node inherits the original node's id: a composite keeps
// the id borrowed from the original leftmost leaf even when that member was
// pruned away, because on-disk reconstruction is keyed by the original
// assignment.
func resolveNodeIDs(pruned, orig *DataType, id ColumnID) ([]ColumnID, error) {
	var ids []ColumnID
	var match func(p, o *DataType, id ColumnID) error
	match = func(p, o *DataType, id ColumnID) error {
		if p.Kind != o.Kind {
			return fmt.Errorf("%w: supplied %s against stored %s", ErrTypeMismatch, p.Kind, o.Kind)
		}
		ids = append(ids, id)
		switch p.Kind {
		case KindBoolean, KindString:
			return nil
		case KindNumber:
			if p.Number != o.Number {
				return fmt.Errorf("%w: supplied %s against stored %s", ErrTypeMismatch, p.Number, o.Number)
			}
			return nil
		case KindNullable, KindArray, KindMap:
			return match(p.Inner, o.Inner, id)
		case KindTuple:
			next := 0
			for pi := range p.MemberTypes {
				oi := -1
				childID := id
				for j := next; j < len(o.MemberNames); j++ {
					if o.MemberNames[j] == p.MemberNames[pi] {
						oi = j
						break
					}
				}
				if oi < 0 {
					return fmt.Errorf("%w: tuple member %q not found", ErrTypeMismatch, p.MemberNames[pi])
				}
				for j := 0; j < oi; j++ {
					childID += ColumnID(o.MemberTypes[j].LeafCount())
				}
				if err := match(&p.MemberTypes[pi], &o.MemberTypes[oi], childID); err != nil {
					return err
				}
				next = oi + 1
			}
			return nil
		}
		return fmt.Errorf("%w: unknown type kind %d", ErrTypeMismatch, uint8(p.Kind))
	}
	if err := match(pruned, orig, id); err != nil {
		return nil, err
	}
	return ids, nil
}
