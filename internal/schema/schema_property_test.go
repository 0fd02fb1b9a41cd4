package schema

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// randomType builds a random type tree with bounded depth. Every subtree
// contains at least one leaf, so the result always validates.
func randomType(r *rand.Rand, depth int) DataType {
	if depth <= 0 || r.Intn(3) == 0 {
		switch r.Intn(3) {
		case 0:
			return BooleanType()
		case 1:
			return StringType()
		default:
			return NumberType(NumberKind(r.Intn(10) + 1))
		}
	}
	switch r.Intn(4) {
	case 0:
		return NullableType(randomType(r, depth-1))
	case 1:
		return ArrayType(randomType(r, depth-1))
	case 2:
		return MapType(randomType(r, depth-1))
	default:
		n := r.Intn(3) + 1
		names := make([]string, n)
		types := make([]DataType, n)
		for i := 0; i < n; i++ {
			names[i] = fmt.Sprintf("m%d", i)
			types[i] = randomType(r, depth-1)
		}
		return TupleType(names, types)
	}
}

func randomFields(r *rand.Rand, count int, prefix string) []Field {
	fields := make([]Field, count)
	for i := 0; i < count; i++ {
		fields[i] = NewField(fmt.Sprintf("%s%d", prefix, i), randomType(r, 3))
	}
	return fields
}

// checkBorrowing verifies that every composite node's id equals the id of
// its own leftmost leaf descendant. Returns the subtree's first leaf id.
func checkBorrowing(t *DataType, ids []ColumnID, pos *int) (ColumnID, bool) {
	id := ids[*pos]
	*pos++
	if t.IsLeaf() {
		return id, true
	}
	var firstLeaf ColumnID
	first := true
	recurse := func(child *DataType) bool {
		leaf, ok := checkBorrowing(child, ids, pos)
		if !ok {
			return false
		}
		if first {
			firstLeaf = leaf
			first = false
		}
		return true
	}
	switch t.Kind {
	case KindNullable, KindArray, KindMap:
		if !recurse(t.Inner) {
			return 0, false
		}
	case KindTuple:
		for i := range t.MemberTypes {
			if !recurse(&t.MemberTypes[i]) {
				return 0, false
			}
		}
	}
	return firstLeaf, id == firstLeaf
}

// TestProperty_IDMonotonicity validates that across any sequence of add and
// drop operations the id counter never decreases and no id is ever handed
// to two different leaves.
func TestProperty_IDMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("ids are never reassigned across adds and drops", prop.ForAll(
		func(seed int64, initial, ops int) bool {
			r := rand.New(rand.NewSource(seed))
			s, err := New(randomFields(r, initial, "f"))
			if err != nil {
				return false
			}

			everAssigned := make(map[ColumnID]struct{})
			for _, id := range s.ToLeafColumnIDs() {
				everAssigned[id] = struct{}{}
			}

			for op := 0; op < ops; op++ {
				prevNext := s.NextColumnID()
				if r.Intn(2) == 0 && s.NumFields() > 0 {
					victim := s.Field(r.Intn(s.NumFields())).Name
					s, err = s.DropColumn(victim)
					if err != nil {
						return false
					}
				} else {
					added := randomFields(r, r.Intn(2)+1, fmt.Sprintf("g%d_", op))
					var next *Schema
					next, err = s.AddColumns(added)
					if err != nil {
						// Name collisions are possible when a generated name
						// repeats; they must leave the schema unchanged.
						if s.NextColumnID() != prevNext {
							return false
						}
						continue
					}
					s = next
					for _, f := range added {
						sf, err := s.FieldByName(f.Name)
						if err != nil {
							return false
						}
						for _, id := range sf.LeafIDs() {
							if _, clash := everAssigned[id]; clash {
								return false
							}
							everAssigned[id] = struct{}{}
						}
					}
				}
				if s.NextColumnID() < prevNext {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 4),
		gen.IntRange(1, 8),
	))

	properties.TestingRun(t)
}

// TestProperty_LeafUniqueness validates that active leaf ids are pairwise
// disjoint across fields and strictly increasing within a field.
func TestProperty_LeafUniqueness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("leaf ids are disjoint and strictly increasing", prop.ForAll(
		func(seed int64, count int) bool {
			r := rand.New(rand.NewSource(seed))
			s, err := New(randomFields(r, count, "f"))
			if err != nil {
				return false
			}

			seen := make(map[ColumnID]struct{})
			for _, f := range s.Fields() {
				leaves := f.LeafIDs()
				for i, id := range leaves {
					if i > 0 && leaves[i-1] >= id {
						return false
					}
					if _, dup := seen[id]; dup {
						return false
					}
					seen[id] = struct{}{}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

// TestProperty_BorrowingCorrectness validates that every composite node
// borrows the id of its own leftmost leaf descendant.
func TestProperty_BorrowingCorrectness(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("composite nodes borrow their first leaf's id", prop.ForAll(
		func(seed int64, count int) bool {
			r := rand.New(rand.NewSource(seed))
			s, err := New(randomFields(r, count, "f"))
			if err != nil {
				return false
			}
			for _, f := range s.Fields() {
				ids := f.NodeIDs()
				pos := 0
				if _, ok := checkBorrowing(&f.Type, ids, &pos); !ok {
					return false
				}
				if pos != len(ids) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

// TestProperty_ProjectionPreservesIDs validates that path-index projection
// never assigns fresh ids: every projected id already exists in the source
// schema, and the id-space metadata is carried over unchanged.
func TestProperty_ProjectionPreservesIDs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("projected ids are a subset of source ids", prop.ForAll(
		func(seed int64, count int) bool {
			r := rand.New(rand.NewSource(seed))
			s, err := New(randomFields(r, count, "f"))
			if err != nil {
				return false
			}

			source := make(map[ColumnID]struct{})
			for _, id := range s.ToColumnIDs() {
				source[id] = struct{}{}
			}

			// Walk a random descent from a random field for each output slot.
			paths := make(map[int][]int)
			for slot := 0; slot < 3; slot++ {
				fi := r.Intn(s.NumFields())
				path := []int{fi}
				cur := s.Field(fi).Type
				for !cur.IsLeaf() && r.Intn(2) == 0 {
					switch cur.Kind {
					case KindNullable, KindArray, KindMap:
						path = append(path, 0)
						cur = *cur.Inner
					case KindTuple:
						mi := r.Intn(len(cur.MemberTypes))
						path = append(path, mi)
						cur = cur.MemberTypes[mi]
					}
				}
				paths[slot] = path
			}

			projected, err := s.InnerProject(paths)
			if err != nil {
				return false
			}
			if projected.NextColumnID() != s.NextColumnID() {
				return false
			}
			for _, f := range projected.Fields() {
				for _, id := range f.NodeIDs() {
					if _, ok := source[id]; !ok {
						return false
					}
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}

// TestProperty_DropAddNeverReusesIDs validates that dropping a field and
// re-adding one with the same name never reuses any retired id.
func TestProperty_DropAddNeverReusesIDs(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("re-added columns get brand-new ids", prop.ForAll(
		func(seed int64, count int) bool {
			r := rand.New(rand.NewSource(seed))
			s, err := New(randomFields(r, count, "f"))
			if err != nil {
				return false
			}

			victim := s.Field(r.Intn(s.NumFields()))
			retired := victim.NodeIDs()

			s, err = s.DropColumn(victim.Name)
			if err != nil {
				return false
			}
			s, err = s.AddColumns([]Field{NewField(victim.Name, victim.Type)})
			if err != nil {
				return false
			}

			readded, err := s.FieldByName(victim.Name)
			if err != nil {
				return false
			}
			fresh := make(map[ColumnID]struct{})
			for _, id := range readded.NodeIDs() {
				fresh[id] = struct{}{}
			}
			for _, id := range retired {
				if _, reused := fresh[id]; reused {
					return false
				}
				if !s.IsColumnDeleted(id) {
					return false
				}
			}
			return true
		},
		gen.Int64(),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
