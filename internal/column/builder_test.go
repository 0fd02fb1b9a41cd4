package column

import (
	"testing"
)

func TestBuilder_AppendAndFinish(t *testing.T) {
	b := NewBuilder[int64](4)
	b.AppendValue(10)
	b.AppendValue(20)
	b.AppendValue(30)
	if b.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", b.Len())
	}

	col := b.Finish()
	if col.Len() != 3 {
		t.Fatalf("expected 3 rows in column, got %d", col.Len())
	}
	if col.NullCount() != 0 {
		t.Errorf("expected no nulls, got %d", col.NullCount())
	}
	for i, want := range []int64{10, 20, 30} {
		v, ok := col.Value(i)
		if !ok || v != want {
			t.Errorf("row %d: expected %d, got %d (present=%v)", i, want, v, ok)
		}
	}

	// Finish resets the builder for reuse.
	if b.Len() != 0 {
		t.Errorf("expected builder reset after finish, got %d rows", b.Len())
	}
	b.AppendValue(40)
	second := b.Finish()
	if second.Len() != 1 {
		t.Errorf("expected 1 row in second column, got %d", second.Len())
	}
	if v, _ := col.Value(0); v != 10 {
		t.Errorf("first column changed after builder reuse: %d", v)
	}
}

func TestBuilder_Nulls(t *testing.T) {
	b := NewBuilder[string](0)
	b.AppendValue("x")
	b.AppendNull()
	b.AppendValue("y")
	b.AppendNull()

	col := b.Finish()
	if col.Len() != 4 {
		t.Fatalf("expected 4 rows, got %d", col.Len())
	}
	if col.NullCount() != 2 {
		t.Errorf("expected 2 nulls, got %d", col.NullCount())
	}
	wantNull := []bool{false, true, false, true}
	for i, want := range wantNull {
		if col.IsNull(i) != want {
			t.Errorf("row %d: expected null=%v", i, want)
		}
	}
	if v, ok := col.Value(2); !ok || v != "y" {
		t.Errorf("row 2: expected y, got %q (present=%v)", v, ok)
	}
	if _, ok := col.Value(1); ok {
		t.Error("row 1: expected null")
	}
}

func TestBuilder_AppendOption(t *testing.T) {
	ten := int32(10)
	thirty := int32(30)

	b := NewBuilder[int32](3)
	b.AppendOption(&ten)
	b.AppendOption(nil)
	b.AppendOption(&thirty)

	col := b.Finish()
	if col.NullCount() != 1 {
		t.Fatalf("expected 1 null, got %d", col.NullCount())
	}
	if v, ok := col.Value(0); !ok || v != 10 {
		t.Errorf("row 0: expected 10, got %d", v)
	}
	if !col.IsNull(1) {
		t.Error("row 1: expected null")
	}
	if v, ok := col.Value(2); !ok || v != 30 {
		t.Errorf("row 2: expected 30, got %d", v)
	}
}

func TestBuilder_ValidityPastOneWord(t *testing.T) {
	// Cross the 64-row word boundary with a mix of values and nulls.
	b := NewBuilder[uint8](0)
	for i := 0; i < 130; i++ {
		if i%3 == 0 {
			b.AppendNull()
		} else {
			b.AppendValue(uint8(i))
		}
	}
	col := b.Finish()
	if col.Len() != 130 {
		t.Fatalf("expected 130 rows, got %d", col.Len())
	}
	for i := 0; i < 130; i++ {
		if got, want := col.IsNull(i), i%3 == 0; got != want {
			t.Fatalf("row %d: expected null=%v, got %v", i, want, got)
		}
	}
	if want := (130 + 2) / 3; col.NullCount() != want {
		t.Errorf("expected %d nulls, got %d", want, col.NullCount())
	}
}

func TestNewFromSlices(t *testing.T) {
	col := NewFromSlice([]float64{1.5, 2.5})
	if col.Len() != 2 || col.NullCount() != 0 {
		t.Fatalf("unexpected column: len=%d nulls=%d", col.Len(), col.NullCount())
	}

	one := uint64(1)
	opt := NewFromOptSlice([]*uint64{&one, nil})
	if opt.Len() != 2 || opt.NullCount() != 1 {
		t.Fatalf("unexpected optional column: len=%d nulls=%d", opt.Len(), opt.NullCount())
	}
	if !opt.IsNull(1) {
		t.Error("row 1: expected null")
	}
}
