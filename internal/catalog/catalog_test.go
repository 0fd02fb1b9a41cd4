package catalog

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stratumdb/stratum/internal/schema"
)

func newTestStore(t *testing.T) (*VersionStore, func()) {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "catalog_test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := Open(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to open catalog: %v", err)
	}

	return store, func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}
}

func testSchema(t *testing.T, names ...string) *schema.Schema {
	t.Helper()
	fields := make([]schema.Field, len(names))
	for i, name := range names {
		fields[i] = schema.NewField(name, schema.NumberType(schema.NumberUInt64))
	}
	sc, err := schema.New(fields)
	if err != nil {
		t.Fatalf("failed to build schema: %v", err)
	}
	return sc
}

func TestVersionStore_RegisterAndGet(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	v, err := store.Register(ctx, testSchema(t, "a", "b"))
	if err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}
	if v != 1 {
		t.Errorf("expected version 1, got %d", v)
	}

	record, err := store.Get(ctx, 1)
	if err != nil {
		t.Fatalf("failed to get version: %v", err)
	}
	if record.Schema.NumFields() != 2 {
		t.Errorf("expected 2 fields, got %d", record.Schema.NumFields())
	}
	if record.Schema.Fields()[0].Name != "a" {
		t.Errorf("expected first field a, got %s", record.Schema.Fields()[0].Name)
	}
	if record.Fingerprint == "" {
		t.Error("expected non-empty fingerprint")
	}
}

func TestVersionStore_DedupeUnchangedSchema(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sc := testSchema(t, "a", "b")
	v1, err := store.Register(ctx, sc)
	if err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}
	v2, err := store.Register(ctx, sc)
	if err != nil {
		t.Fatalf("failed to re-register schema: %v", err)
	}
	if v1 != v2 {
		t.Errorf("expected same version for unchanged schema, got %d and %d", v1, v2)
	}
}

func TestVersionStore_IncrementOnChange(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sc := testSchema(t, "a", "b")
	if _, err := store.Register(ctx, sc); err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	evolved, err := sc.AddColumns([]schema.Field{
		schema.NewField("c", schema.StringType()),
	})
	if err != nil {
		t.Fatalf("failed to add column: %v", err)
	}
	v, err := store.Register(ctx, evolved)
	if err != nil {
		t.Fatalf("failed to register evolved schema: %v", err)
	}
	if v != 2 {
		t.Errorf("expected version 2, got %d", v)
	}

	current, err := store.Current(ctx)
	if err != nil {
		t.Fatalf("failed to get current version: %v", err)
	}
	if current.Version != 2 {
		t.Errorf("expected current version 2, got %d", current.Version)
	}
	if current.Schema.NextColumnID() != 3 {
		t.Errorf("expected next column id 3, got %d", current.Schema.NextColumnID())
	}
}

func TestVersionStore_TombstonesSurviveRoundTrip(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sc := testSchema(t, "a", "b")
	dropped, err := sc.DropColumn("a")
	if err != nil {
		t.Fatalf("failed to drop column: %v", err)
	}
	v, err := store.Register(ctx, dropped)
	if err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	record, err := store.Get(ctx, v)
	if err != nil {
		t.Fatalf("failed to get version: %v", err)
	}
	if !record.Schema.IsColumnDeleted(0) {
		t.Error("expected column 0 to be tombstoned after round trip")
	}
	if record.Schema.NextColumnID() != 2 {
		t.Errorf("expected next column id 2, got %d", record.Schema.NextColumnID())
	}
}

func TestVersionStore_List(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.Register(ctx, testSchema(t, "a")); err != nil {
		t.Fatalf("failed to register v1: %v", err)
	}
	if _, err := store.Register(ctx, testSchema(t, "a", "b")); err != nil {
		t.Fatalf("failed to register v2: %v", err)
	}

	records, err := store.List(ctx)
	if err != nil {
		t.Fatalf("failed to list versions: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(records))
	}
	for i, record := range records {
		if record.Version != i+1 {
			t.Errorf("expected version %d at index %d, got %d", i+1, i, record.Version)
		}
	}
}

func TestVersionStore_LeafColumnIDs(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	sc, err := schema.New([]schema.Field{
		schema.NewField("id", schema.NumberType(schema.NumberUInt64)),
		schema.NewField("tags", schema.ArrayType(schema.StringType())),
	})
	if err != nil {
		t.Fatalf("failed to build schema: %v", err)
	}
	v, err := store.Register(ctx, sc)
	if err != nil {
		t.Fatalf("failed to register schema: %v", err)
	}

	ids, err := store.LeafColumnIDs(ctx, v)
	if err != nil {
		t.Fatalf("failed to get leaf column ids: %v", err)
	}
	want := []schema.ColumnID{0, 1}
	if len(ids) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("leaf id %d: expected %d, got %d", i, want[i], ids[i])
		}
	}
}

func TestVersionStore_MissingVersion(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.Get(ctx, 7); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
	if _, err := store.Current(ctx); !errors.Is(err, ErrVersionNotFound) {
		t.Errorf("expected ErrVersionNotFound for empty catalog, got %v", err)
	}
}
