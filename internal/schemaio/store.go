package schemaio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/stratumdb/stratum/internal/schema"
	"github.com/stratumdb/stratum/internal/storage"
)

// Writer persists schema snapshots to an object store.
type Writer struct {
	store     storage.ObjectStore
	locations *LocationGenerator
}

// NewWriter creates a schema writer for the given store and table prefix.
func NewWriter(store storage.ObjectStore, tablePrefix string) *Writer {
	return &Writer{
		store:     store,
		locations: NewLocationGenerator(tablePrefix),
	}
}

// Write encodes the schema and stores it under a fresh snapshot key,
// returning the key it was written to.
func (w *Writer) Write(ctx context.Context, sc *schema.Schema, version int) (string, error) {
	data, err := Encode(sc)
	if err != nil {
		return "", err
	}
	key := w.locations.SchemaLocation(version)
	if err := w.store.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("schemaio: failed to write schema snapshot: %w", err)
	}
	return key, nil
}

// Reader loads schema snapshots from an object store.
type Reader struct {
	store     storage.ObjectStore
	locations *LocationGenerator
}

// NewReader creates a schema reader for the given store and table prefix.
func NewReader(store storage.ObjectStore, tablePrefix string) *Reader {
	return &Reader{
		store:     store,
		locations: NewLocationGenerator(tablePrefix),
	}
}

// Read loads and decodes the snapshot at the given key.
func (r *Reader) Read(ctx context.Context, key string) (*schema.Schema, error) {
	data, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("schemaio: failed to read schema snapshot: %w", err)
	}
	return Decode(data)
}

// Latest returns the most recent snapshot under the table prefix.
// Snapshot keys embed a zero-padded version, so the latest snapshot is
// the one with the greatest key.
func (r *Reader) Latest(ctx context.Context) (*schema.Schema, string, error) {
	keys, err := r.store.List(ctx, r.locations.SchemaKeyPrefix())
	if err != nil {
		return nil, "", fmt.Errorf("schemaio: failed to list schema snapshots: %w", err)
	}
	if len(keys) == 0 {
		return nil, "", storage.ErrObjectNotFound
	}
	sort.Slice(keys, func(i, j int) bool {
		return versionKey(keys[i]) < versionKey(keys[j])
	})
	key := keys[len(keys)-1]
	sc, err := r.Read(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return sc, key, nil
}

// versionKey extracts the sortable version suffix of a snapshot key.
// The UUID part varies per writer, so ordering must ignore it.
func versionKey(key string) string {
	if i := strings.LastIndex(key, "_v"); i >= 0 {
		return key[i:]
	}
	return key
}
