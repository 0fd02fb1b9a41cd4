// Package catalog persists schema versions for a table in a SQLite
// database. Each registered schema is assigned a monotonically
// increasing version number; registering a schema identical to the
// current version is a no-op that returns the existing version.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spaolacci/murmur3"

	"github.com/stratumdb/stratum/internal/schema"
)

// ErrVersionNotFound is returned when a requested schema version does not exist.
var ErrVersionNotFound = fmt.Errorf("catalog: version not found")

// VersionRecord is a stored schema version.
type VersionRecord struct {
	Version     int
	Schema      *schema.Schema
	Fingerprint string
	CreatedAt   time.Time
}

// VersionStore tracks schema versions in a SQLite catalog.
type VersionStore struct {
	db     *sql.DB
	dbPath string
}

// Open opens (or creates) the catalog database at dbPath.
func Open(dbPath string) (*VersionStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to open database: %w", err)
	}
	// Single writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			schema_json TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at  INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("catalog: failed to initialize schema_versions: %w", err)
	}

	return &VersionStore{db: db, dbPath: dbPath}, nil
}

// Close closes the catalog database connection.
func (s *VersionStore) Close() error {
	return s.db.Close()
}

// CurrentVersion returns the latest registered version number, or 0 if
// no schema has been registered yet.
func (s *VersionStore) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_versions",
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("catalog: failed to get current version: %w", err)
	}
	return version, nil
}

// Get retrieves a specific schema version record.
func (s *VersionStore) Get(ctx context.Context, version int) (*VersionRecord, error) {
	var schemaJSON, fingerprint string
	var createdAtUnix int64

	err := s.db.QueryRowContext(ctx,
		"SELECT schema_json, fingerprint, created_at FROM schema_versions WHERE version = ?",
		version,
	).Scan(&schemaJSON, &fingerprint, &createdAtUnix)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: version %d", ErrVersionNotFound, version)
		}
		return nil, fmt.Errorf("catalog: failed to get version %d: %w", version, err)
	}

	sc := new(schema.Schema)
	if err := json.Unmarshal([]byte(schemaJSON), sc); err != nil {
		return nil, fmt.Errorf("catalog: failed to unmarshal schema for version %d: %w", version, err)
	}

	return &VersionRecord{
		Version:     version,
		Schema:      sc,
		Fingerprint: fingerprint,
		CreatedAt:   time.Unix(createdAtUnix, 0),
	}, nil
}

// Current returns the latest schema version record.
func (s *VersionStore) Current(ctx context.Context) (*VersionRecord, error) {
	version, err := s.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, ErrVersionNotFound
	}
	return s.Get(ctx, version)
}

// Register stores a new schema version. If the schema's fingerprint
// matches the current version, no new version is created and the
// existing version number is returned.
func (s *VersionStore) Register(ctx context.Context, sc *schema.Schema) (int, error) {
	schemaJSON, err := json.Marshal(sc)
	if err != nil {
		return 0, fmt.Errorf("catalog: failed to marshal schema: %w", err)
	}
	fingerprint := Fingerprint(schemaJSON)

	currentVersion, err := s.CurrentVersion(ctx)
	if err != nil {
		return 0, err
	}
	if currentVersion > 0 {
		var currentFingerprint string
		err := s.db.QueryRowContext(ctx,
			"SELECT fingerprint FROM schema_versions WHERE version = ?",
			currentVersion,
		).Scan(&currentFingerprint)
		if err != nil {
			return 0, fmt.Errorf("catalog: failed to get fingerprint for version %d: %w", currentVersion, err)
		}
		if currentFingerprint == fingerprint {
			return currentVersion, nil
		}
	}

	newVersion := currentVersion + 1
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO schema_versions (version, schema_json, fingerprint, created_at) VALUES (?, ?, ?, ?)",
		newVersion, string(schemaJSON), fingerprint, time.Now().Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("catalog: failed to insert version %d: %w", newVersion, err)
	}
	return newVersion, nil
}

// List returns all registered schema versions ordered by version number.
func (s *VersionStore) List(ctx context.Context) ([]VersionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT version, schema_json, fingerprint, created_at FROM schema_versions ORDER BY version ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to list versions: %w", err)
	}
	defer rows.Close()

	var records []VersionRecord
	for rows.Next() {
		var version int
		var schemaJSON, fingerprint string
		var createdAtUnix int64

		if err := rows.Scan(&version, &schemaJSON, &fingerprint, &createdAtUnix); err != nil {
			return nil, fmt.Errorf("catalog: failed to scan version: %w", err)
		}

		sc := new(schema.Schema)
		if err := json.Unmarshal([]byte(schemaJSON), sc); err != nil {
			return nil, fmt.Errorf("catalog: failed to unmarshal schema for version %d: %w", version, err)
		}

		records = append(records, VersionRecord{
			Version:     version,
			Schema:      sc,
			Fingerprint: fingerprint,
			CreatedAt:   time.Unix(createdAtUnix, 0),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: error iterating versions: %w", err)
	}
	return records, nil
}

// LeafColumnIDs returns the leaf column ids of a stored schema version.
// Readers use these to locate the physical columns a historical version
// could see.
func (s *VersionStore) LeafColumnIDs(ctx context.Context, version int) ([]schema.ColumnID, error) {
	record, err := s.Get(ctx, version)
	if err != nil {
		return nil, err
	}
	return record.Schema.ToLeafColumnIDs(), nil
}

// Fingerprint computes a stable hex fingerprint over the canonical JSON
// encoding of a schema. Schema marshaling is deterministic, so equal
// schemas always produce equal fingerprints.
func Fingerprint(schemaJSON []byte) string {
	h1, h2 := murmur3.Sum128(schemaJSON)
	return fmt.Sprintf("%016x%016x", h1, h2)
}
