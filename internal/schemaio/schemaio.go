// Package schemaio encodes schema snapshots for object storage and
// generates the storage locations they are written to.
package schemaio

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/stratumdb/stratum/internal/schema"
)

var (
	// ErrBadMagic is returned when a blob does not start with the schema magic.
	ErrBadMagic = fmt.Errorf("schemaio: bad magic")
	// ErrUnsupportedVersion is returned for format versions this build cannot read.
	ErrUnsupportedVersion = fmt.Errorf("schemaio: unsupported format version")
)

// Object format: 4-byte magic, 1-byte format version, then the
// snappy-compressed JSON encoding of the schema.
var magic = [4]byte{'S', 'T', 'S', 'C'}

const formatVersion = 1

// Encode serializes a schema into the storage blob format.
func Encode(sc *schema.Schema) ([]byte, error) {
	schemaJSON, err := json.Marshal(sc)
	if err != nil {
		return nil, fmt.Errorf("schemaio: failed to marshal schema: %w", err)
	}

	compressed := snappy.Encode(nil, schemaJSON)

	buf := bytes.NewBuffer(make([]byte, 0, len(magic)+1+len(compressed)))
	buf.Write(magic[:])
	buf.WriteByte(formatVersion)
	buf.Write(compressed)
	return buf.Bytes(), nil
}

// Decode deserializes a schema from the storage blob format.
func Decode(data []byte) (*schema.Schema, error) {
	if len(data) < len(magic)+1 {
		return nil, fmt.Errorf("%w: blob too short (%d bytes)", ErrBadMagic, len(data))
	}
	if !bytes.Equal(data[:len(magic)], magic[:]) {
		return nil, ErrBadMagic
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	schemaJSON, err := snappy.Decode(nil, data[len(magic)+1:])
	if err != nil {
		return nil, fmt.Errorf("schemaio: failed to decompress schema: %w", err)
	}

	sc := new(schema.Schema)
	if err := json.Unmarshal(schemaJSON, sc); err != nil {
		return nil, fmt.Errorf("schemaio: failed to unmarshal schema: %w", err)
	}
	return sc, nil
}

// sortableVersion renders a version so lexicographic order on object
// keys matches numeric order.
func sortableVersion(version int) string {
	return fmt.Sprintf("%016d", version)
}
