package schemaio

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	schemaPrefix    = "_sc"
	schemaExtension = "schema"
)

// LocationGenerator produces object keys for schema snapshots under a
// table's storage prefix. Keys embed a random UUID so concurrent
// writers never collide, plus a zero-padded version so a plain key
// listing sorts in version order.
type LocationGenerator struct {
	prefix string
}

// NewLocationGenerator creates a generator rooted at the given table prefix.
func NewLocationGenerator(prefix string) *LocationGenerator {
	return &LocationGenerator{prefix: strings.TrimSuffix(prefix, "/")}
}

// SchemaLocation returns a fresh object key for the given schema version.
func (g *LocationGenerator) SchemaLocation(version int) string {
	return fmt.Sprintf("%s/%s/%s_v%s.%s",
		g.prefix, schemaPrefix, uuid.New().String(), sortableVersion(version), schemaExtension)
}

// SchemaKeyPrefix returns the listing prefix under which all schema
// snapshots for this table live.
func (g *LocationGenerator) SchemaKeyPrefix() string {
	return g.prefix + "/" + schemaPrefix + "/"
}
