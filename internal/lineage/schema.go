package lineage

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchemaColumn is one column entry in a schema file. Columns are kept
// as an ordered list rather than a map so that positional operations
// (SELECT * expansion, implicit INSERT column lists) see the same
// column order the physical table actually has.
type SchemaColumn struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`
}

// schemaFile is the on-disk shape of a schema registry document: a map
// of fully-qualified table name to its ordered column list.
type schemaFile struct {
	Tables map[string][]SchemaColumn `yaml:"tables" json:"tables"`
}

// SchemaRegistry is a read-only view of known table shapes, used to
// expand SELECT * and to supply the target columns of an INSERT into a
// permanent table that gives no column list. Column lists are not
// checked against it. An analysis run with no registry configured
// degrades gracefully: star expansion over a permanent table produces a
// diagnostic instead of lineage, and an INSERT with no column list
// names its target columns after the SELECT's own output names.
type SchemaRegistry struct {
	tables map[string][]string // lowercased table name -> lowercased, ordered column names
}

// NewSchemaRegistry returns an empty registry.
func NewSchemaRegistry() *SchemaRegistry {
	return &SchemaRegistry{tables: map[string][]string{}}
}

// LoadSchemaRegistryYAML parses a YAML schema document (see
// SchemaColumn/schemaFile for the expected shape) into a registry.
func LoadSchemaRegistryYAML(data []byte) (*SchemaRegistry, error) {
	var doc schemaFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema yaml: %w", err)
	}
	return newRegistryFromFile(doc), nil
}

// LoadSchemaRegistryJSON parses a JSON schema document with the same
// shape as the YAML form, for callers that prefer JSON.
func LoadSchemaRegistryJSON(data []byte) (*SchemaRegistry, error) {
	var doc schemaFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema json: %w", err)
	}
	return newRegistryFromFile(doc), nil
}

func newRegistryFromFile(doc schemaFile) *SchemaRegistry {
	r := NewSchemaRegistry()
	for table, cols := range doc.Tables {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = strings.ToLower(c.Name)
		}
		r.tables[strings.ToLower(table)] = names
	}
	return r
}

// TableExists reports whether the registry has column information for
// the given (possibly mixed-case) table name.
func (r *SchemaRegistry) TableExists(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.tables[strings.ToLower(name)]
	return ok
}

// ColumnsOf returns the ordered, lowercased column names of a known
// table, or nil if the table is not registered.
func (r *SchemaRegistry) ColumnsOf(name string) []string {
	if r == nil {
		return nil
	}
	return r.tables[strings.ToLower(name)]
}

// TableNames returns every table registered, in no particular order,
// used by the catalog dump command to re-export a registry it built
// programmatically.
func (r *SchemaRegistry) TableNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	return names
}

// Register adds or replaces a table's column list directly, used by
// adapters (e.g. the Postgres-compatible catalog reader) that build a
// registry programmatically instead of from a file.
func (r *SchemaRegistry) Register(table string, columns []string) {
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(c)
	}
	r.tables[strings.ToLower(table)] = lower
}
