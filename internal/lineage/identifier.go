package lineage

import "strings"

// ColumnRef identifies a single column by its owning table and column
// name, both canonicalized to lowercase so that "dbo.Customer" and
// "DBO.customer" compare equal. It never carries an alias: resolution
// through the scope stack always happens before a ColumnRef is built.
//
// Unresolved marks a column whose table qualifier could not be traced
// to any bound alias, CTE, or temp table. Unresolved nodes still enter
// the lineage graph (so a diagnostic can point at them) but the graph
// resolver treats them as intermediate nodes with no predecessors, so
// they never contribute a permanent-to-permanent lineage edge.
type ColumnRef struct {
	Table      string
	Column     string
	Unresolved bool
}

// NewColumnRef builds a canonical ColumnRef from raw (possibly
// mixed-case) table and column names.
func NewColumnRef(table, column string) ColumnRef {
	return ColumnRef{Table: strings.ToLower(table), Column: strings.ToLower(column)}
}

// IsTemp reports whether the column's table is a local (#) or global
// (##) temporary table, judged purely by name.
func (c ColumnRef) IsTemp() bool {
	return strings.HasPrefix(c.Table, "#")
}

// String renders the column as "[table].[column]", matching the
// bracket-qualified form T-SQL itself uses to print identifiers.
func (c ColumnRef) String() string {
	return "[" + c.Table + "].[" + c.Column + "]"
}

func lower(s string) string { return strings.ToLower(s) }

// qualifiedTableName joins a TableName's catalog/schema/name parts with
// dots, lowercased to the same canonical form used as a map key
// everywhere else in this package.
func qualifiedTableName(parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, strings.ToLower(p))
		}
	}
	return strings.Join(nonEmpty, ".")
}

// splitQualifiedName splits a dotted identifier string (as produced by
// the parser's parseQualifiedName, used for SELECT ... INTO targets)
// into catalog/schema/name parts, mirroring TableName's own field
// layout.
func splitQualifiedName(name string) (catalog, schema, table string) {
	parts := strings.Split(name, ".")
	switch len(parts) {
	case 1:
		return "", "", parts[0]
	case 2:
		return "", parts[0], parts[1]
	default:
		return parts[0], parts[1], parts[len(parts)-1]
	}
}
