// Package catalog dumps column metadata from a live Postgres-compatible
// database into a SchemaRegistry, so that `schema dump` can produce a
// schema file without the user hand-writing one. `analyze` does not
// read from a live catalog; it takes its schema from a file.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Glaschu/tsqllineage/internal/lineage"
)

const columnsQuery = `
	SELECT table_schema, table_name, column_name, data_type
	FROM information_schema.columns
	WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
	ORDER BY table_schema, table_name, ordinal_position
`

// DumpSchema opens a connection to dsn via the pgx stdlib driver, reads
// every user table's column list from information_schema, and returns it
// as a populated SchemaRegistry. The connection is closed before
// returning.
func DumpSchema(ctx context.Context, dsn string) (*lineage.SchemaRegistry, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging catalog database: %w", err)
	}

	return DumpSchemaDB(ctx, db)
}

// DumpSchemaDB reads information_schema.columns from an already-open
// database handle. Split out from DumpSchema so tests can exercise it
// against a go-sqlmock connection instead of a real Postgres instance.
func DumpSchemaDB(ctx context.Context, db *sql.DB) (*lineage.SchemaRegistry, error) {
	rows, err := db.QueryContext(ctx, columnsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying information_schema.columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	type tableKey struct{ schema, name string }
	order := []tableKey{}
	columns := map[tableKey][]string{}

	for rows.Next() {
		var schema, table, column, dataType string
		if err := rows.Scan(&schema, &table, &column, &dataType); err != nil {
			return nil, fmt.Errorf("scanning information_schema row: %w", err)
		}
		key := tableKey{schema, table}
		if _, seen := columns[key]; !seen {
			order = append(order, key)
		}
		columns[key] = append(columns[key], column)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating information_schema rows: %w", err)
	}

	registry := lineage.NewSchemaRegistry()
	for _, key := range order {
		qualified := fmt.Sprintf("%s.%s", key.schema, key.name)
		registry.Register(qualified, columns[key])
	}
	return registry, nil
}
