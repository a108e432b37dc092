// Package lineage walks the parsed AST of a T-SQL batch or stored
// procedure and resolves column-level data lineage: for every column
// written to a permanent table, which permanent-table columns fed it,
// through however many temp tables and CTEs sit in between.
//
// Processing happens in layers. The identifier and schema types
// (identifier.go, schema.go) give every table/column pair a canonical,
// case-insensitive form and an optional read-only view of known table
// shapes. The scope stack (scope.go) tracks alias bindings and the
// column lists of CTEs and temp tables while a statement is walked. The
// statement processors (statement.go) and expression extractor
// (expr.go) turn each DML statement into lineage fragments, which the
// graph resolver (graph.go) reduces to direct permanent-to-permanent
// lineage. Analyzer (analyzer.go) drives the whole thing and assembles
// the final report (report.go).
package lineage
