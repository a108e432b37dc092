package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A leading WITH cte-list feeding an INSERT (not a SELECT) must parse
// cleanly and attach the CTEs to the InsertStmt, not get misrouted into
// parseSelectStmt's unconditional SELECT expectation.
func TestParse_WithPrefixedInsert(t *testing.T) {
	sql := `
WITH a AS (SELECT x AS u FROM dbo.S),
     b AS (SELECT u AS v FROM a)
INSERT INTO dbo.T(w) SELECT v FROM b;
`
	prog, err := Parse(sql)
	require.NoError(t, err)
	require.Len(t, prog.Batches, 1)
	require.Len(t, prog.Batches[0].Statements, 1)

	insert, ok := prog.Batches[0].Statements[0].(*InsertStmt)
	require.True(t, ok, "expected *InsertStmt, got %T", prog.Batches[0].Statements[0])
	require.NotNil(t, insert.With)
	require.Len(t, insert.With.CTEs, 2)
	assert.Equal(t, "a", insert.With.CTEs[0].Name)
	assert.Equal(t, "b", insert.With.CTEs[1].Name)
	assert.Equal(t, "dbo", insert.Table.Schema)
	assert.Equal(t, "T", insert.Table.Name)
}

// A leading WITH cte-list feeding an UPDATE or MERGE parses the same way.
func TestParse_WithPrefixedUpdateAndMerge(t *testing.T) {
	updateSQL := `WITH a AS (SELECT id FROM dbo.S) UPDATE dbo.T SET id = a.id FROM a;`
	prog, err := Parse(updateSQL)
	require.NoError(t, err)
	require.Len(t, prog.Batches[0].Statements, 1)
	update, ok := prog.Batches[0].Statements[0].(*UpdateStmt)
	require.True(t, ok, "expected *UpdateStmt, got %T", prog.Batches[0].Statements[0])
	require.NotNil(t, update.With)
	require.Len(t, update.With.CTEs, 1)

	mergeSQL := `WITH s AS (SELECT k, v FROM dbo.Src) MERGE INTO dbo.Tgt AS T USING s ON T.k = s.k WHEN MATCHED THEN UPDATE SET T.v = s.v;`
	prog, err = Parse(mergeSQL)
	require.NoError(t, err)
	require.Len(t, prog.Batches[0].Statements, 1)
	merge, ok := prog.Batches[0].Statements[0].(*MergeStmt)
	require.True(t, ok, "expected *MergeStmt, got %T", prog.Batches[0].Statements[0])
	require.NotNil(t, merge.With)
	require.Len(t, merge.With.CTEs, 1)
}

// A bare WITH still parses into a SelectStmt when no DML follows.
func TestParse_WithPrefixedSelect(t *testing.T) {
	sql := `WITH a AS (SELECT x FROM dbo.S) SELECT x FROM a;`
	stmt, err := ParseStatement(sql)
	require.NoError(t, err)
	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok, "expected *SelectStmt, got %T", stmt)
	require.NotNil(t, sel.With)
}

// GO accepts an optional repeat count (a common T-SQL idiom for
// re-running a batch N times) without producing a spurious parse error.
func TestParse_GoWithRepeatCount(t *testing.T) {
	sql := `
INSERT INTO dbo.T(id) SELECT id FROM dbo.S;
GO 3
INSERT INTO dbo.U(id) SELECT id FROM dbo.T;
`
	prog, err := Parse(sql)
	require.NoError(t, err)
	require.Len(t, prog.Batches, 2)
	assert.Len(t, prog.Batches[0].Statements, 1)
	assert.Len(t, prog.Batches[1].Statements, 1)
}

// A bare GO with no count still works as before.
func TestParse_BareGoBatchSeparator(t *testing.T) {
	sql := `
INSERT INTO dbo.T(id) SELECT id FROM dbo.S;
GO
INSERT INTO dbo.U(id) SELECT id FROM dbo.T;
`
	prog, err := Parse(sql)
	require.NoError(t, err)
	require.Len(t, prog.Batches, 2)
}
