package lineage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glaschu/tsqllineage/internal/testutil"
	parser "github.com/Glaschu/tsqllineage/pkg/parser"
)

func analyze(t *testing.T, sql string, schema *SchemaRegistry) *ProcedureAnalysis {
	t.Helper()
	prog, err := parser.Parse(sql)
	require.NoError(t, err)

	result, err := NewAnalyzer(schema, nil).Analyze(prog)
	require.NoError(t, err)
	return result
}

func hasLineage(result *ProcedureAnalysis, sourceTable, sourceCol, targetTable, targetCol string) bool {
	for _, l := range result.ColumnLineages {
		if l.SourceTable == sourceTable && l.SourceColumn == sourceCol &&
			l.TargetTable == targetTable && l.TargetColumn == targetCol {
			return true
		}
	}
	return false
}

// S1: a temp table populated from one permanent table and drained into
// another resolves straight through the temp hop.
func TestSeedScenario_TempTablePassthrough(t *testing.T) {
	sql := `
CREATE TABLE #t (id INT, name VARCHAR(50));
INSERT INTO #t SELECT cid, cname FROM dbo.Customer;
INSERT INTO dbo.Report(rid, rname) SELECT id, name FROM #t;
`
	result := analyze(t, sql, nil)

	assert.True(t, hasLineage(result, "dbo.customer", "cid", "dbo.report", "rid"))
	assert.True(t, hasLineage(result, "dbo.customer", "cname", "dbo.report", "rname"))
	assert.Len(t, result.ColumnLineages, 2)
	assert.Contains(t, result.OutputTables, "dbo.report")
}

// S2: a two-level CTE chain resolves through both hops to the base
// table.
func TestSeedScenario_ChainedCTEs(t *testing.T) {
	sql := `
WITH a AS (SELECT x AS u FROM dbo.S),
     b AS (SELECT u AS v FROM a)
INSERT INTO dbo.T(w) SELECT v FROM b;
`
	result := analyze(t, sql, nil)

	assert.True(t, hasLineage(result, "dbo.s", "x", "dbo.t", "w"))
	assert.Len(t, result.ColumnLineages, 1)
}

// S3: MERGE with a derived-table USING source resolves both the UPDATE
// and INSERT branches back through the derived source to its base
// table, without duplicate lineage entries.
func TestSeedScenario_MergeWithDerivedSource(t *testing.T) {
	sql := `
MERGE INTO dbo.Tgt AS T
USING (SELECT k, v FROM dbo.Src) AS S
ON T.k = S.k
WHEN MATCHED THEN UPDATE SET T.v = S.v
WHEN NOT MATCHED THEN INSERT (k, v) VALUES (S.k, S.v);
`
	result := analyze(t, sql, nil)

	assert.True(t, hasLineage(result, "dbo.src", "k", "dbo.tgt", "k"))
	assert.True(t, hasLineage(result, "dbo.src", "v", "dbo.tgt", "v"))
	assert.Len(t, result.ColumnLineages, 2)

	require.Len(t, result.MergePatterns, 1)
	pattern := result.MergePatterns[0]
	assert.Equal(t, "dbo.tgt", pattern.TargetTable)
	assert.Contains(t, pattern.JoinColumns, "k")
	assert.Contains(t, pattern.UpdateColumns, "v")
	assert.ElementsMatch(t, []string{"k", "v"}, pattern.InsertColumns)
}

// S4: SELECT * expansion against a known schema pairs columns
// positionally against an explicit INSERT column list.
func TestSeedScenario_StarExpansionWithSchema(t *testing.T) {
	schema := NewSchemaRegistry()
	schema.Register("dbo.Src", []string{"a", "b"})

	sql := `INSERT INTO dbo.Dst(a, b) SELECT * FROM dbo.Src;`
	result := analyze(t, sql, schema)

	assert.True(t, hasLineage(result, "dbo.src", "a", "dbo.dst", "a"))
	assert.True(t, hasLineage(result, "dbo.src", "b", "dbo.dst", "b"))
	assert.Len(t, result.ColumnLineages, 2)
}

// S5: a recursive CTE that unions its own output with a seed table
// resolves to the seed table without the resolver looping forever.
func TestSeedScenario_RecursiveCTECycle(t *testing.T) {
	sql := `
WITH r AS (
    SELECT id FROM dbo.Seed
    UNION ALL
    SELECT id FROM r
)
INSERT INTO dbo.Out(id) SELECT id FROM r;
`
	result := analyze(t, sql, nil)

	assert.True(t, hasLineage(result, "dbo.seed", "id", "dbo.out", "id"))
	assert.Len(t, result.ColumnLineages, 1)
}

// S6: a function call over qualified columns from a joined table
// contributes every argument column to the same target column.
func TestSeedScenario_FunctionOverJoinedColumns(t *testing.T) {
	sql := `
INSERT INTO dbo.Tgt(msg)
SELECT ISNULL(c.desc, c.deflt)
FROM dbo.A a JOIN dbo.C c ON a.k = c.k;
`
	result := analyze(t, sql, nil)

	assert.True(t, hasLineage(result, "dbo.c", "desc", "dbo.tgt", "msg"))
	assert.True(t, hasLineage(result, "dbo.c", "deflt", "dbo.tgt", "msg"))
	assert.Len(t, result.ColumnLineages, 2)
}

// A CREATE PROCEDURE wrapper contributes its name to the report and its
// body is analyzed exactly as if it were a bare batch.
func TestAnalyze_ProcedureName(t *testing.T) {
	sql := `
CREATE PROCEDURE dbo.LoadReport AS
BEGIN
    INSERT INTO dbo.Report(rid) SELECT cid FROM dbo.Customer;
END
`
	result := analyze(t, sql, nil)
	assert.Equal(t, "dbo.LoadReport", result.ProcedureName)
	assert.True(t, hasLineage(result, "dbo.customer", "cid", "dbo.report", "rid"))
}

// A temp table that is written but never read back out contributes no
// lineage and is reported as non-intermediate.
func TestAnalyze_DeadTempWriteExcluded(t *testing.T) {
	sql := `
CREATE TABLE #dead (id INT);
INSERT INTO #dead SELECT cid FROM dbo.Customer;
INSERT INTO dbo.Report(rid) SELECT cid FROM dbo.Customer;
`
	result := analyze(t, sql, nil)

	assert.False(t, hasLineage(result, "dbo.customer", "cid", "#dead", "id"))
	assert.True(t, hasLineage(result, "dbo.customer", "cid", "dbo.report", "rid"))

	var deadPattern *TempTablePattern
	for i := range result.TempTablePatterns {
		if result.TempTablePatterns[i].Name == "#dead" {
			deadPattern = &result.TempTablePatterns[i]
		}
	}
	require.NotNil(t, deadPattern)
	assert.False(t, deadPattern.IsIntermediate)
}

// An unqualified column with two candidate tables in scope is dropped
// with a diagnostic rather than guessed at.
func TestAnalyze_AmbiguousUnqualifiedColumnDropped(t *testing.T) {
	sql := `
INSERT INTO dbo.Tgt(v)
SELECT v FROM dbo.A a JOIN dbo.B b ON a.k = b.k;
`
	result := analyze(t, sql, nil)

	assert.Empty(t, result.ColumnLineages)
	assert.NotEmpty(t, result.Diagnostics)
}

// SELECT * INTO a new permanent table with an unknown source schema
// infers no columns and emits no lineage, per the unknown-schema rule.
func TestAnalyze_SelectStarIntoUnknownSchema(t *testing.T) {
	sql := `SELECT * INTO dbo.NewTable FROM dbo.UnknownSource;`
	result := analyze(t, sql, nil)

	assert.Empty(t, result.ColumnLineages)
	assert.Contains(t, result.OutputTables, "dbo.newtable")
	assert.NotEmpty(t, result.Diagnostics)
}

func TestGraph_DirectPermanentEdgeShortCircuits(t *testing.T) {
	g := NewGraph()
	src := NewColumnRef("dbo.a", "x")
	dst := NewColumnRef("dbo.b", "y")
	g.AddFragment(src, dst, false, false)

	got := g.Resolve()
	require.Len(t, got, 1)
	assert.Equal(t, src, got[0].Source)
	assert.Equal(t, dst, got[0].Target)
}

func TestScope_UnboundAliasDoesNotResolve(t *testing.T) {
	scope := NewScope()
	scope.PushAliasScope()
	defer scope.PopAliasScope()

	_, ok := scope.ResolveAlias("nope")
	assert.False(t, ok)
}

func TestSchemaRegistry_LoadYAML(t *testing.T) {
	yamlDoc := []byte(`
tables:
  dbo.customer:
    - name: cid
      type: int
    - name: cname
      type: nvarchar(50)
`)
	reg, err := LoadSchemaRegistryYAML(yamlDoc)
	require.NoError(t, err)
	assert.True(t, reg.TableExists("DBO.Customer"))
	assert.Equal(t, []string{"cid", "cname"}, reg.ColumnsOf("dbo.customer"))
}

func TestAnalyze_LogsDiagnosticsToProvidedLogger(t *testing.T) {
	sql := `INSERT INTO dbo.Report SELECT * FROM dbo.Unknown;`
	prog, err := parser.Parse(sql)
	require.NoError(t, err)

	logger := testutil.NewTestLogger(t)
	result, err := NewAnalyzer(nil, logger).Analyze(prog)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Diagnostics)
}

// A CTE list can feed an INSERT directly (not just a SELECT); this is
// exactly the S2/S5 seed-scenario shape, re-asserted here against the
// INSERT statement's own WITH clause rather than the SELECT's.
func TestAnalyze_WithClauseFeedingInsert(t *testing.T) {
	sql := `
WITH a AS (SELECT x AS u FROM dbo.S),
     b AS (SELECT u AS v FROM a)
INSERT INTO dbo.T(w) SELECT v FROM b;
`
	result := analyze(t, sql, nil)

	assert.True(t, hasLineage(result, "dbo.s", "x", "dbo.t", "w"))
	assert.Len(t, result.ColumnLineages, 1)
}

// GO's optional repeat count must not abort parsing or analysis of the
// batches around it.
func TestAnalyze_BatchSeparatorWithRepeatCount(t *testing.T) {
	sql := `
INSERT INTO dbo.T(id) SELECT id FROM dbo.S;
GO 3
INSERT INTO dbo.U(id) SELECT id FROM dbo.T;
`
	result := analyze(t, sql, nil)

	assert.True(t, hasLineage(result, "dbo.s", "id", "dbo.t", "id"))
	assert.True(t, hasLineage(result, "dbo.t", "id", "dbo.u", "id"))
}
