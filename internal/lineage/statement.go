package lineage

import (
	"strconv"
	"strings"

	parser "github.com/Glaschu/tsqllineage/pkg/parser"
	"github.com/Glaschu/tsqllineage/pkg/token"
)

// processProgram walks every batch and statement in a parsed program.
// Control-flow wrappers (IF/WHILE/BEGIN...END) are flattened
// unconditionally: analysis cares about every statement a script could
// execute, not which branch runs at any particular invocation.
func (a *analysisRun) processProgram(prog *parser.Program) {
	for _, batch := range prog.Batches {
		for _, stmt := range batch.Statements {
			a.processStatement(stmt)
		}
	}
}

func (a *analysisRun) processStatement(stmt parser.Statement) {
	if stmt == nil {
		return
	}
	a.currentPos = statementPos(stmt)

	switch s := stmt.(type) {
	case *parser.CreateProcedureStmt:
		if a.procedureName == "" {
			a.procedureName = s.Name
		}
		for _, inner := range s.Body {
			a.processStatement(inner)
		}
	case *parser.CreateTableStmt:
		a.processCreateTable(s)
	case *parser.InsertStmt:
		a.processInsert(s)
	case *parser.UpdateStmt:
		a.processUpdate(s)
	case *parser.MergeStmt:
		a.processMerge(s)
	case *parser.SelectStmt:
		a.processTopLevelSelect(s)
	case *parser.IfStmt:
		a.processStatement(s.Then)
		a.processStatement(s.Else)
	case *parser.WhileStmt:
		a.processStatement(s.Body)
	case *parser.BeginEndBlock:
		for _, inner := range s.Statements {
			a.processStatement(inner)
		}
	case *parser.DeleteStmt, *parser.DeclareStmt, *parser.SetStmt, *parser.PrintStmt, *parser.ExecStmt:
		// No column lineage to extract: DELETE writes no columns, and
		// DECLARE/SET/PRINT/EXEC operate on variables or call out to a
		// procedure analyzed independently of this run.
	}
}

func statementPos(stmt parser.Statement) token.Position {
	type spanner interface{ GetSpan() token.Span }
	if sp, ok := stmt.(spanner); ok {
		return sp.GetSpan().Start
	}
	return token.Position{}
}

// processTopLevelSelect handles a bare SELECT statement appearing
// directly in a batch. Only the INTO form writes anywhere; an ordinary
// top-level SELECT (ad hoc result set, not captured into any table)
// contributes no lineage.
func (a *analysisRun) processTopLevelSelect(stmt *parser.SelectStmt) {
	into := primarySelectCore(stmt.Body).IntoTable
	if into == "" {
		return
	}

	catalog, schema, name := splitQualifiedName(into)
	table := qualifiedTableName(catalog, schema, name)
	isTemp := strings.HasPrefix(strings.ToLower(name), "#")
	if !isTemp {
		a.addOutputTable(table)
	}

	names := a.processSelectIntoTarget(stmt, table, isTemp, nil)
	if isTemp {
		a.scope.DefineTemp(table, names)
		a.recordTempPattern(table, "SELECT INTO", names)
	}
}

func primarySelectCore(body *parser.SelectBody) *parser.SelectCore {
	return body.Left
}

// processCreateTable registers a temp table's declared shape. A
// permanent CREATE TABLE carries no information this package doesn't
// already get from the schema registry, so only temp tables matter
// here.
func (a *analysisRun) processCreateTable(stmt *parser.CreateTableStmt) {
	if !stmt.Table.IsTemp() {
		return
	}
	name := qualifiedTableName(stmt.Table.Catalog, stmt.Table.Schema, stmt.Table.Name)
	cols := make([]string, len(stmt.Columns))
	for i, c := range stmt.Columns {
		cols[i] = lower(c.Name)
	}
	a.scope.DefineTemp(name, cols)
	a.recordTempPattern(name, "CREATE TABLE", cols)
}

// processInsert handles INSERT ... VALUES and INSERT ... SELECT,
// pairing source columns against the target's column list in priority
// order: an explicit column list, then the target's known schema (if
// it is a temp table, a CTE is not a legal INSERT target, or a
// registered permanent table), then positional self-naming from the
// SELECT shape when nothing else is known.
func (a *analysisRun) processInsert(stmt *parser.InsertStmt) {
	a.scope.PushCTEScope()
	defer a.scope.PopCTEScope()
	if stmt.With != nil {
		a.processWithClause(stmt.With)
	}

	table := qualifiedTableName(stmt.Table.Catalog, stmt.Table.Schema, stmt.Table.Name)
	isTemp := stmt.Table.IsTemp()
	if !isTemp {
		a.addOutputTable(table)
	}

	targetCols := lowerAll(stmt.Columns)
	if len(targetCols) == 0 {
		if cols, ok := a.columnsOfTable(table); ok {
			targetCols = cols
		}
	}

	switch {
	case stmt.DefaultValues:
		return
	case stmt.Select != nil:
		a.processSelectIntoTarget(stmt.Select, table, isTemp, targetCols)
	default:
		a.scope.PushAliasScope()
		defer a.scope.PopAliasScope()
		for _, row := range stmt.Values {
			for i, expr := range row {
				name, ok := targetColumnFor(i, targetCols, "")
				if !ok {
					a.addDiagnostic(SeverityInfo, "INSERT VALUES has more expressions than target columns for %s; extra value dropped", table)
					break
				}
				for _, src := range a.extractExprColumns(a.scope, expr) {
					a.emit(src, NewColumnRef(table, name), isTemp)
				}
			}
		}
	}
}

// processUpdate handles UPDATE ... SET [... FROM ...], emitting one
// fragment per source column referenced in each SET assignment's
// right-hand side.
func (a *analysisRun) processUpdate(stmt *parser.UpdateStmt) {
	a.scope.PushAliasScope()
	a.scope.PushCTEScope()
	defer a.scope.PopCTEScope()
	defer a.scope.PopAliasScope()

	if stmt.With != nil {
		a.processWithClause(stmt.With)
	}

	table := qualifiedTableName(stmt.Table.Catalog, stmt.Table.Schema, stmt.Table.Name)
	isTemp := stmt.Table.IsTemp()
	if !isTemp {
		a.addOutputTable(table)
	}

	alias := stmt.Alias
	if alias == "" {
		alias = stmt.Table.Name
	}
	a.scope.BindAlias(alias, table)
	a.observeReadTable(table)

	if stmt.From != nil {
		a.resolveFromClause(stmt.From)
	}

	for _, sc := range stmt.SetClauses {
		for _, src := range a.extractExprColumns(a.scope, sc.Value) {
			a.emit(src, NewColumnRef(table, sc.Column), isTemp)
		}
	}
}

// processMerge handles MERGE, including a derived-table USING source,
// recording a MergePattern summarizing the statement's shape alongside
// the column lineage its WHEN clauses produce.
func (a *analysisRun) processMerge(stmt *parser.MergeStmt) {
	a.scope.PushAliasScope()
	a.scope.PushCTEScope()
	defer a.scope.PopCTEScope()
	defer a.scope.PopAliasScope()

	if stmt.With != nil {
		a.processWithClause(stmt.With)
	}

	target := qualifiedTableName(stmt.Target.Catalog, stmt.Target.Schema, stmt.Target.Name)
	isTempTarget := stmt.Target.IsTemp()
	if !isTempTarget {
		a.addOutputTable(target)
	}

	targetAlias := stmt.TargetAlias
	if targetAlias == "" {
		targetAlias = stmt.Target.Name
	}
	a.scope.BindAlias(targetAlias, target)

	sourceAlias := stmt.SourceAlias
	sourceTable := ""
	switch src := stmt.Source.(type) {
	case *parser.TableName:
		sourceTable = qualifiedTableName(src.Catalog, src.Schema, src.Name)
		if sourceAlias == "" {
			sourceAlias = src.Name
		}
		a.scope.BindAlias(sourceAlias, sourceTable)
		a.observeReadTable(sourceTable)
	case *parser.DerivedTable:
		if sourceAlias == "" {
			sourceAlias = src.Alias
		}
		sourceTable = lower(sourceAlias)
		names := a.processSelectIntoTarget(src.Select, sourceTable, true, nil)
		a.scope.BindCTE(sourceTable, names)
		a.scope.BindAlias(sourceAlias, sourceTable)
	}

	var updateCols, insertCols []string
	for _, when := range stmt.WhenClauses {
		switch when.Action {
		case parser.MergeActionUpdate:
			for _, sc := range when.SetClauses {
				updateCols = append(updateCols, lower(sc.Column))
				for _, src := range a.extractExprColumns(a.scope, sc.Value) {
					a.emit(src, NewColumnRef(target, sc.Column), isTempTarget)
				}
			}
		case parser.MergeActionInsert:
			for i, expr := range when.Values {
				if i >= len(when.Columns) {
					a.addDiagnostic(SeverityInfo, "MERGE INSERT has more values than columns for %s; extra value dropped", target)
					break
				}
				col := when.Columns[i]
				insertCols = append(insertCols, lower(col))
				for _, src := range a.extractExprColumns(a.scope, expr) {
					a.emit(src, NewColumnRef(target, col), isTempTarget)
				}
			}
		case parser.MergeActionDelete:
			// DELETE branch writes no columns.
		}
	}

	a.mergePatterns = append(a.mergePatterns, MergePattern{
		SourceTable:   sourceTable,
		TargetTable:   target,
		JoinColumns:   joinColumnNames(stmt.OnCondition),
		UpdateColumns: dedupeStrings(updateCols),
		InsertColumns: dedupeStrings(insertCols),
	})
}

// joinColumnNames extracts the column names compared in a MERGE ON
// condition, best-effort: it walks top-level ANDed equality
// comparisons and collects both sides' column names, which covers the
// common "a.k = b.k [AND ...]" shape without attempting full
// expression evaluation.
func joinColumnNames(cond parser.Expr) []string {
	var names []string
	var walk func(parser.Expr)
	walk = func(e parser.Expr) {
		be, ok := e.(*parser.BinaryExpr)
		if !ok {
			return
		}
		if be.Op == token.AND {
			walk(be.Left)
			walk(be.Right)
			return
		}
		if be.Op == token.EQ {
			if col, ok := be.Left.(*parser.ColumnRef); ok {
				names = append(names, lower(col.Column))
			}
			if col, ok := be.Right.(*parser.ColumnRef); ok {
				names = append(names, lower(col.Column))
			}
		}
	}
	walk(cond)
	return dedupeStrings(names)
}

// processSelectIntoTarget processes a SELECT (with its own optional
// WITH clause) whose output columns pair positionally against
// targetColumns, emitting one fragment per extracted source column
// into (targetTable, targetColumns[i]). It returns the column names
// used, inferred ones included, so a caller can register that shape
// for a CTE, temp table, or synthetic MERGE source.
func (a *analysisRun) processSelectIntoTarget(sel *parser.SelectStmt, targetTable string, targetIsIntermediate bool, targetColumns []string) []string {
	a.scope.PushCTEScope()
	defer a.scope.PopCTEScope()

	if sel.With != nil {
		a.processWithClause(sel.With)
	}
	return a.processSelectBody(sel.Body, targetTable, targetIsIntermediate, targetColumns)
}

// processWithClause processes each CTE in order, registering its name
// before processing its body (so a later CTE, or the CTE itself in a
// recursive WITH, can reference it), then updating its column list
// once the body's actual output shape is known.
func (a *analysisRun) processWithClause(with *parser.WithClause) {
	for _, cte := range with.CTEs {
		name := lower(cte.Name)
		explicit := lowerAll(cte.Columns)
		a.scope.BindCTE(name, explicit)

		names := a.processSelectIntoTarget(cte.Select, name, true, explicit)

		if len(explicit) == 0 {
			a.scope.BindCTE(name, names)
			a.recordTempPattern(name, "CTE", names)
		} else {
			a.recordTempPattern(name, "CTE", explicit)
		}
	}
}

func (a *analysisRun) processSelectBody(body *parser.SelectBody, targetTable string, targetIsIntermediate bool, targetColumns []string) []string {
	names := a.processSelectCore(body.Left, targetTable, targetIsIntermediate, targetColumns)
	if body.Right != nil {
		a.processSelectBody(body.Right, targetTable, targetIsIntermediate, targetColumns)
	}
	return names
}

func (a *analysisRun) processSelectCore(core *parser.SelectCore, targetTable string, targetIsIntermediate bool, targetColumns []string) []string {
	a.scope.PushAliasScope()
	defer a.scope.PopAliasScope()

	if core.From != nil {
		a.resolveFromClause(core.From)
	}

	var outNames []string
	idx := 0
	emitStarColumn := func(src ColumnRef) {
		name, ok := targetColumnFor(idx, targetColumns, src.Column)
		if ok {
			a.emit(src, NewColumnRef(targetTable, name), targetIsIntermediate)
		} else {
			a.addDiagnostic(SeverityInfo, "SELECT has more columns than target columns for %s; extra column dropped", targetTable)
		}
		outNames = append(outNames, name)
		idx++
	}

	for _, item := range core.Columns {
		switch {
		case item.Star:
			for _, src := range a.expandStar("") {
				emitStarColumn(src)
			}
		case item.TableStar != "":
			for _, src := range a.expandStar(item.TableStar) {
				emitStarColumn(src)
			}
		default:
			sources := a.extractExprColumns(a.scope, item.Expr)
			inferred := inferColumnName(item, idx)
			name, ok := targetColumnFor(idx, targetColumns, inferred)
			if ok {
				for _, src := range sources {
					a.emit(src, NewColumnRef(targetTable, name), targetIsIntermediate)
				}
			} else {
				a.addDiagnostic(SeverityInfo, "SELECT has more columns than target columns for %s; extra column dropped", targetTable)
			}
			outNames = append(outNames, name)
			idx++
		}
	}
	return outNames
}

// resolveFromClause registers every table reference in a FROM tree
// into the current (innermost) alias scope, source first and then each
// join's right side, matching the order a reader encounters them in.
func (a *analysisRun) resolveFromClause(from *parser.FromClause) {
	if from == nil {
		return
	}
	a.resolveTableRef(from.Source)
	for _, j := range from.Joins {
		a.resolveTableRef(j.Right)
	}
}

func (a *analysisRun) resolveTableRef(ref parser.TableRef) {
	switch t := ref.(type) {
	case *parser.TableName:
		name := qualifiedTableName(t.Catalog, t.Schema, t.Name)
		alias := t.Alias
		if alias == "" {
			alias = t.Name
		}
		a.scope.BindAlias(alias, name)
		a.observeReadTable(name)
	case *parser.DerivedTable:
		synthetic := lower(t.Alias)
		names := a.processSelectIntoTarget(t.Select, synthetic, true, nil)
		a.scope.BindCTE(synthetic, names)
		a.scope.BindAlias(t.Alias, synthetic)
	}
}

// observeReadTable records table as a permanent input table the first
// time it is read from, unless scope already classifies it as
// intermediate (a temp table or CTE referenced by its own name, never
// bound through a fresh FROM resolution against a CREATE).
func (a *analysisRun) observeReadTable(table string) {
	if a.scope.IsIntermediate(table) {
		return
	}
	a.addInputTable(table)
}

// expandStar resolves SELECT * (qualifier == "") or SELECT t.*
// (qualifier == alias) against every table bound in the innermost
// alias scope, in FROM-clause order. A table whose column list cannot
// be determined (no schema registry entry, no temp/CTE registration)
// is skipped with a diagnostic rather than guessed at.
func (a *analysisRun) expandStar(qualifier string) []ColumnRef {
	var out []ColumnRef

	expandOne := func(alias, table string) {
		cols, ok := a.columnsOfTable(table)
		if !ok {
			a.addDiagnostic(SeverityWarning, "cannot expand %s.* for %q: no known schema", alias, table)
			return
		}
		for _, c := range cols {
			out = append(out, NewColumnRef(table, c))
		}
	}

	if qualifier != "" {
		table, ok := a.scope.ResolveAlias(qualifier)
		if !ok {
			a.addDiagnostic(SeverityWarning, "cannot expand %s.*: unresolved alias", qualifier)
			return nil
		}
		expandOne(qualifier, table)
		return out
	}

	for _, binding := range a.scope.CurrentAliases() {
		expandOne(binding.Alias, binding.Table)
	}
	return out
}

// columnsOfTable returns the known column list for table, checking
// temp tables and CTEs first (scope-local, and always authoritative
// once defined) and falling back to the schema registry for permanent
// tables.
func (a *analysisRun) columnsOfTable(table string) ([]string, bool) {
	if cols, ok := a.scope.ColumnsOf(table); ok {
		return cols, true
	}
	if a.schema != nil && a.schema.TableExists(table) {
		return a.schema.ColumnsOf(table), true
	}
	return nil, false
}

// emit records one source-to-target lineage fragment in the graph.
// sourceIsIntermediate is classified against scope at the moment of
// emission; targetIsIntermediate is supplied by the caller.
func (a *analysisRun) emit(source, target ColumnRef, targetIsIntermediate bool) {
	sourceIsIntermediate := source.Unresolved || a.scope.IsIntermediate(source.Table)
	a.graph.AddFragment(source, target, sourceIsIntermediate, targetIsIntermediate)
}

// targetColumnFor decides the name of the i-th positional target
// column:
//
//   - if targetColumns has an entry at i, use it;
//   - if targetColumns is empty altogether (nothing else determined a
//     shape), self-name using the select item's own inferred name;
//   - otherwise targetColumns is a known, shorter list: i is past its
//     end, so the extra source column is dropped.
func targetColumnFor(i int, targetColumns []string, inferred string) (string, bool) {
	if i < len(targetColumns) {
		return targetColumns[i], true
	}
	if len(targetColumns) == 0 {
		return inferred, true
	}
	return "", false
}

// inferColumnName derives an output column name for a SELECT item with
// no explicit alias, mirroring how SQL Server itself names such
// columns: the referenced column's own name for a bare column
// reference, the function name for a function call, and a positional
// placeholder otherwise.
func inferColumnName(item parser.SelectItem, idx int) string {
	if item.Alias != "" {
		return lower(item.Alias)
	}
	switch e := item.Expr.(type) {
	case *parser.ColumnRef:
		return lower(e.Column)
	case *parser.FuncCall:
		return lower(e.Name)
	case *parser.CastExpr:
		return inferColumnName(parser.SelectItem{Expr: e.Expr}, idx)
	case *parser.ParenExpr:
		return inferColumnName(parser.SelectItem{Expr: e.Expr}, idx)
	default:
		return "column" + strconv.Itoa(idx+1)
	}
}

func lowerAll(ss []string) []string {
	if ss == nil {
		return nil
	}
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = lower(s)
	}
	return out
}

func dedupeStrings(ss []string) []string {
	if len(ss) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ss))
	var out []string
	for _, s := range ss {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
