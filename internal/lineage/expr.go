package lineage

import parser "github.com/Glaschu/tsqllineage/pkg/parser"

// collectColumnRefs walks an expression tree and returns every raw
// *parser.ColumnRef leaf it finds, in left-to-right order, without
// resolving any of them. A subquery nested inside an expression (IN,
// EXISTS, scalar subquery) is never descended into: its own columns
// resolve against its own FROM clause and are out of scope for the
// expression that merely tests or embeds its result.
func collectColumnRefs(expr parser.Expr) []*parser.ColumnRef {
	var refs []*parser.ColumnRef
	var walk func(parser.Expr)
	walk = func(e parser.Expr) {
		if e == nil {
			return
		}
		switch ex := e.(type) {
		case *parser.ColumnRef:
			refs = append(refs, ex)
		case *parser.BinaryExpr:
			walk(ex.Left)
			walk(ex.Right)
		case *parser.UnaryExpr:
			walk(ex.Expr)
		case *parser.FuncCall:
			for _, a := range ex.Args {
				walk(a)
			}
			if ex.Window != nil {
				for _, p := range ex.Window.PartitionBy {
					walk(p)
				}
				for _, o := range ex.Window.OrderBy {
					walk(o.Expr)
				}
			}
		case *parser.CaseExpr:
			if ex.Operand != nil {
				walk(ex.Operand)
			}
			for _, w := range ex.Whens {
				walk(w.Condition)
				walk(w.Result)
			}
			walk(ex.Else)
		case *parser.CastExpr:
			walk(ex.Expr)
		case *parser.InExpr:
			walk(ex.Expr)
			for _, v := range ex.Values {
				walk(v)
			}
		case *parser.BetweenExpr:
			walk(ex.Expr)
			walk(ex.Low)
			walk(ex.High)
		case *parser.IsNullExpr:
			walk(ex.Expr)
		case *parser.LikeExpr:
			walk(ex.Expr)
			walk(ex.Pattern)
		case *parser.ParenExpr:
			walk(ex.Expr)
		}
	}
	walk(expr)
	return refs
}

// extractExprColumns resolves every column reference found in expr
// against scope and returns the deduplicated set of resolved source
// columns it depends on. Unqualified columns that cannot be
// unambiguously resolved, and qualified columns whose alias is not
// bound, are recorded as diagnostics and handled according to
// resolveColumnRef's contract.
func (a *analysisRun) extractExprColumns(scope *Scope, expr parser.Expr) []ColumnRef {
	raw := collectColumnRefs(expr)
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[ColumnRef]bool, len(raw))
	var out []ColumnRef
	for _, ref := range raw {
		resolved, ok := a.resolveColumnRef(scope, ref)
		if !ok {
			continue
		}
		if seen[resolved] {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out
}

// resolveColumnRef resolves one raw column reference against scope.
//
//   - Qualified (table.column): the qualifier must resolve through the
//     alias scope. If it does not, the column becomes an Unresolved
//     node so it can still be reported, but it never reaches a
//     permanent source or target.
//   - Unqualified (column): resolved via single-table inference when
//     exactly one table is bound in the innermost alias scope (no real
//     ambiguity exists); otherwise dropped with a diagnostic, since
//     guessing which of several tables it belongs to would risk a
//     false lineage edge.
func (a *analysisRun) resolveColumnRef(scope *Scope, ref *parser.ColumnRef) (ColumnRef, bool) {
	if ref.Table != "" {
		table, ok := scope.ResolveAlias(ref.Table)
		if ok {
			return NewColumnRef(table, ref.Column), true
		}
		a.addDiagnostic(SeverityWarning, "column %q qualified by unresolved alias %q", ref.Column, ref.Table)
		return ColumnRef{Table: lower(ref.Table), Column: lower(ref.Column), Unresolved: true}, true
	}

	table, ok := scope.singleTableInScope()
	if !ok {
		a.addDiagnostic(SeverityInfo, "unqualified column %q dropped: zero or multiple candidate tables in scope", ref.Column)
		return ColumnRef{}, false
	}
	return NewColumnRef(table, ref.Column), true
}
