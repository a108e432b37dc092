package lineage

import (
	"fmt"
	"strings"
)

// scopeInvariantError is panicked when the scope stack is asked to pop
// a frame that was never pushed. It should be unreachable in practice
// (every push site has a matching deferred pop), so surfacing it as a
// distinct type lets Analyzer.Analyze convert it into a returned error
// without masking a genuine programmer bug as an ordinary parse or
// resolution failure.
type scopeInvariantError struct {
	msg string
}

func (e *scopeInvariantError) Error() string { return e.msg }

func panicInvariant(format string, args ...any) {
	panic(&scopeInvariantError{msg: fmt.Sprintf(format, args...)})
}

// aliasFrame is one lexical level of alias bindings. order preserves
// insertion order so that unqualified SELECT * can expand tables in
// the order they appeared in the FROM clause.
type aliasFrame struct {
	order   []string
	byAlias map[string]string
}

// Scope tracks everything needed to resolve an identifier while
// walking a single statement (or a nested subquery within it):
//
//   - a lexically nested stack of alias -> table bindings, pushed and
//     popped around each FROM clause and derived table;
//   - a lexically nested stack of CTE name -> column list bindings,
//     pushed and popped around each WITH clause;
//   - a single process-wide (non-lexical) map of temp-table name to
//     column list, since T-SQL temp tables are visible for the rest of
//     the batch once created, not just within one statement.
type Scope struct {
	aliasStack []*aliasFrame
	cteStack   []map[string][]string
	tempTables map[string][]string
}

// NewScope returns an empty scope with no temp tables defined yet.
func NewScope() *Scope {
	return &Scope{tempTables: map[string][]string{}}
}

// PushAliasScope opens a new lexical level for FROM-clause alias
// bindings.
func (s *Scope) PushAliasScope() {
	s.aliasStack = append(s.aliasStack, &aliasFrame{byAlias: map[string]string{}})
}

// PopAliasScope closes the innermost alias level. Popping past the
// bottom of the stack is a programmer error, not a data condition, and
// panics via scopeInvariantError.
func (s *Scope) PopAliasScope() {
	if len(s.aliasStack) == 0 {
		panicInvariant("pop alias scope: stack is empty")
	}
	s.aliasStack = s.aliasStack[:len(s.aliasStack)-1]
}

// BindAlias records that alias refers to table within the innermost
// alias scope. Both a real alias ("c" in "dbo.Customer c") and a bare
// table's own name (when no alias is given) are bound this way, so
// resolution never needs to special-case the unaliased form.
func (s *Scope) BindAlias(alias, table string) {
	if len(s.aliasStack) == 0 {
		panicInvariant("bind alias %q: no alias scope is open", alias)
	}
	frame := s.aliasStack[len(s.aliasStack)-1]
	key := strings.ToLower(alias)
	if _, exists := frame.byAlias[key]; !exists {
		frame.order = append(frame.order, key)
	}
	frame.byAlias[key] = table
}

// ResolveAlias looks up an alias, searching from the innermost scope
// outward, and returns the table it is bound to.
func (s *Scope) ResolveAlias(alias string) (string, bool) {
	key := strings.ToLower(alias)
	for i := len(s.aliasStack) - 1; i >= 0; i-- {
		if table, ok := s.aliasStack[i].byAlias[key]; ok {
			return table, true
		}
	}
	return "", false
}

// aliasBinding pairs a bound alias with the table it resolves to.
type aliasBinding struct {
	Alias string
	Table string
}

// CurrentAliases returns the alias bindings of the innermost alias
// scope, in the order they were bound, for unqualified SELECT *
// expansion.
func (s *Scope) CurrentAliases() []aliasBinding {
	if len(s.aliasStack) == 0 {
		return nil
	}
	frame := s.aliasStack[len(s.aliasStack)-1]
	out := make([]aliasBinding, 0, len(frame.order))
	for _, alias := range frame.order {
		out = append(out, aliasBinding{Alias: alias, Table: frame.byAlias[alias]})
	}
	return out
}

// singleTableInScope returns the sole table bound in the innermost
// alias scope, used to resolve an unqualified column reference when
// there is exactly one candidate table and therefore no real ambiguity.
func (s *Scope) singleTableInScope() (string, bool) {
	aliases := s.CurrentAliases()
	if len(aliases) != 1 {
		return "", false
	}
	return aliases[0].Table, true
}

// PushCTEScope opens a new lexical level for CTE name bindings, used
// for the CTEs introduced by one WITH clause (including synthetic
// entries for the derived-table aliases visible in that statement).
func (s *Scope) PushCTEScope() {
	s.cteStack = append(s.cteStack, map[string][]string{})
}

// PopCTEScope closes the innermost CTE level.
func (s *Scope) PopCTEScope() {
	if len(s.cteStack) == 0 {
		panicInvariant("pop cte scope: stack is empty")
	}
	s.cteStack = s.cteStack[:len(s.cteStack)-1]
}

// BindCTE records name's column list in the innermost CTE scope,
// overwriting any prior binding of the same name in that scope (used
// to first reserve a self-referencing name with no columns, then
// update it once its body has been processed and its shape is known).
func (s *Scope) BindCTE(name string, columns []string) {
	if len(s.cteStack) == 0 {
		panicInvariant("bind cte %q: no cte scope is open", name)
	}
	s.cteStack[len(s.cteStack)-1][strings.ToLower(name)] = columns
}

// resolveCTEColumns searches the CTE stack from innermost to outermost.
func (s *Scope) resolveCTEColumns(name string) ([]string, bool) {
	key := strings.ToLower(name)
	for i := len(s.cteStack) - 1; i >= 0; i-- {
		if cols, ok := s.cteStack[i][key]; ok {
			return cols, true
		}
	}
	return nil, false
}

// IsCTE reports whether name is bound as a CTE (or derived-table
// pseudo-CTE) anywhere on the current CTE stack.
func (s *Scope) IsCTE(name string) bool {
	_, ok := s.resolveCTEColumns(name)
	return ok
}

// DefineTemp records or replaces a temp table's column list. Unlike
// alias and CTE bindings, this is process-wide: once a batch creates
// #staging, every later statement in that batch (and any other batch
// sharing this Scope) sees it, matching T-SQL temp-table lifetime.
func (s *Scope) DefineTemp(name string, columns []string) {
	s.tempTables[strings.ToLower(name)] = columns
}

// ColumnsOfTemp returns a temp table's column list, if known.
func (s *Scope) ColumnsOfTemp(name string) ([]string, bool) {
	cols, ok := s.tempTables[strings.ToLower(name)]
	return cols, ok
}

// ColumnsOf returns the column list backing name if it is a temp table
// or a CTE, checking both without the caller needing to know which.
func (s *Scope) ColumnsOf(name string) ([]string, bool) {
	if cols, ok := s.ColumnsOfTemp(name); ok {
		return cols, true
	}
	return s.resolveCTEColumns(name)
}

// IsIntermediate reports whether name is a temp table or a CTE, i.e.
// whether it participates in the lineage graph as an internal node
// rather than as a root/leaf. A temp table is recognized by its "#"
// prefix, whether or not a CREATE/SELECT INTO has registered it yet; a
// CTE (or derived-table pseudo-CTE) is recognized only by being bound
// on the current CTE stack, never by how its name is spelled.
func (s *Scope) IsIntermediate(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "#") {
		return true
	}
	if _, ok := s.tempTables[lower]; ok {
		return true
	}
	return s.IsCTE(lower)
}
