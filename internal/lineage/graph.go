package lineage

import "sort"

// graphNode is one incoming edge recorded against a target column: the
// source column plus whether that source was classified intermediate
// (temp table or CTE) at the moment the fragment was created. A given
// table is assumed to keep the same classification for the life of one
// analysis run, which holds for ordinary T-SQL since a name's
// temp/CTE/permanent identity does not change mid-script.
type graphNode struct {
	Ref            ColumnRef
	IsIntermediate bool
}

// Lineage is one resolved source-to-target column edge, after
// eliminating every intermediate (temp table or CTE) hop in between.
type Lineage struct {
	Source ColumnRef
	Target ColumnRef
}

// Graph accumulates lineage fragments emitted while walking statements
// and resolves them into direct permanent-to-permanent lineage.
//
// Internally it is a reversed adjacency list: edges[target] holds every
// source that was ever assigned into target. Resolution is a DFS
// starting from each permanent target, descending through intermediate
// sources until a permanent source is reached, with a per-target
// visited set guarding against the cycles a recursive CTE can create.
type Graph struct {
	edges      map[ColumnRef][]graphNode
	isTarget   map[ColumnRef]bool // every ColumnRef ever seen as a fragment target
	targetKind map[ColumnRef]bool // target's IsIntermediate classification at add time
}

// NewGraph returns an empty lineage graph.
func NewGraph() *Graph {
	return &Graph{
		edges:      map[ColumnRef][]graphNode{},
		isTarget:   map[ColumnRef]bool{},
		targetKind: map[ColumnRef]bool{},
	}
}

// AddFragment records that source feeds target, directly. Both the
// source and target carry their own intermediate classification,
// recorded at the time the fragment was created so that a later
// redefinition of the same name elsewhere in the script cannot
// retroactively change how an already-recorded fragment resolves.
func (g *Graph) AddFragment(source, target ColumnRef, sourceIntermediate, targetIntermediate bool) {
	g.edges[target] = append(g.edges[target], graphNode{Ref: source, IsIntermediate: sourceIntermediate})
	g.isTarget[target] = true
	g.targetKind[target] = targetIntermediate
}

// Resolve walks every permanent target column and returns the
// deduplicated, sorted set of permanent sources that feed it, with
// every chain of temp tables and CTEs collapsed away. Direct
// permanent-to-permanent fragments are returned unchanged, without
// being routed through any intermediate expansion.
func (g *Graph) Resolve() []Lineage {
	var out []Lineage
	for target := range g.isTarget {
		if target.Unresolved || g.targetKind[target] {
			continue // only permanent targets are roots of resolution
		}
		visited := map[ColumnRef]bool{}
		var sources []ColumnRef
		g.collect(target, visited, &sources)
		for _, src := range sources {
			out = append(out, Lineage{Source: src, Target: target})
		}
	}
	return sortAndDedupeLineages(out)
}

// collect performs the reverse-DFS walk from node, appending every
// permanent source reachable through intermediate hops into out.
// visited is scoped to a single call to Resolve's outer loop (i.e. to
// one target) and is never cleared within it, so a node already
// expanded for this target is not expanded again: a cycle stops once it
// returns to such a node rather than looping forever.
func (g *Graph) collect(node ColumnRef, visited map[ColumnRef]bool, out *[]ColumnRef) {
	if visited[node] {
		return
	}
	visited[node] = true

	for _, edge := range g.edges[node] {
		if edge.Ref.Unresolved {
			continue
		}
		if !edge.IsIntermediate {
			*out = append(*out, edge.Ref)
			continue
		}
		g.collect(edge.Ref, visited, out)
	}
}

// usedAsSource reports whether table was ever read as the source side
// of some fragment, i.e. whether anything downstream actually consumed
// it. A temp table or CTE that was only ever written to (never
// selected back out of) returns false here.
func (g *Graph) usedAsSource(table string) bool {
	for _, nodes := range g.edges {
		for _, n := range nodes {
			if n.Ref.Table == table {
				return true
			}
		}
	}
	return false
}

func sortAndDedupeLineages(lineages []Lineage) []Lineage {
	sort.Slice(lineages, func(i, j int) bool {
		a, b := lineages[i], lineages[j]
		if a.Target.Table != b.Target.Table {
			return a.Target.Table < b.Target.Table
		}
		if a.Target.Column != b.Target.Column {
			return a.Target.Column < b.Target.Column
		}
		if a.Source.Table != b.Source.Table {
			return a.Source.Table < b.Source.Table
		}
		return a.Source.Column < b.Source.Column
	})

	out := make([]Lineage, 0, len(lineages))
	for i, l := range lineages {
		if i > 0 && l == lineages[i-1] {
			continue
		}
		out = append(out, l)
	}
	return out
}
