package lineage

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	parser "github.com/Glaschu/tsqllineage/pkg/parser"
	"github.com/Glaschu/tsqllineage/pkg/token"
)

// Analyzer resolves column-level lineage for a parsed T-SQL batch or
// stored procedure against an optional schema registry. It holds only
// shared, read-only configuration; every call to Analyze builds its
// own analysisRun to hold the mutable state (scope stack, graph,
// diagnostics) for that one pass, so a single Analyzer is safe to reuse
// across goroutines analyzing different files concurrently.
type Analyzer struct {
	schema *SchemaRegistry
	logger *slog.Logger
}

// NewAnalyzer returns an Analyzer backed by the given schema registry
// (nil is a valid, empty registry) and logger (nil defaults to a
// discarding logger).
func NewAnalyzer(schema *SchemaRegistry, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Analyzer{schema: schema, logger: logger}
}

// analysisRun holds the mutable state of one Analyze call.
type analysisRun struct {
	schema *SchemaRegistry
	logger *slog.Logger

	scope *Scope
	graph *Graph

	procedureName string
	inputTables   map[string]bool
	outputTables  map[string]bool
	mergePatterns []MergePattern
	tempPatterns  []*TempTablePattern
	diagnostics   []Diagnostic
	currentPos    token.Position
}

// Analyze walks prog and resolves its column lineage. A malformed
// internal invariant (a scope push/pop mismatch, which should be
// unreachable given the processors in this package always pair them)
// is recovered and reported as an error rather than crashing the
// caller; any other panic is not ours to handle and propagates.
func (a *Analyzer) Analyze(prog *parser.Program) (result *ProcedureAnalysis, err error) {
	run := &analysisRun{
		schema:       a.schema,
		logger:       a.logger,
		scope:        NewScope(),
		graph:        NewGraph(),
		inputTables:  map[string]bool{},
		outputTables: map[string]bool{},
	}

	defer func() {
		if r := recover(); r != nil {
			if inv, ok := r.(*scopeInvariantError); ok {
				err = fmt.Errorf("internal invariant violation: %w", inv)
				return
			}
			panic(r)
		}
	}()

	run.processProgram(prog)
	result = run.assembleReport()
	return result, nil
}

func (a *analysisRun) addDiagnostic(sev Severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	a.diagnostics = append(a.diagnostics, Diagnostic{Severity: sev, Statement: a.currentPos, Message: msg})
	a.logger.Debug("lineage diagnostic", "severity", sev, "message", msg)
}

func (a *analysisRun) addInputTable(table string) {
	if a.inputTables == nil {
		a.inputTables = map[string]bool{}
	}
	a.inputTables[table] = true
}

func (a *analysisRun) addOutputTable(table string) {
	if a.outputTables == nil {
		a.outputTables = map[string]bool{}
	}
	a.outputTables[table] = true
}

func (a *analysisRun) recordTempPattern(name, sourcePattern string, columns []string) {
	for _, existing := range a.tempPatterns {
		if existing.Name == name {
			existing.SourcePattern = sourcePattern
			existing.Columns = columns
			return
		}
	}
	a.tempPatterns = append(a.tempPatterns, &TempTablePattern{
		Name:          name,
		SourcePattern: sourcePattern,
		Columns:       columns,
	})
}

// assembleReport builds the external report once the whole program has
// been walked. A temp table/CTE pattern's IsIntermediate reflects
// whether the lineage graph ever used it as a source for some other
// node: one written but never read contributes no lineage and is
// reported as such, per the dead-write exclusion rule.
func (a *analysisRun) assembleReport() *ProcedureAnalysis {
	for _, pat := range a.tempPatterns {
		pat.IsIntermediate = a.graph.usedAsSource(pat.Name)
	}

	report := &ProcedureAnalysis{
		AnalysisRunID:     uuid.NewString(),
		ProcedureName:     a.procedureName,
		InputTables:       sortedKeys(a.inputTables),
		OutputTables:      sortedKeys(a.outputTables),
		MergePatterns:     a.mergePatterns,
		AnalysisTimestamp: time.Now().UTC().Format(time.RFC3339),
		Diagnostics:       a.diagnostics,
	}

	for _, pat := range a.tempPatterns {
		report.TempTablePatterns = append(report.TempTablePatterns, *pat)
	}

	for _, l := range a.graph.Resolve() {
		report.ColumnLineages = append(report.ColumnLineages, ColumnLineageEntry{
			SourceTable:  l.Source.Table,
			SourceColumn: l.Source.Column,
			TargetTable:  l.Target.Table,
			TargetColumn: l.Target.Column,
		})
	}

	return report
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
