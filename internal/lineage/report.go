package lineage

import "github.com/Glaschu/tsqllineage/pkg/token"

// Severity classifies a Diagnostic without stopping analysis; nothing
// this package records is fatal on its own, since a lineage gap is
// useful information, not a parse failure.
type Severity string

// Severity levels a Diagnostic can carry.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Diagnostic records a place where analysis made a conservative choice
// instead of guessing: an unresolved alias, a star expansion against an
// unknown schema, an INSERT column list shorter than its SELECT list,
// and so on.
type Diagnostic struct {
	Severity  Severity       `json:"severity"`
	Statement token.Position `json:"statement"`
	Message   string         `json:"message"`
}

// ColumnLineageEntry is one resolved source-to-target column edge in
// the external report, matching the exact field names of the JSON
// contract.
type ColumnLineageEntry struct {
	SourceTable  string `json:"source_table"`
	SourceColumn string `json:"source_column"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// MergePattern summarizes one MERGE statement's shape: the join it
// matched rows on, and which columns it wrote on each side.
type MergePattern struct {
	SourceTable   string   `json:"source_table"`
	TargetTable   string   `json:"target_table"`
	JoinColumns   []string `json:"join_columns"`
	UpdateColumns []string `json:"update_columns"`
	InsertColumns []string `json:"insert_columns"`
}

// TempTablePattern describes one temp table (or CTE) observed during
// analysis: its shape, how it was produced, and whether it was ever
// actually read from downstream (IsIntermediate is true only when at
// least one later statement consumed it; a temp table written but
// never read contributes no lineage and is recorded as non-intermediate
// for visibility, per the dead-write exclusion rule).
type TempTablePattern struct {
	Name           string   `json:"name"`
	SourcePattern  string   `json:"source_pattern"`
	Columns        []string `json:"columns"`
	IsIntermediate bool     `json:"is_intermediate"`
}

// ProcedureAnalysis is the complete result of analyzing one stored
// procedure or bare batch. Field order here mirrors the order the
// fields are introduced in the external JSON report.
type ProcedureAnalysis struct {
	AnalysisRunID     string               `json:"analysis_run_id"`
	ProcedureName     string               `json:"procedure_name"`
	InputTables       []string             `json:"source_tables"`
	OutputTables      []string             `json:"target_tables"`
	ColumnLineages    []ColumnLineageEntry `json:"column_lineages"`
	MergePatterns     []MergePattern       `json:"merge_patterns"`
	TempTablePatterns []TempTablePattern   `json:"temp_table_patterns"`
	AnalysisTimestamp string               `json:"analysis_timestamp"`
	Diagnostics       []Diagnostic         `json:"diagnostics"`
}
