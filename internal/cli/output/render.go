// Package output renders a lineage.ProcedureAnalysis in the CLI's
// supported output formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Glaschu/tsqllineage/internal/lineage"
)

// Format selects how Render writes a ProcedureAnalysis.
type Format string

// Supported output formats.
const (
	FormatJSON        Format = "json"
	FormatTable       Format = "table"
	FormatOpenLineage Format = "openlineage"
)

// Render writes result to w in the given format. An unrecognized format
// falls back to JSON, the canonical contract (SPEC §6).
func Render(w io.Writer, result *lineage.ProcedureAnalysis, format Format) error {
	switch format {
	case FormatTable:
		return renderTable(w, result)
	case FormatOpenLineage:
		return renderOpenLineage(w, result)
	default:
		return renderJSON(w, result)
	}
}

func renderJSON(w io.Writer, result *lineage.ProcedureAnalysis) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// renderTable prints an aligned terminal table of every resolved
// source→target column edge, plus a summary line of table/diagnostic
// counts.
func renderTable(w io.Writer, result *lineage.ProcedureAnalysis) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source Table", "Source Column", "Target Table", "Target Column"})
	for _, cl := range result.ColumnLineages {
		t.AppendRow(table.Row{cl.SourceTable, cl.SourceColumn, cl.TargetTable, cl.TargetColumn})
	}
	t.Render()

	fmt.Fprintf(w, "\nprocedure: %s  inputs: %d  outputs: %d  diagnostics: %d\n",
		result.ProcedureName, len(result.InputTables), len(result.OutputTables), len(result.Diagnostics))
	return nil
}
