package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Glaschu/tsqllineage/internal/lineage"
)

func sampleAnalysis() *lineage.ProcedureAnalysis {
	return &lineage.ProcedureAnalysis{
		AnalysisRunID: "run-1",
		ProcedureName: "dbo.LoadReport",
		InputTables:   []string{"dbo.customer"},
		OutputTables:  []string{"dbo.report"},
		ColumnLineages: []lineage.ColumnLineageEntry{
			{SourceTable: "dbo.customer", SourceColumn: "cid", TargetTable: "dbo.report", TargetColumn: "rid"},
		},
		AnalysisTimestamp: "2026-01-01T00:00:00Z",
	}
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleAnalysis(), FormatJSON))

	var decoded lineage.ProcedureAnalysis
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "dbo.LoadReport", decoded.ProcedureName)
}

func TestRender_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleAnalysis(), FormatTable))

	out := buf.String()
	assert.Contains(t, out, "dbo.customer")
	assert.Contains(t, out, "dbo.report")
	assert.Contains(t, out, "cid")
	assert.Contains(t, out, "procedure: dbo.LoadReport")
}

func TestRender_OpenLineage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleAnalysis(), FormatOpenLineage))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	job := decoded["job"].(map[string]any)
	assert.Equal(t, "dbo.LoadReport", job["name"])

	outputs := decoded["outputs"].([]any)
	require.Len(t, outputs, 1)
	out0 := outputs[0].(map[string]any)
	assert.Equal(t, "dbo.report", out0["name"])

	facets := out0["facets"].(map[string]any)
	colLineage := facets["columnLineage"].(map[string]any)
	fields := colLineage["fields"].(map[string]any)
	require.Contains(t, fields, "rid")
}

func TestRender_UnknownFormatFallsBackToJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleAnalysis(), Format("nonsense")))

	var decoded lineage.ProcedureAnalysis
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded.AnalysisRunID)
}
