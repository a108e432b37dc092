package output

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/Glaschu/tsqllineage/internal/lineage"
)

// openLineageDataset is one entry in an OpenLineage job's inputs/outputs
// facet list: a namespaced dataset plus the column-level schema facet
// OpenLineage's column-lineage spec expects.
type openLineageDataset struct {
	Namespace string                 `json:"namespace"`
	Name      string                 `json:"name"`
	Facets    map[string]interface{} `json:"facets,omitempty"`
}

type openLineageColumnLineageField struct {
	InputFields []openLineageInputField `json:"inputFields"`
}

type openLineageInputField struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Field     string `json:"field"`
}

type openLineageRun struct {
	Job     openLineageJob        `json:"job"`
	Inputs  []openLineageDataset   `json:"inputs"`
	Outputs []openLineageDataset   `json:"outputs"`
	EventTime string               `json:"eventTime"`
	Run     map[string]interface{} `json:"run"`
}

type openLineageJob struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

const openLineageNamespace = "tsqllineage"

// renderOpenLineage writes result as an OpenLineage-style job-completed
// event: one dataset per input/output table, with the target datasets'
// columnLineage facet naming which source-table columns feed each
// target column. This is a second serialization of the exact same
// ProcedureAnalysis the JSON/table renderers use, not a new analysis.
func renderOpenLineage(w io.Writer, result *lineage.ProcedureAnalysis) error {
	byTarget := map[string][]lineage.ColumnLineageEntry{}
	for _, cl := range result.ColumnLineages {
		byTarget[cl.TargetTable] = append(byTarget[cl.TargetTable], cl)
	}

	outputs := make([]openLineageDataset, 0, len(result.OutputTables))
	for _, tbl := range result.OutputTables {
		ds := openLineageDataset{Namespace: openLineageNamespace, Name: tbl}

		byColumn := map[string][]openLineageInputField{}
		for _, cl := range byTarget[tbl] {
			byColumn[cl.TargetColumn] = append(byColumn[cl.TargetColumn], openLineageInputField{
				Namespace: openLineageNamespace,
				Name:      cl.SourceTable,
				Field:     cl.SourceColumn,
			})
		}
		if len(byColumn) > 0 {
			fields := map[string]openLineageColumnLineageField{}
			for col, inputs := range byColumn {
				fields[col] = openLineageColumnLineageField{InputFields: inputs}
			}
			ds.Facets = map[string]interface{}{
				"columnLineage": map[string]interface{}{"fields": fields},
			}
		}
		outputs = append(outputs, ds)
	}

	inputs := make([]openLineageDataset, 0, len(result.InputTables))
	for _, tbl := range result.InputTables {
		inputs = append(inputs, openLineageDataset{Namespace: openLineageNamespace, Name: tbl})
	}

	sort.Slice(inputs, func(i, j int) bool { return inputs[i].Name < inputs[j].Name })
	sort.Slice(outputs, func(i, j int) bool { return outputs[i].Name < outputs[j].Name })

	event := openLineageRun{
		Job:       openLineageJob{Namespace: openLineageNamespace, Name: result.ProcedureName},
		Inputs:    inputs,
		Outputs:   outputs,
		EventTime: result.AnalysisTimestamp,
		Run:       map[string]interface{}{"runId": result.AnalysisRunID},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(event)
}
