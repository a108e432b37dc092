package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Glaschu/tsqllineage/internal/lineage"
	"github.com/Glaschu/tsqllineage/pkg/parser"
)

// GraphOptions holds the flags for the graph command.
type GraphOptions struct {
	SchemaFile string
	Upstream   string
	Downstream string
	Depth      int
	Format     string
}

// NewGraphCommand creates the graph command.
func NewGraphCommand() *cobra.Command {
	opts := &GraphOptions{}

	cmd := &cobra.Command{
		Use:   "graph <path.sql>",
		Short: "Query the column lineage graph of an analyzed script",
		Long: `Analyzes a single T-SQL script and reports the upstream sources or
downstream consumers of one column, optionally limited to a max traversal
depth. Column identifiers are "table.column", case-insensitive.`,
		Example: `  tsqllineage graph proc.sql --upstream dbo.report.total
  tsqllineage graph proc.sql --downstream dbo.orders.customer_id --depth 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaFile, "schema", "", "path to a schema registry file (YAML or JSON)")
	cmd.Flags().StringVar(&opts.Upstream, "upstream", "", "report columns feeding into table.column")
	cmd.Flags().StringVar(&opts.Downstream, "downstream", "", "report columns fed by table.column")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "max traversal depth (0 = unlimited)")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format: text|json")

	return cmd
}

func runGraph(cmd *cobra.Command, path string, opts *GraphOptions) error {
	if opts.Upstream == "" && opts.Downstream == "" {
		return fmt.Errorf("graph requires --upstream or --downstream")
	}

	registry, err := loadSchemaRegistry(opts.SchemaFile)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the CLI's own arguments
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	prog, err := parser.Parse(string(data))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	result, err := lineage.NewAnalyzer(registry, nil).Analyze(prog)
	if err != nil {
		return fmt.Errorf("analyzing %s: %w", path, err)
	}

	edges := buildEdgeIndex(result.ColumnLineages)

	var target string
	var walk func(col string, maxDepth int) []string
	if opts.Upstream != "" {
		target = opts.Upstream
		walk = func(col string, maxDepth int) []string { return traverse(edges.sourcesOf, col, maxDepth) }
	} else {
		target = opts.Downstream
		walk = func(col string, maxDepth int) []string { return traverse(edges.targetsOf, col, maxDepth) }
	}

	found := walk(strings.ToLower(target), opts.Depth)

	if opts.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"column": target, "columns": found})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s of %s (%d):\n", directionLabel(opts), target, len(found))
	for _, c := range found {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", c)
	}
	return nil
}

func directionLabel(opts *GraphOptions) string {
	if opts.Upstream != "" {
		return "Upstream sources"
	}
	return "Downstream consumers"
}

type edgeIndex struct {
	sourcesOf map[string][]string // target column -> its direct source columns
	targetsOf map[string][]string // source column -> the columns it directly feeds
}

func buildEdgeIndex(entries []lineage.ColumnLineageEntry) *edgeIndex {
	idx := &edgeIndex{sourcesOf: map[string][]string{}, targetsOf: map[string][]string{}}
	for _, e := range entries {
		src := strings.ToLower(e.SourceTable + "." + e.SourceColumn)
		tgt := strings.ToLower(e.TargetTable + "." + e.TargetColumn)
		idx.sourcesOf[tgt] = append(idx.sourcesOf[tgt], src)
		idx.targetsOf[src] = append(idx.targetsOf[src], tgt)
	}
	return idx
}

// traverse walks neighbors from col breadth-first, capped at maxDepth
// hops (0 = unlimited), returning every reached column exactly once in
// discovery order.
func traverse(adjacency map[string][]string, col string, maxDepth int) []string {
	visited := map[string]bool{}
	var result []string

	type frontierEntry struct {
		col   string
		depth int
	}
	queue := []frontierEntry{{col: col, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if maxDepth > 0 && cur.depth >= maxDepth {
			continue
		}
		for _, next := range adjacency[cur.col] {
			if visited[next] {
				continue
			}
			visited[next] = true
			result = append(result, next)
			queue = append(queue, frontierEntry{col: next, depth: cur.depth + 1})
		}
	}
	return result
}
