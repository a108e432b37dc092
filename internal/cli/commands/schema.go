package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Glaschu/tsqllineage/internal/catalog"
)

// SchemaDumpOptions holds the flags for the schema dump command.
type SchemaDumpOptions struct {
	DSN     string
	OutPath string
}

// schemaExportFile mirrors the on-disk shape the lineage package's
// SchemaRegistry loader expects (tables -> ordered column list).
type schemaExportFile struct {
	Tables map[string][]schemaExportColumn `yaml:"tables"`
}

type schemaExportColumn struct {
	Name string `yaml:"name"`
}

// NewSchemaCommand creates the "schema" command group.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage schema registry files",
	}
	cmd.AddCommand(newSchemaDumpCommand())
	return cmd
}

func newSchemaDumpCommand() *cobra.Command {
	opts := &SchemaDumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump a Postgres-compatible catalog's column metadata to a schema file",
		Long: `Connects to a Postgres-compatible database and reads every user table's
column list from information_schema.columns, writing it out in the YAML
format the analyze command's --schema flag consumes.

This is a best-effort convenience: tsqllineage carries no MSSQL driver, so
this path is useful when a procedure's permanent tables are mirrored or
cataloged in a Postgres-compatible store. The primary, always-available
schema source remains a hand-written or hand-edited YAML/JSON file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchemaDump(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "Postgres-compatible connection string")
	cmd.Flags().StringVar(&opts.OutPath, "out", "", "write the schema file here instead of stdout")
	_ = cmd.MarkFlagRequired("dsn")

	return cmd
}

func runSchemaDump(cmd *cobra.Command, opts *SchemaDumpOptions) error {
	registry, err := catalog.DumpSchema(cmd.Context(), opts.DSN)
	if err != nil {
		return fmt.Errorf("dumping schema: %w", err)
	}

	doc := schemaExportFile{Tables: map[string][]schemaExportColumn{}}
	for _, table := range registry.TableNames() {
		var cols []schemaExportColumn
		for _, name := range registry.ColumnsOf(table) {
			cols = append(cols, schemaExportColumn{Name: name})
		}
		doc.Tables[table] = cols
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding schema file: %w", err)
	}

	if opts.OutPath == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
		return err
	}
	return os.WriteFile(opts.OutPath, data, 0o644) //nolint:gosec // schema files are not secrets
}
