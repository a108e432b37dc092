package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePassthroughSQL = `
CREATE TABLE #t (id INT, name VARCHAR(50));
INSERT INTO #t SELECT cid, cname FROM dbo.Customer;
INSERT INTO dbo.Report(rid, rname) SELECT id, name FROM #t;
`

func TestAnalyzeCommand_SingleFile_JSON(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "proc.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte(samplePassthroughSQL), 0o644))

	cmd := NewAnalyzeCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{sqlPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"source_table": "dbo.customer"`)
	assert.Contains(t, out.String(), `"target_table": "dbo.report"`)
}

func TestAnalyzeCommand_WritesToOutFile(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "proc.sql")
	outPath := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(sqlPath, []byte(samplePassthroughSQL), 0o644))

	cmd := NewAnalyzeCommand()
	cmd.SetArgs([]string{sqlPath, "--out", outPath})

	require.NoError(t, cmd.Execute())

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dbo.report")
}

func TestAnalyzeCommand_TableFormat(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "proc.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte(samplePassthroughSQL), 0o644))

	cmd := NewAnalyzeCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{sqlPath, "--format", "table"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "dbo.customer")
	assert.Contains(t, out.String(), "dbo.report")
}

func TestAnalyzeCommand_UnreadablePathFails(t *testing.T) {
	cmd := NewAnalyzeCommand()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "missing.sql")})
	assert.Error(t, cmd.Execute())
}
