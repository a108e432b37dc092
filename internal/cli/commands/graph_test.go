package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphCommand_Upstream(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "proc.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte(samplePassthroughSQL), 0o644))

	cmd := NewGraphCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{sqlPath, "--upstream", "dbo.report.rid"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "dbo.customer.cid")
}

func TestGraphCommand_Downstream(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "proc.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte(samplePassthroughSQL), 0o644))

	cmd := NewGraphCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{sqlPath, "--downstream", "dbo.customer.cid"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "dbo.report.rid")
}

func TestGraphCommand_RequiresDirection(t *testing.T) {
	dir := t.TempDir()
	sqlPath := filepath.Join(dir, "proc.sql")
	require.NoError(t, os.WriteFile(sqlPath, []byte(samplePassthroughSQL), 0o644))

	cmd := NewGraphCommand()
	cmd.SetArgs([]string{sqlPath})
	assert.Error(t, cmd.Execute())
}
