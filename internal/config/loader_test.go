package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputFormat, cfg.OutputFormat)
	assert.Equal(t, DefaultCachePath, cfg.Cache.Path)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("output: table\nschema_file: catalog.yaml\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.Equal(t, "catalog.yaml", cfg.SchemaFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("output: table\n"), 0o644))

	t.Setenv("TSQLLINEAGE_OUTPUT", "openlineage")
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "openlineage", cfg.OutputFormat)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("TSQLLINEAGE_OUTPUT", "openlineage")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("output", "", "")
	require.NoError(t, flags.Set("output", "table"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, "table", cfg.OutputFormat)
}

func TestFindConfigFile_WalksUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("output: json\n"), 0o644))

	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found := FindConfigFile(nested)
	assert.Equal(t, filepath.Join(root, ConfigFileName), found)
}

func TestFindConfigFile_NoneFound(t *testing.T) {
	assert.Empty(t, FindConfigFile(t.TempDir()))
}
