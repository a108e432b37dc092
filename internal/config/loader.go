package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// maxUpwardSearchLevels limits how far up the directory tree FindConfigFile
// walks looking for a tsqllineage.yaml.
const maxUpwardSearchLevels = 10

// FindConfigFile searches startDir and its ancestors (up to
// maxUpwardSearchLevels) for tsqllineage.yaml or tsqllineage.yml, returning
// the empty string if none is found.
func FindConfigFile(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

var configFileUsed string

// GetConfigFileUsed returns the path to the config file loaded by the most
// recent call to Load, or "" if none was found.
func GetConfigFileUsed() string {
	return configFileUsed
}

// Load builds a Config by layering, lowest to highest precedence: built-in
// defaults, a discovered tsqllineage.yaml, TSQLLINEAGE_-prefixed
// environment variables, then CLI flags that were explicitly set.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"output":        DefaultOutputFormat,
		"log_level":     DefaultLogLevel,
		"cache.path":    DefaultCachePath,
		"cache.enabled": true,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("loading config defaults: %w", err)
	}

	if cfgFile == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfgFile = FindConfigFile(cwd)
		}
	}
	configFileUsed = cfgFile
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", cfgFile, err)
		}
	}

	if err := k.Load(env.Provider("TSQLLINEAGE_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "TSQLLINEAGE_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	ApplyDefaults(&cfg)

	return &cfg, nil
}
