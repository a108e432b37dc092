// Package config provides shared configuration types for tsqllineage.
// It is decoupled from CLI concerns so other tools (a future LSP,
// batch runners) can load project configuration without pulling in
// cobra/pflag.
package config

// CacheConfig controls the local analysis-run cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// Config holds the full set of options tsqllineage's CLI understands.
type Config struct {
	SchemaFile   string      `koanf:"schema_file"`
	OutputFormat string      `koanf:"output"` // json|table|openlineage
	OutputPath   string      `koanf:"output_path"`
	Watch        bool        `koanf:"watch"`
	Verbose      bool        `koanf:"verbose"`
	LogLevel     string      `koanf:"log_level"`
	Cache        CacheConfig `koanf:"cache"`
}
