package config

// Default configuration values.
const (
	DefaultOutputFormat = "json"
	DefaultLogLevel     = "info"
	DefaultCachePath    = ".tsqllineage/cache.db"
	ConfigFileName      = "tsqllineage.yaml"
	ConfigFileNameAlt   = "tsqllineage.yml"
)

// ApplyDefaults fills in zero-valued fields of c with their defaults.
func ApplyDefaults(c *Config) {
	if c == nil {
		return
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Cache.Path == "" {
		c.Cache.Path = DefaultCachePath
	}
}
