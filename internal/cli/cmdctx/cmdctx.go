// Package cmdctx carries the loaded configuration and logger from the
// root command's PersistentPreRunE down to subcommands via
// context.Context, without commands needing to import the root cli
// package (which would create an import cycle, since root wires up
// every subcommand).
package cmdctx

import (
	"context"
	"log/slog"

	"github.com/Glaschu/tsqllineage/internal/config"
)

type configKey struct{}
type loggerKey struct{}

// WithConfig returns a context carrying cfg, retrievable with Config.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger returns a context carrying logger, retrievable with Logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Config retrieves the config stored by WithConfig, falling back to
// defaults if none was stored (e.g. a unit test invoking a subcommand's
// RunE directly, bypassing the root command's PersistentPreRunE).
func Config(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

// Logger retrieves the logger stored by WithLogger, falling back to a
// discarding logger if none was stored.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
