// Package config loads the tool configuration for the tablelink CLI.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
package config

import (
	"context"
	"log/slog"
)

// Config holds all CLI configuration options.
type Config struct {
	ProjectFile string `mapstructure:"project"`
	OutDir      string `mapstructure:"out_dir"`
	Verbose     bool   `mapstructure:"verbose"`
	Data        bool   `mapstructure:"data"`
	SampleSize  int    `mapstructure:"sample_size"`
}

// Default configuration values.
const (
	DefaultProjectFile = "project.yaml"
	DefaultOutDir      = "output"
	DefaultSampleSize  = 1000
)

// loggerKey stores the logger in the command context.
type loggerKey struct{}

// LoggerKey returns the context key for the logger, shared with the root
// command without an import cycle.
func LoggerKey() any { return loggerKey{} }

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}
