// Package engine provides the entity materialization engine. It resolves
// the dependency order, materializes each entity's table through the
// extract/append/clean/replace/filter/link/unnest pipeline and establishes
// constraint-checked foreign-key links between entities.
package engine

import (
	"log/slog"

	"github.com/tablelink-labs/tablelink/internal/source"
	"github.com/tablelink-labs/tablelink/internal/validate"
)

// Engine orchestrates validation and materialization of a project.
type Engine struct {
	logger  *slog.Logger
	loaders *source.Registry
	runner  *validate.Runner
}

// Config holds engine configuration.
type Config struct {
	// Loaders dispatches extraction requests by entity kind.
	Loaders *source.Registry
	// Rules is the active validation rule list. Defaults to the structural
	// rules.
	Rules []validate.Rule
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// New creates an engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rules := cfg.Rules
	if rules == nil {
		rules = validate.StructuralRules()
	}
	return &Engine{
		logger:  logger,
		loaders: cfg.Loaders,
		runner:  validate.NewRunner(rules),
	}
}
