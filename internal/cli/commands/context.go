// Package commands implements the tablelink subcommands.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tablelink-labs/tablelink/internal/cli/config"
	"github.com/tablelink-labs/tablelink/internal/cli/output"
	"github.com/tablelink-labs/tablelink/internal/engine"
	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/source"
	"github.com/tablelink-labs/tablelink/internal/validate"
)

// CommandContext bundles everything a subcommand needs: loaded
// configuration, the parsed project and the data-source registry. The
// cleanup function closes opened connections.
type CommandContext struct {
	Config   *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Project  *project.Project
	Sources  *source.Sources
}

// NewCommandContext loads the project file and prepares shared
// collaborators. Callers must invoke cleanup when done.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := config.GetCurrentConfig()

	p, err := project.Load(cfg.ProjectFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading project %s: %w", cfg.ProjectFile, err)
	}

	sources := source.NewSources(p.Options.Sources)
	cmdCtx := &CommandContext{
		Config:   cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.FromContext(cmd.Context()),
		Project:  p,
		Sources:  sources,
	}
	cleanup := func() { _ = sources.Close() }
	return cmdCtx, cleanup, nil
}

// Rules assembles the active validation rule list: structural rules always,
// data-aware rules when --data is set.
func (c *CommandContext) Rules() []validate.Rule {
	rules := validate.StructuralRules()
	if c.Config.Data {
		sampler := &source.Sampler{Registry: source.NewRegistry(c.Sources)}
		rules = append(rules, validate.DataRules(sampler, c.Config.SampleSize)...)
	}
	return rules
}

// Engine builds a materialization engine over the command's sources.
func (c *CommandContext) Engine() *engine.Engine {
	return engine.New(engine.Config{
		Loaders: source.NewRegistry(c.Sources),
		Rules:   c.Rules(),
		Logger:  c.Logger,
	})
}
