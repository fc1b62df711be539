package engine

// run.go - execution orchestration for materializing a project

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
	"github.com/tablelink-labs/tablelink/internal/validate"
)

// RunStatus is the terminal state of a run.
type RunStatus string

// Run statuses.
const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// EntityResult records one entity's materialization outcome.
type EntityResult struct {
	Entity  string
	Rows    int
	Columns int
	Elapsed time.Duration
}

// RunResult is the outcome of one processing run. On failure the store
// still holds every entity materialized before the failing one, for
// diagnostic inspection.
type RunResult struct {
	ID       string
	Status   RunStatus
	Store    *table.Store
	Order    []string
	Entities []EntityResult
	Elapsed  time.Duration
}

// Validate runs the engine's validation rules against the project model.
// It always completes and reports all issues; it never aborts.
func (e *Engine) Validate(ctx context.Context, p *project.Project) []validate.Issue {
	return e.runner.Validate(ctx, p)
}

// Run validates the project, resolves the dependency order and
// materializes every entity in that order. seed may pre-fill the table
// store; pass nil for a fresh run. Any materialization failure aborts the
// run with a single fatal error identifying entity, step and cause; there
// is no skip-and-continue mode.
func (e *Engine) Run(ctx context.Context, p *project.Project, seed map[string]*table.Table) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		ID:     uuid.NewString(),
		Status: RunFailed,
		Store:  table.NewStoreFrom(seed),
	}
	e.logger.Info("starting run", "run_id", result.ID, "entities", p.Entities.Len())

	issues := e.Validate(ctx, p)
	if validate.Blocking(issues) {
		errs := 0
		for _, is := range issues {
			if is.Severity == validate.SeverityError {
				errs++
			}
		}
		e.logger.Error("validation failed", "run_id", result.ID, "errors", errs)
		return result, fmt.Errorf("validation reported %d error issue(s); run `validate` for details", errs)
	}

	order, err := p.Graph().TopologicalSort()
	if err != nil {
		e.logger.Error("dependency resolution failed", "run_id", result.ID, "error", err)
		return result, err
	}
	result.Order = order
	e.logger.Debug("resolved processing order", "order", order)

	for _, name := range order {
		if _, seeded := result.Store.Get(name); seeded {
			e.logger.Debug("entity pre-seeded, skipping", "entity", name)
			continue
		}
		entStart := time.Now()
		t, err := e.materialize(ctx, p, name, result.Store)
		if err != nil {
			e.logger.Error("materialization failed", "run_id", result.ID, "entity", name, "error", err)
			result.Elapsed = time.Since(start)
			return result, err
		}
		if err := result.Store.Put(name, t); err != nil {
			result.Elapsed = time.Since(start)
			return result, &StepError{Entity: name, Step: StepStore, Err: err}
		}
		elapsed := time.Since(entStart)
		result.Entities = append(result.Entities, EntityResult{
			Entity:  name,
			Rows:    t.NumRows(),
			Columns: t.NumColumns(),
			Elapsed: elapsed,
		})
		e.logger.Debug("entity materialized", "entity", name, "rows", t.NumRows(), "elapsed", elapsed.Round(time.Millisecond))
	}

	result.Status = RunCompleted
	result.Elapsed = time.Since(start)
	e.logger.Info("run completed", "run_id", result.ID, "elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}
