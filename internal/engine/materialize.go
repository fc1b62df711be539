package engine

// materialize.go - the per-entity pipeline: extract, append, identity
// assignment, data quality, replacements, filters, linking, reshaping and
// extra-column synthesis.

import (
	"context"
	"fmt"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/source"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// segmentConfig is the effective cleaning configuration for one block of
// rows: the primary extraction or one append source. Append sources inherit
// the parent entity's values unless they override them.
type segmentConfig struct {
	dropDuplicates project.DropDuplicates
	dropEmptyRows  project.DropEmptyRows
	replacements   project.Replacements
	filters        []project.Filter
}

func parentConfig(ent *project.Entity) segmentConfig {
	return segmentConfig{
		dropDuplicates: ent.DropDuplicates,
		dropEmptyRows:  ent.DropEmptyRows,
		replacements:   ent.Replacements,
		filters:        ent.Filters,
	}
}

func appendConfig(parent segmentConfig, app *project.AppendSource) segmentConfig {
	cfg := parent
	if app.DropDuplicates != nil {
		cfg.dropDuplicates = *app.DropDuplicates
	}
	if app.DropEmptyRows != nil {
		cfg.dropEmptyRows = *app.DropEmptyRows
	}
	if app.Replacements != nil {
		cfg.replacements = *app.Replacements
	}
	if app.Filters != nil {
		cfg.filters = app.Filters
	}
	return cfg
}

// materialize runs the full pipeline for one entity. The store must already
// hold every entity this one depends on.
func (e *Engine) materialize(ctx context.Context, p *project.Project, name string, store *table.Store) (*table.Table, error) {
	ent, ok := p.Entities.Get(name)
	if !ok {
		return nil, &StepError{Entity: name, Step: StepExtract, Err: fmt.Errorf("entity not declared")}
	}
	fail := func(step Step, err error) (*table.Table, error) {
		return nil, &StepError{Entity: name, Step: step, Err: err}
	}

	// 1. Extract the primary source.
	working, err := e.extract(ctx, ent.Kind, primaryRequest(ent), ent.Source, store)
	if err != nil {
		return fail(StepExtract, err)
	}

	segCfgs := []segmentConfig{parentConfig(ent)}
	segs := make([]int, working.NumRows())

	// 2. Append additional sources, positionally, preserving the primary
	// table's column order and names.
	for i := range ent.Append {
		app := &ent.Append[i]
		blk, err := e.extract(ctx, app.Kind, appendRequest(ent, app), app.Source, store)
		if err != nil {
			return fail(StepAppend, fmt.Errorf("source %d: %w", i, err))
		}
		if blk.NumColumns() != working.NumColumns() {
			return fail(StepAppend, fmt.Errorf("source %d: has %d columns, primary table has %d (values are positional)",
				i, blk.NumColumns(), working.NumColumns()))
		}
		if app.CheckColumnNames {
			want, got := working.Columns(), blk.Columns()
			for j := range want {
				if want[j] != got[j] {
					return fail(StepAppend, fmt.Errorf("source %d: column %d is %q, primary table has %q",
						i, j, got[j], want[j]))
				}
			}
		}
		cfg := appendConfig(segCfgs[0], app)
		if app.DropDuplicates != nil {
			// An explicit per-source override dedupes its own block before
			// concatenation; the whole-table pass afterwards runs under the
			// parent's configuration and skips blocks that turned
			// deduplication off.
			blk, err = dedupeTable(blk, cfg.dropDuplicates, ent.BusinessKeys)
			if err != nil {
				return fail(StepAppend, fmt.Errorf("source %d: %w", i, err))
			}
		}
		segCfgs = append(segCfgs, cfg)
		segIdx := len(segCfgs) - 1
		for r := 0; r < blk.NumRows(); r++ {
			if err := working.AppendRow(append([]any(nil), blk.Row(r)...)); err != nil {
				return fail(StepAppend, err)
			}
			segs = append(segs, segIdx)
		}
	}

	// 3. Assign system_id across the concatenated rows, before any
	// row-dropping step so surviving ids stay sparse but stable.
	t, err := withSystemID(working)
	if err != nil {
		return fail(StepAssignID, err)
	}

	// 4. Data quality.
	t, segs, err = dropDuplicateRows(t, segs, segCfgs, ent.BusinessKeys)
	if err != nil {
		return fail(StepQuality, err)
	}
	t, segs, err = dropEmptyRows(t, segs, segCfgs)
	if err != nil {
		return fail(StepQuality, err)
	}

	// 5. Replacements.
	if err := applyReplacements(t, segs, segCfgs); err != nil {
		return fail(StepReplace, err)
	}

	// 6. Post-load filters.
	t, segs, err = applyFilters(t, segs, segCfgs, store)
	if err != nil {
		return fail(StepFilter, err)
	}
	_ = segs // provenance is irrelevant from here on

	// 7. Foreign-key links, in declared order.
	for i := range ent.ForeignKeys {
		fk := &ent.ForeignKeys[i]
		remote, ok := store.Get(fk.RemoteEntity)
		if !ok {
			return fail(StepLink, fmt.Errorf("remote entity %q has no materialized table", fk.RemoteEntity))
		}
		remoteEnt, ok := p.Entities.Get(fk.RemoteEntity)
		if !ok {
			return fail(StepLink, fmt.Errorf("remote entity %q is not declared", fk.RemoteEntity))
		}
		t, err = link(t, name, remote, fk.RemoteEntity, remoteEnt.PublicID, fk)
		if err != nil {
			return fail(StepLink, err)
		}
	}

	// 8. Unnest.
	if ent.Unnest != nil {
		t, err = unnest(t, ent.Unnest)
		if err != nil {
			return fail(StepUnnest, err)
		}
	}

	// 9. Extra columns.
	if err := addExtraColumns(t, ent.ExtraColumns); err != nil {
		return fail(StepExtraColumns, err)
	}

	return t, nil
}

// extract obtains a raw table either from an already-materialized entity or
// from the loader registered for the kind.
func (e *Engine) extract(ctx context.Context, kind project.Kind, req source.Request, srcEntity string, store *table.Store) (*table.Table, error) {
	if kind == project.KindEntity {
		src, ok := store.Get(srcEntity)
		if !ok {
			return nil, fmt.Errorf("source entity %q has no materialized table", srcEntity)
		}
		cols := req.Columns
		if len(cols) == 0 {
			for _, c := range src.Columns() {
				if c != table.SystemID {
					cols = append(cols, c)
				}
			}
		}
		return src.Select(cols...)
	}
	return e.loaders.Load(ctx, req)
}

func primaryRequest(ent *project.Entity) source.Request {
	return source.Request{
		Kind:         ent.Kind,
		Columns:      ent.Columns,
		BusinessKeys: ent.BusinessKeys,
		SourceName:   ent.SourceName,
		Query:        ent.Query,
		Rows:         ent.Rows,
		Path:         ent.Path,
		Delimiter:    ent.Delimiter,
	}
}

func appendRequest(ent *project.Entity, app *project.AppendSource) source.Request {
	cols := app.Columns
	if cols == nil {
		cols = ent.Columns
	}
	return source.Request{
		Kind:       app.Kind,
		Columns:    cols,
		SourceName: app.SourceName,
		Query:      app.Query,
		Rows:       app.Rows,
		Path:       app.Path,
		Delimiter:  app.Delimiter,
	}
}

// withSystemID prepends the system_id column holding 1-based sequential
// integers in row order.
func withSystemID(t *table.Table) (*table.Table, error) {
	if t.HasColumn(table.SystemID) {
		return nil, fmt.Errorf("source already delivers a %q column", table.SystemID)
	}
	out, err := table.New(append([]string{table.SystemID}, t.Columns()...)...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < t.NumRows(); i++ {
		row := append([]any{int64(i + 1)}, t.Row(i)...)
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}
