// Package source provides the loader collaborators that extract raw tables
// for the materialization engine, and the data-source registry that
// resolves named sources to live connections. The engine only ever passes
// source names across this boundary, never connection details.
package source

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// Request carries the kind-specific parameters of one extraction. The
// engine builds it from an entity or append-source configuration.
type Request struct {
	Kind project.Kind

	// Columns restricts and orders the result columns. Empty means "all
	// columns as delivered by the source".
	Columns []string

	// BusinessKeys fix the column order for fixed rows when Columns is
	// empty.
	BusinessKeys []string

	// sql kind
	SourceName string
	Query      string

	// fixed kind
	Rows []map[string]any

	// csv kind
	Path      string
	Delimiter string

	// Limit truncates the result to the first N rows when positive.
	// Data-aware validation uses it for bounded sampling.
	Limit int
}

// Loader extracts a raw table for one kind. The returned table never
// carries a system_id column; identity assignment is the engine's job.
// Loaders are synchronous; retry policy for flaky sources belongs to the
// loader, not the engine.
type Loader interface {
	Load(ctx context.Context, req Request) (*table.Table, error)
}

// LoadError is a typed extraction failure: connection failure, malformed
// source or missing columns.
type LoadError struct {
	Kind   project.Kind
	Source string // source name, file path or "" for literal rows
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("loading %s source %q: %v", e.Kind, e.Source, e.Err)
	}
	return fmt.Sprintf("loading %s source: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// UnknownKindError reports an extraction request for an unregistered kind.
type UnknownKindError struct {
	Kind      project.Kind
	Available []string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("no loader registered for kind %q (available: %s)",
		e.Kind, strings.Join(e.Available, ", "))
}

// Registry dispatches extraction requests to the loader registered for the
// request's kind.
type Registry struct {
	loaders map[project.Kind]Loader
}

// NewRegistry creates a registry with the standard loaders backed by the
// given data sources: fixed (literal rows), sql (named data source) and csv
// (DuckDB file ingestion).
func NewRegistry(sources *Sources) *Registry {
	return &Registry{loaders: map[project.Kind]Loader{
		project.KindFixed: &FixedLoader{},
		project.KindSQL:   &SQLLoader{Sources: sources},
		project.KindCSV:   &CSVLoader{},
	}}
}

// Register installs or replaces the loader for a kind.
func (r *Registry) Register(kind project.Kind, l Loader) {
	r.loaders[kind] = l
}

// Load dispatches to the loader for the request's kind.
func (r *Registry) Load(ctx context.Context, req Request) (*table.Table, error) {
	l, ok := r.loaders[req.Kind]
	if !ok {
		kinds := make([]string, 0, len(r.loaders))
		for k := range r.loaders {
			kinds = append(kinds, string(k))
		}
		sort.Strings(kinds)
		return nil, &UnknownKindError{Kind: req.Kind, Available: kinds}
	}
	return l.Load(ctx, req)
}

// projectColumns restricts a loaded table to the requested columns, in
// request order. A requested column missing from the source is a load
// error.
func projectColumns(t *table.Table, req Request) (*table.Table, error) {
	if len(req.Columns) == 0 {
		return t, nil
	}
	var missing []string
	for _, c := range req.Columns {
		if !t.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("columns %v not present in source (available: %v)", missing, t.SortedColumns())
	}
	out, err := table.New(req.Columns...)
	if err != nil {
		return nil, err
	}
	for i := 0; i < t.NumRows(); i++ {
		row := make([]any, len(req.Columns))
		for j, c := range req.Columns {
			v, _ := t.Cell(i, c)
			row[j] = v
		}
		if err := out.AppendRow(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// truncate applies the request's row limit.
func truncate(t *table.Table, limit int) *table.Table {
	if limit <= 0 || t.NumRows() <= limit {
		return t
	}
	n := 0
	return t.FilterRows(func([]any) bool {
		n++
		return n <= limit
	})
}
