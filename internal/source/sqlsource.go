package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// SQLLoader extracts rows by running a query against a named data source.
type SQLLoader struct {
	Sources *Sources
}

// Load runs the request's query and converts the result set into a table.
func (l *SQLLoader) Load(ctx context.Context, req Request) (*table.Table, error) {
	fail := func(err error) (*table.Table, error) {
		return nil, &LoadError{Kind: project.KindSQL, Source: req.SourceName, Err: err}
	}

	db, err := l.Sources.DB(ctx, req.SourceName)
	if err != nil {
		return fail(err)
	}

	query := strings.TrimRight(strings.TrimSpace(req.Query), ";")
	if req.Limit > 0 {
		query = fmt.Sprintf("SELECT * FROM (%s) AS tablelink_sample LIMIT %d", query, req.Limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fail(fmt.Errorf("query: %w", err))
	}
	defer rows.Close()

	t, err := scanRows(rows)
	if err != nil {
		return fail(err)
	}
	out, err := projectColumns(t, req)
	if err != nil {
		return fail(err)
	}
	return out, nil
}

// scanRows drains a result set into a table, normalizing driver byte slices
// to strings.
func scanRows(rows *sql.Rows) (*table.Table, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	t, err := table.New(cols...)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		row := make([]any, len(cols))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		if err := t.AppendRow(row); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return t, nil
}
