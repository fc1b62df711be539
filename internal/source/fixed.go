package source

import (
	"context"
	"fmt"
	"sort"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// FixedLoader materializes literal rows declared in the project file.
type FixedLoader struct{}

// Load builds a table from the request's literal row maps. Column order
// comes from the request columns, falling back to business keys, falling
// back to the sorted keys of the first row. Missing cells become nil so
// sparse literal rows stay usable.
func (l *FixedLoader) Load(_ context.Context, req Request) (*table.Table, error) {
	if len(req.Rows) == 0 {
		return nil, &LoadError{Kind: project.KindFixed, Err: fmt.Errorf("no literal rows declared")}
	}

	columns := req.Columns
	if len(columns) == 0 {
		columns = req.BusinessKeys
	}
	if len(columns) == 0 {
		for k := range req.Rows[0] {
			columns = append(columns, k)
		}
		sort.Strings(columns)
	}

	t, err := table.New(columns...)
	if err != nil {
		return nil, &LoadError{Kind: project.KindFixed, Err: err}
	}
	for i, rowMap := range req.Rows {
		for k := range rowMap {
			if t.ColumnIndex(k) < 0 {
				return nil, &LoadError{Kind: project.KindFixed,
					Err: fmt.Errorf("row %d has undeclared column %q (declared: %v)", i, k, columns)}
			}
		}
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = rowMap[c]
		}
		if err := t.AppendRow(row); err != nil {
			return nil, &LoadError{Kind: project.KindFixed, Err: err}
		}
	}
	return truncate(t, req.Limit), nil
}
