package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// CSVLoader reads delimited files through an in-memory DuckDB instance.
// Delegating to read_csv_auto keeps type inference and quoting rules
// consistent with the sql kind.
type CSVLoader struct{}

// Load reads the request's file into a table.
func (l *CSVLoader) Load(ctx context.Context, req Request) (*table.Table, error) {
	fail := func(err error) (*table.Table, error) {
		return nil, &LoadError{Kind: project.KindCSV, Source: req.Path, Err: err}
	}
	if req.Path == "" {
		return fail(fmt.Errorf("no file path configured"))
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return fail(fmt.Errorf("opening duckdb: %w", err))
	}
	defer db.Close()

	opts := "header=true"
	if req.Delimiter != "" {
		opts += fmt.Sprintf(", delim='%s'", escapeSingleQuotes(req.Delimiter))
	}
	query := fmt.Sprintf("SELECT * FROM read_csv_auto('%s', %s)", escapeSingleQuotes(req.Path), opts)
	if req.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Limit)
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return fail(fmt.Errorf("reading file: %w", err))
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

func escapeSingleQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
