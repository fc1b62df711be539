// Package table provides the in-memory table representation shared across
// the materialization pipeline, plus the write-once store that connects
// materialized entities.
package table

import (
	"fmt"
	"sort"
)

// SystemID is the name of the engine-assigned identity column. It is fixed
// and never user-configurable.
const SystemID = "system_id"

// Table is an ordered set of named columns plus rows. Cells are dynamically
// typed (string, int64, float64, bool or nil). A Table carries no schema
// beyond column names; loaders decide cell types.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty table with the given column names.
// Duplicate column names are an error.
func New(columns ...string) (*Table, error) {
	t := &Table{
		columns: append([]string(nil), columns...),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := t.index[c]; dup {
			return nil, fmt.Errorf("duplicate column %q", c)
		}
		t.index[c] = i
	}
	return t, nil
}

// MustNew is New for statically known column sets, typically in tests.
func MustNew(columns ...string) *Table {
	t, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int { return len(t.rows) }

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int { return len(t.columns) }

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	return -1
}

// AppendRow adds a row. The row length must equal the column count.
func (t *Table) AppendRow(row []any) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// Row returns the i-th row. The returned slice is the table's backing slice;
// callers must not modify it.
func (t *Table) Row(i int) []any { return t.rows[i] }

// Cell returns the value at row i, named column. The second return is false
// when the column does not exist.
func (t *Table) Cell(i int, column string) (any, bool) {
	j, ok := t.index[column]
	if !ok {
		return nil, false
	}
	return t.rows[i][j], true
}

// SetCell sets the value at row i, named column.
func (t *Table) SetCell(i int, column string, v any) error {
	j, ok := t.index[column]
	if !ok {
		return fmt.Errorf("unknown column %q", column)
	}
	t.rows[i][j] = v
	return nil
}

// ColumnValues returns all values of the named column in row order.
func (t *Table) ColumnValues(name string) ([]any, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("unknown column %q", name)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// AddColumn appends a column with the given values. The value count must
// equal the row count, except on an empty table where it defines the rows.
func (t *Table) AddColumn(name string, values []any) error {
	if _, dup := t.index[name]; dup {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(t.rows) == 0 && len(t.columns) == 0 {
		t.columns = []string{name}
		t.index[name] = 0
		for _, v := range values {
			t.rows = append(t.rows, []any{v})
		}
		return nil
	}
	if len(values) != len(t.rows) {
		return fmt.Errorf("column %q has %d values, table has %d rows", name, len(values), len(t.rows))
	}
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, name)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], values[i])
	}
	return nil
}

// DropColumn removes the named column.
func (t *Table) DropColumn(name string) error {
	j, ok := t.index[name]
	if !ok {
		return fmt.Errorf("unknown column %q", name)
	}
	t.columns = append(t.columns[:j], t.columns[j+1:]...)
	delete(t.index, name)
	for c, k := range t.index {
		if k > j {
			t.index[c] = k - 1
		}
	}
	for i := range t.rows {
		t.rows[i] = append(t.rows[i][:j], t.rows[i][j+1:]...)
	}
	return nil
}

// RenameColumn renames a column in place.
func (t *Table) RenameColumn(from, to string) error {
	j, ok := t.index[from]
	if !ok {
		return fmt.Errorf("unknown column %q", from)
	}
	if _, dup := t.index[to]; dup {
		return fmt.Errorf("column %q already exists", to)
	}
	t.columns[j] = to
	delete(t.index, from)
	t.index[to] = j
	return nil
}

// Clone returns a deep copy of the table structure. Cell values are copied
// by reference, which is safe because cells are treated as immutable.
func (t *Table) Clone() *Table {
	c := &Table{
		columns: append([]string(nil), t.columns...),
		index:   make(map[string]int, len(t.index)),
		rows:    make([][]any, len(t.rows)),
	}
	for k, v := range t.index {
		c.index[k] = v
	}
	for i, r := range t.rows {
		c.rows[i] = append([]any(nil), r...)
	}
	return c
}

// FilterRows returns a new table containing only the rows for which keep
// returns true, preserving row order.
func (t *Table) FilterRows(keep func(row []any) bool) *Table {
	out := &Table{
		columns: append([]string(nil), t.columns...),
		index:   make(map[string]int, len(t.index)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for _, r := range t.rows {
		if keep(r) {
			out.rows = append(out.rows, append([]any(nil), r...))
		}
	}
	return out
}

// Select returns a new table with the given columns in the given order.
func (t *Table) Select(columns ...string) (*Table, error) {
	out, err := New(columns...)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := t.index[c]
		if !ok {
			return nil, fmt.Errorf("unknown column %q", c)
		}
		idx[i] = j
	}
	for _, r := range t.rows {
		row := make([]any, len(columns))
		for i, j := range idx {
			row[i] = r[j]
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// SortedColumns returns the column names sorted alphabetically.
// Used for deterministic diagnostics, not for data layout.
func (t *Table) SortedColumns() []string {
	cols := t.Columns()
	sort.Strings(cols)
	return cols
}
