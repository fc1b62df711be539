package engine

// reshape.go - wide-to-long unnesting and synthesized extra columns.

import (
	"fmt"
	"slices"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// Default unnest output column names.
const (
	defaultVarName   = "variable"
	defaultValueName = "value"
)

// unnest melts the value columns into (variable, value) pairs, one output
// row per input row per value column. system_id leads the id columns
// implicitly, so unnested rows stay attributable to their source row.
func unnest(t *table.Table, u *project.Unnest) (*table.Table, error) {
	idVars := append([]string(nil), u.IDVars...)
	if t.HasColumn(table.SystemID) && !slices.Contains(idVars, table.SystemID) {
		idVars = append([]string{table.SystemID}, idVars...)
	}

	varName := u.VarName
	if varName == "" {
		varName = defaultVarName
	}
	valueName := u.ValueName
	if valueName == "" {
		valueName = defaultValueName
	}
	for _, c := range idVars {
		if c == varName || c == valueName {
			return nil, fmt.Errorf("output column %q collides with id column", c)
		}
	}

	valueVars := u.ValueVars
	if len(valueVars) == 0 {
		for _, c := range t.Columns() {
			if !slices.Contains(idVars, c) {
				valueVars = append(valueVars, c)
			}
		}
	}
	if len(valueVars) == 0 {
		return nil, fmt.Errorf("no value columns to unnest")
	}

	idIdx := make([]int, len(idVars))
	for i, c := range idVars {
		if idIdx[i] = t.ColumnIndex(c); idIdx[i] < 0 {
			return nil, fmt.Errorf("id column %q not found", c)
		}
	}
	valIdx := make([]int, len(valueVars))
	for i, c := range valueVars {
		if valIdx[i] = t.ColumnIndex(c); valIdx[i] < 0 {
			return nil, fmt.Errorf("value column %q not found", c)
		}
	}

	out, err := table.New(append(append([]string(nil), idVars...), varName, valueName)...)
	if err != nil {
		return nil, err
	}
	for r := 0; r < t.NumRows(); r++ {
		row := t.Row(r)
		for i, j := range valIdx {
			melted := make([]any, len(idVars)+2)
			for k, id := range idIdx {
				melted[k] = row[id]
			}
			melted[len(idVars)] = valueVars[i]
			melted[len(idVars)+1] = row[j]
			_ = out.AppendRow(melted)
		}
	}
	return out, nil
}

// addExtraColumns appends synthesized columns in declaration order, either a
// constant literal or a copy of an existing column.
func addExtraColumns(t *table.Table, ecs project.ExtraColumns) error {
	for _, ec := range ecs {
		var values []any
		if ec.IsCopy {
			src, err := t.ColumnValues(ec.From)
			if err != nil {
				return fmt.Errorf("extra column %q: %w", ec.Name, err)
			}
			values = src
		} else {
			values = make([]any, t.NumRows())
			for i := range values {
				values[i] = ec.Value
			}
		}
		if err := t.AddColumn(ec.Name, values); err != nil {
			return fmt.Errorf("extra column %q: %w", ec.Name, err)
		}
	}
	return nil
}
