package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablelink-labs/tablelink/internal/project"
)

func TestUnnest_Melt(t *testing.T) {
	tbl := rowsTable(t, []string{"system_id", "sample_code", "temp", "ph"},
		[]any{int64(1), "S1", 21.5, 7.0},
		[]any{int64(2), "S2", 19.0, 6.8},
	)
	out, err := unnest(tbl, &project.Unnest{
		IDVars:    []string{"sample_code"},
		ValueVars: []string{"temp", "ph"},
		VarName:   "quantity",
		ValueName: "reading",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"system_id", "sample_code", "quantity", "reading"}, out.Columns(),
		"system_id implicitly leads the id columns")
	require.Equal(t, 4, out.NumRows())

	assert.Equal(t, []any{int64(1), "S1", "temp", 21.5}, out.Row(0))
	assert.Equal(t, []any{int64(1), "S1", "ph", 7.0}, out.Row(1))
	assert.Equal(t, []any{int64(2), "S2", "temp", 19.0}, out.Row(2))
}

func TestUnnest_DefaultNames(t *testing.T) {
	tbl := rowsTable(t, []string{"a", "b"}, []any{1, 2})
	out, err := unnest(tbl, &project.Unnest{IDVars: []string{"a"}, ValueVars: []string{"b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "variable", "value"}, out.Columns())
}

func TestUnnest_ValueVarsDefaultToNonIDColumns(t *testing.T) {
	tbl := rowsTable(t, []string{"system_id", "code", "x", "y"},
		[]any{int64(1), "C", 1, 2},
	)
	out, err := unnest(tbl, &project.Unnest{
		IDVars:    []string{"code"},
		VarName:   "k",
		ValueName: "v",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows(), "x and y melt; system_id and code are id columns")
}

func TestUnnest_Errors(t *testing.T) {
	tbl := rowsTable(t, []string{"a", "b"}, []any{1, 2})

	_, err := unnest(tbl, &project.Unnest{IDVars: []string{"ghost"}, ValueVars: []string{"b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `id column "ghost" not found`)

	_, err = unnest(tbl, &project.Unnest{IDVars: []string{"a"}, ValueVars: []string{"ghost"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `value column "ghost" not found`)

	_, err = unnest(tbl, &project.Unnest{IDVars: []string{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no value columns to unnest")

	_, err = unnest(tbl, &project.Unnest{IDVars: []string{"a"}, ValueVars: []string{"b"}, VarName: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `collides with id column`)
}

func TestAddExtraColumns(t *testing.T) {
	tbl := rowsTable(t, []string{"a"},
		[]any{"x"},
		[]any{"y"},
	)
	require.NoError(t, addExtraColumns(tbl, project.ExtraColumns{
		{Name: "region", Value: "north"},
		{Name: "a_copy", From: "a", IsCopy: true},
	}))

	assert.Equal(t, []string{"a", "region", "a_copy"}, tbl.Columns())
	v, _ := tbl.Cell(1, "region")
	assert.Equal(t, "north", v)
	v, _ = tbl.Cell(1, "a_copy")
	assert.Equal(t, "y", v)
}

func TestAddExtraColumns_Errors(t *testing.T) {
	tbl := rowsTable(t, []string{"a"}, []any{1})

	err := addExtraColumns(tbl, project.ExtraColumns{{Name: "b", From: "ghost", IsCopy: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `extra column "b"`)

	err = addExtraColumns(tbl, project.ExtraColumns{{Name: "a", Value: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `already exists`)
}
