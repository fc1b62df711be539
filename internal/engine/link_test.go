package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

func ptr[T any](v T) *T { return &v }

func siteTable(t *testing.T, rows ...[]any) *table.Table {
	t.Helper()
	tbl := table.MustNew("system_id", "site_code", "site_name")
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r))
	}
	return tbl
}

func sampleTable(t *testing.T, rows ...[]any) *table.Table {
	t.Helper()
	tbl := table.MustNew("system_id", "sample_code", "site_code")
	for _, r := range rows {
		require.NoError(t, tbl.AppendRow(r))
	}
	return tbl
}

func TestLink_InnerJoin(t *testing.T) {
	local := sampleTable(t,
		[]any{int64(1), "S1", "A"},
		[]any{int64(2), "S2", "B"},
		[]any{int64(3), "S3", "C"},
	)
	remote := siteTable(t,
		[]any{int64(1), "A", "Alpha"},
		[]any{int64(2), "B", "Beta"},
	)
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		JoinKind:     project.JoinInner,
	}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)

	assert.Equal(t, []string{"system_id", "sample_code", "site_code", "site_id"}, out.Columns())
	require.Equal(t, 2, out.NumRows(), "inner join drops the unmatched local row")
	v, _ := out.Cell(0, "site_id")
	assert.Equal(t, int64(1), v, "link column holds the remote system_id")
	v, _ = out.Cell(1, "site_id")
	assert.Equal(t, int64(2), v)
}

func TestLink_LeftJoinKeepsUnmatched(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", "Z"})
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
	}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)
	require.Equal(t, 1, out.NumRows())
	v, _ := out.Cell(0, "site_id")
	assert.Nil(t, v, "default left join emits nil for the unmatched row")
}

func TestLink_NilKeysNeverMatch(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", nil})
	remote := siteTable(t, []any{int64(1), nil, "Mystery"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
	}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)
	v, _ := out.Cell(0, "site_id")
	assert.Nil(t, v, "nil does not join to nil")
}

func TestLink_NoConstraintsMeansPlainJoin(t *testing.T) {
	// Duplicate remote keys fan the local row out. Without a constraints
	// block there is nothing to enforce.
	local := sampleTable(t, []any{int64(1), "S1", "A"})
	remote := siteTable(t,
		[]any{int64(1), "A", "Alpha"},
		[]any{int64(2), "A", "Alpha again"},
	)
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
	}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
}

func TestLink_RequireUniqueRightViolation(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", "A"})
	remote := siteTable(t,
		[]any{int64(1), "A", "Alpha"},
		[]any{int64(2), "A", "Alpha again"},
	)
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		Constraints:  &project.Constraints{Cardinality: project.ManyToOne},
	}

	_, err := link(local, "sample", remote, "site", "site_id", fk)
	require.Error(t, err)
	var ce *ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "sample", ce.LocalEntity)
	assert.Equal(t, "site", ce.RemoteEntity)
	assert.Equal(t, "require_unique_right (cardinality many_to_one)", ce.Constraint)
	assert.Equal(t, 2, ce.Count)
	assert.Equal(t, []string{`"A"`, `"A"`}, ce.Sample)
	assert.Equal(t,
		`linking "sample" to "site" violates require_unique_right (cardinality many_to_one): 2 offending key(s) such as "A", "A"`,
		err.Error())
}

func TestLink_AllowNullKeysViolation(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", nil})
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		Constraints: &project.Constraints{
			Cardinality:        project.ManyToMany,
			AllowNullKeys:      ptr(false),
			AllowUnmatchedLeft: ptr(true),
		},
	}

	_, err := link(local, "sample", remote, "site", "site_id", fk)
	var ce *ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "allow_null_keys", ce.Constraint)
	assert.Equal(t, 1, ce.Count)
	assert.Equal(t, []string{"null"}, ce.Sample, "nil keys render as a literal null")
}

func TestLink_AllowUnmatchedLeftViolation(t *testing.T) {
	local := sampleTable(t,
		[]any{int64(1), "S1", "A"},
		[]any{int64(2), "S2", "Z"},
	)
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		Constraints:  &project.Constraints{Cardinality: project.ManyToOne},
	}

	_, err := link(local, "sample", remote, "site", "site_id", fk)
	var ce *ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "allow_unmatched_left", ce.Constraint)
	assert.Equal(t, []string{`"Z"`}, ce.Sample)
}

func TestLink_UnmatchedCheckExemptsNilKeyRows(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", nil})
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		Constraints:  &project.Constraints{Cardinality: project.ManyToOne},
	}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err, "nil-key rows are exempt from allow_unmatched_left")
	assert.Equal(t, 1, out.NumRows())
}

func TestLink_AllowRowDecreaseViolation(t *testing.T) {
	local := sampleTable(t,
		[]any{int64(1), "S1", "A"},
		[]any{int64(2), "S2", "Z"},
	)
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		JoinKind:     project.JoinInner,
		Constraints: &project.Constraints{
			Cardinality:        project.ManyToMany,
			AllowUnmatchedLeft: ptr(true),
			AllowRowDecrease:   ptr(false),
		},
	}

	_, err := link(local, "sample", remote, "site", "site_id", fk)
	var ce *ConstraintError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "allow_row_decrease", ce.Constraint)
	assert.Equal(t, 1, ce.Count)
	assert.Empty(t, ce.Sample)
}

func TestLink_CrossJoin(t *testing.T) {
	local := sampleTable(t,
		[]any{int64(1), "S1", "A"},
		[]any{int64(2), "S2", "B"},
	)
	remote := siteTable(t,
		[]any{int64(1), "A", "Alpha"},
		[]any{int64(2), "B", "Beta"},
	)
	fk := &project.ForeignKey{RemoteEntity: "site", JoinKind: project.JoinCross}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)
	assert.Equal(t, 4, out.NumRows())
}

func TestLink_CrossJoinRejectsKeys(t *testing.T) {
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		JoinKind:     project.JoinCross,
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
	}
	_, err := link(sampleTable(t), "sample", siteTable(t), "site", "site_id", fk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not declare keys")
}

func TestLink_ExtraColumns(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", "A"})
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		ExtraColumns: project.RemoteColumns{
			{Remote: "site_name", As: "linked_site_name"},
		},
	}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)
	assert.Equal(t, []string{"system_id", "sample_code", "site_code", "site_id", "linked_site_name"}, out.Columns())
	v, _ := out.Cell(0, "linked_site_name")
	assert.Equal(t, "Alpha", v)
}

func TestLink_ExtraColumnCollidingWithLinkColumn(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", "A"})
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})

	// Default: silently dropped.
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		ExtraColumns: project.RemoteColumns{{Remote: "site_name", As: "site_id"}},
	}
	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)
	assert.Equal(t, []string{"system_id", "sample_code", "site_code", "site_id"}, out.Columns())

	// Explicitly keeping it is an error.
	fk.DropRemotePublicID = ptr(false)
	_, err = link(local, "sample", remote, "site", "site_id", fk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `extra column "site_id" collides with the link column`)
}

func TestLink_LocalColumnCollision(t *testing.T) {
	local := table.MustNew("system_id", "site_id", "site_code")
	require.NoError(t, local.AppendRow([]any{int64(1), "stale", "A"}))
	remote := siteTable(t, []any{int64(1), "A", "Alpha"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
	}

	_, err := link(local, "sample", remote, "site", "site_id", fk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `local table already has a column "site_id"`)
}

func TestLink_RemoteWithoutSystemID(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", "A"})
	remote := table.MustNew("site_code")
	require.NoError(t, remote.AppendRow([]any{"A"}))
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
	}

	_, err := link(local, "sample", remote, "site", "site_id", fk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `remote table "site" has no system_id column`)
}

func TestLink_OuterJoin(t *testing.T) {
	local := sampleTable(t, []any{int64(1), "S1", "A"}, []any{int64(2), "S2", "X"})
	remote := siteTable(t, []any{int64(1), "A", "Alpha"}, []any{int64(2), "B", "Beta"})
	fk := &project.ForeignKey{
		RemoteEntity: "site",
		LocalKeys:    []string{"site_code"},
		RemoteKeys:   []string{"site_code"},
		JoinKind:     project.JoinOuter,
	}

	out, err := link(local, "sample", remote, "site", "site_id", fk)
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())
	// Unmatched remote row comes last with nil local cells.
	v, _ := out.Cell(2, "sample_code")
	assert.Nil(t, v)
	v, _ = out.Cell(2, "site_id")
	assert.Equal(t, int64(2), v)
}
