package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablelink-labs/tablelink/internal/table"
	"github.com/tablelink-labs/tablelink/internal/testutil"
)

func TestCSVWriter_Write(t *testing.T) {
	site := table.MustNew("system_id", "site_code", "site_name")
	require.NoError(t, site.AppendRow([]any{int64(1), "A", "Alpha"}))
	require.NoError(t, site.AppendRow([]any{int64(2), "B", nil}))

	sample := table.MustNew("system_id", "sample_code")
	require.NoError(t, sample.AppendRow([]any{int64(1), "S,1"}))

	store := table.NewStoreFrom(map[string]*table.Table{
		"site":   site,
		"sample": sample,
	})

	dir := filepath.Join(t.TempDir(), "out")
	w := NewCSVWriter(dir, testutil.NewTestLogger(t))
	require.NoError(t, w.Write(context.Background(), store))

	data, err := os.ReadFile(filepath.Join(dir, "site.csv"))
	require.NoError(t, err)
	assert.Equal(t, "system_id,site_code,site_name\n1,A,Alpha\n2,B,\n", string(data),
		"nil renders as the empty string")

	data, err = os.ReadFile(filepath.Join(dir, "sample.csv"))
	require.NoError(t, err)
	assert.Equal(t, "system_id,sample_code\n1,\"S,1\"\n", string(data),
		"cells containing the delimiter are quoted")
}

func TestCSVWriter_EmptyTable(t *testing.T) {
	store := table.NewStoreFrom(map[string]*table.Table{
		"empty": table.MustNew("a", "b"),
	})

	dir := t.TempDir()
	w := NewCSVWriter(dir, nil)
	require.NoError(t, w.Write(context.Background(), store))

	data, err := os.ReadFile(filepath.Join(dir, "empty.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(data), "header row only")
}

func TestCSVWriter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := table.NewStoreFrom(map[string]*table.Table{
		"x": table.MustNew("a"),
	})
	w := NewCSVWriter(t.TempDir(), nil)
	err := w.Write(ctx, store)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
