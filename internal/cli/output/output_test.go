package output

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_Streams(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut)

	r.Println("result")
	r.Error("diagnostic")

	assert.Contains(t, out.String(), "result")
	assert.NotContains(t, out.String(), "diagnostic")
	assert.Contains(t, errOut.String(), "diagnostic")
}

func TestRenderer_Issue(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out)

	r.Issue("error", "PR05", "site", "public_id is required")
	r.Issue("warning", "PR08", "", "default entity missing")

	got := out.String()
	assert.Contains(t, got, "PR05")
	assert.Contains(t, got, "site")
	assert.Contains(t, got, "public_id is required")
	assert.Contains(t, got, " -  ", "empty entity renders as a dash placeholder")
}

func TestRenderer_Table(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out)

	r.Table([]string{"Entity", "Rows"}, [][]string{
		{"site", "2"},
		{"sample", "3"},
	})

	got := out.String()
	assert.Contains(t, got, "ENTITY")
	assert.Contains(t, got, "site")
	assert.Contains(t, got, "sample")
}

func TestFromContext(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &out)

	ctx := WithRenderer(context.Background(), r)
	require.Same(t, r, FromContext(ctx))

	fallback := FromContext(context.Background())
	assert.NotNil(t, fallback, "missing renderer falls back to the process streams")
}
