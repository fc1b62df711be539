package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTranslations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "translations.yaml", `
site:
  status:
    active: A
    inactive: I
sample:
  unit:
    - {equals: celsius, to: "C"}
`)

	tr, err := LoadTranslations(dir + "/translations.yaml")
	require.NoError(t, err)
	require.Len(t, tr, 2)
	require.Len(t, tr["site"], 1)
	assert.Equal(t, "status", tr["site"][0].Column)
	assert.Equal(t, "A", tr["site"][0].Set.Mapping["active"])
	require.Len(t, tr["sample"][0].Set.Rules, 1)
}

func TestLoadTranslations_MissingFile(t *testing.T) {
	_, err := LoadTranslations(t.TempDir() + "/none.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading translations file")
}

func TestApplyTranslations_InlineWins(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  site:
    kind: fixed
    public_id: site_id
    rows: [{status: active, region: n}]
    replacements:
      status: {active: LOCAL}
`), "")
	require.NoError(t, err)

	p.ApplyTranslations(Translations{
		"site": Replacements{
			{Column: "status", Set: ReplacementSet{Mapping: map[string]any{"active": "SHARED"}}},
			{Column: "region", Set: ReplacementSet{Mapping: map[string]any{"n": "north"}}},
		},
		"ghost": Replacements{
			{Column: "x", Set: ReplacementSet{Mapping: map[string]any{"a": "b"}}},
		},
	})

	site, _ := p.Entities.Get("site")
	require.Len(t, site.Replacements, 2)
	assert.Equal(t, "status", site.Replacements[0].Column)
	assert.Equal(t, "LOCAL", site.Replacements[0].Set.Mapping["active"], "inline declaration kept")
	assert.Equal(t, "region", site.Replacements[1].Column, "shared replacement adopted for undeclared column")
}

func TestParse_TranslationsFileWiring(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "shared.yaml", `
site:
  status: {active: A}
`)

	p, err := Parse([]byte(`
entities:
  site:
    kind: fixed
    public_id: site_id
    rows: [{status: active}]
options:
  translations_file: shared.yaml
`), dir)
	require.NoError(t, err)

	site, _ := p.Entities.Get("site")
	require.Len(t, site.Replacements, 1)
	assert.Equal(t, "A", site.Replacements[0].Set.Mapping["active"])
}

func TestParse_TranslationsFileMissing(t *testing.T) {
	_, err := Parse([]byte(`
entities:
  site: {kind: fixed, public_id: site_id, rows: [{a: 1}]}
options:
  translations_file: gone.yaml
`), t.TempDir())
	require.Error(t, err)
}
