package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProject = `
metadata:
  name: lab
  version: "1.0"
  default_entity: sample
entities:
  site:
    kind: fixed
    public_id: site_id
    business_keys: [site_code]
    columns: [site_code, site_name]
    rows:
      - {site_code: A, site_name: Alpha}
      - {site_code: B, site_name: Beta}
  sample:
    kind: sql
    source_name: main
    query: SELECT * FROM samples
    public_id: sample_id
    business_keys: [sample_code]
    foreign_keys:
      - entity: site
        local_keys: [site_code]
        remote_keys: [site_code]
        how: inner
        constraints:
          cardinality: many_to_one
  measurement:
    kind: entity
    source: sample
    columns: [sample_code, temp, ph]
    public_id: measurement_id
    unnest:
      id_vars: [sample_code]
      value_vars: [temp, ph]
      var_name: quantity
      value_name: reading
options:
  sources:
    main:
      driver: duckdb
      path: lab.db
`

func TestParse_DeclarationOrder(t *testing.T) {
	p, err := Parse([]byte(sampleProject), "")
	require.NoError(t, err)

	assert.Equal(t, []string{"site", "sample", "measurement"}, p.Entities.Order)
	assert.Equal(t, 3, p.Entities.Len())
	assert.Equal(t, "lab", p.Metadata.Name)
	assert.Equal(t, "sample", p.Metadata.DefaultEntity)
}

func TestParse_EntityFields(t *testing.T) {
	p, err := Parse([]byte(sampleProject), "")
	require.NoError(t, err)

	site, ok := p.Entities.Get("site")
	require.True(t, ok)
	assert.Equal(t, KindFixed, site.Kind)
	assert.Equal(t, "site_id", site.PublicID)
	assert.Equal(t, []string{"site_code"}, site.BusinessKeys)
	require.Len(t, site.Rows, 2)
	assert.Equal(t, "Alpha", site.Rows[0]["site_name"])

	sample, _ := p.Entities.Get("sample")
	assert.Equal(t, KindSQL, sample.Kind)
	assert.Equal(t, "main", sample.SourceName)
	require.Len(t, sample.ForeignKeys, 1)
	fk := sample.ForeignKeys[0]
	assert.Equal(t, "site", fk.RemoteEntity)
	assert.Equal(t, JoinInner, fk.JoinKind)
	require.NotNil(t, fk.Constraints)
	assert.Equal(t, ManyToOne, fk.Constraints.Cardinality)

	meas, _ := p.Entities.Get("measurement")
	require.NotNil(t, meas.Unnest)
	assert.Equal(t, "quantity", meas.Unnest.VarName)
	assert.Equal(t, []string{"temp", "ph"}, meas.Unnest.ValueVars)

	src, ok := p.Options.Sources["main"]
	require.True(t, ok)
	assert.Equal(t, "duckdb", src.Driver)
	assert.Equal(t, "lab.db", src.Path)
}

func TestParse_KindDefaultsToEntity(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  derived:
    source: base
    public_id: derived_id
  base:
    kind: fixed
    public_id: base_id
    rows: [{a: 1}]
`), "")
	require.NoError(t, err)
	ent, _ := p.Entities.Get("derived")
	assert.Equal(t, KindEntity, ent.Kind)
}

func TestParse_DuplicateEntity(t *testing.T) {
	_, err := Parse([]byte(`
entities:
  site: {kind: fixed, public_id: site_id, rows: [{a: 1}]}
  site: {kind: fixed, public_id: site_id, rows: [{a: 2}]}
`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate entity "site"`)
}

func TestParse_NoEntities(t *testing.T) {
	_, err := Parse([]byte(`metadata: {name: empty}`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entities")
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse([]byte(`
entities:
  x: {kind: parquet, public_id: x_id}
`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown kind "parquet"`)
}

func TestForeignKey_Defaults(t *testing.T) {
	fk := ForeignKey{}
	assert.Equal(t, JoinLeft, fk.How())
	assert.True(t, fk.DropsRemotePublicID())

	f := false
	fk.DropRemotePublicID = &f
	assert.False(t, fk.DropsRemotePublicID())
}

func TestRemoteColumns_Shapes(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  child:
    kind: fixed
    public_id: child_id
    rows: [{k: 1}]
    foreign_keys:
      - entity: parent
        local_keys: [k]
        remote_keys: [k]
        extra_columns:
          label: parent_label
          status:
  other:
    kind: fixed
    public_id: other_id
    rows: [{k: 1}]
    foreign_keys:
      - entity: parent
        local_keys: [k]
        remote_keys: [k]
        extra_columns: [label, status]
`), "")
	require.NoError(t, err)

	child, _ := p.Entities.Get("child")
	cols := child.ForeignKeys[0].ExtraColumns
	require.Len(t, cols, 2)
	assert.Equal(t, RemoteColumn{Remote: "label", As: "parent_label"}, cols[0])
	assert.Equal(t, RemoteColumn{Remote: "status", As: "status"}, cols[1], "empty rename keeps remote name")

	other, _ := p.Entities.Get("other")
	cols = other.ForeignKeys[0].ExtraColumns
	require.Len(t, cols, 2)
	assert.Equal(t, RemoteColumn{Remote: "label", As: "label"}, cols[0])
}

func TestExtraColumns_LiteralAndCopy(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  x:
    kind: fixed
    public_id: x_id
    rows: [{a: 1}]
    extra_columns:
      region: north
      backup: {from: a}
`), "")
	require.NoError(t, err)

	ent, _ := p.Entities.Get("x")
	require.Len(t, ent.ExtraColumns, 2)
	assert.Equal(t, ExtraColumn{Name: "region", Value: "north"}, ent.ExtraColumns[0])
	assert.Equal(t, ExtraColumn{Name: "backup", From: "a", IsCopy: true}, ent.ExtraColumns[1])
}

func TestExtraColumns_CopyRequiresFrom(t *testing.T) {
	_, err := Parse([]byte(`
entities:
  x:
    kind: fixed
    public_id: x_id
    rows: [{a: 1}]
    extra_columns:
      bad: {}
`), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires 'from'")
}

func TestExistsIn_TargetColumn(t *testing.T) {
	e := &ExistsIn{Entity: "site", Column: "site_code"}
	assert.Equal(t, "site_code", e.TargetColumn())
	e.RemoteColumn = "code"
	assert.Equal(t, "code", e.TargetColumn())
}

func TestDependencies(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  a:
    kind: fixed
    public_id: a_id
    rows: [{k: 1}]
  b:
    kind: entity
    source: a
    public_id: b_id
    foreign_keys:
      - {entity: a, local_keys: [k], remote_keys: [k]}
    filters:
      - exists_in: {entity: c, column: k}
    append:
      - {kind: entity, source: d}
    depends_on: [e]
  c: {kind: fixed, public_id: c_id, rows: [{k: 1}]}
  d: {kind: fixed, public_id: d_id, rows: [{k: 1}]}
  e: {kind: fixed, public_id: e_id, rows: [{k: 1}]}
`), "")
	require.NoError(t, err)

	deps := p.Dependencies("b")
	assert.Equal(t, []string{"e", "a", "d", "c"}, deps, "depends_on, source/fk, append source, filter entity; deduplicated")
	assert.Nil(t, p.Dependencies("missing"))
}

func TestGraph_TopologicalOrder(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  sample:
    kind: entity
    source: site
    public_id: sample_id
  site:
    kind: fixed
    public_id: site_id
    rows: [{k: 1}]
`), "")
	require.NoError(t, err)

	order, err := p.Graph().TopologicalSort()
	require.NoError(t, err)
	assert.Equal(t, []string{"site", "sample"}, order)
}

func TestGraph_SkipsUnknownReferences(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  a:
    kind: entity
    source: ghost
    public_id: a_id
`), "")
	require.NoError(t, err)

	g := p.Graph()
	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
}

func TestAppendSource_InheritableFieldsStayNil(t *testing.T) {
	p, err := Parse([]byte(`
entities:
  x:
    kind: fixed
    public_id: x_id
    rows: [{a: 1}]
    drop_duplicates: true
    append:
      - kind: fixed
        rows: [{a: 2}]
      - kind: fixed
        rows: [{a: 3}]
        drop_duplicates: false
        check_column_names: true
`), "")
	require.NoError(t, err)

	ent, _ := p.Entities.Get("x")
	require.Len(t, ent.Append, 2)
	assert.Nil(t, ent.Append[0].DropDuplicates, "unset means inherit")
	require.NotNil(t, ent.Append[1].DropDuplicates)
	assert.Equal(t, DropDuplicatesOff, ent.Append[1].DropDuplicates.Mode)
	assert.True(t, ent.Append[1].CheckColumnNames)
}
