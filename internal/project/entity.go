package project

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Kind identifies how an entity's primary table is obtained.
type Kind string

// Entity kinds.
const (
	// KindEntity derives its rows from another entity's output.
	KindEntity Kind = "entity"
	// KindFixed holds literal rows declared in the project file.
	KindFixed Kind = "fixed"
	// KindSQL runs a query against a named data source.
	KindSQL Kind = "sql"
	// KindCSV reads a delimited file.
	KindCSV Kind = "csv"
)

// UnmarshalYAML validates the kind string.
func (k *Kind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch Kind(s) {
	case KindEntity, KindFixed, KindSQL, KindCSV:
		*k = Kind(s)
		return nil
	}
	return fmt.Errorf("line %d: unknown kind %q", node.Line, s)
}

// JoinKind is the relational join used by a foreign key.
type JoinKind string

// Join kinds.
const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinOuter JoinKind = "outer"
	JoinCross JoinKind = "cross"
)

// UnmarshalYAML validates the join kind string.
func (j *JoinKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch JoinKind(s) {
	case JoinInner, JoinLeft, JoinRight, JoinOuter, JoinCross:
		*j = JoinKind(s)
		return nil
	}
	return fmt.Errorf("line %d: unknown join kind %q", node.Line, s)
}

// Cardinality is the uniqueness shape expected between local and remote key
// sets of a foreign key.
type Cardinality string

// Cardinalities.
const (
	OneToOne   Cardinality = "one_to_one"
	ManyToOne  Cardinality = "many_to_one"
	OneToMany  Cardinality = "one_to_many"
	ManyToMany Cardinality = "many_to_many"
)

// UnmarshalYAML validates the cardinality string.
func (c *Cardinality) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch Cardinality(s) {
	case OneToOne, ManyToOne, OneToMany, ManyToMany:
		*c = Cardinality(s)
		return nil
	}
	return fmt.Errorf("line %d: unknown cardinality %q", node.Line, s)
}

// Entity is one table definition in the project.
type Entity struct {
	Kind         Kind     `yaml:"kind"`
	Source       string   `yaml:"source"`
	BusinessKeys []string `yaml:"business_keys"`
	PublicID     string   `yaml:"public_id"`
	Columns      []string `yaml:"columns"`

	// Kind-specific fields.
	SourceName string           `yaml:"source_name"` // sql: named data source
	Query      string           `yaml:"query"`       // sql: query text
	Rows       []map[string]any `yaml:"rows"`        // fixed: literal rows
	Path       string           `yaml:"path"`        // csv: file path
	Delimiter  string           `yaml:"delimiter"`   // csv: field separator, default ","

	ExtraColumns   ExtraColumns   `yaml:"extra_columns"`
	DropDuplicates DropDuplicates `yaml:"drop_duplicates"`
	DropEmptyRows  DropEmptyRows  `yaml:"drop_empty_rows"`
	Replacements   Replacements   `yaml:"replacements"`
	Filters        []Filter       `yaml:"filters"`
	ForeignKeys    []ForeignKey   `yaml:"foreign_keys"`
	Unnest         *Unnest        `yaml:"unnest"`
	Append         []AppendSource `yaml:"append"`
	DependsOn      []string       `yaml:"depends_on"`
}

// ForeignKey links an entity to an already-materialized remote entity.
type ForeignKey struct {
	RemoteEntity       string        `yaml:"entity"`
	LocalKeys          []string      `yaml:"local_keys"`
	RemoteKeys         []string      `yaml:"remote_keys"`
	JoinKind           JoinKind      `yaml:"how"`
	ExtraColumns       RemoteColumns `yaml:"extra_columns"`
	DropRemotePublicID *bool         `yaml:"drop_remote_public_id"`
	Constraints        *Constraints  `yaml:"constraints"`
}

// DropsRemotePublicID reports whether a remote column named like the
// remote's public id is dropped on collision. Defaults to true.
func (fk *ForeignKey) DropsRemotePublicID() bool {
	if fk.DropRemotePublicID == nil {
		return true
	}
	return *fk.DropRemotePublicID
}

// How returns the effective join kind, defaulting to a left join.
func (fk *ForeignKey) How() JoinKind {
	if fk.JoinKind == "" {
		return JoinLeft
	}
	return fk.JoinKind
}

// RemoteColumn names a remote column to copy into the linked result,
// optionally renamed.
type RemoteColumn struct {
	Remote string
	As     string
}

// RemoteColumns preserves the declaration order of an extra_columns mapping
// (remote name -> local name).
type RemoteColumns []RemoteColumn

// UnmarshalYAML decodes either a mapping {remote: local} or a sequence of
// remote names copied under their own name.
func (rc *RemoteColumns) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			remote := node.Content[i].Value
			local := node.Content[i+1].Value
			if local == "" {
				local = remote
			}
			*rc = append(*rc, RemoteColumn{Remote: remote, As: local})
		}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		for _, n := range names {
			*rc = append(*rc, RemoteColumn{Remote: n, As: n})
		}
		return nil
	}
	return fmt.Errorf("line %d: extra_columns must be a mapping or a list", node.Line)
}

// Constraints declares relational-integrity requirements for a foreign key.
// Optional booleans distinguish explicit overrides from cardinality-implied
// defaults.
type Constraints struct {
	Cardinality         Cardinality `yaml:"cardinality"`
	AllowUnmatchedLeft  *bool       `yaml:"allow_unmatched_left"`
	AllowUnmatchedRight *bool       `yaml:"allow_unmatched_right"`
	RequireUniqueLeft   *bool       `yaml:"require_unique_left"`
	RequireUniqueRight  *bool       `yaml:"require_unique_right"`
	AllowNullKeys       *bool       `yaml:"allow_null_keys"`
	AllowRowDecrease    *bool       `yaml:"allow_row_decrease"`
}

// Effective holds fully resolved constraint values.
type Effective struct {
	Cardinality         Cardinality
	AllowUnmatchedLeft  bool
	AllowUnmatchedRight bool
	RequireUniqueLeft   bool
	RequireUniqueRight  bool
	AllowNullKeys       bool
	AllowRowDecrease    bool
}

// Resolve applies cardinality-implied defaults. Unset cardinality defaults
// to many_to_one. Explicit fields always win.
func (c *Constraints) Resolve() Effective {
	card := c.Cardinality
	if card == "" {
		card = ManyToOne
	}
	eff := Effective{
		Cardinality:         card,
		AllowUnmatchedLeft:  false,
		AllowUnmatchedRight: true,
		AllowNullKeys:       true,
		AllowRowDecrease:    true,
	}
	switch card {
	case OneToOne:
		eff.RequireUniqueLeft = true
		eff.RequireUniqueRight = true
	case ManyToOne:
		eff.RequireUniqueRight = true
	case OneToMany:
		eff.RequireUniqueLeft = true
	case ManyToMany:
	}
	if c.AllowUnmatchedLeft != nil {
		eff.AllowUnmatchedLeft = *c.AllowUnmatchedLeft
	}
	if c.AllowUnmatchedRight != nil {
		eff.AllowUnmatchedRight = *c.AllowUnmatchedRight
	}
	if c.RequireUniqueLeft != nil {
		eff.RequireUniqueLeft = *c.RequireUniqueLeft
	}
	if c.RequireUniqueRight != nil {
		eff.RequireUniqueRight = *c.RequireUniqueRight
	}
	if c.AllowNullKeys != nil {
		eff.AllowNullKeys = *c.AllowNullKeys
	}
	if c.AllowRowDecrease != nil {
		eff.AllowRowDecrease = *c.AllowRowDecrease
	}
	return eff
}

// Unnest is a wide-to-long reshape descriptor.
type Unnest struct {
	IDVars    []string `yaml:"id_vars"`
	ValueVars []string `yaml:"value_vars"`
	VarName   string   `yaml:"var_name"`
	ValueName string   `yaml:"value_name"`
}

// Filter is a post-extraction row filter. exists_in is the only filter.
type Filter struct {
	ExistsIn *ExistsIn `yaml:"exists_in"`
}

// ExistsIn drops rows whose local column value is absent from a column of an
// already-materialized entity's table.
type ExistsIn struct {
	Entity         string `yaml:"entity"`
	Column         string `yaml:"column"`
	RemoteColumn   string `yaml:"remote_column"`
	DropDuplicates bool   `yaml:"drop_duplicates"`
}

// TargetColumn returns the remote column to match against, defaulting to the
// local column name.
func (e *ExistsIn) TargetColumn() string {
	if e.RemoteColumn != "" {
		return e.RemoteColumn
	}
	return e.Column
}

// AppendSource declares additional rows concatenated onto an entity's
// primary table. Inheritable fields are pointers; nil means "use the parent
// entity's value".
type AppendSource struct {
	Kind       Kind             `yaml:"kind"`
	Source     string           `yaml:"source"`      // entity kind
	SourceName string           `yaml:"source_name"` // sql kind
	Query      string           `yaml:"query"`       // sql kind
	Rows       []map[string]any `yaml:"rows"`        // fixed kind
	Path       string           `yaml:"path"`        // csv kind
	Delimiter  string           `yaml:"delimiter"`   // csv kind

	Columns          []string        `yaml:"columns"`
	CheckColumnNames bool            `yaml:"check_column_names"`
	DropDuplicates   *DropDuplicates `yaml:"drop_duplicates"`
	DropEmptyRows    *DropEmptyRows  `yaml:"drop_empty_rows"`
	Replacements     *Replacements   `yaml:"replacements"`
	Filters          []Filter        `yaml:"filters"`
}

// ExtraColumn synthesizes a column, either from a literal value or by
// copying another column.
type ExtraColumn struct {
	Name  string
	Value any
	From  string
	// IsCopy distinguishes a source-column copy from a literal value.
	IsCopy bool
}

// ExtraColumns preserves the declaration order of an extra_columns mapping.
type ExtraColumns []ExtraColumn

// UnmarshalYAML decodes a mapping of name -> literal value, or
// name -> {from: column} for source-column copies.
func (ec *ExtraColumns) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: extra_columns must be a mapping", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		val := node.Content[i+1]
		if val.Kind == yaml.MappingNode {
			var spec struct {
				From string `yaml:"from"`
			}
			if err := val.Decode(&spec); err != nil {
				return err
			}
			if spec.From == "" {
				return fmt.Errorf("line %d: extra column %q: copy spec requires 'from'", val.Line, name)
			}
			*ec = append(*ec, ExtraColumn{Name: name, From: spec.From, IsCopy: true})
			continue
		}
		var lit any
		if err := val.Decode(&lit); err != nil {
			return err
		}
		*ec = append(*ec, ExtraColumn{Name: name, Value: lit})
	}
	return nil
}
