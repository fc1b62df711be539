package project

// dynamic.go - loosely-typed YAML fields resolved to tagged variants at
// parse time. Downstream code switches on the variant, never on raw YAML.

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DropDuplicatesMode selects the deduplication strategy.
type DropDuplicatesMode int

// Deduplication modes.
const (
	DropDuplicatesOff DropDuplicatesMode = iota
	DropDuplicatesFull
	DropDuplicatesColumns
	DropDuplicatesBusinessKeys
)

// DropDuplicates is the resolved form of the drop_duplicates field, which
// accepts a bool, the string "business_keys", a column list, or a mapping
// with a columns key.
type DropDuplicates struct {
	Mode    DropDuplicatesMode
	Columns []string
}

// UnmarshalYAML resolves the accepted shapes into a variant.
func (d *DropDuplicates) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := node.Decode(&b); err == nil {
			if b {
				d.Mode = DropDuplicatesFull
			} else {
				d.Mode = DropDuplicatesOff
			}
			return nil
		}
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s == "business_keys" {
			d.Mode = DropDuplicatesBusinessKeys
			return nil
		}
		return fmt.Errorf("line %d: drop_duplicates: unknown value %q", node.Line, s)
	case yaml.SequenceNode:
		if err := node.Decode(&d.Columns); err != nil {
			return err
		}
		d.Mode = DropDuplicatesColumns
		return nil
	case yaml.MappingNode:
		var spec struct {
			Columns []string `yaml:"columns"`
		}
		if err := node.Decode(&spec); err != nil {
			return err
		}
		if len(spec.Columns) == 0 {
			return fmt.Errorf("line %d: drop_duplicates: mapping form requires 'columns'", node.Line)
		}
		d.Mode = DropDuplicatesColumns
		d.Columns = spec.Columns
		return nil
	}
	return fmt.Errorf("line %d: drop_duplicates: unsupported shape", node.Line)
}

// DropEmptyRowsMode selects which columns an empty-row check inspects.
type DropEmptyRowsMode int

// Empty-row modes.
const (
	DropEmptyRowsOff DropEmptyRowsMode = iota
	DropEmptyRowsAll
	DropEmptyRowsColumns
)

// DropEmptyRows is the resolved form of the drop_empty_rows field, which
// accepts a bool, a column list, or a mapping with optional columns and
// values keys. A row is dropped when every inspected column is empty: nil,
// the empty string, or one of the configured marker values.
type DropEmptyRows struct {
	Mode    DropEmptyRowsMode
	Columns []string
	Values  []any
}

// UnmarshalYAML resolves the accepted shapes into a variant.
func (d *DropEmptyRows) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var b bool
		if err := node.Decode(&b); err != nil {
			return fmt.Errorf("line %d: drop_empty_rows: %w", node.Line, err)
		}
		if b {
			d.Mode = DropEmptyRowsAll
		} else {
			d.Mode = DropEmptyRowsOff
		}
		return nil
	case yaml.SequenceNode:
		if err := node.Decode(&d.Columns); err != nil {
			return err
		}
		d.Mode = DropEmptyRowsColumns
		return nil
	case yaml.MappingNode:
		var spec struct {
			Columns []string `yaml:"columns"`
			Values  []any    `yaml:"values"`
		}
		if err := node.Decode(&spec); err != nil {
			return err
		}
		if len(spec.Columns) == 0 && len(spec.Values) == 0 {
			return fmt.Errorf("line %d: drop_empty_rows: mapping form requires 'columns' or 'values'", node.Line)
		}
		if len(spec.Columns) > 0 {
			d.Mode = DropEmptyRowsColumns
			d.Columns = spec.Columns
		} else {
			d.Mode = DropEmptyRowsAll
		}
		d.Values = spec.Values
		return nil
	}
	return fmt.Errorf("line %d: drop_empty_rows: unsupported shape", node.Line)
}

// MatchOp is a replacement rule comparison operator.
type MatchOp string

// Match operators.
const (
	OpEquals     MatchOp = "equals"
	OpContains   MatchOp = "contains"
	OpStartsWith MatchOp = "startswith"
	OpEndsWith   MatchOp = "endswith"
	OpIn         MatchOp = "in"
	OpRegex      MatchOp = "regex"
	OpRegexSub   MatchOp = "regex_sub"
)

var matchOps = []MatchOp{OpEquals, OpContains, OpStartsWith, OpEndsWith, OpIn, OpRegex, OpRegexSub}

// MatchRule is one rule in an ordered replacement rule list. The first
// matching rule in a list wins per cell.
type MatchRule struct {
	Op      MatchOp
	Value   any            // equals/contains/startswith/endswith operand
	Values  []any          // in operand
	Pattern *regexp.Regexp // regex/regex_sub operand
	Negate  bool
	// IgnoreCase folds both sides before comparing.
	IgnoreCase bool
	// Coerce normalizes the cell before comparison: "string" or "number".
	Coerce string
	// To is the replacement target. ToSet distinguishes `to: null` (blank
	// the cell) from a missing key (parse error).
	To    any
	ToSet bool
}

// UnmarshalYAML decodes a rule mapping such as
// {equals: "a", to: "X", negate: true, ignore_case: true}.
func (r *MatchRule) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: replacement rule must be a mapping", node.Line)
	}
	var raw struct {
		Equals     yaml.Node `yaml:"equals"`
		Contains   yaml.Node `yaml:"contains"`
		StartsWith yaml.Node `yaml:"startswith"`
		EndsWith   yaml.Node `yaml:"endswith"`
		In         yaml.Node `yaml:"in"`
		Regex      yaml.Node `yaml:"regex"`
		RegexSub   yaml.Node `yaml:"regex_sub"`
		To         yaml.Node `yaml:"to"`
		Negate     bool      `yaml:"negate"`
		IgnoreCase bool      `yaml:"ignore_case"`
		Coerce     string    `yaml:"coerce"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	ops := map[MatchOp]*yaml.Node{
		OpEquals:     &raw.Equals,
		OpContains:   &raw.Contains,
		OpStartsWith: &raw.StartsWith,
		OpEndsWith:   &raw.EndsWith,
		OpIn:         &raw.In,
		OpRegex:      &raw.Regex,
		OpRegexSub:   &raw.RegexSub,
	}
	var operand *yaml.Node
	for _, op := range matchOps {
		n := ops[op]
		if n.Kind == 0 {
			continue
		}
		if r.Op != "" {
			return fmt.Errorf("line %d: replacement rule declares both %q and %q", node.Line, r.Op, op)
		}
		r.Op = op
		operand = n
	}
	if r.Op == "" {
		return fmt.Errorf("line %d: replacement rule has no match operator", node.Line)
	}

	switch r.Op {
	case OpIn:
		if err := operand.Decode(&r.Values); err != nil {
			return fmt.Errorf("line %d: in: %w", operand.Line, err)
		}
	case OpRegex, OpRegexSub:
		var pat string
		if err := operand.Decode(&pat); err != nil {
			return err
		}
		if raw.IgnoreCase {
			pat = "(?i)" + pat
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return fmt.Errorf("line %d: invalid pattern: %w", operand.Line, err)
		}
		r.Pattern = re
	default:
		if err := operand.Decode(&r.Value); err != nil {
			return err
		}
	}

	if raw.To.Kind == 0 {
		return fmt.Errorf("line %d: replacement rule requires 'to'", node.Line)
	}
	r.ToSet = true
	if err := raw.To.Decode(&r.To); err != nil {
		return err
	}

	switch raw.Coerce {
	case "", "string", "number":
		r.Coerce = raw.Coerce
	default:
		return fmt.Errorf("line %d: coerce must be 'string' or 'number'", node.Line)
	}
	r.Negate = raw.Negate
	r.IgnoreCase = raw.IgnoreCase
	return nil
}

// FillMethod is a legacy blank-out fill policy.
type FillMethod string

// Fill methods.
const (
	FillForward  FillMethod = "ffill"
	FillBackward FillMethod = "bfill"
	FillConstant FillMethod = "constant"
)

// Fill describes how blanked cells are refilled.
type Fill struct {
	Method FillMethod `yaml:"method"`
	Value  any        `yaml:"value"`
}

// Legacy is the blank-out + fill replacement form.
type Legacy struct {
	BlankOut []any `yaml:"blank_out"`
	Fill     *Fill `yaml:"fill"`
}

// ReplacementSet is the resolved per-column replacement configuration:
// exactly one of Mapping (exact substitution), Legacy (blank-out + fill) or
// Rules (ordered match rules) is set.
type ReplacementSet struct {
	Mapping map[string]any
	Legacy  *Legacy
	Rules   []MatchRule
}

// UnmarshalYAML distinguishes the three accepted shapes.
func (rs *ReplacementSet) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&rs.Rules)
	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			key := node.Content[i].Value
			if key == "blank_out" || key == "fill" {
				rs.Legacy = &Legacy{}
				if err := node.Decode(rs.Legacy); err != nil {
					return err
				}
				if f := rs.Legacy.Fill; f != nil {
					switch f.Method {
					case FillForward, FillBackward, FillConstant:
					default:
						return fmt.Errorf("line %d: unknown fill method %q", node.Line, f.Method)
					}
				}
				return nil
			}
		}
		return node.Decode(&rs.Mapping)
	}
	return fmt.Errorf("line %d: replacements must be a mapping or a rule list", node.Line)
}

// ColumnReplacement binds a replacement set to one column.
type ColumnReplacement struct {
	Column string
	Set    ReplacementSet
}

// Replacements preserves the declared column order of the replacements
// mapping. Rule sets apply per column in this order.
type Replacements []ColumnReplacement

// UnmarshalYAML decodes the column -> rule-set mapping.
func (r *Replacements) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: replacements must be a mapping", node.Line)
	}
	for i := 0; i < len(node.Content); i += 2 {
		var set ReplacementSet
		if err := set.UnmarshalYAML(node.Content[i+1]); err != nil {
			return err
		}
		*r = append(*r, ColumnReplacement{Column: node.Content[i].Value, Set: set})
	}
	return nil
}
