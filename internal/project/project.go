// Package project provides the parsed, validated in-memory representation
// of a project description: entities, per-entity configuration and global
// options. It is pure data plus structural queries; processing behavior
// lives in the engine.
package project

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tablelink-labs/tablelink/internal/depgraph"
)

// Project is the root aggregate of a project description.
type Project struct {
	Metadata Metadata `yaml:"metadata"`
	Entities Entities `yaml:"entities"`
	Options  Options  `yaml:"options"`
}

// Metadata is informational project data. DefaultEntity is the only field
// that affects behavior (it selects the entity a bare CLI invocation acts
// on).
type Metadata struct {
	Name          string `yaml:"name"`
	Version       string `yaml:"version"`
	DefaultEntity string `yaml:"default_entity"`
}

// Options holds named data-source connection descriptors and the optional
// translation file reference.
type Options struct {
	Sources          map[string]SourceConfig `yaml:"sources"`
	TranslationsFile string                  `yaml:"translations_file"`
}

// SourceConfig describes one named data source. The engine only ever passes
// source names across the loader boundary; connection details stay here.
type SourceConfig struct {
	Driver string `yaml:"driver"` // duckdb, postgres
	DSN    string `yaml:"dsn"`    // postgres connection string
	Path   string `yaml:"path"`   // duckdb database file, empty for in-memory
}

// Entities is a name -> Entity mapping that preserves YAML declaration
// order for deterministic processing of independent entities.
type Entities struct {
	Order  []string
	byName map[string]*Entity
}

// UnmarshalYAML decodes the entities mapping, keeping declaration order.
func (e *Entities) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: entities must be a mapping", node.Line)
	}
	e.byName = make(map[string]*Entity, len(node.Content)/2)
	for i := 0; i < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if _, dup := e.byName[name]; dup {
			return fmt.Errorf("line %d: duplicate entity %q", node.Content[i].Line, name)
		}
		ent := &Entity{}
		if err := node.Content[i+1].Decode(ent); err != nil {
			return fmt.Errorf("entity %q: %w", name, err)
		}
		if ent.Kind == "" {
			ent.Kind = KindEntity
		}
		e.byName[name] = ent
		e.Order = append(e.Order, name)
	}
	return nil
}

// Get returns the named entity.
func (e *Entities) Get(name string) (*Entity, bool) {
	ent, ok := e.byName[name]
	return ent, ok
}

// Has reports whether the named entity exists.
func (e *Entities) Has(name string) bool {
	_, ok := e.byName[name]
	return ok
}

// Len returns the number of entities.
func (e *Entities) Len() int { return len(e.byName) }

// Dependencies returns the entities the named entity depends on: explicit
// depends_on, the source entity, every foreign-key remote entity, every
// entity-kind append source and every exists_in filter entity. Unresolvable
// references are returned as-is; validation reports them.
func (p *Project) Dependencies(name string) []string {
	ent, ok := p.Entities.Get(name)
	if !ok {
		return nil
	}
	var deps []string
	seen := make(map[string]bool)
	add := func(dep string) {
		if dep == "" || seen[dep] {
			return
		}
		seen[dep] = true
		deps = append(deps, dep)
	}

	for _, d := range ent.DependsOn {
		add(d)
	}
	if ent.Kind == KindEntity {
		add(ent.Source)
	}
	for _, fk := range ent.ForeignKeys {
		add(fk.RemoteEntity)
	}
	for _, app := range ent.Append {
		if app.Kind == KindEntity {
			add(app.Source)
		}
	}
	for _, f := range ent.Filters {
		if f.ExistsIn != nil {
			add(f.ExistsIn.Entity)
		}
	}
	for _, app := range ent.Append {
		for _, f := range app.Filters {
			if f.ExistsIn != nil {
				add(f.ExistsIn.Entity)
			}
		}
	}
	return deps
}

// Graph builds the entity dependency graph in declaration order. Edges to
// unknown entities are skipped; validation reports those separately.
func (p *Project) Graph() *depgraph.Graph {
	g := depgraph.New()
	for _, name := range p.Entities.Order {
		g.AddNode(name)
	}
	for _, name := range p.Entities.Order {
		for _, dep := range p.Dependencies(name) {
			if p.Entities.Has(dep) {
				// Child depends on parent: edge parent -> child.
				_ = g.AddEdge(dep, name)
			}
		}
	}
	return g
}
