package validate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// StructuralRules returns the rules that inspect the project model alone.
// The list is constructed per call so callers can freely append, filter or
// reorder it.
func StructuralRules() []Rule {
	return []Rule{
		{
			Code:        "PR01",
			Name:        "entity-references",
			Description: "Every referenced entity name resolves to a declared entity",
			Check:       checkEntityReferences,
		},
		{
			Code:        "PR02",
			Name:        "dependency-cycles",
			Description: "The entity dependency graph is acyclic",
			Check:       checkCycles,
		},
		{
			Code:        "PR03",
			Name:        "kind-required-fields",
			Description: "Each entity kind declares its required fields",
			Check:       checkKindFields,
		},
		{
			Code:        "PR04",
			Name:        "foreign-key-shape",
			Description: "Foreign-key key lists are well-formed for the join kind",
			Check:       checkForeignKeyShape,
		},
		{
			Code:        "PR05",
			Name:        "public-id",
			Description: "Public ids are present, conventionally named and unique",
			Check:       checkPublicID,
		},
		{
			Code:        "PR06",
			Name:        "append-shape",
			Description: "Append sources are column-count compatible with their parent",
			Check:       checkAppendShape,
		},
		{
			Code:        "PR07",
			Name:        "unnest-naming",
			Description: "Unnest var/value names are present and collision-free",
			Check:       checkUnnest,
		},
		{
			Code:        "PR08",
			Name:        "default-entity",
			Description: "metadata.default_entity names a declared entity",
			Check:       checkDefaultEntity,
		},
	}
}

func checkEntityReferences(_ context.Context, p *project.Project) []Issue {
	var issues []Issue
	ref := func(entity, field, target string) {
		if target == "" || p.Entities.Has(target) {
			return
		}
		issues = append(issues, Issue{
			Severity: SeverityError,
			Code:     "PR01",
			Entity:   entity,
			Message:  fmt.Sprintf("%s references unknown entity %q", field, target),
		})
	}
	for _, name := range p.Entities.Order {
		ent, _ := p.Entities.Get(name)
		if ent.Kind == project.KindEntity {
			ref(name, "source", ent.Source)
		}
		for _, d := range ent.DependsOn {
			ref(name, "depends_on", d)
		}
		for i, fk := range ent.ForeignKeys {
			ref(name, fmt.Sprintf("foreign_keys[%d].entity", i), fk.RemoteEntity)
		}
		for i, app := range ent.Append {
			if app.Kind == project.KindEntity {
				ref(name, fmt.Sprintf("append[%d].source", i), app.Source)
			}
		}
		for i, f := range ent.Filters {
			if f.ExistsIn != nil {
				ref(name, fmt.Sprintf("filters[%d].exists_in.entity", i), f.ExistsIn.Entity)
			}
		}
	}
	return issues
}

// checkCycles delegates to the same algorithm the resolver uses but is
// purely diagnostic; it never mutates state.
func checkCycles(_ context.Context, p *project.Project) []Issue {
	if cyc := p.Graph().FindCycle(); cyc != nil {
		return []Issue{{
			Severity: SeverityError,
			Code:     "PR02",
			Message:  fmt.Sprintf("entity dependency cycle: %s", strings.Join(cyc.Path, " -> ")),
		}}
	}
	return nil
}

func checkKindFields(_ context.Context, p *project.Project) []Issue {
	var issues []Issue
	add := func(entity, msg string) {
		issues = append(issues, Issue{Severity: SeverityError, Code: "PR03", Entity: entity, Message: msg})
	}
	for _, name := range p.Entities.Order {
		ent, _ := p.Entities.Get(name)
		switch ent.Kind {
		case project.KindSQL:
			if ent.SourceName == "" {
				add(name, "kind sql requires a non-empty source_name")
			} else if _, ok := p.Options.Sources[ent.SourceName]; !ok {
				add(name, fmt.Sprintf("source_name %q is not declared under options.sources", ent.SourceName))
			}
			if strings.TrimSpace(ent.Query) == "" {
				add(name, "kind sql requires non-empty query text")
			}
		case project.KindFixed:
			if len(ent.Rows) == 0 {
				add(name, "kind fixed requires at least one literal row")
			}
			if len(ent.Columns) == 0 && len(ent.BusinessKeys) == 0 {
				add(name, "kind fixed requires columns or business_keys to fix column order")
			}
		case project.KindCSV:
			if ent.Path == "" {
				add(name, "kind csv requires a file path")
			}
		case project.KindEntity:
			if ent.Source == "" {
				add(name, "kind entity requires a source entity")
			}
		}
		for i, app := range ent.Append {
			switch app.Kind {
			case project.KindSQL:
				if app.SourceName == "" || strings.TrimSpace(app.Query) == "" {
					add(name, fmt.Sprintf("append[%d]: kind sql requires source_name and query", i))
				}
			case project.KindFixed:
				if len(app.Rows) == 0 {
					add(name, fmt.Sprintf("append[%d]: kind fixed requires literal rows", i))
				}
			case project.KindEntity:
				if app.Source == "" {
					add(name, fmt.Sprintf("append[%d]: kind entity requires a source entity", i))
				}
			case project.KindCSV:
				if app.Path == "" {
					add(name, fmt.Sprintf("append[%d]: kind csv requires a file path", i))
				}
			case "":
				add(name, fmt.Sprintf("append[%d]: kind is required", i))
			}
		}
	}
	return issues
}

func checkForeignKeyShape(_ context.Context, p *project.Project) []Issue {
	var issues []Issue
	add := func(entity, msg string) {
		issues = append(issues, Issue{Severity: SeverityError, Code: "PR04", Entity: entity, Message: msg})
	}
	for _, name := range p.Entities.Order {
		ent, _ := p.Entities.Get(name)
		for i, fk := range ent.ForeignKeys {
			if fk.How() == project.JoinCross {
				if len(fk.LocalKeys) > 0 || len(fk.RemoteKeys) > 0 {
					add(name, fmt.Sprintf("foreign_keys[%d]: cross join must not declare local_keys or remote_keys", i))
				}
				continue
			}
			if len(fk.LocalKeys) == 0 || len(fk.RemoteKeys) == 0 {
				add(name, fmt.Sprintf("foreign_keys[%d]: local_keys and remote_keys must be non-empty for %s join", i, fk.How()))
				continue
			}
			if len(fk.LocalKeys) != len(fk.RemoteKeys) {
				add(name, fmt.Sprintf("foreign_keys[%d]: local_keys has %d columns, remote_keys has %d",
					i, len(fk.LocalKeys), len(fk.RemoteKeys)))
			}
		}
	}
	return issues
}

func checkPublicID(_ context.Context, p *project.Project) []Issue {
	var issues []Issue
	seen := make(map[string]string) // public_id -> first entity
	for _, name := range p.Entities.Order {
		ent, _ := p.Entities.Get(name)
		switch {
		case ent.PublicID == "":
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "PR05", Entity: name,
				Message: "public_id is required",
			})
			continue
		case ent.PublicID == table.SystemID:
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "PR05", Entity: name,
				Message: fmt.Sprintf("public_id must be distinct from the reserved %q column", table.SystemID),
			})
			continue
		case !strings.HasSuffix(ent.PublicID, "_id"):
			issues = append(issues, Issue{
				Severity: SeverityWarning, Code: "PR05", Entity: name,
				Message: fmt.Sprintf("public_id %q should end with the _id suffix", ent.PublicID),
			})
		}
		if first, dup := seen[ent.PublicID]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Code: "PR05", Entity: name,
				Message: fmt.Sprintf("public_id %q is already used by entity %q", ent.PublicID, first),
			})
		} else {
			seen[ent.PublicID] = name
		}
	}
	return issues
}

// checkAppendShape verifies column-count compatibility where counts are
// statically known (explicit column lists or fixed rows). Counts only known
// at load time are re-checked by the materializer.
func checkAppendShape(_ context.Context, p *project.Project) []Issue {
	var issues []Issue
	for _, name := range p.Entities.Order {
		ent, _ := p.Entities.Get(name)
		parentCols := staticColumnCount(ent.Columns, ent.Rows, ent.BusinessKeys)
		if parentCols == 0 {
			continue
		}
		for i, app := range ent.Append {
			cols := app.Columns
			if cols == nil {
				cols = ent.Columns
			}
			appCols := staticColumnCount(cols, app.Rows, nil)
			if appCols == 0 {
				continue
			}
			if appCols != parentCols {
				issues = append(issues, Issue{
					Severity: SeverityError, Code: "PR06", Entity: name,
					Message: fmt.Sprintf("append[%d]: declares %d columns, parent has %d (values are positional)",
						i, appCols, parentCols),
				})
			}
		}
	}
	return issues
}

func staticColumnCount(columns []string, rows []map[string]any, businessKeys []string) int {
	if len(columns) > 0 {
		return len(columns)
	}
	if len(rows) > 0 {
		return len(rows[0])
	}
	return len(businessKeys)
}

func checkUnnest(_ context.Context, p *project.Project) []Issue {
	var issues []Issue
	add := func(entity, msg string) {
		issues = append(issues, Issue{Severity: SeverityError, Code: "PR07", Entity: entity, Message: msg})
	}
	for _, name := range p.Entities.Order {
		ent, _ := p.Entities.Get(name)
		un := ent.Unnest
		if un == nil {
			continue
		}
		if un.VarName == "" || un.ValueName == "" {
			add(name, "unnest requires var_name and value_name")
			continue
		}
		if un.VarName == un.ValueName {
			add(name, fmt.Sprintf("unnest var_name and value_name are both %q", un.VarName))
		}
		existing := make(map[string]bool)
		for _, c := range un.IDVars {
			existing[c] = true
		}
		for _, c := range un.ValueVars {
			existing[c] = true
		}
		if existing[un.VarName] {
			add(name, fmt.Sprintf("unnest var_name %q collides with an existing column", un.VarName))
		}
		if existing[un.ValueName] {
			add(name, fmt.Sprintf("unnest value_name %q collides with an existing column", un.ValueName))
		}
		if len(un.ValueVars) == 0 {
			add(name, "unnest requires at least one value_vars column")
		}
	}
	return issues
}

func checkDefaultEntity(_ context.Context, p *project.Project) []Issue {
	de := p.Metadata.DefaultEntity
	if de == "" || p.Entities.Has(de) {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Code:     "PR08",
		Message:  fmt.Sprintf("metadata.default_entity %q is not a declared entity", de),
	}}
}
