package validate

// datarules.go - data-aware rules that inspect a bounded sample of live
// source data in addition to the project model. Sampling failures are
// reported as issues, never raised; a dead data source must not hide the
// remaining findings.

import (
	"context"
	"fmt"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// DefaultSampleSize bounds how many rows data-aware rules pull per source.
const DefaultSampleSize = 1000

// Sampler loads a bounded sample of an entity's primary source. Implemented
// by the source package; entity-kind entities have no independent source
// and return (nil, nil).
type Sampler interface {
	Sample(ctx context.Context, ent *project.Entity, limit int) (*table.Table, error)
}

// DataRules returns the rules that need live source samples. sampleSize
// bounds how many rows are pulled per source; non-positive values use
// DefaultSampleSize.
func DataRules(s Sampler, sampleSize int) []Rule {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return []Rule{
		{
			Code:        "DR01",
			Name:        "columns-exist",
			Description: "Configured columns exist in a sample of the source",
			Check:       sampled(s, sampleSize, checkColumnsExist),
		},
		{
			Code:        "DR02",
			Name:        "business-keys-unique",
			Description: "Declared business keys are unique in a sample of the source",
			Check:       sampled(s, sampleSize, checkBusinessKeysUnique),
		},
		{
			Code:        "DR03",
			Name:        "foreign-key-columns-exist",
			Description: "Foreign-key remote columns exist in the sampled remote source",
			Check:       foreignKeyColumns(s, sampleSize),
		},
	}
}

// sampled adapts a per-entity sample check into a Rule check, sharing the
// sampling and error-to-issue plumbing.
func sampled(s Sampler, sampleSize int, check func(name string, ent *project.Entity, sample *table.Table) []Issue) func(context.Context, *project.Project) []Issue {
	return func(ctx context.Context, p *project.Project) []Issue {
		var issues []Issue
		for _, name := range p.Entities.Order {
			ent, _ := p.Entities.Get(name)
			sample, err := s.Sample(ctx, ent, sampleSize)
			if err != nil {
				issues = append(issues, Issue{
					Severity: SeverityWarning, Code: "DR00", Entity: name,
					Message: fmt.Sprintf("could not sample source: %v", err),
				})
				continue
			}
			if sample == nil {
				continue
			}
			issues = append(issues, check(name, ent, sample)...)
		}
		return issues
	}
}

func checkColumnsExist(name string, ent *project.Entity, sample *table.Table) []Issue {
	var issues []Issue
	for _, col := range ent.Columns {
		if !sample.HasColumn(col) {
			issues = append(issues, Issue{
				Severity: SeverityError, Code: "DR01", Entity: name,
				Message: fmt.Sprintf("configured column %q not found in source sample (available: %v)",
					col, sample.SortedColumns()),
			})
		}
	}
	return issues
}

func checkBusinessKeysUnique(name string, ent *project.Entity, sample *table.Table) []Issue {
	if len(ent.BusinessKeys) == 0 {
		return nil
	}
	idx := make([]int, 0, len(ent.BusinessKeys))
	for _, k := range ent.BusinessKeys {
		j := sample.ColumnIndex(k)
		if j < 0 {
			// DR01 already reports missing columns.
			return nil
		}
		idx = append(idx, j)
	}
	seen := make(map[string]bool, sample.NumRows())
	dups := 0
	var sampleKey string
	for i := 0; i < sample.NumRows(); i++ {
		row := sample.Row(i)
		key := ""
		for _, j := range idx {
			key += fmt.Sprintf("%v\x1f", row[j])
		}
		if seen[key] {
			dups++
			if sampleKey == "" {
				sampleKey = key
			}
		}
		seen[key] = true
	}
	if dups == 0 {
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning, Code: "DR02", Entity: name,
		Message: fmt.Sprintf("business keys %v are not unique in a %d-row sample (%d duplicate rows)",
			ent.BusinessKeys, sample.NumRows(), dups),
	}}
}

func foreignKeyColumns(s Sampler, sampleSize int) func(context.Context, *project.Project) []Issue {
	return func(ctx context.Context, p *project.Project) []Issue {
		var issues []Issue
		for _, name := range p.Entities.Order {
			ent, _ := p.Entities.Get(name)
			for i, fk := range ent.ForeignKeys {
				remote, ok := p.Entities.Get(fk.RemoteEntity)
				if !ok {
					// PR01 reports unknown entities.
					continue
				}
				sample, err := s.Sample(ctx, remote, sampleSize)
				if err != nil || sample == nil {
					continue
				}
				for _, col := range fk.RemoteKeys {
					if !sample.HasColumn(col) {
						issues = append(issues, Issue{
							Severity: SeverityError, Code: "DR03", Entity: name,
							Message: fmt.Sprintf("foreign_keys[%d]: remote key %q not found in sample of entity %q",
								i, col, fk.RemoteEntity),
						})
					}
				}
			}
		}
		return issues
	}
}
