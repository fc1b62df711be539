package source

import (
	"context"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// Sampler adapts the loader registry to the validation framework's bounded
// sampling interface.
type Sampler struct {
	Registry *Registry
}

// Sample loads at most limit rows of an entity's primary source.
// Entity-kind entities have no independent source; they return (nil, nil)
// and data-aware rules skip them.
func (s *Sampler) Sample(ctx context.Context, ent *project.Entity, limit int) (*table.Table, error) {
	if ent.Kind == project.KindEntity {
		return nil, nil
	}
	req := Request{
		Kind:         ent.Kind,
		BusinessKeys: ent.BusinessKeys,
		SourceName:   ent.SourceName,
		Query:        ent.Query,
		Rows:         ent.Rows,
		Path:         ent.Path,
		Delimiter:    ent.Delimiter,
		Limit:        limit,
	}
	// Columns are deliberately not requested: data-aware rules check the
	// configured columns against what the source actually delivers.
	return s.Registry.Load(ctx, req)
}
