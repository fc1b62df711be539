package engine

// quality.go - deduplication, empty-row dropping and exists_in filtering.
// Cleaning steps are segment-aware: rows contributed by an append source use
// that source's effective configuration.

import (
	"fmt"
	"strings"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// cellKey returns a comparison key for one cell. nil gets a marker that
// cannot collide with a real string value.
func cellKey(v any) string {
	if v == nil {
		return "\x00"
	}
	return fmt.Sprint(v)
}

func joinKey(row []any, idx []int) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = cellKey(row[j])
	}
	return strings.Join(parts, "\x1f")
}

// isEmptyCell reports whether a cell counts as empty: nil, the empty string,
// or any value the configuration declares as an empty marker.
func isEmptyCell(v any, markers map[string]struct{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok && s == "" {
		return true
	}
	if len(markers) == 0 {
		return false
	}
	_, ok := markers[cellKey(v)]
	return ok
}

func selectRows(t *table.Table, keep []int) *table.Table {
	out := table.MustNew(t.Columns()...)
	for _, r := range keep {
		_ = out.AppendRow(append([]any(nil), t.Row(r)...))
	}
	return out
}

// dedupeKeyIndex resolves the column indices a dedupe configuration compares.
// The caller handles the off mode.
func dedupeKeyIndex(t *table.Table, cfg project.DropDuplicates, businessKeys []string) ([]int, error) {
	var cols []string
	switch cfg.Mode {
	case project.DropDuplicatesFull:
		for _, c := range t.Columns() {
			if c != table.SystemID {
				cols = append(cols, c)
			}
		}
	case project.DropDuplicatesColumns:
		cols = cfg.Columns
	case project.DropDuplicatesBusinessKeys:
		if len(businessKeys) == 0 {
			return nil, fmt.Errorf("drop_duplicates: business_keys mode but the entity declares no business keys")
		}
		cols = businessKeys
	}
	idx := make([]int, len(cols))
	for i, c := range cols {
		j := t.ColumnIndex(c)
		if j < 0 {
			return nil, fmt.Errorf("drop_duplicates: unknown column %q", c)
		}
		idx[i] = j
	}
	return idx, nil
}

// dedupeTable deduplicates a standalone block, used for per-append-source
// overrides before concatenation.
func dedupeTable(t *table.Table, cfg project.DropDuplicates, businessKeys []string) (*table.Table, error) {
	if cfg.Mode == project.DropDuplicatesOff {
		return t, nil
	}
	idx, err := dedupeKeyIndex(t, cfg, businessKeys)
	if err != nil {
		return nil, err
	}
	var keep []int
	seen := make(map[string]struct{}, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		k := joinKey(t.Row(r), idx)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, r)
	}
	return selectRows(t, keep), nil
}

// dropDuplicateRows deduplicates the concatenated table under the parent
// entity's configuration and keeps the segment mapping aligned. Rows from a
// segment whose effective configuration turns deduplication off are kept
// untouched and do not seed the seen set.
func dropDuplicateRows(t *table.Table, segs []int, segCfgs []segmentConfig, businessKeys []string) (*table.Table, []int, error) {
	cfg := segCfgs[0].dropDuplicates
	if cfg.Mode == project.DropDuplicatesOff {
		return t, segs, nil
	}
	idx, err := dedupeKeyIndex(t, cfg, businessKeys)
	if err != nil {
		return nil, nil, err
	}
	var keep []int
	seen := make(map[string]struct{}, t.NumRows())
	for r := 0; r < t.NumRows(); r++ {
		if segCfgs[segs[r]].dropDuplicates.Mode == project.DropDuplicatesOff {
			keep = append(keep, r)
			continue
		}
		k := joinKey(t.Row(r), idx)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keep = append(keep, r)
	}
	if len(keep) == t.NumRows() {
		return t, segs, nil
	}
	newSegs := make([]int, len(keep))
	for i, r := range keep {
		newSegs[i] = segs[r]
	}
	return selectRows(t, keep), newSegs, nil
}

// dropEmptyRows removes rows whose inspected columns are all empty, using
// each row's segment configuration.
func dropEmptyRows(t *table.Table, segs []int, segCfgs []segmentConfig) (*table.Table, []int, error) {
	type check struct {
		active  bool
		idx     []int
		markers map[string]struct{}
	}
	checks := make([]check, len(segCfgs))
	for s := range segCfgs {
		cfg := segCfgs[s].dropEmptyRows
		var cols []string
		switch cfg.Mode {
		case project.DropEmptyRowsOff:
			continue
		case project.DropEmptyRowsAll:
			for _, c := range t.Columns() {
				if c != table.SystemID {
					cols = append(cols, c)
				}
			}
		case project.DropEmptyRowsColumns:
			cols = cfg.Columns
		}
		idx := make([]int, len(cols))
		for i, c := range cols {
			j := t.ColumnIndex(c)
			if j < 0 {
				return nil, nil, fmt.Errorf("drop_empty_rows: unknown column %q", c)
			}
			idx[i] = j
		}
		var markers map[string]struct{}
		if len(cfg.Values) > 0 {
			markers = make(map[string]struct{}, len(cfg.Values))
			for _, v := range cfg.Values {
				markers[cellKey(v)] = struct{}{}
			}
		}
		checks[s] = check{active: true, idx: idx, markers: markers}
	}

	var keep []int
	for r := 0; r < t.NumRows(); r++ {
		c := checks[segs[r]]
		if !c.active {
			keep = append(keep, r)
			continue
		}
		row, empty := t.Row(r), true
		for _, j := range c.idx {
			if !isEmptyCell(row[j], c.markers) {
				empty = false
				break
			}
		}
		if !empty {
			keep = append(keep, r)
		}
	}
	if len(keep) == t.NumRows() {
		return t, segs, nil
	}
	newSegs := make([]int, len(keep))
	for i, r := range keep {
		newSegs[i] = segs[r]
	}
	return selectRows(t, keep), newSegs, nil
}

// existsMatcher evaluates one exists_in filter over the local table. When
// the filter also requests deduplication, seen tracks surviving key values
// across all rows the filter applies to.
type existsMatcher struct {
	colIdx int
	in     map[string]struct{}
	dedupe bool
	seen   map[string]struct{}
}

func (m *existsMatcher) pass(row []any) bool {
	k := cellKey(row[m.colIdx])
	if _, ok := m.in[k]; !ok {
		return false
	}
	if m.dedupe {
		if _, dup := m.seen[k]; dup {
			return false
		}
		m.seen[k] = struct{}{}
	}
	return true
}

func newExistsMatcher(t *table.Table, f *project.ExistsIn, store *table.Store) (*existsMatcher, error) {
	colIdx := t.ColumnIndex(f.Column)
	if colIdx < 0 {
		return nil, fmt.Errorf("exists_in: unknown local column %q", f.Column)
	}
	remote, ok := store.Get(f.Entity)
	if !ok {
		return nil, fmt.Errorf("exists_in: entity %q has no materialized table", f.Entity)
	}
	values, err := remote.ColumnValues(f.TargetColumn())
	if err != nil {
		return nil, fmt.Errorf("exists_in: entity %q: %w", f.Entity, err)
	}
	in := make(map[string]struct{}, len(values))
	for _, v := range values {
		in[cellKey(v)] = struct{}{}
	}
	m := &existsMatcher{colIdx: colIdx, in: in, dedupe: f.DropDuplicates}
	if m.dedupe {
		m.seen = make(map[string]struct{})
	}
	return m, nil
}

// applyFilters evaluates each row against its segment's filter list.
// Inherited filters share one matcher, so exists_in deduplication spans
// every segment that inherits the filter.
func applyFilters(t *table.Table, segs []int, segCfgs []segmentConfig, store *table.Store) (*table.Table, []int, error) {
	active := false
	for s := range segCfgs {
		if len(segCfgs[s].filters) > 0 {
			active = true
			break
		}
	}
	if !active {
		return t, segs, nil
	}

	cache := make(map[*project.Filter]*existsMatcher)
	matchers := make([][]*existsMatcher, len(segCfgs))
	for s := range segCfgs {
		for i := range segCfgs[s].filters {
			f := &segCfgs[s].filters[i]
			if f.ExistsIn == nil {
				return nil, nil, fmt.Errorf("filter %d: missing exists_in", i)
			}
			m, ok := cache[f]
			if !ok {
				var err error
				m, err = newExistsMatcher(t, f.ExistsIn, store)
				if err != nil {
					return nil, nil, err
				}
				cache[f] = m
			}
			matchers[s] = append(matchers[s], m)
		}
	}

	var keep []int
	for r := 0; r < t.NumRows(); r++ {
		row, ok := t.Row(r), true
		for _, m := range matchers[segs[r]] {
			if !m.pass(row) {
				ok = false
				break
			}
		}
		if ok {
			keep = append(keep, r)
		}
	}
	if len(keep) == t.NumRows() {
		return t, segs, nil
	}
	newSegs := make([]int, len(keep))
	for i, r := range keep {
		newSegs[i] = segs[r]
	}
	return selectRows(t, keep), newSegs, nil
}
