package engine

// link.go - constraint-checked foreign-key linking. Constraints are checked
// against the key sets before the merge runs, so a violation surfaces as a
// named relational problem instead of a mysterious row-count change.

import (
	"fmt"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

// sampleCell renders one key cell for a constraint violation message. Nil
// keys show up here when allow_null_keys is violated, so they get a literal
// null instead of cellText's string form.
func sampleCell(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%q", cellText(v))
}

// sampleKey renders one key tuple for a constraint violation message.
func sampleKey(row []any, idx []int) string {
	if len(idx) == 1 {
		return sampleCell(row[idx[0]])
	}
	s := "("
	for i, j := range idx {
		if i > 0 {
			s += ", "
		}
		s += sampleCell(row[j])
	}
	return s + ")"
}

func hasNilKey(row []any, idx []int) bool {
	for _, j := range idx {
		if row[j] == nil {
			return true
		}
	}
	return false
}

// link joins the local table to an already-materialized remote table. The
// generated column carries the remote's public id name and holds the matched
// remote row's system_id.
func link(local *table.Table, localName string, remote *table.Table, remoteName, remotePublicID string, fk *project.ForeignKey) (*table.Table, error) {
	how := fk.How()
	if how == project.JoinCross {
		if len(fk.LocalKeys) != 0 || len(fk.RemoteKeys) != 0 {
			return nil, fmt.Errorf("cross join to %q must not declare keys", remoteName)
		}
	} else {
		if len(fk.LocalKeys) == 0 || len(fk.LocalKeys) != len(fk.RemoteKeys) {
			return nil, fmt.Errorf("join to %q needs equal-length local and remote key lists", remoteName)
		}
	}

	// Absent constraints mean a plain join with no enforcement.
	var eff project.Effective
	enforce := fk.Constraints != nil
	if enforce {
		eff = fk.Constraints.Resolve()
	}

	localIdx := make([]int, len(fk.LocalKeys))
	for i, c := range fk.LocalKeys {
		if localIdx[i] = local.ColumnIndex(c); localIdx[i] < 0 {
			return nil, fmt.Errorf("local key column %q not found", c)
		}
	}
	remoteIdx := make([]int, len(fk.RemoteKeys))
	for i, c := range fk.RemoteKeys {
		if remoteIdx[i] = remote.ColumnIndex(c); remoteIdx[i] < 0 {
			return nil, fmt.Errorf("remote key column %q not found in %q", c, remoteName)
		}
	}
	remoteSysIdx := remote.ColumnIndex(table.SystemID)
	if remoteSysIdx < 0 {
		return nil, fmt.Errorf("remote table %q has no %s column", remoteName, table.SystemID)
	}

	violation := func(constraint string, count int, sample []string) error {
		return &ConstraintError{
			LocalEntity:  localName,
			RemoteEntity: remoteName,
			Constraint:   constraint,
			Count:        count,
			Sample:       sample,
		}
	}

	if enforce && how != project.JoinCross {
		if err := checkKeys(local, remote, localIdx, remoteIdx, eff, violation); err != nil {
			return nil, err
		}
	}

	// Resolve the extra remote columns, skipping or rejecting one whose
	// local name collides with the generated link column.
	type extra struct {
		remoteIdx int
		as        string
	}
	var extras []extra
	for _, rc := range fk.ExtraColumns {
		if rc.As == remotePublicID {
			if fk.DropsRemotePublicID() {
				continue
			}
			return nil, fmt.Errorf("extra column %q collides with the link column; set drop_remote_public_id or rename it", rc.As)
		}
		j := remote.ColumnIndex(rc.Remote)
		if j < 0 {
			return nil, fmt.Errorf("extra column %q not found in %q", rc.Remote, remoteName)
		}
		extras = append(extras, extra{remoteIdx: j, as: rc.As})
	}

	if local.HasColumn(remotePublicID) {
		return nil, fmt.Errorf("local table already has a column %q", remotePublicID)
	}
	cols := append(local.Columns(), remotePublicID)
	for _, ex := range extras {
		cols = append(cols, ex.as)
	}
	out, err := table.New(cols...)
	if err != nil {
		return nil, err
	}

	nLocal := local.NumColumns()
	emit := func(lrow []any, rrow []any) {
		row := make([]any, len(cols))
		if lrow != nil {
			copy(row, lrow)
		}
		if rrow != nil {
			row[nLocal] = rrow[remoteSysIdx]
			for i, ex := range extras {
				row[nLocal+1+i] = rrow[ex.remoteIdx]
			}
		}
		_ = out.AppendRow(row)
	}

	if how == project.JoinCross {
		for l := 0; l < local.NumRows(); l++ {
			for r := 0; r < remote.NumRows(); r++ {
				emit(local.Row(l), remote.Row(r))
			}
		}
		return out, nil
	}

	// Hash join on the remote side. Null keys never match.
	remoteByKey := make(map[string][]int, remote.NumRows())
	for r := 0; r < remote.NumRows(); r++ {
		row := remote.Row(r)
		if hasNilKey(row, remoteIdx) {
			continue
		}
		k := joinKey(row, remoteIdx)
		remoteByKey[k] = append(remoteByKey[k], r)
	}

	remoteMatched := make([]bool, remote.NumRows())
	for l := 0; l < local.NumRows(); l++ {
		lrow := local.Row(l)
		var matches []int
		if !hasNilKey(lrow, localIdx) {
			matches = remoteByKey[joinKey(lrow, localIdx)]
		}
		if len(matches) == 0 {
			if how == project.JoinLeft || how == project.JoinOuter {
				emit(lrow, nil)
			}
			continue
		}
		for _, r := range matches {
			remoteMatched[r] = true
			emit(lrow, remote.Row(r))
		}
	}
	if how == project.JoinRight || how == project.JoinOuter {
		for r := 0; r < remote.NumRows(); r++ {
			if !remoteMatched[r] {
				emit(nil, remote.Row(r))
			}
		}
	}

	if enforce && !eff.AllowRowDecrease && out.NumRows() < local.NumRows() {
		return nil, violation("allow_row_decrease", local.NumRows()-out.NumRows(), nil)
	}
	return out, nil
}

// checkKeys enforces the resolved constraints on the two key sets before any
// rows are merged. Rows with null keys are exempt from matching checks; they
// are rejected outright when allow_null_keys is false.
func checkKeys(local, remote *table.Table, localIdx, remoteIdx []int, eff project.Effective, violation func(string, int, []string) error) error {
	collect := func(t *table.Table, idx []int, pred func(row []any) bool) (int, []string) {
		count := 0
		var sample []string
		for r := 0; r < t.NumRows(); r++ {
			row := t.Row(r)
			if !pred(row) {
				continue
			}
			count++
			if len(sample) < sampleLimit {
				sample = append(sample, sampleKey(row, idx))
			}
		}
		return count, sample
	}

	if !eff.AllowNullKeys {
		count, sample := collect(local, localIdx, func(row []any) bool {
			return hasNilKey(row, localIdx)
		})
		if count > 0 {
			return violation("allow_null_keys", count, sample)
		}
	}

	dupKeys := func(t *table.Table, idx []int) (int, []string) {
		seen := make(map[string]int, t.NumRows())
		for r := 0; r < t.NumRows(); r++ {
			row := t.Row(r)
			if hasNilKey(row, idx) {
				continue
			}
			seen[joinKey(row, idx)]++
		}
		return collect(t, idx, func(row []any) bool {
			return !hasNilKey(row, idx) && seen[joinKey(row, idx)] > 1
		})
	}
	if eff.RequireUniqueLeft {
		if count, sample := dupKeys(local, localIdx); count > 0 {
			return violation(fmt.Sprintf("require_unique_left (cardinality %s)", eff.Cardinality), count, sample)
		}
	}
	if eff.RequireUniqueRight {
		if count, sample := dupKeys(remote, remoteIdx); count > 0 {
			return violation(fmt.Sprintf("require_unique_right (cardinality %s)", eff.Cardinality), count, sample)
		}
	}

	keySet := func(t *table.Table, idx []int) map[string]struct{} {
		set := make(map[string]struct{}, t.NumRows())
		for r := 0; r < t.NumRows(); r++ {
			row := t.Row(r)
			if hasNilKey(row, idx) {
				continue
			}
			set[joinKey(row, idx)] = struct{}{}
		}
		return set
	}
	if !eff.AllowUnmatchedLeft {
		remoteKeys := keySet(remote, remoteIdx)
		count, sample := collect(local, localIdx, func(row []any) bool {
			if hasNilKey(row, localIdx) {
				return false
			}
			_, ok := remoteKeys[joinKey(row, localIdx)]
			return !ok
		})
		if count > 0 {
			return violation("allow_unmatched_left", count, sample)
		}
	}
	if !eff.AllowUnmatchedRight {
		localKeys := keySet(local, localIdx)
		count, sample := collect(remote, remoteIdx, func(row []any) bool {
			if hasNilKey(row, remoteIdx) {
				return false
			}
			_, ok := localKeys[joinKey(row, remoteIdx)]
			return !ok
		})
		if count > 0 {
			return violation("allow_unmatched_right", count, sample)
		}
	}
	return nil
}
