package engine

// replace.go - per-column value replacement: exact mappings, ordered match
// rules (first match wins per cell) and the legacy blank-out + fill form.

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tablelink-labs/tablelink/internal/project"
	"github.com/tablelink-labs/tablelink/internal/table"
)

var foldCaser = cases.Fold()

// cellText is the string form used for matching. Callers guard against nil.
func cellText(v any) string {
	return fmt.Sprint(v)
}

func numValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// applyReplacements rewrites cells in place, each row under its segment's
// effective replacement configuration.
func applyReplacements(t *table.Table, segs []int, segCfgs []segmentConfig) error {
	for s := range segCfgs {
		for i := range segCfgs[s].replacements {
			cr := &segCfgs[s].replacements[i]
			if err := applyColumnReplacement(t, segs, s, cr); err != nil {
				return fmt.Errorf("column %q: %w", cr.Column, err)
			}
		}
	}
	return nil
}

func applyColumnReplacement(t *table.Table, segs []int, seg int, cr *project.ColumnReplacement) error {
	j := t.ColumnIndex(cr.Column)
	if j < 0 {
		return fmt.Errorf("unknown column")
	}
	set := &cr.Set
	switch {
	case set.Mapping != nil:
		for r := 0; r < t.NumRows(); r++ {
			if segs[r] != seg {
				continue
			}
			row := t.Row(r)
			if row[j] == nil {
				continue
			}
			if mapped, ok := set.Mapping[cellText(row[j])]; ok {
				row[j] = mapped
			}
		}
	case set.Legacy != nil:
		applyLegacy(t, segs, seg, j, set.Legacy)
	default:
		for r := 0; r < t.NumRows(); r++ {
			if segs[r] != seg {
				continue
			}
			row := t.Row(r)
			if v, replaced := applyRules(set.Rules, row[j]); replaced {
				row[j] = v
			}
		}
	}
	return nil
}

// applyRules evaluates an ordered rule list against one cell. The first
// matching rule decides the result; later rules never fire.
func applyRules(rules []project.MatchRule, v any) (any, bool) {
	for i := range rules {
		r := &rules[i]
		if r.Op == project.OpRegexSub {
			if out, ok := applyRegexSub(r, v); ok {
				return out, true
			}
			continue
		}
		if ruleMatches(r, v) {
			return r.To, true
		}
	}
	return nil, false
}

func ruleMatches(r *project.MatchRule, v any) bool {
	m := rawMatch(r, v)
	if r.Negate {
		return !m
	}
	return m
}

func rawMatch(r *project.MatchRule, v any) bool {
	switch r.Op {
	case project.OpEquals:
		return valueEquals(r, v, r.Value)
	case project.OpIn:
		for _, w := range r.Values {
			if valueEquals(r, v, w) {
				return true
			}
		}
		return false
	case project.OpContains, project.OpStartsWith, project.OpEndsWith:
		if v == nil {
			return false
		}
		s, pat := cellText(v), cellText(r.Value)
		if r.IgnoreCase {
			s, pat = foldCaser.String(s), foldCaser.String(pat)
		}
		switch r.Op {
		case project.OpContains:
			return strings.Contains(s, pat)
		case project.OpStartsWith:
			return strings.HasPrefix(s, pat)
		default:
			return strings.HasSuffix(s, pat)
		}
	case project.OpRegex:
		return v != nil && r.Pattern.MatchString(cellText(v))
	}
	return false
}

// valueEquals compares a cell against a rule operand. Without an explicit
// coercion both sides compare by their string form, so 1, int64(1) and "1"
// are equal; nil only equals nil.
func valueEquals(r *project.MatchRule, v, w any) bool {
	if v == nil || w == nil {
		return v == nil && w == nil
	}
	if r.Coerce == "number" {
		a, aok := numValue(v)
		b, bok := numValue(w)
		return aok && bok && a == b
	}
	s, t := cellText(v), cellText(w)
	if r.IgnoreCase {
		s, t = foldCaser.String(s), foldCaser.String(t)
	}
	return s == t
}

// applyRegexSub reports whether the rule fired. A matching pattern rewrites
// the cell through ReplaceAllString; to: null blanks it instead. Under
// negate the rule fires on non-matching cells and sets the target verbatim,
// since there are no submatches to expand.
func applyRegexSub(r *project.MatchRule, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	txt := cellText(v)
	matched := r.Pattern.MatchString(txt)
	if r.Negate {
		if matched {
			return nil, false
		}
		return r.To, true
	}
	if !matched {
		return nil, false
	}
	if r.To == nil {
		return nil, true
	}
	return r.Pattern.ReplaceAllString(txt, cellText(r.To)), true
}

// applyLegacy blanks listed values and refills the blanked cells. Forward
// and backward fills stay within contiguous runs of the segment's rows, so a
// fill never bleeds across an interleaving segment boundary.
func applyLegacy(t *table.Table, segs []int, seg int, col int, lg *project.Legacy) {
	blank := make(map[string]struct{}, len(lg.BlankOut))
	for _, v := range lg.BlankOut {
		blank[cellKey(v)] = struct{}{}
	}

	n := t.NumRows()
	blanked := make([]bool, n)
	for r := 0; r < n; r++ {
		if segs[r] != seg {
			continue
		}
		row := t.Row(r)
		if _, hit := blank[cellKey(row[col])]; hit {
			row[col] = nil
			blanked[r] = true
		}
	}
	if lg.Fill == nil {
		return
	}

	switch lg.Fill.Method {
	case project.FillConstant:
		for r := 0; r < n; r++ {
			if blanked[r] {
				t.Row(r)[col] = lg.Fill.Value
			}
		}
	case project.FillForward:
		var carry any
		haveCarry := false
		for r := 0; r < n; r++ {
			if segs[r] != seg {
				haveCarry = false
				continue
			}
			row := t.Row(r)
			if blanked[r] {
				if haveCarry {
					row[col] = carry
				}
				continue
			}
			carry, haveCarry = row[col], true
		}
	case project.FillBackward:
		var carry any
		haveCarry := false
		for r := n - 1; r >= 0; r-- {
			if segs[r] != seg {
				haveCarry = false
				continue
			}
			row := t.Row(r)
			if blanked[r] {
				if haveCarry {
					row[col] = carry
				}
				continue
			}
			carry, haveCarry = row[col], true
		}
	}
}
