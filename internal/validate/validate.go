// Package validate provides the rule-based validation framework for project
// descriptions. Rules are independent specifications that inspect the
// project model (and, for data-aware rules, a bounded sample of live source
// data), accumulate issues and never abort evaluation.
package validate

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tablelink-labs/tablelink/internal/project"
)

// Severity indicates the importance of a validation issue.
type Severity int

// Severity levels.
const (
	// SeverityError blocks materialization.
	SeverityError Severity = iota
	// SeverityWarning is informational; callers decide whether to proceed.
	SeverityWarning
)

// String returns the string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Issue is one validation finding. Message carries enough context
// (offending field, expected vs. actual) to act on without re-reading the
// rule.
type Issue struct {
	Severity Severity
	Code     string
	Entity   string // empty for project-level issues
	Message  string
}

// Rule is an independent, composable validation check. Check
// inspects the read-only project model and returns zero or more issues.
type Rule struct {
	Code        string
	Name        string
	Description string
	Check       func(ctx context.Context, p *project.Project) []Issue
}

// Runner executes an explicitly constructed rule list. The active rule set
// is a first-class input, not a global registry.
type Runner struct {
	rules []Rule
}

// NewRunner creates a runner over the given rules.
func NewRunner(rules []Rule) *Runner {
	return &Runner{rules: rules}
}

// Validate runs all rules concurrently over the shared read-only model and
// returns the merged issue list. Issues are ordered by rule code, keeping
// each rule's internal ordering stable. Validation never aborts early; every
// rule runs.
func (r *Runner) Validate(ctx context.Context, p *project.Project) []Issue {
	perRule := make([][]Issue, len(r.rules))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, rule := range r.rules {
		g.Go(func() error {
			issues := rule.Check(gctx, p)
			mu.Lock()
			perRule[i] = issues
			mu.Unlock()
			return nil
		})
	}
	// Rules never return errors, only issues.
	_ = g.Wait()

	idx := make([]int, len(r.rules))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return r.rules[idx[a]].Code < r.rules[idx[b]].Code
	})

	var merged []Issue
	for _, i := range idx {
		merged = append(merged, perRule[i]...)
	}
	return merged
}

// Blocking reports whether the issue list contains at least one
// error-severity issue, in which case materialization must not proceed.
func Blocking(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}
