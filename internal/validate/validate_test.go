package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablelink-labs/tablelink/internal/project"
)

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "warning", SeverityWarning.String())
	assert.Equal(t, "unknown", Severity(99).String())
}

func TestRunner_OrdersIssuesByRuleCode(t *testing.T) {
	mk := func(code string, msgs ...string) Rule {
		return Rule{
			Code: code,
			Check: func(_ context.Context, _ *project.Project) []Issue {
				var out []Issue
				for _, m := range msgs {
					out = append(out, Issue{Code: code, Message: m})
				}
				return out
			},
		}
	}

	// Declared out of code order; one rule contributes two issues whose
	// relative order must survive the merge.
	r := NewRunner([]Rule{
		mk("ZZ99", "last"),
		mk("AA01", "first-a", "first-b"),
		mk("MM50", "middle"),
	})
	issues := r.Validate(context.Background(), &project.Project{})
	require.Len(t, issues, 4)
	assert.Equal(t, "first-a", issues[0].Message)
	assert.Equal(t, "first-b", issues[1].Message)
	assert.Equal(t, "middle", issues[2].Message)
	assert.Equal(t, "last", issues[3].Message)
}

func TestRunner_EmptyRuleList(t *testing.T) {
	issues := NewRunner(nil).Validate(context.Background(), &project.Project{})
	assert.Empty(t, issues)
}

func TestBlocking(t *testing.T) {
	assert.False(t, Blocking(nil))
	assert.False(t, Blocking([]Issue{{Severity: SeverityWarning}}))
	assert.True(t, Blocking([]Issue{
		{Severity: SeverityWarning},
		{Severity: SeverityError},
	}))
}
