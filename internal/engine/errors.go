package engine

import (
	"fmt"
	"strings"
)

// Step names a pipeline stage for error attribution.
type Step string

// Pipeline steps, in execution order.
const (
	StepExtract      Step = "extract"
	StepAppend       Step = "append"
	StepAssignID     Step = "system_id"
	StepQuality      Step = "quality"
	StepReplace      Step = "replace"
	StepFilter       Step = "filter"
	StepLink         Step = "link"
	StepUnnest       Step = "unnest"
	StepExtraColumns Step = "extra_columns"
	StepStore        Step = "store"
)

// StepError attributes a materialization failure to an entity and a
// pipeline step.
type StepError struct {
	Entity string
	Step   Step
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("entity %q: %s: %v", e.Entity, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// sampleLimit bounds the number of offending key values quoted in a
// constraint violation.
const sampleLimit = 5

// ConstraintError reports a violated link constraint between two entities.
// Sample holds up to sampleLimit offending key values.
type ConstraintError struct {
	LocalEntity  string
	RemoteEntity string
	Constraint   string
	Count        int
	Sample       []string
}

func (e *ConstraintError) Error() string {
	msg := fmt.Sprintf("linking %q to %q violates %s: %d offending key(s)",
		e.LocalEntity, e.RemoteEntity, e.Constraint, e.Count)
	if len(e.Sample) > 0 {
		msg += " such as " + strings.Join(e.Sample, ", ")
	}
	return msg
}
