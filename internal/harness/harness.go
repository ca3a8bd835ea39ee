package harness

import (
	"fmt"
	"reflect"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/reconcile"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/testutil"
)

// TraceEvent captures the display state after one scenario step.
type TraceEvent struct {
	Step           int      `json:"step"`
	Outcome        string   `json:"outcome"`
	Prompt         string   `json:"prompt,omitempty"`
	Outputs        []string `json:"outputs,omitempty"`
	ExecutionCount *int     `json:"execution_count,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: every expect clause and
	// the final block matched.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:  true,
		Trace: []TraceEvent{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run executes a scenario against a fresh display target and returns
// the result. Execution never stops early: every step is applied so the
// trace stays complete even when an expectation fails.
func Run(scenario *Scenario) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	target := testutil.NewRecordingTarget()
	rec := reconcile.New()
	result := NewResult()

	for i, step := range scenario.Steps {
		outcome := applyStep(rec, step, target, scenario.CellID)

		if step.Expect != "" && step.Expect != outcome.String() {
			result.AddError(fmt.Sprintf("steps[%d]: expected outcome %q, got %q", i, step.Expect, outcome))
		}

		event := TraceEvent{
			Step:           i,
			Outcome:        outcome.String(),
			Prompt:         target.Prompt,
			ExecutionCount: target.Count,
		}
		event.Outputs = append(event.Outputs, target.Outputs...)
		result.Trace = append(result.Trace, event)
	}

	if scenario.Final != nil {
		checkFinal(scenario.Final, target, result)
	}

	return result, nil
}

func applyStep(rec *reconcile.Reconciler, step Step, target reconcile.DisplayTarget, cellID string) reconcile.Outcome {
	if step.Record != nil {
		return rec.Apply(step.Record.toRecord(), target, cellID)
	}
	records := make([]protocol.ExecutionRecord, len(step.Records))
	for i, spec := range step.Records {
		records[i] = spec.toRecord()
	}
	return rec.ApplyAll(records, target, cellID)
}

func checkFinal(final *FinalState, target *testutil.RecordingTarget, result *Result) {
	if !reflect.DeepEqual(normalize(final.Outputs), normalize(target.Outputs)) {
		result.AddError(fmt.Sprintf("final: expected outputs %q, got %q", final.Outputs, target.Outputs))
	}

	if final.ExecutionCount != nil {
		switch {
		case target.Count == nil:
			result.AddError(fmt.Sprintf("final: expected execution_count %d, got none", *final.ExecutionCount))
		case *target.Count != *final.ExecutionCount:
			result.AddError(fmt.Sprintf("final: expected execution_count %d, got %d", *final.ExecutionCount, *target.Count))
		}
	}

	if final.Prompt != "" && final.Prompt != target.Prompt {
		result.AddError(fmt.Sprintf("final: expected prompt %q, got %q", final.Prompt, target.Prompt))
	}
}

// normalize maps nil and empty slices to the same value for comparison.
func normalize(outputs []string) []string {
	if len(outputs) == 0 {
		return nil
	}
	return outputs
}
