package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
)

// Scenario defines a conformance test scenario for the reconciler.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// CellID is the tracked cell identity records are matched against.
	CellID string `yaml:"cell_id"`

	// Steps are applied in order against one display target.
	Steps []Step `yaml:"steps"`

	// Final optionally asserts the display state after the last step.
	Final *FinalState `yaml:"final,omitempty"`
}

// Step applies one record or one snapshot of records.
type Step struct {
	// Record is a single record, as the polling transport delivers them.
	Record *RecordSpec `yaml:"record,omitempty"`

	// Records is a snapshot, as the streaming transport delivers them.
	Records []RecordSpec `yaml:"records,omitempty"`

	// Expect optionally names the outcome this step must produce:
	// "skip", "continue", or "terminal". Snapshots expect the strongest
	// outcome of their records.
	Expect string `yaml:"expect,omitempty"`
}

// RecordSpec mirrors the wire record shape in YAML.
type RecordSpec struct {
	CellID         string   `yaml:"cell_id"`
	RecordID       string   `yaml:"id,omitempty"`
	ExecutionCount *int     `yaml:"execution_count,omitempty"`
	Output         string   `yaml:"output,omitempty"`
	Outputs        []string `yaml:"outputs,omitempty"`
}

// toRecord converts the YAML shape to a protocol record.
func (r RecordSpec) toRecord() protocol.ExecutionRecord {
	rec := protocol.ExecutionRecord{
		CellID:         r.CellID,
		RecordID:       r.RecordID,
		ExecutionCount: r.ExecutionCount,
		OutputText:     r.Output,
	}
	for _, text := range r.Outputs {
		rec.Outputs = append(rec.Outputs, protocol.Output{Text: text})
	}
	return rec
}

// FinalState asserts the display target after the last step.
type FinalState struct {
	// Outputs is the exact expected output sequence.
	Outputs []string `yaml:"outputs"`

	// ExecutionCount, when set, must equal the target's ordinal.
	ExecutionCount *int `yaml:"execution_count,omitempty"`

	// Prompt, when set, must equal the last prompt marker.
	Prompt string `yaml:"prompt,omitempty"`
}

// Valid step outcomes.
var validOutcomes = []string{"skip", "continue", "terminal"}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "step:" vs "steps:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.CellID == "" {
		return fmt.Errorf("cell_id is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Record == nil && len(step.Records) == 0 {
			return fmt.Errorf("steps[%d]: one of record or records is required", i)
		}
		if step.Record != nil && len(step.Records) > 0 {
			return fmt.Errorf("steps[%d]: record and records are mutually exclusive", i)
		}
		if step.Expect != "" && !isValidOutcome(step.Expect) {
			return fmt.Errorf("steps[%d]: unknown expect %q: must be one of %v", i, step.Expect, validOutcomes)
		}
	}

	return nil
}

func isValidOutcome(name string) bool {
	for _, o := range validOutcomes {
		if o == name {
			return true
		}
	}
	return false
}
