package protocol

import "strings"

// ExecutionRequest identifies one execution attempt. It is created once
// per user-triggered invocation, never mutated, and discarded once the
// terminal record for the cell has been observed.
type ExecutionRequest struct {
	// NotebookPath is the backend-visible path of the notebook file.
	NotebookPath string `json:"path"`

	// CellID is the stable opaque identifier of the cell. It survives
	// cell reordering and is the identity records are matched against.
	CellID string `json:"cell_id"`

	// CellIndex is the cell's positional index at submit time. It is
	// used only for UI addressing, never for identity: by the time a
	// record arrives the cell may have moved.
	CellIndex int `json:"cell_index"`

	// KernelID is the opaque backend kernel session identifier. It is
	// embedded in every endpoint path.
	KernelID string `json:"kernel_id"`
}

// Validate checks that the request carries the fields every transport
// needs. CellIndex is allowed to be zero (first cell).
func (r ExecutionRequest) Validate() error {
	if r.NotebookPath == "" {
		return NewMismatchError("execution request missing path")
	}
	if r.CellID == "" {
		return NewMismatchError("execution request missing cell_id")
	}
	if r.KernelID == "" {
		return NewMismatchError("execution request missing kernel_id")
	}
	return nil
}

// Output is one entry of a streaming record's output sequence.
type Output struct {
	Text string `json:"text"`
}

// ExecutionRecord is the backend's view of one cell's latest execution
// state. The polling transport carries a single Output string; the
// streaming transport carries an ordered Outputs sequence and a separate
// RecordID identity (see Reconciler for how the two identities are
// matched independently).
//
// Records are read-only to the client. Each poll or push supersedes the
// previous record for the same cell; no history is kept beyond the
// last-applied record.
type ExecutionRecord struct {
	// CellID echoes the originating cell. Execution-count updates match
	// on this field.
	CellID string `json:"cell_id"`

	// RecordID is the backend-assigned identity of the execution slot,
	// present only on streaming records. Output-replacement updates
	// match on this field. It is not guaranteed equal to CellID.
	RecordID string `json:"id,omitempty"`

	// ExecutionCount is nil while the cell is still running. A non-nil
	// value is the terminal ordinal for this execution.
	ExecutionCount *int `json:"execution_count"`

	// OutputText is the polling transport's single computed output.
	OutputText string `json:"output,omitempty"`

	// Outputs is the streaming transport's ordered output sequence.
	Outputs []Output `json:"outputs,omitempty"`
}

// Terminal reports whether the record carries a terminal execution count.
func (r ExecutionRecord) Terminal() bool {
	return r.ExecutionCount != nil
}

// DisplayOutputs returns the record's outputs as display text entries.
// Streaming records contribute each entry in order; polling records
// contribute their single output, trimmed, or nothing if it is empty.
func (r ExecutionRecord) DisplayOutputs() []string {
	if len(r.Outputs) > 0 {
		texts := make([]string, len(r.Outputs))
		for i, out := range r.Outputs {
			texts[i] = out.Text
		}
		return texts
	}
	if text := strings.TrimSpace(r.OutputText); text != "" {
		return []string{text}
	}
	return nil
}
