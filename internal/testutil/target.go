package testutil

import "fmt"

// RecordingTarget is an in-memory display target that records every
// mutation for assertion. It satisfies reconcile.DisplayTarget.
//
// Mutations lists each call in order ("clear", "append:<text>",
// "replace:<i>:<text>", "count:<n>", "prompt:<p>") so tests can assert
// not just final state but exactly which operations ran.
type RecordingTarget struct {
	Outputs   []string
	Count     *int
	Prompt    string
	Mutations []string
}

// NewRecordingTarget creates an empty target.
func NewRecordingTarget() *RecordingTarget {
	return &RecordingTarget{}
}

// ClearOutputs removes every output entry.
func (t *RecordingTarget) ClearOutputs() {
	t.Outputs = nil
	t.Mutations = append(t.Mutations, "clear")
}

// AppendOutput adds one output entry at the end.
func (t *RecordingTarget) AppendOutput(text string) {
	t.Outputs = append(t.Outputs, text)
	t.Mutations = append(t.Mutations, "append:"+text)
}

// ReplaceOutput overwrites the entry at index i.
func (t *RecordingTarget) ReplaceOutput(i int, text string) {
	t.Outputs[i] = text
	t.Mutations = append(t.Mutations, fmt.Sprintf("replace:%d:%s", i, text))
}

// OutputLen returns the current number of output entries.
func (t *RecordingTarget) OutputLen() int {
	return len(t.Outputs)
}

// SetExecutionCount sets the cell's execution ordinal.
func (t *RecordingTarget) SetExecutionCount(n int) {
	t.Count = &n
	t.Mutations = append(t.Mutations, fmt.Sprintf("count:%d", n))
}

// SetPrompt sets the cell's prompt surface.
func (t *RecordingTarget) SetPrompt(p string) {
	t.Prompt = p
	t.Mutations = append(t.Mutations, "prompt:"+p)
}
