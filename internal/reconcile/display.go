package reconcile

// RunningPrompt is the busy marker written to a cell's prompt surface
// while its execution is in flight. Matches the notebook convention for
// a running cell.
const RunningPrompt = "*"

// DisplayTarget is the mutable output/prompt/execution-count surface of
// one concrete cell, owned by the host document model. The protocol only
// appends, replaces, or clears output entries and sets the count and
// prompt; it never touches cell source or identity.
//
// The host shares the target with its own rendering and editing, so
// implementations must tolerate being mutated between records. All
// mutations for one cell are serialized by the single tracking flow;
// implementations need no internal locking for protocol traffic.
type DisplayTarget interface {
	// ClearOutputs removes every output entry.
	ClearOutputs()

	// AppendOutput adds one output entry at the end.
	AppendOutput(text string)

	// ReplaceOutput overwrites the entry at index i. The index is
	// guaranteed to be in range at call time.
	ReplaceOutput(i int, text string)

	// OutputLen returns the current number of output entries.
	OutputLen() int

	// SetExecutionCount sets the cell's execution ordinal.
	SetExecutionCount(n int)

	// SetPrompt sets the cell's prompt surface to a short marker string.
	SetPrompt(p string)
}
