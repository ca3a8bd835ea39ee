package notebook

// CellTarget adapts one cell to the display-target contract the
// reconciler mutates. Output entries become stream/stdout outputs; the
// prompt marker has no home in the file format, so it is held on the
// adapter for the UI to render.
//
// The adapter holds a pointer into the Document's cell slice and must
// not outlive a mutation of the document's cell ordering.
type CellTarget struct {
	cell   *Cell
	prompt string
}

// NewCellTarget creates a target over cell.
func NewCellTarget(cell *Cell) *CellTarget {
	return &CellTarget{cell: cell}
}

// ClearOutputs removes every output entry.
func (t *CellTarget) ClearOutputs() {
	t.cell.Outputs = nil
}

// AppendOutput adds one stream output entry at the end.
func (t *CellTarget) AppendOutput(text string) {
	t.cell.Outputs = append(t.cell.Outputs, CellOutput{
		OutputType: "stream",
		Name:       "stdout",
		Text:       MultilineText(text),
	})
}

// ReplaceOutput overwrites the text of the entry at index i.
func (t *CellTarget) ReplaceOutput(i int, text string) {
	t.cell.Outputs[i].Text = MultilineText(text)
}

// OutputLen returns the current number of output entries.
func (t *CellTarget) OutputLen() int {
	return len(t.cell.Outputs)
}

// SetExecutionCount sets the cell's execution ordinal.
func (t *CellTarget) SetExecutionCount(n int) {
	t.cell.ExecutionCount = &n
}

// SetPrompt records the prompt marker for the UI.
func (t *CellTarget) SetPrompt(p string) {
	t.prompt = p
}

// Prompt returns the last prompt marker set by the protocol.
func (t *CellTarget) Prompt() string {
	return t.prompt
}
