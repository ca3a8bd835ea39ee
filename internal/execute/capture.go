package execute

import "github.com/matthewwiese/jupyter-kernel-executor/internal/reconcile"

// captureTarget forwards every mutation to the real display target while
// keeping its own copy of the applied outputs and count, so the result
// and the history log do not depend on reading state back out of the
// host's document model.
type captureTarget struct {
	inner   reconcile.DisplayTarget
	outputs []string
	count   *int
}

func newCaptureTarget(inner reconcile.DisplayTarget) *captureTarget {
	return &captureTarget{inner: inner}
}

func (t *captureTarget) ClearOutputs() {
	t.outputs = nil
	t.inner.ClearOutputs()
}

func (t *captureTarget) AppendOutput(text string) {
	t.outputs = append(t.outputs, text)
	t.inner.AppendOutput(text)
}

func (t *captureTarget) ReplaceOutput(i int, text string) {
	// The inner target may hold entries that predate tracking; only
	// mirror indexes this capture has seen.
	if i < len(t.outputs) {
		t.outputs[i] = text
	}
	t.inner.ReplaceOutput(i, text)
}

func (t *captureTarget) OutputLen() int {
	return t.inner.OutputLen()
}

func (t *captureTarget) SetExecutionCount(n int) {
	t.count = &n
	t.inner.SetExecutionCount(n)
}

func (t *captureTarget) SetPrompt(p string) {
	t.inner.SetPrompt(p)
}
