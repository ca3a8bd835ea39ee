package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/reconcile"
)

// publishTarget forwards every mutation to the wrapped display target
// and mirrors the visible state to the program as snapshot messages, so
// the view tracks reconciliation as it happens.
type publishTarget struct {
	inner reconcile.DisplayTarget

	mu      sync.Mutex
	send    func(tea.Msg)
	prompt  string
	outputs []string
	count   *int
}

func newPublishTarget(inner reconcile.DisplayTarget) *publishTarget {
	return &publishTarget{inner: inner}
}

// setSender attaches the running program. Mutations before this point
// still reach the inner target; only the mirror messages are skipped.
func (t *publishTarget) setSender(send func(tea.Msg)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.send = send
}

func (t *publishTarget) ClearOutputs() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inner.ClearOutputs()
	t.outputs = t.outputs[:0]
	t.publishLocked()
}

func (t *publishTarget) AppendOutput(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inner.AppendOutput(text)
	t.outputs = append(t.outputs, text)
	t.publishLocked()
}

func (t *publishTarget) ReplaceOutput(i int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inner.ReplaceOutput(i, text)
	if i >= 0 && i < len(t.outputs) {
		t.outputs[i] = text
	}
	t.publishLocked()
}

func (t *publishTarget) OutputLen() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.OutputLen()
}

func (t *publishTarget) SetExecutionCount(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inner.SetExecutionCount(n)
	t.count = &n
	t.publishLocked()
}

func (t *publishTarget) SetPrompt(p string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inner.SetPrompt(p)
	t.prompt = p
	t.publishLocked()
}

func (t *publishTarget) publishLocked() {
	if t.send == nil {
		return
	}
	msg := snapshotMsg{prompt: t.prompt, count: t.count}
	msg.outputs = append(msg.outputs, t.outputs...)
	t.send(msg)
}
