package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/execute"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/testutil"
)

func testRequest() protocol.ExecutionRequest {
	return protocol.ExecutionRequest{
		NotebookPath: "demo.ipynb",
		CellID:       "c1",
		KernelID:     "k1",
	}
}

func TestPublishTarget_ForwardsAndMirrors(t *testing.T) {
	inner := &testutil.RecordingTarget{}
	pub := newPublishTarget(inner)

	var msgs []tea.Msg
	pub.setSender(func(msg tea.Msg) { msgs = append(msgs, msg) })

	pub.SetPrompt("*")
	pub.AppendOutput("a")
	pub.ReplaceOutput(0, "ab")
	pub.SetExecutionCount(3)

	// Inner target saw every mutation.
	assert.Equal(t, []string{"ab"}, inner.Outputs)
	require.NotNil(t, inner.Count)
	assert.Equal(t, 3, *inner.Count)
	assert.Equal(t, "*", inner.Prompt)

	// Each mutation published a snapshot of the state so far.
	require.Len(t, msgs, 4)
	last, ok := msgs[3].(snapshotMsg)
	require.True(t, ok)
	assert.Equal(t, []string{"ab"}, last.outputs)
	require.NotNil(t, last.count)
	assert.Equal(t, 3, *last.count)
}

func TestPublishTarget_NoSenderStillForwards(t *testing.T) {
	inner := &testutil.RecordingTarget{}
	pub := newPublishTarget(inner)

	pub.AppendOutput("x")
	pub.ClearOutputs()

	assert.Empty(t, inner.Outputs)
	assert.Equal(t, []string{"append:x", "clear"}, inner.Mutations)
}

func TestModel_SnapshotUpdatesView(t *testing.T) {
	m := newModel(testRequest(), nil, func() {})

	next, _ := m.Update(snapshotMsg{prompt: "*", outputs: []string{"partial"}})
	m = next.(model)

	view := m.View()
	assert.Contains(t, view, "cell c1 on kernel k1")
	assert.Contains(t, view, "running [*]")
	assert.Contains(t, view, "partial")
}

func TestModel_DoneShowsResultAndQuits(t *testing.T) {
	m := newModel(testRequest(), nil, func() {})

	count := 5
	next, cmd := m.Update(doneMsg{outcome: execute.Outcome{
		Result: &execute.Result{ExecutionCount: count, Outputs: []string{"42\n"}},
	}})
	m = next.(model)

	require.NotNil(t, cmd)
	assert.True(t, m.finished)

	view := m.View()
	assert.Contains(t, view, "execution_count=5")
	assert.Contains(t, view, "42")
}

func TestModel_DoneShowsFailure(t *testing.T) {
	m := newModel(testRequest(), nil, func() {})

	next, _ := m.Update(doneMsg{outcome: execute.Outcome{
		Err: protocol.NewTransportError("poll request failed", "k1", assert.AnError),
	}})
	m = next.(model)

	assert.True(t, m.finished)
	assert.Contains(t, m.View(), "failed")
}

func TestModel_CancelKeyAbandonsTracking(t *testing.T) {
	cancelled := false
	m := newModel(testRequest(), nil, func() { cancelled = true })

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(model)

	// Cancel fires, but the model waits for the outcome before quitting.
	assert.True(t, cancelled)
	assert.Nil(t, cmd)
	assert.False(t, m.finished)
}
