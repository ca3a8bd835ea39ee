package poll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/testutil"
)

func count(n int) *int {
	return &n
}

func testRequest() protocol.ExecutionRequest {
	return protocol.ExecutionRequest{
		NotebookPath: "nb.ipynb",
		CellID:       "c1",
		CellIndex:    0,
		KernelID:     "k1",
	}
}

func newTestClient(backend *testutil.Backend, cfg Config) *Client {
	cfg.BaseURL = backend.BaseURL()
	return New(cfg, WithScheduler(testutil.NewImmediateScheduler()))
}

func TestClient_Run_RunningThenTerminal(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()
	backend.StatusResponses = [][]protocol.ExecutionRecord{
		{{CellID: "c1", ExecutionCount: nil, OutputText: ""}},
		{{CellID: "c1", ExecutionCount: count(3), OutputText: "42"}},
	}

	client := newTestClient(backend, Config{})
	target := testutil.NewRecordingTarget()

	err := client.Run(context.Background(), testRequest(), target)
	require.NoError(t, err)

	assert.Equal(t, StateTerminal, client.State())
	assert.Equal(t, []string{"42"}, target.Outputs)
	require.NotNil(t, target.Count)
	assert.Equal(t, 3, *target.Count)

	submits := backend.Submits()
	require.Len(t, submits, 1)
	assert.Equal(t, "nb.ipynb", submits[0].NotebookPath)
	assert.Equal(t, "c1", submits[0].CellID)
}

func TestClient_Run_NoRecordYetKeepsPolling(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()
	backend.StatusResponses = [][]protocol.ExecutionRecord{
		{}, // backend has not materialized a record yet
		{{CellID: "other", ExecutionCount: count(1), OutputText: "x"}},
		{{CellID: "c1", ExecutionCount: count(2), OutputText: "done"}},
	}

	sched := testutil.NewImmediateScheduler()
	client := New(Config{BaseURL: backend.BaseURL()}, WithScheduler(sched))
	target := testutil.NewRecordingTarget()

	err := client.Run(context.Background(), testRequest(), target)
	require.NoError(t, err)

	assert.Len(t, sched.Waits(), 3, "empty and foreign-only responses are no-ops that stay on schedule")
	assert.Equal(t, []string{"done"}, target.Outputs)
}

func TestClient_Run_SubmitFailureIsFatal(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()
	backend.FailSubmit = true

	client := newTestClient(backend, Config{})
	target := testutil.NewRecordingTarget()

	err := client.Run(context.Background(), testRequest(), target)
	require.Error(t, err)

	assert.True(t, protocol.IsTransportFailure(err))
	assert.Equal(t, StateFailed, client.State())
	assert.Empty(t, target.Mutations, "failed submit must not touch the display")
}

func TestClient_Run_StatusFailureAbortsTracking(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()
	backend.FailStatus = true

	client := newTestClient(backend, Config{})
	target := testutil.NewRecordingTarget()

	err := client.Run(context.Background(), testRequest(), target)
	require.Error(t, err)

	assert.True(t, protocol.IsTransportFailure(err), "status failure surfaces instead of silent retry")
	assert.Equal(t, StateFailed, client.State())
}

func TestClient_Run_PollBudgetExhausted(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()
	backend.StatusResponses = [][]protocol.ExecutionRecord{
		{{CellID: "c1", ExecutionCount: nil, OutputText: "still going"}},
	}

	sched := testutil.NewImmediateScheduler()
	client := New(Config{BaseURL: backend.BaseURL(), MaxPolls: 5}, WithScheduler(sched))
	target := testutil.NewRecordingTarget()

	err := client.Run(context.Background(), testRequest(), target)
	require.Error(t, err)

	assert.True(t, protocol.IsPollBudgetExhausted(err))
	assert.Len(t, sched.Waits(), 5)
	assert.Equal(t, StateFailed, client.State())
}

func TestClient_Run_ContextCancellation(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()
	backend.StatusResponses = [][]protocol.ExecutionRecord{
		{{CellID: "c1", ExecutionCount: nil}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := New(Config{BaseURL: backend.BaseURL(), Interval: time.Hour})
	target := testutil.NewRecordingTarget()

	done := make(chan error, 1)
	go func() {
		done <- client.Run(ctx, testRequest(), target)
	}()

	// Let the submit land before cancelling the interval wait.
	require.Eventually(t, func() bool {
		return len(backend.Submits()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, client.State())
}

func TestClient_Run_InvalidRequest(t *testing.T) {
	client := New(Config{BaseURL: "http://unused"})
	target := testutil.NewRecordingTarget()

	err := client.Run(context.Background(), protocol.ExecutionRequest{}, target)
	require.Error(t, err)
	assert.True(t, protocol.IsProtocolMismatch(err))
}

func TestClient_Submit_SendsAuthHeader(t *testing.T) {
	backend := testutil.NewBackend()
	defer backend.Close()

	client := New(Config{BaseURL: backend.BaseURL(), Token: "secret"},
		WithScheduler(testutil.NewImmediateScheduler()))

	_, err := client.Submit(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Equal(t, "token secret", backend.LastAuth())
	assert.Equal(t, StateSubmitted, client.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "submitted", StateSubmitted.String())
	assert.Equal(t, "polling", StatePolling.String())
	assert.Equal(t, "terminal", StateTerminal.String())
	assert.Equal(t, "failed", StateFailed.String())
}
