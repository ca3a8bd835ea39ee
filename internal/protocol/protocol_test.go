package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionRequest_Validate(t *testing.T) {
	valid := ExecutionRequest{NotebookPath: "nb.ipynb", CellID: "c1", KernelID: "k1"}
	assert.NoError(t, valid.Validate())

	missingPath := valid
	missingPath.NotebookPath = ""
	assert.Error(t, missingPath.Validate())

	missingCell := valid
	missingCell.CellID = ""
	assert.Error(t, missingCell.Validate())

	missingKernel := valid
	missingKernel.KernelID = ""
	assert.Error(t, missingKernel.Validate())
}

func TestExecutionRecord_DisplayOutputs_EmptyPollingOutput(t *testing.T) {
	rec := ExecutionRecord{CellID: "c1", OutputText: "  \n"}
	assert.Nil(t, rec.DisplayOutputs(), "whitespace-only output yields no display entries")
}

func TestExecutionRecord_DisplayOutputs_StreamingWinsOverSingle(t *testing.T) {
	rec := ExecutionRecord{
		CellID:     "c1",
		OutputText: "ignored",
		Outputs:    []Output{{Text: "a"}, {Text: ""}},
	}
	assert.Equal(t, []string{"a", ""}, rec.DisplayOutputs(), "streaming entries preserved in order, untrimmed")
}

func TestExecuteURL(t *testing.T) {
	assert.Equal(t,
		"http://localhost:8888/api/kernels/k1/execute",
		ExecuteURL("http://localhost:8888/", "k1"))
}

func TestWebsocketURL(t *testing.T) {
	assert.Equal(t,
		"ws://localhost:8888/api/kernels/k1/execute_websocket",
		WebsocketURL("ws://localhost:8888", "k1"))
}

func TestDeriveWebsocketBase(t *testing.T) {
	assert.Equal(t, "ws://host:8888", DeriveWebsocketBase("http://host:8888"))
	assert.Equal(t, "wss://host", DeriveWebsocketBase("https://host"))
	assert.Equal(t, "ws://already", DeriveWebsocketBase("ws://already"))
}

func TestAuthorizationValue(t *testing.T) {
	assert.Equal(t, "", AuthorizationValue(""))
	assert.Equal(t, "token abc123", AuthorizationValue("abc123"))
}

func TestError_Formatting(t *testing.T) {
	err := NewTransportError("submit failed", "k1", errors.New("boom"))
	assert.Contains(t, err.Error(), "TRANSPORT_FAILURE")
	assert.Contains(t, err.Error(), "kernel=k1")
	assert.ErrorContains(t, errors.Unwrap(err), "boom")
}

func TestError_CodeHelpers(t *testing.T) {
	transport := NewTransportError("x", "k1", nil)
	mismatch := NewMismatchError("y")

	assert.True(t, IsTransportFailure(transport))
	assert.False(t, IsTransportFailure(mismatch))
	assert.True(t, IsProtocolMismatch(mismatch))
	assert.False(t, IsProtocolMismatch(errors.New("plain")))
}

func TestError_CodeHelpers_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("poll: %w", NewTransportError("status failed", "k1", nil))
	assert.True(t, IsTransportFailure(wrapped), "helpers should see through wrapping")
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	gen := UUIDv7Generator{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token := gen.Generate()
		require.Len(t, token, 36)
		assert.False(t, seen[token], "token %s generated twice", token)
		seen[token] = true
	}
}

func TestFixedGenerator_InOrder(t *testing.T) {
	gen := NewFixedGenerator("t1", "t2")
	assert.Equal(t, "t1", gen.Generate())
	assert.Equal(t, "t2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() }, "exhausted generator should panic")
}
