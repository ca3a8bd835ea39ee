package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelope_KnownMetas(t *testing.T) {
	for _, meta := range []Meta{MetaPost, MetaGet, MetaPostResult, MetaExecuting} {
		env, err := DecodeEnvelope([]byte(`{"meta":"` + string(meta) + `","payload":{}}`))
		require.NoError(t, err, "meta %q should decode", meta)
		assert.Equal(t, meta, env.Meta)
	}
}

func TestDecodeEnvelope_UnknownMeta(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"meta":"delete","payload":{}}`))
	require.Error(t, err)
	assert.True(t, IsProtocolMismatch(err), "unknown meta should be a protocol mismatch")
}

func TestDecodeEnvelope_MissingMeta(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`{"payload":{}}`))
	require.Error(t, err)
	assert.True(t, IsProtocolMismatch(err))
}

func TestDecodeEnvelope_NotJSON(t *testing.T) {
	_, err := DecodeEnvelope([]byte(`not json`))
	require.Error(t, err)
	assert.True(t, IsProtocolMismatch(err))
}

func TestDecodePostResult_ModelToken(t *testing.T) {
	model, err := DecodePostResult(json.RawMessage(`{"model":{"kernel_id":"k1","path":"nb.ipynb"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kernel_id":"k1","path":"nb.ipynb"}`, string(model))
}

func TestDecodePostResult_MissingModel(t *testing.T) {
	_, err := DecodePostResult(json.RawMessage(`{"other":1}`))
	require.Error(t, err)
	assert.True(t, IsProtocolMismatch(err))
}

func TestDecodeSnapshot_Records(t *testing.T) {
	payload := json.RawMessage(`[
		{"cell_id":"c1","id":"c1","execution_count":5,"outputs":[{"text":"a"},{"text":"b"}]},
		{"cell_id":"c2","id":"c2","execution_count":null,"outputs":[]}
	]`)

	records, err := DecodeSnapshot(payload)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.NotNil(t, records[0].ExecutionCount)
	assert.Equal(t, 5, *records[0].ExecutionCount)
	assert.Equal(t, []string{"a", "b"}, records[0].DisplayOutputs())

	assert.Nil(t, records[1].ExecutionCount)
	assert.False(t, records[1].Terminal())
}

func TestDecodeSnapshot_NotArray(t *testing.T) {
	_, err := DecodeSnapshot(json.RawMessage(`{"cell_id":"c1"}`))
	require.Error(t, err)
	assert.True(t, IsProtocolMismatch(err))
}

func TestDecodeRecordList_PollingShape(t *testing.T) {
	records, err := DecodeRecordList([]byte(`[{"cell_id":"c1","execution_count":3,"output":"42\n"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.True(t, records[0].Terminal())
	assert.Equal(t, []string{"42"}, records[0].DisplayOutputs(), "polling output should be trimmed")
}

func TestEncodeSubmit_Envelope(t *testing.T) {
	data, err := EncodeSubmit(ExecutionRequest{
		NotebookPath: "nb.ipynb",
		CellID:       "c1",
		CellIndex:    2,
		KernelID:     "k1",
	})
	require.NoError(t, err)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, MetaPost, env.Meta)

	var req ExecutionRequest
	require.NoError(t, json.Unmarshal(env.Payload, &req))
	assert.Equal(t, "nb.ipynb", req.NotebookPath)
	assert.Equal(t, "c1", req.CellID)
	assert.Equal(t, 2, req.CellIndex)
	assert.Equal(t, "k1", req.KernelID)
}

func TestEncodeFetch_EchoesModelVerbatim(t *testing.T) {
	model := json.RawMessage(`{"kernel_id":"k1"}`)
	data, err := EncodeFetch(model)
	require.NoError(t, err)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, MetaGet, env.Meta)
	assert.JSONEq(t, string(model), string(env.Payload))
}

func TestEncodeSubmitBody_PollingShape(t *testing.T) {
	data, err := EncodeSubmitBody(ExecutionRequest{
		NotebookPath: "nb.ipynb",
		CellID:       "c1",
		KernelID:     "k1",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"nb.ipynb","cell_id":"c1"}`, string(data))
}
