package protocol

import (
	"encoding/json"
	"fmt"
)

// Meta tags a websocket envelope with its message kind.
type Meta string

const (
	// MetaPost is the client's submit message.
	MetaPost Meta = "post"

	// MetaGet tags both the client's fetch message and the backend's
	// snapshot reply. Direction disambiguates: the client never receives
	// its own fetch, and the backend's "get" always carries records.
	MetaGet Meta = "get"

	// MetaPostResult is the backend's submit acknowledgment. Its payload
	// carries the opaque model token the client echoes back in a fetch.
	MetaPostResult Meta = "post_result"

	// MetaExecuting is the backend's refusal of a duplicate submit: the
	// cell is already being executed on that kernel.
	MetaExecuting Meta = "executing"
)

// Envelope is the framing of every websocket message, in both directions.
type Envelope struct {
	Meta    Meta            `json:"meta"`
	Payload json.RawMessage `json:"payload"`
}

// submitBody is the polling transport's POST body.
type submitBody struct {
	Path   string `json:"path"`
	CellID string `json:"cell_id"`
}

// EncodeSubmitBody encodes the polling transport's creation call body.
func EncodeSubmitBody(req ExecutionRequest) ([]byte, error) {
	data, err := json.Marshal(submitBody{Path: req.NotebookPath, CellID: req.CellID})
	if err != nil {
		return nil, fmt.Errorf("encode submit body: %w", err)
	}
	return data, nil
}

// EncodeSubmit encodes the streaming transport's submit envelope.
func EncodeSubmit(req ExecutionRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode submit payload: %w", err)
	}
	data, err := json.Marshal(Envelope{Meta: MetaPost, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode submit envelope: %w", err)
	}
	return data, nil
}

// EncodeFetch encodes the streaming transport's fetch envelope. The model
// token is the opaque payload from a prior post_result acknowledgment and
// is echoed back verbatim.
func EncodeFetch(model json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(Envelope{Meta: MetaGet, Payload: model})
	if err != nil {
		return nil, fmt.Errorf("encode fetch envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses an inbound websocket frame. The meta tag must be
// one the protocol knows; an unknown tag is a PROTOCOL_MISMATCH, not a
// message to guess at.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, WrapMismatchError("inbound frame is not a {meta, payload} envelope", err)
	}
	switch env.Meta {
	case MetaPost, MetaGet, MetaPostResult, MetaExecuting:
		return env, nil
	case "":
		return Envelope{}, NewMismatchError("inbound frame missing meta tag")
	default:
		return Envelope{}, NewMismatchError(fmt.Sprintf("unknown meta tag %q", env.Meta))
	}
}

// postResultPayload is the submit-acknowledged payload shape.
type postResultPayload struct {
	Model json.RawMessage `json:"model"`
}

// DecodePostResult extracts the opaque model token from a post_result
// payload. The token is kept raw; the client never interprets it, only
// echoes it back in a fetch.
func DecodePostResult(payload json.RawMessage) (json.RawMessage, error) {
	var body postResultPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, WrapMismatchError("post_result payload is not an object", err)
	}
	if len(body.Model) == 0 {
		return nil, NewMismatchError("post_result payload missing model token")
	}
	return body.Model, nil
}

// DecodeSnapshot parses a backend "get" payload: a snapshot of execution
// records, each possibly describing a different cell.
func DecodeSnapshot(payload json.RawMessage) ([]ExecutionRecord, error) {
	var records []ExecutionRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, WrapMismatchError("snapshot payload is not a record array", err)
	}
	return records, nil
}

// DecodeRecordList parses the polling transport's GET response body.
func DecodeRecordList(body []byte) ([]ExecutionRecord, error) {
	var records []ExecutionRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, WrapMismatchError("status response is not a record array", err)
	}
	return records, nil
}
