package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
)

// Backend is a scripted in-process kernel-execution backend serving both
// transports: the execute request/response pair over HTTP and the
// execute_websocket duplex channel.
//
// Polling: each GET serves the next entry of StatusResponses; once the
// script runs out the last entry repeats, so a client polling past the
// end keeps seeing the final state.
//
// Streaming: a "post" message is acknowledged with post_result echoing
// the submitted model as the opaque token (or refused with "executing"
// when AlreadyExecuting is set). A "get" message is answered with the
// first entry of Snapshots; any remaining entries are pushed unsolicited
// immediately after, mimicking the backend's follow-up pushes.
type Backend struct {
	Server *httptest.Server

	mu               sync.Mutex
	submits          []protocol.ExecutionRequest
	lastAuth         string
	statusIdx        int
	getCount         int
	snapshotIdx      int
	StatusResponses  [][]protocol.ExecutionRecord
	Snapshots        [][]protocol.ExecutionRecord
	FailSubmit       bool
	FailStatus       bool
	AlreadyExecuting bool

	// SnapshotPerGet answers each "get" with the next scripted snapshot
	// only, with no unsolicited pushes. Once the script runs out the last
	// snapshot repeats. This exercises clients that re-request on a timer.
	SnapshotPerGet bool

	// CloseAfterSnapshots drops the websocket once the scripted
	// snapshots have been written, simulating a backend that goes away
	// before the execution turns terminal.
	CloseAfterSnapshots bool
}

var upgrader = websocket.Upgrader{}

// NewBackend starts a backend on an ephemeral port. Callers own Close.
func NewBackend() *Backend {
	b := &Backend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", b.route)
	b.Server = httptest.NewServer(mux)
	return b
}

// Close shuts the backend down.
func (b *Backend) Close() {
	b.Server.Close()
}

// BaseURL returns the HTTP base for the polling transport.
func (b *Backend) BaseURL() string {
	return b.Server.URL
}

// WSBase returns the websocket base for the streaming transport.
func (b *Backend) WSBase() string {
	return protocol.DeriveWebsocketBase(b.Server.URL)
}

// Submits returns the submit requests observed so far, in order.
func (b *Backend) Submits() []protocol.ExecutionRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]protocol.ExecutionRequest, len(b.submits))
	copy(out, b.submits)
	return out
}

// LastAuth returns the most recent Authorization header value seen.
func (b *Backend) LastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth
}

func (b *Backend) route(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.lastAuth = r.Header.Get("Authorization")
	b.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, "/execute_websocket"):
		b.serveWebsocket(w, r)
	case strings.HasSuffix(r.URL.Path, "/execute") && r.Method == http.MethodPost:
		b.serveSubmit(w, r)
	case strings.HasSuffix(r.URL.Path, "/execute") && r.Method == http.MethodGet:
		b.serveStatus(w)
	default:
		http.NotFound(w, r)
	}
}

func (b *Backend) serveSubmit(w http.ResponseWriter, r *http.Request) {
	if b.FailSubmit {
		http.Error(w, "kernel not found", http.StatusNotFound)
		return
	}
	var body struct {
		Path   string `json:"path"`
		CellID string `json:"cell_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	b.submits = append(b.submits, protocol.ExecutionRequest{
		NotebookPath: body.Path,
		CellID:       body.CellID,
	})
	b.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"meta":"post"}`))
}

func (b *Backend) serveStatus(w http.ResponseWriter) {
	if b.FailStatus {
		http.Error(w, "kernel gone", http.StatusServiceUnavailable)
		return
	}
	b.mu.Lock()
	var records []protocol.ExecutionRecord
	if len(b.StatusResponses) > 0 {
		idx := b.statusIdx
		if idx >= len(b.StatusResponses) {
			idx = len(b.StatusResponses) - 1
		} else {
			b.statusIdx++
		}
		records = b.StatusResponses[idx]
	}
	b.mu.Unlock()

	if records == nil {
		records = []protocol.ExecutionRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

func (b *Backend) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			return
		}
		switch env.Meta {
		case protocol.MetaPost:
			b.handleSubmitMessage(conn, env.Payload)
		case protocol.MetaGet:
			b.mu.Lock()
			b.getCount++
			perGet := b.SnapshotPerGet
			b.mu.Unlock()
			if perGet {
				if !b.writeNextSnapshot(conn) {
					return
				}
				continue
			}
			if !b.writeSnapshots(conn) {
				return
			}
			if b.CloseAfterSnapshots {
				return
			}
		}
	}
}

func (b *Backend) handleSubmitMessage(conn *websocket.Conn, payload json.RawMessage) {
	var req protocol.ExecutionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return
	}
	b.mu.Lock()
	b.submits = append(b.submits, req)
	already := b.AlreadyExecuting
	b.mu.Unlock()

	if already {
		conn.WriteJSON(protocol.Envelope{Meta: protocol.MetaExecuting, Payload: payload})
		return
	}
	ack, _ := json.Marshal(map[string]json.RawMessage{"model": payload})
	conn.WriteJSON(protocol.Envelope{Meta: protocol.MetaPostResult, Payload: ack})
}

// Gets returns how many "get" messages the websocket side has seen.
func (b *Backend) Gets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getCount
}

// writeNextSnapshot answers one get with one snapshot, repeating the
// last entry once the script is exhausted.
func (b *Backend) writeNextSnapshot(conn *websocket.Conn) bool {
	b.mu.Lock()
	var records []protocol.ExecutionRecord
	if len(b.Snapshots) > 0 {
		idx := b.snapshotIdx
		if idx >= len(b.Snapshots) {
			idx = len(b.Snapshots) - 1
		} else {
			b.snapshotIdx++
		}
		records = b.Snapshots[idx]
	}
	b.mu.Unlock()

	if records == nil {
		records = []protocol.ExecutionRecord{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return false
	}
	return conn.WriteJSON(protocol.Envelope{Meta: protocol.MetaGet, Payload: payload}) == nil
}

// writeSnapshots serves the scripted snapshots: the first as the fetch
// reply, the rest as unsolicited pushes. Returns false on write failure.
func (b *Backend) writeSnapshots(conn *websocket.Conn) bool {
	b.mu.Lock()
	snapshots := b.Snapshots
	b.mu.Unlock()

	for _, records := range snapshots {
		payload, err := json.Marshal(records)
		if err != nil {
			return false
		}
		if err := conn.WriteJSON(protocol.Envelope{Meta: protocol.MetaGet, Payload: payload}); err != nil {
			return false
		}
	}
	return true
}
