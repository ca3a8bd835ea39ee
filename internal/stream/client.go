// Package stream implements the streaming transport: one duplex
// websocket channel carrying a single submit message, a fetch after the
// backend's acknowledgment, and asynchronous snapshot pushes until the
// tracked cell's record turns terminal.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/reconcile"
)

// State is the streaming client's position in its lifecycle.
type State int

const (
	// StateIdle: no channel exists yet.
	StateIdle State = iota
	// StateConnecting: the channel is being dialed.
	StateConnecting
	// StateAwaitingSubmitAck: submit sent, waiting for post_result.
	StateAwaitingSubmitAck
	// StateAwaitingSnapshot: fetch sent, waiting for snapshot pushes.
	// The client cycles back here after each non-terminal snapshot.
	StateAwaitingSnapshot
	// StateTerminal: a snapshot carried the tracked cell's terminal record.
	StateTerminal
	// StateFailed: the channel failed or closed before Terminal.
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateAwaitingSubmitAck:
		return "awaiting_submit_ack"
	case StateAwaitingSnapshot:
		return "awaiting_snapshot"
	case StateTerminal:
		return "terminal"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultHandshakeTimeout bounds the websocket dial.
const DefaultHandshakeTimeout = 10 * time.Second

// Config holds the streaming transport's endpoint settings.
type Config struct {
	// WSBase is the backend's websocket base, e.g. "ws://localhost:8888".
	WSBase string

	// Token is sent as "Authorization: token <t>" when non-empty.
	Token string

	// HandshakeTimeout bounds the dial. Defaults to DefaultHandshakeTimeout.
	HandshakeTimeout time.Duration

	// RefetchInterval, when positive, re-sends the fetch message on a
	// timer after the first acknowledgment. The reference behavior sends
	// exactly one fetch and relies on unsolicited pushes; this is opt-in
	// hardening against a backend that stops pushing.
	RefetchInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return c
}

// Client drives one execution through the streaming transport.
//
// A Client tracks at most one in-flight execution and is not safe for
// concurrent Run calls; create one Client per tracked request.
type Client struct {
	cfg        Config
	dialer     *websocket.Dialer
	reconciler *reconcile.Reconciler
	state      State

	// writeMu serializes frame writes: the read loop and the optional
	// refetch timer both write, and the websocket allows one writer.
	writeMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// New creates a streaming client in StateIdle.
func New(cfg Config, opts ...Option) *Client {
	cfg = cfg.withDefaults()
	c := &Client{
		cfg:        cfg,
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		reconciler: reconcile.New(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	return c.state
}

// Run opens the channel, submits the request, and reacts to inbound
// frames until the tracked record turns terminal, the channel fails or
// closes, or ctx is cancelled.
//
// Failure semantics: channel-level errors and unexpected close before
// Terminal surface to the caller; there is no automatic reconnect.
func (c *Client) Run(ctx context.Context, req protocol.ExecutionRequest, target reconcile.DisplayTarget) error {
	if err := req.Validate(); err != nil {
		c.state = StateFailed
		return err
	}

	c.state = StateConnecting
	url := protocol.WebsocketURL(c.cfg.WSBase, req.KernelID)

	header := http.Header{}
	if auth := protocol.AuthorizationValue(c.cfg.Token); auth != "" {
		header.Set("Authorization", auth)
	}

	conn, resp, err := c.dialer.DialContext(ctx, url, header)
	if err != nil {
		c.state = StateFailed
		if resp != nil {
			return protocol.NewTransportError(
				fmt.Sprintf("open channel: handshake returned %s", resp.Status), req.KernelID, err)
		}
		return protocol.NewTransportError("open channel", req.KernelID, err)
	}
	defer conn.Close()

	// Closing the connection is the only way to unblock a pending read
	// when the caller cancels.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	submit, err := protocol.EncodeSubmit(req)
	if err != nil {
		c.state = StateFailed
		return err
	}
	if err := c.write(conn, submit); err != nil {
		c.state = StateFailed
		return protocol.NewTransportError("send submit", req.KernelID, err)
	}
	target.SetPrompt(reconcile.RunningPrompt)
	c.state = StateAwaitingSubmitAck
	slog.Debug("submit sent on channel",
		"path", req.NotebookPath,
		"cell", req.CellID,
		"kernel", req.KernelID)

	if err := c.readLoop(ctx, conn, req, target, done); err != nil {
		c.state = StateFailed
		return err
	}
	c.state = StateTerminal
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, req protocol.ExecutionRequest, target reconcile.DisplayTarget, done <-chan struct{}) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &protocol.Error{
				Code:     protocol.ErrCodeChannelClosed,
				Message:  "channel closed before terminal record",
				KernelID: req.KernelID,
				CellID:   req.CellID,
				Err:      err,
			}
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			return err
		}

		switch env.Meta {
		case protocol.MetaPostResult:
			if err := c.handleSubmitAck(conn, req, env.Payload, done); err != nil {
				return err
			}

		case protocol.MetaExecuting:
			return &protocol.Error{
				Code:     protocol.ErrCodeAlreadyExecuting,
				Message:  "backend is already executing this cell",
				KernelID: req.KernelID,
				CellID:   req.CellID,
			}

		case protocol.MetaGet:
			records, err := protocol.DecodeSnapshot(env.Payload)
			if err != nil {
				return err
			}
			outcome := c.reconciler.ApplyAll(records, target, req.CellID)
			slog.Debug("snapshot applied",
				"cell", req.CellID,
				"records", len(records),
				"outcome", outcome.String())
			if outcome == reconcile.OutcomeTerminal {
				return nil
			}
			// Non-terminal: stay in AwaitingSnapshot for the next push.

		case protocol.MetaPost:
			return protocol.NewMismatchError("backend sent a client-only post frame")
		}
	}
}

// handleSubmitAck answers a post_result acknowledgment with the single
// fetch for the model region the backend indicated, and starts the
// optional refetch timer.
func (c *Client) handleSubmitAck(conn *websocket.Conn, req protocol.ExecutionRequest, payload json.RawMessage, done <-chan struct{}) error {
	model, err := protocol.DecodePostResult(payload)
	if err != nil {
		return err
	}
	fetch, err := protocol.EncodeFetch(model)
	if err != nil {
		return err
	}
	if err := c.write(conn, fetch); err != nil {
		return protocol.NewTransportError("send fetch", req.KernelID, err)
	}
	c.state = StateAwaitingSnapshot

	if c.cfg.RefetchInterval > 0 {
		go c.refetch(conn, fetch, done)
	}
	return nil
}

// refetch re-sends the fetch frame on a timer until the tracking flow
// finishes. Write errors end the timer; the read loop observes the same
// broken channel and surfaces it.
func (c *Client) refetch(conn *websocket.Conn, fetch []byte, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.RefetchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := c.write(conn, fetch); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(conn *websocket.Conn, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}
