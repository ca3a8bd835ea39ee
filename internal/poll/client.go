// Package poll implements the polling transport: one submit request,
// then repeated status checks on a fixed interval until the tracked
// cell's record reports a terminal execution count.
package poll

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/reconcile"
)

// State is the polling client's position in its lifecycle.
type State int

const (
	// StateIdle: no execution request exists yet.
	StateIdle State = iota
	// StateSubmitted: the creation call succeeded.
	StateSubmitted
	// StatePolling: status checks are being scheduled.
	StatePolling
	// StateTerminal: the tracked record reported a terminal count.
	StateTerminal
	// StateFailed: submit or a status check failed, or the budget ran out.
	StateFailed
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateTerminal:
		return "terminal"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DefaultInterval is the delay between status checks.
const DefaultInterval = 2 * time.Second

// DefaultMaxPolls bounds status checks per execution: 900 attempts at
// the default interval is 30 minutes of tracking. Without a bound a cell
// that never reaches a terminal count would be polled forever.
const DefaultMaxPolls = 900

// Config holds the polling transport's endpoint and pacing settings.
type Config struct {
	// BaseURL is the backend's HTTP base, e.g. "http://localhost:8888".
	BaseURL string

	// Token is sent as "Authorization: token <t>" when non-empty.
	Token string

	// Interval between status checks. Defaults to DefaultInterval.
	Interval time.Duration

	// MaxPolls caps status checks per execution. Defaults to DefaultMaxPolls.
	MaxPolls int
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.MaxPolls <= 0 {
		c.MaxPolls = DefaultMaxPolls
	}
	return c
}

// Client drives one execution through the polling transport.
//
// A Client tracks at most one in-flight execution and is not safe for
// concurrent Run calls; create one Client per tracked request.
type Client struct {
	cfg        Config
	httpClient *http.Client
	reconciler *reconcile.Reconciler
	sched      Scheduler
	state      State
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithScheduler replaces the interval scheduler. Tests use
// testutil.ImmediateScheduler to run the machine without sleeping.
func WithScheduler(s Scheduler) Option {
	return func(c *Client) {
		c.sched = s
	}
}

// New creates a polling client in StateIdle.
func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg.withDefaults(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		reconciler: reconcile.New(),
		sched:      timerScheduler{},
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

// Run submits the request and polls until the tracked record turns
// terminal, the poll budget runs out, a transport call fails, or ctx is
// cancelled.
//
// Failure semantics: a submit failure is fatal and surfaces immediately.
// A status-check failure aborts tracking and surfaces rather than
// retrying; the record may still turn terminal on the backend, but this
// client stops watching.
func (c *Client) Run(ctx context.Context, req protocol.ExecutionRequest, target reconcile.DisplayTarget) error {
	if err := req.Validate(); err != nil {
		c.state = StateFailed
		return err
	}

	if _, err := c.Submit(ctx, req); err != nil {
		c.state = StateFailed
		return err
	}
	c.state = StatePolling

	for attempt := 1; attempt <= c.cfg.MaxPolls; attempt++ {
		if err := c.sched.Wait(ctx, c.cfg.Interval); err != nil {
			c.state = StateFailed
			return err
		}

		outcome, err := c.pollOnce(ctx, req, target)
		if err != nil {
			c.state = StateFailed
			return fmt.Errorf("status check %d: %w", attempt, err)
		}
		if outcome == reconcile.OutcomeTerminal {
			c.state = StateTerminal
			slog.Info("execution complete",
				"cell", req.CellID,
				"kernel", req.KernelID,
				"attempts", attempt)
			return nil
		}
		// OutcomeSkip means the backend has not materialized a record
		// yet; both it and OutcomeContinue stay on schedule.
	}

	c.state = StateFailed
	return &protocol.Error{
		Code:     protocol.ErrCodePollBudgetExhausted,
		Message:  fmt.Sprintf("no terminal record after %d status checks", c.cfg.MaxPolls),
		KernelID: req.KernelID,
		CellID:   req.CellID,
	}
}

// Submit issues the creation call. The acknowledgment body is opaque and
// returned raw: a body that is not JSON is logged, not fatal, since the
// backend's ack drives no display update.
func (c *Client) Submit(ctx context.Context, req protocol.ExecutionRequest) ([]byte, error) {
	body, err := protocol.EncodeSubmitBody(req)
	if err != nil {
		return nil, err
	}

	url := protocol.ExecuteURL(c.cfg.BaseURL, req.KernelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, protocol.NewTransportError("build submit request", req.KernelID, err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, protocol.NewTransportError("submit request failed", req.KernelID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, protocol.NewTransportError("read submit acknowledgment", req.KernelID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw, protocol.NewTransportError(
			fmt.Sprintf("submit returned %s", resp.Status), req.KernelID, nil)
	}

	if len(raw) > 0 && !json.Valid(raw) {
		slog.Warn("submit acknowledgment is not JSON; returning raw body",
			"kernel", req.KernelID,
			"cell", req.CellID)
	}

	c.state = StateSubmitted
	slog.Debug("execution submitted",
		"path", req.NotebookPath,
		"cell", req.CellID,
		"kernel", req.KernelID)
	return raw, nil
}

// pollOnce issues one status check and feeds every returned record
// through the reconciler. An unparseable status body is fatal here: the
// records drive display updates.
func (c *Client) pollOnce(ctx context.Context, req protocol.ExecutionRequest, target reconcile.DisplayTarget) (reconcile.Outcome, error) {
	url := protocol.ExecuteURL(c.cfg.BaseURL, req.KernelID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return reconcile.OutcomeSkip, protocol.NewTransportError("build status request", req.KernelID, err)
	}
	c.setHeaders(httpReq)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return reconcile.OutcomeSkip, protocol.NewTransportError("status request failed", req.KernelID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return reconcile.OutcomeSkip, protocol.NewTransportError("read status response", req.KernelID, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return reconcile.OutcomeSkip, protocol.NewTransportError(
			fmt.Sprintf("status returned %s", resp.Status), req.KernelID, nil)
	}

	records, err := protocol.DecodeRecordList(raw)
	if err != nil {
		return reconcile.OutcomeSkip, err
	}

	outcome := c.reconciler.ApplyAll(records, target, req.CellID)
	slog.Debug("status check applied",
		"cell", req.CellID,
		"records", len(records),
		"outcome", outcome.String())
	return outcome, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if auth := protocol.AuthorizationValue(c.cfg.Token); auth != "" {
		req.Header.Set("Authorization", auth)
	}
}
