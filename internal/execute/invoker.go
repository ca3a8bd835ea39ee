package execute

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/history"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/poll"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/reconcile"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/stream"
)

// Options configures an Invoker. Zero values fall back to the transport
// packages' defaults.
type Options struct {
	// BaseURL is the backend HTTP base (polling transport).
	BaseURL string

	// WSBase is the backend websocket base (streaming transport). When
	// empty it is derived from BaseURL.
	WSBase string

	// Token is the backend auth token, if any.
	Token string

	// Transport selects the transport for invocations.
	Transport Transport

	// PollInterval and MaxPolls pace the polling transport.
	PollInterval time.Duration
	MaxPolls     int

	// RefetchInterval enables the streaming transport's opt-in
	// re-request timer.
	RefetchInterval time.Duration
}

// Invoker creates and drives one transport client per invocation.
type Invoker struct {
	opts       Options
	tokens     protocol.TokenGenerator
	log        *history.Store
	pollOpts   []poll.Option
	streamOpts []stream.Option
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithTokenGenerator replaces the session token generator. Tests use
// protocol.NewFixedGenerator for deterministic tokens.
func WithTokenGenerator(gen protocol.TokenGenerator) InvokerOption {
	return func(inv *Invoker) {
		inv.tokens = gen
	}
}

// WithHistory logs every invocation to the given store.
func WithHistory(store *history.Store) InvokerOption {
	return func(inv *Invoker) {
		inv.log = store
	}
}

// WithPollOptions forwards options to each polling client.
func WithPollOptions(opts ...poll.Option) InvokerOption {
	return func(inv *Invoker) {
		inv.pollOpts = opts
	}
}

// WithStreamOptions forwards options to each streaming client.
func WithStreamOptions(opts ...stream.Option) InvokerOption {
	return func(inv *Invoker) {
		inv.streamOpts = opts
	}
}

// NewInvoker creates an Invoker.
func NewInvoker(opts Options, fns ...InvokerOption) *Invoker {
	if opts.Transport == "" {
		opts.Transport = TransportPoll
	}
	if opts.WSBase == "" {
		opts.WSBase = protocol.DeriveWebsocketBase(opts.BaseURL)
	}
	inv := &Invoker{
		opts:   opts,
		tokens: protocol.UUIDv7Generator{},
	}
	for _, fn := range fns {
		fn(inv)
	}
	return inv
}

// Result summarizes a completed invocation.
type Result struct {
	// Session is the tracking context the invocation ran under.
	Session *Session

	// ExecutionCount is the terminal ordinal the backend assigned.
	ExecutionCount int

	// Outputs are the display entries applied by the terminal record.
	Outputs []string
}

// Outcome is what a background invocation delivers when it finishes.
type Outcome struct {
	Result *Result
	Err    error
}

// Invoke submits req and tracks it to completion, applying updates to
// target as records arrive. It blocks until the execution turns
// terminal, tracking fails, or ctx is cancelled.
//
// Transport errors surface to the caller; records for other cells are
// absorbed as skips and never become errors.
func (inv *Invoker) Invoke(ctx context.Context, req protocol.ExecutionRequest, target reconcile.DisplayTarget) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return inv.run(ctx, inv.newSession(req, cancel), target)
}

// Start launches the invocation in the background and returns its
// session immediately, so a UI trigger can offer cancellation while
// tracking is in flight. Exactly one Outcome is delivered on the
// returned channel.
func (inv *Invoker) Start(ctx context.Context, req protocol.ExecutionRequest, target reconcile.DisplayTarget) (*Session, <-chan Outcome) {
	ctx, cancel := context.WithCancel(ctx)
	session := inv.newSession(req, cancel)
	done := make(chan Outcome, 1)
	go func() {
		defer cancel()
		result, err := inv.run(ctx, session, target)
		done <- Outcome{Result: result, Err: err}
	}()
	return session, done
}

func (inv *Invoker) newSession(req protocol.ExecutionRequest, cancel context.CancelFunc) *Session {
	return &Session{
		Token:     inv.tokens.Generate(),
		Request:   req,
		Transport: inv.opts.Transport,
		StartedAt: time.Now(),
		cancel:    cancel,
	}
}

func (inv *Invoker) run(ctx context.Context, session *Session, target reconcile.DisplayTarget) (*Result, error) {
	req := session.Request
	inv.logBegin(ctx, session)

	capture := newCaptureTarget(target)
	err := inv.runTransport(ctx, req, capture)
	inv.logFinish(session, capture, err)

	if err != nil {
		return nil, err
	}

	result := &Result{Session: session, Outputs: capture.outputs}
	if capture.count != nil {
		result.ExecutionCount = *capture.count
	}
	slog.Info("invocation complete",
		"session", session.Token,
		"cell", req.CellID,
		"execution_count", result.ExecutionCount)
	return result, nil
}

func (inv *Invoker) runTransport(ctx context.Context, req protocol.ExecutionRequest, target reconcile.DisplayTarget) error {
	switch inv.opts.Transport {
	case TransportStream:
		client := stream.New(stream.Config{
			WSBase:          inv.opts.WSBase,
			Token:           inv.opts.Token,
			RefetchInterval: inv.opts.RefetchInterval,
		}, inv.streamOpts...)
		return client.Run(ctx, req, target)
	default:
		client := poll.New(poll.Config{
			BaseURL:  inv.opts.BaseURL,
			Token:    inv.opts.Token,
			Interval: inv.opts.PollInterval,
			MaxPolls: inv.opts.MaxPolls,
		}, inv.pollOpts...)
		return client.Run(ctx, req, target)
	}
}

func (inv *Invoker) logBegin(ctx context.Context, session *Session) {
	if inv.log == nil {
		return
	}
	err := inv.log.Begin(ctx, history.Execution{
		SessionToken: session.Token,
		Path:         session.Request.NotebookPath,
		CellID:       session.Request.CellID,
		KernelID:     session.Request.KernelID,
		Transport:    string(session.Transport),
		StartedAt:    session.StartedAt,
	})
	if err != nil {
		slog.Error("history begin failed", "session", session.Token, "error", err)
	}
}

func (inv *Invoker) logFinish(session *Session, capture *captureTarget, runErr error) {
	if inv.log == nil {
		return
	}
	status := history.StatusCompleted
	switch {
	case errors.Is(runErr, context.Canceled):
		status = history.StatusCancelled
	case runErr != nil:
		status = history.StatusFailed
	}
	// History writes use a fresh context: the invocation context is
	// already cancelled on the cancellation path.
	err := inv.log.Finish(context.Background(), session.Token, status,
		capture.count, strings.Join(capture.outputs, ""))
	if err != nil {
		slog.Error("history finish failed", "session", session.Token, "error", err)
	}
}
