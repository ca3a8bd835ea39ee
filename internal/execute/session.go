// Package execute holds the invocation entry points a UI trigger calls:
// it binds one execution request to a transport client, a per-request
// tracking session, and the history log.
package execute

import (
	"context"
	"fmt"
	"time"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
)

// Transport selects how an invocation observes backend progress.
type Transport string

const (
	// TransportPoll submits over HTTP and polls the status endpoint.
	TransportPoll Transport = "poll"
	// TransportStream opens the duplex channel and reacts to pushes.
	TransportStream Transport = "stream"
)

// ParseTransport validates a transport name from config or a flag.
func ParseTransport(s string) (Transport, error) {
	switch Transport(s) {
	case TransportPoll, TransportStream:
		return Transport(s), nil
	default:
		return "", fmt.Errorf("unknown transport %q (want %q or %q)", s, TransportPoll, TransportStream)
	}
}

// Session is the explicit per-request tracking context: the request
// identity, the transport driving it, and the cancellation handle. It
// replaces ambient shared channel/timer state; everything a tracked
// execution needs travels with its session.
type Session struct {
	// Token is the client-side UUIDv7 identity of this attempt, used to
	// key the history log. It is unrelated to backend record identity.
	Token string

	// Request is the immutable execution request being tracked.
	Request protocol.ExecutionRequest

	// Transport names the transport driving this attempt.
	Transport Transport

	// StartedAt is when the invocation began.
	StartedAt time.Time

	cancel context.CancelFunc
}

// Cancel abandons tracking: pending polls stop, the channel closes, and
// the invocation returns context.Canceled. Applied mutations stay; a
// terminal record already applied is final.
func (s *Session) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
}
