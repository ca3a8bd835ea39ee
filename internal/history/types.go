package history

import "time"

// Status of an execution attempt in the log.
type Status string

const (
	// StatusRunning: submitted, no terminal record observed yet.
	StatusRunning Status = "running"
	// StatusCompleted: a terminal record was applied.
	StatusCompleted Status = "completed"
	// StatusFailed: tracking aborted on a transport or protocol error.
	StatusFailed Status = "failed"
	// StatusCancelled: the caller abandoned tracking.
	StatusCancelled Status = "cancelled"
)

// Execution is one logged attempt.
type Execution struct {
	// SessionToken is the client-side UUIDv7 identity of the attempt.
	// Tokens are time-sortable, so token order is submission order.
	SessionToken string

	// Path, CellID, KernelID identify what was executed where.
	Path     string
	CellID   string
	KernelID string

	// Transport names the transport used ("poll" or "stream").
	Transport string

	// Status is the attempt's current position in its lifecycle.
	Status Status

	// ExecutionCount is the terminal ordinal, nil until completed.
	ExecutionCount *int

	// Output is the final display text, empty until completed.
	Output string

	// StartedAt is the submit time; FinishedAt is nil while running.
	StartedAt  time.Time
	FinishedAt *time.Time
}
