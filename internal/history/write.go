package history

import (
	"context"
	"fmt"
	"time"
)

// Begin logs a newly submitted attempt with StatusRunning.
// Uses ON CONFLICT DO NOTHING for idempotency: re-logging the same
// session token is silently ignored.
func (s *Store) Begin(ctx context.Context, exec Execution) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO executions
		(session_token, path, cell_id, kernel_id, transport, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_token) DO NOTHING
	`,
		exec.SessionToken,
		exec.Path,
		exec.CellID,
		exec.KernelID,
		exec.Transport,
		string(StatusRunning),
		exec.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log execution start: %w", err)
	}
	return nil
}

// Finish moves an attempt to a terminal status, recording the execution
// count and output when the attempt completed. A Finish for an unknown
// token is a no-op rather than an error: the caller may have opted out
// of history at submit time.
func (s *Store) Finish(ctx context.Context, sessionToken string, status Status, executionCount *int, output string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = ?, execution_count = ?, output = ?, finished_at = ?
		WHERE session_token = ?
	`,
		string(status),
		executionCount,
		output,
		time.Now().UTC().Format(time.RFC3339Nano),
		sessionToken,
	)
	if err != nil {
		return fmt.Errorf("log execution finish: %w", err)
	}
	return nil
}
