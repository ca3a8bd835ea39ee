package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const selectColumns = `
	SELECT session_token, path, cell_id, kernel_id, transport, status,
	       execution_count, output, started_at, finished_at
	FROM executions
`

// List returns the most recent attempts, newest first. limit <= 0 means
// no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Execution, error) {
	query := selectColumns + " ORDER BY started_at DESC, session_token DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryExecutions(ctx, query, args...)
}

// ByCell returns every logged attempt for one cell, newest first.
func (s *Store) ByCell(ctx context.Context, path, cellID string) ([]Execution, error) {
	query := selectColumns + " WHERE path = ? AND cell_id = ? ORDER BY started_at DESC, session_token DESC"
	return s.queryExecutions(ctx, query, path, cellID)
}

// Get returns a single attempt by session token.
func (s *Store) Get(ctx context.Context, sessionToken string) (Execution, bool, error) {
	execs, err := s.queryExecutions(ctx, selectColumns+" WHERE session_token = ?", sessionToken)
	if err != nil {
		return Execution{}, false, err
	}
	if len(execs) == 0 {
		return Execution{}, false, nil
	}
	return execs[0], true, nil
}

func (s *Store) queryExecutions(ctx context.Context, query string, args ...any) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution history: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution history: %w", err)
	}
	return execs, nil
}

func scanExecution(rows *sql.Rows) (Execution, error) {
	var (
		exec       Execution
		status     string
		count      sql.NullInt64
		startedAt  string
		finishedAt sql.NullString
	)
	err := rows.Scan(
		&exec.SessionToken,
		&exec.Path,
		&exec.CellID,
		&exec.KernelID,
		&exec.Transport,
		&status,
		&count,
		&exec.Output,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return Execution{}, fmt.Errorf("scan execution row: %w", err)
	}

	exec.Status = Status(status)
	if count.Valid {
		n := int(count.Int64)
		exec.ExecutionCount = &n
	}
	if exec.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return Execution{}, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	if finishedAt.Valid {
		ts, err := time.Parse(time.RFC3339Nano, finishedAt.String)
		if err != nil {
			return Execution{}, fmt.Errorf("parse finished_at %q: %w", finishedAt.String, err)
		}
		exec.FinishedAt = &ts
	}
	return exec, nil
}
