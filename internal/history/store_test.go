package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testExecution(token string, startedAt time.Time) Execution {
	return Execution{
		SessionToken: token,
		Path:         "nb.ipynb",
		CellID:       "c1",
		KernelID:     "k1",
		Transport:    "poll",
		StartedAt:    startedAt,
	}
}

func TestStore_Open_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestStore_BeginAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Begin(ctx, testExecution("tok-1", started)))

	exec, found, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusRunning, exec.Status)
	assert.Equal(t, "nb.ipynb", exec.Path)
	assert.Equal(t, "c1", exec.CellID)
	assert.True(t, exec.StartedAt.Equal(started))
	assert.Nil(t, exec.ExecutionCount)
	assert.Nil(t, exec.FinishedAt)
}

func TestStore_Begin_DuplicateTokenIgnored(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	started := time.Now()

	require.NoError(t, store.Begin(ctx, testExecution("tok-1", started)))

	dup := testExecution("tok-1", started)
	dup.Path = "other.ipynb"
	require.NoError(t, store.Begin(ctx, dup), "duplicate begin is idempotent, not an error")

	exec, found, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "nb.ipynb", exec.Path, "first write wins")
}

func TestStore_Finish_Completed(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, testExecution("tok-1", time.Now())))

	count := 3
	require.NoError(t, store.Finish(ctx, "tok-1", StatusCompleted, &count, "42"))

	exec, found, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, StatusCompleted, exec.Status)
	require.NotNil(t, exec.ExecutionCount)
	assert.Equal(t, 3, *exec.ExecutionCount)
	assert.Equal(t, "42", exec.Output)
	assert.NotNil(t, exec.FinishedAt)
}

func TestStore_Finish_FailedKeepsNilCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Begin(ctx, testExecution("tok-1", time.Now())))
	require.NoError(t, store.Finish(ctx, "tok-1", StatusFailed, nil, ""))

	exec, _, err := store.Get(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, exec.Status)
	assert.Nil(t, exec.ExecutionCount)
}

func TestStore_Finish_UnknownTokenIsNoOp(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.Finish(context.Background(), "ghost", StatusCompleted, nil, ""))
}

func TestStore_List_NewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i, token := range []string{"tok-1", "tok-2", "tok-3"} {
		exec := testExecution(token, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, store.Begin(ctx, exec))
	}

	execs, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, execs, 3)
	assert.Equal(t, "tok-3", execs[0].SessionToken)
	assert.Equal(t, "tok-1", execs[2].SessionToken)

	limited, err := store.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStore_ByCell(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Begin(ctx, testExecution("tok-1", now)))

	other := testExecution("tok-2", now.Add(time.Second))
	other.CellID = "c2"
	require.NoError(t, store.Begin(ctx, other))

	execs, err := store.ByCell(ctx, "nb.ipynb", "c1")
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "tok-1", execs[0].SessionToken)
}

func TestStore_Get_NotFound(t *testing.T) {
	store := openTestStore(t)
	_, found, err := store.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, found)
}
