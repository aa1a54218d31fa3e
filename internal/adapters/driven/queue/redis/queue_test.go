package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func newTestQueue(t *testing.T) (*miniredis.Miniredis, *Queue) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	q, err := NewQueue(context.Background(), client, Options{Consumer: "test-worker"})
	require.NoError(t, err)
	return mr, q
}

func TestNewQueue_RequiresClient(t *testing.T) {
	_, err := NewQueue(context.Background(), nil, DefaultOptions())
	assert.Error(t, err)
}

func TestNewQueue_GroupAlreadyExists(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	_, err := NewQueue(context.Background(), client, DefaultOptions())
	require.NoError(t, err)
	_, err = NewQueue(context.Background(), client, DefaultOptions())
	assert.NoError(t, err)
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	_, q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewRunSyncTask("ws-1", "sync-1")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, "sync-1", got.SyncID())
	assert.Equal(t, "ws-1", got.WorkspaceID)
	assert.Equal(t, domain.TaskStatusProcessing, got.Status)
	assert.Equal(t, 1, got.Attempts)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingCount)
	assert.Equal(t, int64(1), stats.ProcessingCount)

	require.NoError(t, q.Ack(ctx, task.ID))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, stored.Status)

	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.PendingCount)
	assert.Equal(t, int64(0), stats.ProcessingCount)
}

func TestQueue_FIFO(t *testing.T) {
	_, q := newTestQueue(t)
	ctx := context.Background()

	first := domain.NewRunSyncTask("ws-1", "sync-1")
	second := domain.NewRunSyncTask("ws-1", "sync-2")
	require.NoError(t, q.Enqueue(ctx, first))
	require.NoError(t, q.Enqueue(ctx, second))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.PendingCount)

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
}

func TestQueue_DelayedTaskWaitsUntilDue(t *testing.T) {
	_, q := newTestQueue(t)
	ctx := context.Background()

	now := time.Now()
	q.now = func() time.Time { return now }

	task := domain.NewTask(domain.TaskTypeStartWorkflow, "ws-1", map[string]string{domain.PayloadSyncID: "sync-1"})
	task.ScheduledFor = now.Add(time.Minute)
	require.NoError(t, q.Enqueue(ctx, task))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingCount)

	q.now = func() time.Time { return now.Add(2 * time.Minute) }
	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, task.ID, got.ID)
}

func TestQueue_NackRetriesWithBackoff(t *testing.T) {
	_, q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewTask(domain.TaskTypeStartWorkflow, "ws-1", nil)
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, got.ID, "engine unavailable"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, stored.Status)
	assert.Equal(t, "engine unavailable", stored.Error)
	assert.True(t, stored.ScheduledFor.After(time.Now()))

	// Redelivered once the backoff has passed
	q.now = func() time.Time { return time.Now().Add(time.Hour) }
	again, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, task.ID, again.ID)
	assert.Equal(t, 2, again.Attempts)
}

func TestQueue_NackExhaustedMarksFailed(t *testing.T) {
	_, q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewRunSyncTask("ws-1", "sync-1")
	require.NoError(t, q.Enqueue(ctx, task))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, q.Nack(ctx, got.ID, "boom"))

	stored, err := q.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, stored.Status)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.FailedCount)
	assert.Equal(t, int64(0), stats.PendingCount)
	assert.Equal(t, int64(0), stats.ProcessingCount)
}

func TestQueue_GetTaskNotFound(t *testing.T) {
	_, q := newTestQueue(t)

	_, err := q.GetTask(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	assert.ErrorIs(t, q.Ack(context.Background(), "missing"), domain.ErrNotFound)
}

func TestQueue_MissingRecordIsDropped(t *testing.T) {
	mr, q := newTestQueue(t)
	ctx := context.Background()

	task := domain.NewRunSyncTask("ws-1", "sync-1")
	require.NoError(t, q.Enqueue(ctx, task))
	mr.Del(q.taskKey(task.ID))

	got, err := q.DequeueWithTimeout(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueue_EnqueueNil(t *testing.T) {
	_, q := newTestQueue(t)
	assert.Error(t, q.Enqueue(context.Background(), nil))
}

func TestQueue_Ping(t *testing.T) {
	mr, q := newTestQueue(t)
	require.NoError(t, q.Ping(context.Background()))

	mr.Close()
	assert.Error(t, q.Ping(context.Background()))
}
