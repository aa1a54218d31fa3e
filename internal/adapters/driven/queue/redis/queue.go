package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TaskQueue = (*Queue)(nil)

// Options configures key names and timing of the queue
type Options struct {
	// Prefix namespaces every key the queue writes
	Prefix string
	// Consumer must be unique per worker instance
	Consumer string
	// TaskTTL bounds how long task records are kept
	TaskTTL time.Duration
	// ClaimAfter is how long a delivered task may stay unacknowledged
	// before another worker takes it over
	ClaimAfter time.Duration
}

// DefaultOptions returns the standard key layout
func DefaultOptions() Options {
	return Options{
		Prefix:     "sercha-sync:",
		TaskTTL:    24 * time.Hour,
		ClaimAfter: 5 * time.Minute,
	}
}

// Queue implements TaskQueue on a Redis stream with one consumer group.
// Task records live in their own keys; the stream only carries ids.
// Delayed tasks wait in a sorted set until they are due.
type Queue struct {
	client redis.UniversalClient
	opts   Options
	now    func() time.Time
}

// NewQueue creates the queue and its consumer group.
func NewQueue(ctx context.Context, client redis.UniversalClient, opts Options) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	defaults := DefaultOptions()
	if opts.Prefix == "" {
		opts.Prefix = defaults.Prefix
	}
	if opts.TaskTTL <= 0 {
		opts.TaskTTL = defaults.TaskTTL
	}
	if opts.ClaimAfter <= 0 {
		opts.ClaimAfter = defaults.ClaimAfter
	}
	if opts.Consumer == "" {
		opts.Consumer = "worker-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	}

	q := &Queue{client: client, opts: opts, now: time.Now}

	err := client.XGroupCreateMkStream(ctx, q.stream(), q.group(), "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

func (q *Queue) stream() string           { return q.opts.Prefix + "tasks" }
func (q *Queue) group() string            { return q.opts.Prefix + "workers" }
func (q *Queue) delayed() string          { return q.opts.Prefix + "delayed" }
func (q *Queue) failed() string           { return q.opts.Prefix + "failed" }
func (q *Queue) taskKey(id string) string { return q.opts.Prefix + "task:" + id }
func (q *Queue) msgKey(id string) string  { return q.opts.Prefix + "task:" + id + ":msg" }

// Enqueue stores the task and publishes it, or parks it until ScheduledFor.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.taskKey(task.ID), data, q.opts.TaskTTL)
	if task.ScheduledFor.After(q.now()) {
		pipe.ZAdd(ctx, q.delayed(), redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
	} else {
		q.publish(ctx, pipe, task)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

func (q *Queue) publish(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) {
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream(),
		Values: map[string]any{
			"task_id":      task.ID,
			"type":         string(task.Type),
			"workspace_id": task.WorkspaceID,
		},
	})
}

// DequeueWithTimeout hands out the next task, preferring ones abandoned by
// dead workers. Returns nil, nil when nothing arrives within timeout seconds.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// Best effort; a failure here only delays retries.
	_ = q.promoteDue(ctx)

	if task, err := q.claimAbandoned(ctx); err == nil && task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group(),
		Consumer: q.opts.Consumer,
		Streams:  []string{q.stream(), ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("read stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.deliver(ctx, streams[0].Messages[0])
}

// deliver loads the task behind a stream message and marks it processing.
// Messages without a task record are dropped.
func (q *Queue) deliver(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	taskID, _ := msg.Values["task_id"].(string)
	task, err := q.GetTask(ctx, taskID)
	if errors.Is(err, domain.ErrNotFound) || taskID == "" {
		q.client.XAck(ctx, q.stream(), q.group(), msg.ID)
		q.client.XDel(ctx, q.stream(), msg.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	task.MarkProcessing()
	data, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, q.taskKey(task.ID), data, q.opts.TaskTTL)
	pipe.Set(ctx, q.msgKey(task.ID), msg.ID, q.opts.TaskTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("mark task processing: %w", err)
	}
	return task, nil
}

// Ack marks the task completed and removes its stream message.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	task.MarkCompleted()
	return q.settle(ctx, task, nil)
}

// Nack schedules a retry with backoff, or records the task as failed once
// its attempts are used up.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	if task.CanRetry() {
		task.Retry(reason)
		return q.settle(ctx, task, func(pipe redis.Pipeliner) {
			pipe.ZAdd(ctx, q.delayed(), redis.Z{Score: float64(task.ScheduledFor.Unix()), Member: task.ID})
		})
	}

	task.MarkFailed(reason)
	return q.settle(ctx, task, func(pipe redis.Pipeliner) {
		pipe.SAdd(ctx, q.failed(), task.ID)
	})
}

// settle writes the task's new state and retires the stream message it was
// delivered with, all in one transaction.
func (q *Queue) settle(ctx context.Context, task *domain.Task, extra func(redis.Pipeliner)) error {
	msgID, err := q.client.Get(ctx, q.msgKey(task.ID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get message id: %w", err)
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.TxPipeline()
	if msgID != "" {
		pipe.XAck(ctx, q.stream(), q.group(), msgID)
		pipe.XDel(ctx, q.stream(), msgID)
	}
	pipe.Set(ctx, q.taskKey(task.ID), data, q.opts.TaskTTL)
	pipe.Del(ctx, q.msgKey(task.ID))
	if extra != nil {
		extra(pipe)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("settle task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask retrieves a task by ID
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, q.taskKey(taskID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// Stats counts undelivered, delivered-but-unacknowledged and failed tasks
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	pipe := q.client.Pipeline()
	streamLen := pipe.XLen(ctx, q.stream())
	delayed := pipe.ZCard(ctx, q.delayed())
	failed := pipe.SCard(ctx, q.failed())
	pending := pipe.XPending(ctx, q.stream(), q.group())
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("queue stats: %w", err)
	}

	stats := &driven.QueueStats{
		FailedCount: failed.Val(),
	}
	if p := pending.Val(); p != nil {
		stats.ProcessingCount = p.Count
	}
	// The stream keeps delivered messages until they are settled.
	stats.PendingCount = streamLen.Val() - stats.ProcessingCount + delayed.Val()
	return stats, nil
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the client is owned by the caller.
func (q *Queue) Close() error {
	return nil
}

// promoteDue publishes delayed tasks whose time has come.
func (q *Queue) promoteDue(ctx context.Context) error {
	ids, err := q.client.ZRangeByScore(ctx, q.delayed(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(q.now().Unix(), 10),
	}).Result()
	if err != nil || len(ids) == 0 {
		return err
	}

	pipe := q.client.TxPipeline()
	for _, id := range ids {
		task, err := q.GetTask(ctx, id)
		if err == nil {
			q.publish(ctx, pipe, task)
		}
		pipe.ZRem(ctx, q.delayed(), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandoned takes over one message that another consumer received but
// never settled within ClaimAfter.
func (q *Queue) claimAbandoned(ctx context.Context) (*domain.Task, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream(),
		Group:    q.group(),
		Consumer: q.opts.Consumer,
		MinIdle:  q.opts.ClaimAfter,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil || len(msgs) == 0 {
		return nil, err
	}
	return q.deliver(ctx, msgs[0])
}
