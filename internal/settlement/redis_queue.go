package settlement

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisQueue is a Queue backed by a Redis sorted set of due times, so
// scheduled settlements survive process restarts. Dedupe relies on ZADD NX:
// a task already pending keeps its original due time.
type RedisQueue struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisQueue creates a queue on the given client. prefix namespaces the
// keys, e.g. "settlement".
func NewRedisQueue(rdb *redis.Client, prefix string) *RedisQueue {
	if prefix == "" {
		prefix = "settlement"
	}
	return &RedisQueue{rdb: rdb, prefix: prefix}
}

func (q *RedisQueue) dueKey() string      { return q.prefix + ":due" }
func (q *RedisQueue) auctionsKey() string { return q.prefix + ":auctions" }
func (q *RedisQueue) attemptsKey() string { return q.prefix + ":attempts" }
func (q *RedisQueue) failedKey() string   { return q.prefix + ":failed" }

func (q *RedisQueue) Enqueue(ctx context.Context, t Task) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZAddNX(ctx, q.dueKey(), redis.Z{
		Score:  float64(t.RunAt.UnixMilli()),
		Member: t.ID,
	})
	pipe.HSetNX(ctx, q.auctionsKey(), t.ID, t.AuctionID)
	pipe.HSetNX(ctx, q.attemptsKey(), t.ID, t.Attempts)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue %s: %w", t.ID, err)
	}
	return nil
}

func (q *RedisQueue) Claim(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	ids, err := q.rdb.ZRangeByScore(ctx, q.dueKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("claim due tasks: %w", err)
	}

	tasks := make([]Task, 0, len(ids))
	for _, id := range ids {
		// ZRem is the claim: only one consumer wins a given member.
		removed, err := q.rdb.ZRem(ctx, q.dueKey(), id).Result()
		if err != nil {
			return tasks, fmt.Errorf("claim %s: %w", id, err)
		}
		if removed == 0 {
			continue
		}
		t, ok, err := q.loadTask(ctx, id)
		if err != nil {
			return tasks, err
		}
		if !ok {
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// loadTask resolves a claimed member to its task. A member whose
// bookkeeping is gone was already completed or failed elsewhere; it is
// reported as not-ok rather than aborting the whole claim batch.
func (q *RedisQueue) loadTask(ctx context.Context, id string) (Task, bool, error) {
	auctionID, err := q.rdb.HGet(ctx, q.auctionsKey(), id).Result()
	if err == redis.Nil {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("load task %s: %w", id, err)
	}
	attempts, err := q.rdb.HGet(ctx, q.attemptsKey(), id).Int()
	if err != nil && err != redis.Nil {
		return Task{}, false, fmt.Errorf("load task %s attempts: %w", id, err)
	}
	return Task{ID: id, AuctionID: auctionID, Attempts: attempts}, true, nil
}

func (q *RedisQueue) Retry(ctx context.Context, t Task, runAt time.Time) error {
	pipe := q.rdb.TxPipeline()
	pipe.ZAdd(ctx, q.dueKey(), redis.Z{
		Score:  float64(runAt.UnixMilli()),
		Member: t.ID,
	})
	pipe.HSet(ctx, q.attemptsKey(), t.ID, t.Attempts+1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("retry %s: %w", t.ID, err)
	}
	return nil
}

func (q *RedisQueue) Complete(ctx context.Context, t Task) error {
	pipe := q.rdb.TxPipeline()
	pipe.HDel(ctx, q.auctionsKey(), t.ID)
	pipe.HDel(ctx, q.attemptsKey(), t.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("complete %s: %w", t.ID, err)
	}
	return nil
}

func (q *RedisQueue) Fail(ctx context.Context, t Task, reason string) error {
	payload, err := json.Marshal(FailedTask{Task: t, Reason: reason, FailedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("fail %s: %w", t.ID, err)
	}

	pipe := q.rdb.TxPipeline()
	pipe.HSet(ctx, q.failedKey(), t.ID, payload)
	pipe.HDel(ctx, q.auctionsKey(), t.ID)
	pipe.HDel(ctx, q.attemptsKey(), t.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("fail %s: %w", t.ID, err)
	}
	return nil
}

func (q *RedisQueue) Failed(ctx context.Context) ([]FailedTask, error) {
	entries, err := q.rdb.HGetAll(ctx, q.failedKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list failed tasks: %w", err)
	}

	out := make([]FailedTask, 0, len(entries))
	for id, raw := range entries {
		var f FailedTask
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("decode failed task %s: %w", id, err)
		}
		out = append(out, f)
	}
	return out, nil
}
