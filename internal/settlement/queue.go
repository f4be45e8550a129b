package settlement

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Task is one pending settlement, keyed by auction identity so duplicate
// scheduling cannot create a second task.
type Task struct {
	ID        string    `json:"id"` // settle-<auctionID>
	AuctionID string    `json:"auction_id"`
	RunAt     time.Time `json:"run_at"`
	Attempts  int       `json:"attempts"`
}

// FailedTask is a task that exhausted its retries, retained for operator
// inspection rather than silently dropped.
type FailedTask struct {
	Task
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// Queue is a durable delayed-work queue with at-least-once claim semantics.
type Queue interface {
	// Enqueue adds a pending task. A task with the same ID already pending
	// is left untouched (idempotent by key).
	Enqueue(ctx context.Context, t Task) error
	// Claim removes and returns up to limit tasks due at or before now.
	Claim(ctx context.Context, now time.Time, limit int) ([]Task, error)
	// Retry requeues a claimed task to run again at runAt with its attempt
	// count advanced.
	Retry(ctx context.Context, t Task, runAt time.Time) error
	// Complete discards a claimed task's bookkeeping after success.
	Complete(ctx context.Context, t Task) error
	// Fail retains a claimed task in the failed set.
	Fail(ctx context.Context, t Task, reason string) error
	// Failed lists retained failed tasks.
	Failed(ctx context.Context) ([]FailedTask, error)
}

// MemoryQueue is an in-process Queue for tests and single-process runs.
// It survives nothing; the Redis queue is the durable option.
type MemoryQueue struct {
	mu      sync.Mutex
	pending map[string]Task
	failed  map[string]FailedTask
}

// NewMemoryQueue creates an empty in-memory queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		pending: make(map[string]Task),
		failed:  make(map[string]FailedTask),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, t Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending[t.ID]; ok {
		return nil
	}
	q.pending[t.ID] = t
	return nil
}

func (q *MemoryQueue) Claim(ctx context.Context, now time.Time, limit int) ([]Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	due := make([]Task, 0, limit)
	for _, t := range q.pending {
		if !t.RunAt.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].RunAt.Before(due[j].RunAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	for _, t := range due {
		delete(q.pending, t.ID)
	}
	return due, nil
}

func (q *MemoryQueue) Retry(ctx context.Context, t Task, runAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	t.RunAt = runAt
	t.Attempts++
	q.pending[t.ID] = t
	return nil
}

func (q *MemoryQueue) Complete(ctx context.Context, t Task) error {
	return nil // claimed tasks are already out of pending
}

func (q *MemoryQueue) Fail(ctx context.Context, t Task, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.failed[t.ID] = FailedTask{Task: t, Reason: reason, FailedAt: time.Now().UTC()}
	return nil
}

func (q *MemoryQueue) Failed(ctx context.Context) ([]FailedTask, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]FailedTask, 0, len(q.failed))
	for _, f := range q.failed {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FailedAt.Before(out[j].FailedAt) })
	return out, nil
}
