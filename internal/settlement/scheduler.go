package settlement

import (
	"context"
	"sync"
	"time"

	"auction-house/utils"
)

// Scheduler defaults: three attempts with delays doubling from one second.
const (
	DefaultMaxAttempts  = 3
	DefaultBaseBackoff  = time.Second
	DefaultPollInterval = 250 * time.Millisecond
	claimBatch          = 16
)

// Settler consumes a due settlement task. Implemented by Engine.
type Settler interface {
	Settle(ctx context.Context, auctionID string) error
}

// Scheduler owns the delayed settlement queue: it registers exactly one
// task per auction at creation time and drives due tasks into the Settler
// with bounded retries. Tasks that exhaust their retries are retained in
// the queue's failed set for operator inspection.
type Scheduler struct {
	queue        Queue
	settler      Settler
	maxAttempts  int
	baseBackoff  time.Duration
	pollInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler creates a scheduler with the default retry policy.
func NewScheduler(q Queue, settler Settler) *Scheduler {
	return &Scheduler{
		queue:        q,
		settler:      settler,
		maxAttempts:  DefaultMaxAttempts,
		baseBackoff:  DefaultBaseBackoff,
		pollInterval: DefaultPollInterval,
		stop:         make(chan struct{}),
	}
}

// SetRetryPolicy overrides attempts/backoff/polling. Intended for tests.
func (s *Scheduler) SetRetryPolicy(maxAttempts int, baseBackoff, pollInterval time.Duration) {
	s.maxAttempts = maxAttempts
	s.baseBackoff = baseBackoff
	s.pollInterval = pollInterval
}

// ScheduleSettlement enqueues the settlement task for an auction, due at
// its deadline. Repeat calls for the same auction are no-ops.
func (s *Scheduler) ScheduleSettlement(ctx context.Context, auctionID string, deadline time.Time) error {
	task := Task{
		ID:        "settle-" + auctionID, // key prevents duplicate tasks
		AuctionID: auctionID,
		RunAt:     deadline,
	}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		return err
	}
	utils.Info("settlement scheduled", map[string]any{
		"auction_id": auctionID,
		"due_at":     deadline.UTC().Format(time.RFC3339),
	})
	return nil
}

// Start launches the polling worker loop.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop halts the worker loop and waits for in-flight tasks to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.drainDue()
		}
	}
}

func (s *Scheduler) drainDue() {
	ctx := context.Background()
	tasks, err := s.queue.Claim(ctx, time.Now(), claimBatch)
	if err != nil {
		utils.Error("settlement: claiming due tasks failed", map[string]any{"error": err.Error()})
		return
	}
	for _, t := range tasks {
		s.process(ctx, t)
	}
}

// process runs one claimed task through the settler and applies the retry
// policy on failure.
func (s *Scheduler) process(ctx context.Context, t Task) {
	err := s.settler.Settle(ctx, t.AuctionID)
	if err == nil {
		if cerr := s.queue.Complete(ctx, t); cerr != nil {
			utils.Warn("settlement: completing task failed", map[string]any{"task_id": t.ID, "error": cerr.Error()})
		}
		return
	}

	attempt := t.Attempts + 1
	if attempt >= s.maxAttempts {
		utils.Error("settlement: task failed permanently", map[string]any{
			"task_id":    t.ID,
			"auction_id": t.AuctionID,
			"attempts":   attempt,
			"error":      err.Error(),
		})
		if ferr := s.queue.Fail(ctx, t, err.Error()); ferr != nil {
			utils.Error("settlement: retaining failed task failed", map[string]any{"task_id": t.ID, "error": ferr.Error()})
		}
		return
	}

	delay := s.baseBackoff << (attempt - 1) // 1s, 2s, ...
	utils.Warn("settlement: task failed, retrying", map[string]any{
		"task_id":    t.ID,
		"auction_id": t.AuctionID,
		"attempt":    attempt,
		"retry_in":   delay.String(),
		"error":      err.Error(),
	})
	if rerr := s.queue.Retry(ctx, t, time.Now().Add(delay)); rerr != nil {
		utils.Error("settlement: requeueing task failed", map[string]any{"task_id": t.ID, "error": rerr.Error()})
	}
}

// FailedTasks exposes the retained failed tasks for operator inspection.
func (s *Scheduler) FailedTasks(ctx context.Context) ([]FailedTask, error) {
	return s.queue.Failed(ctx)
}
