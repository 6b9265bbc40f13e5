// Package jobs runs the background workers that render queued exports.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task points one worker at one queued export record.
type Task struct {
	RecordID string
	Attempt  int
}

// Runner renders the record a task points at.
type Runner func(ctx context.Context, task Task) error

// Options tune the worker pool.
type Options struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	Backoff     time.Duration
	Logger      *zap.Logger
}

// Queue feeds tasks to a fixed pool of render workers. Failed tasks are
// retried after a backoff until their attempt budget runs out.
type Queue struct {
	name string
	run  Runner

	maxAttempts int
	backoff     time.Duration
	logger      *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	workers int
	started bool
}

// New builds a queue that hands tasks to run.
func New(name string, run Runner, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = opts.Workers * 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Queue{
		name:        name,
		run:         run,
		workers:     opts.Workers,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		logger:      opts.Logger,
		tasks:       make(chan Task, opts.Buffer),
	}
}

// Start launches the workers. Repeat calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.started = true
	q.logger.Sugar().Infow("export workers started", "queue", q.name, "workers", q.workers)
}

// Stop cancels the workers and waits for them to drain.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("export workers stopped", "queue", q.name)
}

// Push hands a task to the pool.
func (q *Queue) Push(task Task) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			err := q.run(q.ctx, task)
			if err == nil {
				continue
			}
			task.Attempt++
			if task.Attempt >= q.maxAttempts {
				q.logger.Sugar().Errorw("export task abandoned",
					"queue", q.name, "record_id", task.RecordID, "attempts", task.Attempt, "error", err)
				continue
			}
			q.logger.Sugar().Warnw("export task failed, retrying",
				"queue", q.name, "record_id", task.RecordID, "attempt", task.Attempt, "error", err)
			q.retryLater(task)
		}
	}
}

func (q *Queue) retryLater(task Task) {
	go func() {
		select {
		case <-q.ctx.Done():
		case <-time.After(q.backoff):
			if err := q.Push(task); err != nil {
				q.logger.Sugar().Errorw("requeue failed",
					"queue", q.name, "record_id", task.RecordID, "error", err)
			}
		}
	}()
}
