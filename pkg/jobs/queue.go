package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue is an in-memory job dispatcher backed by goroutines. Jobs are routed to the handler
// registered for their Type; failed jobs are retried with a linearly growing delay.
type Queue struct {
	name string

	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	handlers map[string]Handler
	jobs     chan Job
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	retries  sync.WaitGroup
	mu       sync.RWMutex
	started  bool
}

// NewQueue builds a new queue.
func NewQueue(name string, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 16
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:       name,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
		handlers:   make(map[string]Handler),
		jobs:       make(chan Job, cfg.BufferSize),
	}
}

// Register binds a handler to a job type. Must be called before Start.
func (q *Queue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Sugar().Infow("queue started", "queue", q.name, "workers", q.workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.started = false
	q.mu.Unlock()
	q.wg.Wait()
	q.retries.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name, "dropped", len(q.jobs))
}

// Enqueue pushes a job onto the queue. It blocks while the buffer is full until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	qctx := q.ctx
	started := q.started
	_, known := q.handlers[job.Type]
	q.mu.RUnlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if !known {
		return fmt.Errorf("queue %s: no handler for job type %q", q.name, job.Type)
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-qctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, qctx.Err())
	case <-ctx.Done():
		return ctx.Err()
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(job)
		}
	}
}

func (q *Queue) run(job Job) {
	q.mu.RLock()
	handler := q.handlers[job.Type]
	q.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			q.handleFailure(job, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := handler(q.ctx, job); err != nil {
		q.handleFailure(job, err)
	}
}

func (q *Queue) handleFailure(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries {
		q.logger.Sugar().Errorw("job exceeded retries", "queue", q.name, "job_id", job.ID, "type", job.Type, "error", err)
		return
	}
	q.logger.Sugar().Warnw("job failed, retrying", "queue", q.name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	q.retries.Add(1)
	go func(j Job) {
		defer q.retries.Done()
		timer := time.NewTimer(q.retryDelay * time.Duration(j.Attempt))
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			select {
			case <-q.ctx.Done():
			case q.jobs <- j:
			}
		}
	}(job)
}
