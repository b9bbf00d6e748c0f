package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"rental-escrow-backend/internal/logger"
)

var ErrQueueFull = errors.New("notification queue is full")

type Job struct {
	ID        string
	Message   Message
	Retries   int
	CreatedAt time.Time
}

// Queue delivers messages on a fixed pool of workers, retrying failures with a
// quadratic backoff.
type Queue struct {
	sender     Sender
	jobs       chan Job
	maxRetries int
	workers    int
	backoff    time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(sender Sender, workers, queueSize, maxRetries int) *Queue {
	return &Queue{
		sender:     sender,
		jobs:       make(chan Job, queueSize),
		maxRetries: maxRetries,
		workers:    workers,
		backoff:    time.Second,
	}
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop cancels the workers and waits for in-flight sends. Queued jobs are dropped.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	logger.Debug("Notification worker started", "worker", id)
	for {
		select {
		case <-q.ctx.Done():
			logger.Debug("Notification worker stopping", "worker", id)
			return
		case job := <-q.jobs:
			q.process(job)
		}
	}
}

func (q *Queue) process(job Job) {
	err := q.sender.Send(q.ctx, job.Message)
	if err == nil {
		logger.Debug("Notification sent", "job_id", job.ID, "to", job.Message.To)
		return
	}
	if job.Retries >= q.maxRetries {
		logger.Error("Notification dropped after retries", "job_id", job.ID, "to", job.Message.To, "retries", job.Retries, "error", err)
		return
	}

	job.Retries++
	delay := time.Duration(job.Retries*job.Retries) * q.backoff
	logger.Warn("Notification failed, retrying", "job_id", job.ID, "attempt", job.Retries, "delay", delay, "error", err)
	time.AfterFunc(delay, func() {
		select {
		case q.jobs <- job:
		case <-q.ctx.Done():
		}
	})
}

// Enqueue never blocks; it fails with ErrQueueFull instead.
func (q *Queue) Enqueue(msg Message) error {
	job := Job{ID: uuid.NewString(), Message: msg, CreatedAt: time.Now()}
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}
