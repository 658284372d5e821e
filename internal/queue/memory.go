package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

// MemoryQueue is an in-process Queue with the same retry and dead-letter
// semantics as the AMQP implementation. Used in tests and single-process
// development runs; it is not durable across restarts.
type MemoryQueue struct {
	logger      *logrus.Logger
	maxAttempts int

	mu     sync.Mutex
	jobs   chan Job
	failed []Job
	closed bool
}

func NewMemoryQueue(logger *logrus.Logger) *MemoryQueue {
	return &MemoryQueue{
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		jobs:        make(chan Job, 256),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, payload model.JobPayload) (string, error) {
	job := Job{ID: uuid.NewString(), Attempt: 1, Payload: payload}
	if err := q.push(job); err != nil {
		return "", err
	}
	return job.ID, nil
}

func (q *MemoryQueue) push(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue is full")
	}
}

func (q *MemoryQueue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-q.jobs:
					if !ok {
						return
					}
					q.handle(ctx, job, handler)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *MemoryQueue) handle(ctx context.Context, job Job, handler Handler) {
	err := handler(ctx, job)
	switch {
	case err == nil:
	case IsPermanent(err) || job.Attempt >= q.maxAttempts:
		q.logger.WithError(err).WithFields(logrus.Fields{
			"job_id":  job.ID,
			"attempt": job.Attempt,
		}).Error("Job failed, moving to failed set")
		q.mu.Lock()
		q.failed = append(q.failed, job)
		q.mu.Unlock()
	default:
		job.Attempt++
		if pushErr := q.push(job); pushErr != nil {
			q.logger.WithError(pushErr).WithField("job_id", job.ID).Error("Failed to requeue job")
		}
	}
}

// Failed returns a snapshot of the dead-lettered jobs.
func (q *MemoryQueue) Failed() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, len(q.failed))
	copy(out, q.failed)
	return out
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}
