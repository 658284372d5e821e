package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

// Job is one delivery of an analysis payload. Attempt starts at 1 and
// increments on every redelivery.
type Job struct {
	ID      string           `json:"id"`
	Attempt int              `json:"attempt"`
	Payload model.JobPayload `json:"payload"`
}

// Handler processes one job. A nil return acknowledges the job. A plain
// error requeues it until the attempt budget is spent; a permanent error
// dead-letters it immediately.
type Handler func(ctx context.Context, job Job) error

// Queue is a durable at-least-once hand-off between the submission endpoint
// and the workers. Implementations must deliver each job to exactly one
// worker slot at a time and redeliver if the worker dies before
// acknowledging.
type Queue interface {
	// Enqueue publishes a payload and returns the assigned job id.
	Enqueue(ctx context.Context, payload model.JobPayload) (string, error)

	// Consume blocks, running up to concurrency handlers at once, until the
	// context is cancelled or the underlying transport closes.
	Consume(ctx context.Context, concurrency int, handler Handler) error

	Close() error
}

// DefaultMaxAttempts bounds redelivery before a job is dead-lettered.
const DefaultMaxAttempts = 3

// PermanentError marks a job failure that redelivery cannot fix, such as a
// persistence failure after analysis completed.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the queue dead-letters the job instead of
// retrying it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err carries a PermanentError anywhere in its
// chain.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
