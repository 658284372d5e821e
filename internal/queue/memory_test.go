package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func consume(t *testing.T, q *MemoryQueue, concurrency int, handler Handler) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go q.Consume(ctx, concurrency, handler)
	return cancel
}

func TestMemoryQueueDelivers(t *testing.T) {
	q := NewMemoryQueue(testLogger())
	defer q.Close()

	var mu sync.Mutex
	var seen []Job
	cancel := consume(t, q, 1, func(ctx context.Context, job Job) error {
		mu.Lock()
		seen = append(seen, job)
		mu.Unlock()
		return nil
	})
	defer cancel()

	jobID, err := q.Enqueue(context.Background(), model.JobPayload{UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, jobID)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, jobID, seen[0].ID)
	assert.Equal(t, 1, seen[0].Attempt)
	assert.Equal(t, "u1", seen[0].Payload.UserID)
}

func TestMemoryQueueRetriesThenDeadLetters(t *testing.T) {
	q := NewMemoryQueue(testLogger())
	defer q.Close()

	var calls atomic.Int32
	cancel := consume(t, q, 1, func(ctx context.Context, job Job) error {
		calls.Add(1)
		return errors.New("transient failure")
	})
	defer cancel()

	_, err := q.Enqueue(context.Background(), model.JobPayload{UserID: "u1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(q.Failed()) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(DefaultMaxAttempts), calls.Load(), "one attempt plus retries up to the budget")
	assert.Equal(t, DefaultMaxAttempts, q.Failed()[0].Attempt)
}

func TestMemoryQueuePermanentErrorSkipsRetry(t *testing.T) {
	q := NewMemoryQueue(testLogger())
	defer q.Close()

	var calls atomic.Int32
	cancel := consume(t, q, 1, func(ctx context.Context, job Job) error {
		calls.Add(1)
		return Permanent(errors.New("persistence failed"))
	})
	defer cancel()

	_, err := q.Enqueue(context.Background(), model.JobPayload{UserID: "u1"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(q.Failed()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "permanent failures are never retried")
}

func TestMemoryQueueBoundedConcurrency(t *testing.T) {
	q := NewMemoryQueue(testLogger())
	defer q.Close()

	var current, peak atomic.Int32
	var done atomic.Int32
	cancel := consume(t, q, 2, func(ctx context.Context, job Job) error {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		done.Add(1)
		return nil
	})
	defer cancel()

	for i := 0; i < 8; i++ {
		_, err := q.Enqueue(context.Background(), model.JobPayload{UserID: "u1"})
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return done.Load() == 8
	}, 5*time.Second, 10*time.Millisecond)
	assert.LessOrEqual(t, peak.Load(), int32(2), "no more than the configured worker slots run at once")
}

func TestPermanentErrorWrapping(t *testing.T) {
	base := errors.New("boom")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}
