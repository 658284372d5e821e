package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

// AMQPQueue implements Queue on a durable AMQP queue. Jobs that exhaust
// their attempt budget, or fail permanently, are published to a companion
// "<queue>.failed" queue for manual inspection.
type AMQPQueue struct {
	logger      *logrus.Logger
	name        string
	failedName  string
	maxAttempts int

	conn    *amqp.Connection
	channel *amqp.Channel
	pubMu   sync.Mutex
}

// NewAMQPQueue connects to the broker and declares the work and failed
// queues as durable.
func NewAMQPQueue(logger *logrus.Logger, url, name string) (*AMQPQueue, error) {
	if url == "" || name == "" {
		return nil, fmt.Errorf("AMQP URL or queue name not configured")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to AMQP server: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}

	q := &AMQPQueue{
		logger:      logger,
		name:        name,
		failedName:  name + ".failed",
		maxAttempts: DefaultMaxAttempts,
		conn:        conn,
		channel:     channel,
	}

	for _, queueName := range []string{q.name, q.failedName} {
		if _, err := channel.QueueDeclare(
			queueName,
			true,  // Durable
			false, // Delete when unused
			false, // Exclusive
			false, // No-wait
			nil,   // Arguments
		); err != nil {
			q.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	}

	logger.WithField("queue", name).Info("Connected to AMQP queue")
	return q, nil
}

// Enqueue publishes the payload as a persistent message and returns the
// assigned job id.
func (q *AMQPQueue) Enqueue(ctx context.Context, payload model.JobPayload) (string, error) {
	job := Job{ID: uuid.NewString(), Attempt: 1, Payload: payload}
	if err := q.publish(q.name, job); err != nil {
		return "", err
	}
	q.logger.WithFields(logrus.Fields{
		"job_id":  job.ID,
		"user_id": payload.UserID,
	}).Info("Enqueued analysis job")
	return job.ID, nil
}

func (q *AMQPQueue) publish(routingKey string, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	err = q.channel.Publish(
		"",         // Exchange
		routingKey, // Routing key (queue name)
		false,      // Mandatory
		false,      // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume runs up to concurrency handlers against the queue until the
// context is cancelled or the broker closes the channel.
//
// Retry bookkeeping uses republish-with-incremented-attempt rather than a
// broker nack: a bare requeue would lose the attempt count. A worker crash
// before ack still leads to broker redelivery, preserving at-least-once.
func (q *AMQPQueue) Consume(ctx context.Context, concurrency int, handler Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	if err := q.channel.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := q.channel.Consume(
		q.name,
		"",    // Consumer tag
		false, // Auto-ack
		false, // Exclusive
		false, // No-local
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
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
				case d, ok := <-deliveries:
					if !ok {
						return
					}
					q.handleDelivery(ctx, d, handler)
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (q *AMQPQueue) handleDelivery(ctx context.Context, d amqp.Delivery, handler Handler) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.logger.WithError(err).Error("Dropping undecodable job")
		d.Ack(false)
		return
	}

	err := handler(ctx, job)
	switch {
	case err == nil:
		d.Ack(false)
	case IsPermanent(err):
		q.logger.WithError(err).WithField("job_id", job.ID).Error("Job failed permanently, dead-lettering")
		q.deadLetter(job)
		d.Ack(false)
	case job.Attempt >= q.maxAttempts:
		q.logger.WithError(err).WithFields(logrus.Fields{
			"job_id":  job.ID,
			"attempt": job.Attempt,
		}).Error("Job exhausted retries, dead-lettering")
		q.deadLetter(job)
		d.Ack(false)
	default:
		q.logger.WithError(err).WithFields(logrus.Fields{
			"job_id":  job.ID,
			"attempt": job.Attempt,
		}).Warn("Job failed, requeueing")
		job.Attempt++
		if pubErr := q.publish(q.name, job); pubErr != nil {
			// Leave the original delivery unacked so the broker redelivers.
			q.logger.WithError(pubErr).WithField("job_id", job.ID).Error("Failed to requeue job")
			d.Nack(false, true)
			return
		}
		d.Ack(false)
	}
}

func (q *AMQPQueue) deadLetter(job Job) {
	if err := q.publish(q.failedName, job); err != nil {
		q.logger.WithError(err).WithField("job_id", job.ID).Error("Failed to dead-letter job")
	}
}

func (q *AMQPQueue) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
