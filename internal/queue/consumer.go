package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// JobHandler runs a generation job and returns its final state
type JobHandler func(ctx context.Context, msg *GenerateJob) (*domain.Job, error)

// Consumer consumes generation jobs from the queue
type Consumer struct {
	conn       *Connection
	handler    JobHandler
	workers    int
	prefetch   int
	jobTimeout time.Duration
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Workers    int           // concurrent workers
	Prefetch   int           // unacknowledged messages per channel
	JobTimeout time.Duration // upper bound for one generation run
}

// DefaultConsumerConfig returns sensible defaults
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:    2,
		Prefetch:   1,
		JobTimeout: 10 * time.Minute,
	}
}

// NewConsumer creates a new queue consumer
func NewConsumer(conn *Connection, handler JobHandler, cfg ConsumerConfig) *Consumer {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = def.JobTimeout
	}

	return &Consumer{
		conn:       conn,
		handler:    handler,
		workers:    cfg.Workers,
		prefetch:   cfg.Prefetch,
		jobTimeout: cfg.JobTimeout,
	}
}

// Start begins consuming messages
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	ch := c.conn.Channel()
	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	msgs, err := ch.Consume(
		JobQueueName,
		"",    // consumer tag (auto-generated)
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.Info("starting job consumer", "workers", c.workers, "prefetch", c.prefetch)

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, msgs)
	}
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopping", "worker_id", id)
			return
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("message channel closed", "worker_id", id)
				return
			}
			c.processMessage(ctx, id, msg)
		}
	}
}

// processMessage runs one job and settles the delivery. Malformed messages
// and unknown jobs are dead-lettered; jobs interrupted by shutdown are
// requeued; everything else is acknowledged since the job store records
// the outcome.
func (c *Consumer) processMessage(ctx context.Context, workerID int, msg amqp.Delivery) {
	start := time.Now()

	var job GenerateJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		slog.Error("malformed generate job", "worker_id", workerID, "error", err)
		_ = msg.Reject(false)
		return
	}

	log := slog.With("worker_id", workerID, "job_id", job.JobID, "video_id", job.VideoID)
	log.Info("processing generate job")

	jobCtx, cancel := context.WithTimeout(ctx, c.jobTimeout)
	defer cancel()

	result, err := c.handler(jobCtx, &job)
	duration := time.Since(start)

	switch {
	case err == nil:
		log.Info("job completed",
			"status", result.Status,
			"generated", result.Generated,
			"duration", duration,
		)
		settle(log, msg.Ack(false))
	case errors.Is(err, domain.ErrJobNotFound):
		log.Error("job not found, dead-lettering", "error", err)
		settle(log, msg.Reject(false))
	case ctx.Err() != nil:
		log.Warn("job interrupted by shutdown, requeueing", "error", err)
		settle(log, msg.Nack(false, true))
	default:
		log.Error("job failed", "error", err, "duration", duration)
		settle(log, msg.Ack(false))
	}
}

func settle(log *slog.Logger, err error) {
	if err != nil {
		log.Error("failed to settle message", "error", err)
	}
}

// Stop cancels the workers and waits for in-flight jobs to finish
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	slog.Info("consumer stopped")
}
