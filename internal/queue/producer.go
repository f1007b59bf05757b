package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// Publisher sends a JSON message to a named queue
type Publisher interface {
	PublishJSON(ctx context.Context, queue string, data any, correlationID string) error
}

// Producer dispatches generation jobs to workers through RabbitMQ
type Producer struct {
	pub Publisher
}

// NewProducer creates a new queue producer
func NewProducer(pub Publisher) *Producer {
	return &Producer{pub: pub}
}

// Dispatch publishes a message asking a worker to run job
func (p *Producer) Dispatch(ctx context.Context, job *domain.Job) error {
	msg := NewGenerateJob(job)
	if err := p.pub.PublishJSON(ctx, JobQueueName, msg, job.ID.String()); err != nil {
		return fmt.Errorf("publish generate job: %w", err)
	}

	slog.Info("published generate job",
		"job_id", job.ID,
		"video_id", job.VideoID,
		"difficulty", job.Difficulty,
	)
	return nil
}
