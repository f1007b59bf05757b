package jobs

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// SegmentStore persists a video's transcript segments
type SegmentStore interface {
	// ReplaceSegments drops the video's existing segments and stores segs
	ReplaceSegments(ctx context.Context, videoID string, segs []domain.Segment) error

	// ListSegments returns the video's segments ordered by number
	ListSegments(ctx context.Context, videoID string) ([]domain.Segment, error)
}

// ExerciseStore persists generated exercises
type ExerciseStore interface {
	// SaveExercises replaces the video's exercises with exs. Exercises
	// without an ID are stamped first.
	SaveExercises(ctx context.Context, videoID string, exs []*domain.Exercise) error

	// ListExercises returns the video's exercises ordered by start time
	ListExercises(ctx context.Context, videoID string) ([]*domain.Exercise, error)

	// GetExercise returns domain.ErrExerciseNotFound for unknown ids
	GetExercise(ctx context.Context, id string) (*domain.Exercise, error)

	DeleteExercises(ctx context.Context, videoID string) error
}

// JobStore persists generation job state
type JobStore interface {
	CreateJob(ctx context.Context, job *domain.Job) error

	// GetJob returns domain.ErrJobNotFound for unknown ids
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	UpdateJob(ctx context.Context, job *domain.Job) error

	// ListJobs returns jobs newest first; an empty videoID lists all
	ListJobs(ctx context.Context, videoID string) ([]*domain.Job, error)
}

// AttemptStore persists learner answers
type AttemptStore interface {
	// SaveAttempt keeps only the latest attempt per exercise
	SaveAttempt(ctx context.Context, attempt *domain.Attempt) error

	AttemptSummary(ctx context.Context, videoID string) (domain.ProgressSummary, error)
}

// Stores groups the persistence dependencies of the service
type Stores struct {
	Segments  SegmentStore
	Exercises ExerciseStore
	Jobs      JobStore
	Attempts  AttemptStore
}
