package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

const jobColumns = `id, video_id, difficulty, sample_ratio, seed, status,
	sampled, generated, degraded, skipped_no_candidates, skipped_annotation,
	error, created_at, updated_at`

// CreateJob inserts a new job
func (s *Store) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		job.ID, job.VideoID, string(job.Difficulty), job.SampleRatio,
		int64(job.Seed), string(job.Status),
		job.Sampled, job.Generated, job.Degraded,
		job.Skipped.NoCandidates, job.Skipped.AnnotationFailures,
		job.Error, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	return job, err
}

// UpdateJob stores the job's status and counts
func (s *Store) UpdateJob(ctx context.Context, job *domain.Job) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $1, sampled = $2, generated = $3, degraded = $4,
			skipped_no_candidates = $5, skipped_annotation = $6, error = $7, updated_at = $8
		WHERE id = $9`,
		string(job.Status), job.Sampled, job.Generated, job.Degraded,
		job.Skipped.NoCandidates, job.Skipped.AnnotationFailures,
		job.Error, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs newest first, optionally for one video
func (s *Store) ListJobs(ctx context.Context, videoID string) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if videoID != "" {
		query += ` WHERE video_id = $1`
		args = append(args, videoID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job                domain.Job
		difficulty, status string
		seed               int64
	)
	err := row.Scan(
		&job.ID, &job.VideoID, &difficulty, &job.SampleRatio, &seed, &status,
		&job.Sampled, &job.Generated, &job.Degraded,
		&job.Skipped.NoCandidates, &job.Skipped.AnnotationFailures,
		&job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	job.Difficulty = domain.Tier(difficulty)
	job.Status = domain.JobStatus(status)
	job.Seed = uint64(seed)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return &job, nil
}

// SaveAttempt upserts the latest attempt for an exercise
func (s *Store) SaveAttempt(ctx context.Context, a *domain.Attempt) error {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO attempts (exercise_id, video_id, responses, correct, total, all_correct, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (exercise_id) DO UPDATE SET
			video_id = EXCLUDED.video_id, responses = EXCLUDED.responses,
			correct = EXCLUDED.correct, total = EXCLUDED.total,
			all_correct = EXCLUDED.all_correct, answered_at = EXCLUDED.answered_at`,
		a.ExerciseID, a.VideoID, responses, a.Correct, a.Total, a.AllCorrect, a.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert attempt: %w", err)
	}
	return nil
}

// AttemptSummary counts answered exercises of a video and how many were
// fully correct
func (s *Store) AttemptSummary(ctx context.Context, videoID string) (domain.ProgressSummary, error) {
	var sum domain.ProgressSummary
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE all_correct)
		FROM attempts WHERE video_id = $1`, videoID,
	).Scan(&sum.Answered, &sum.Correct)
	if err != nil {
		return sum, fmt.Errorf("summarize attempts: %w", err)
	}
	sum.Incorrect = sum.Answered - sum.Correct
	return sum, nil
}
