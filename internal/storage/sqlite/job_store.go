package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// JobStore implements generation job persistence backed by SQLite.
type JobStore struct {
	db *DB
}

// NewJobStore creates a new SQLite-backed job store.
func NewJobStore(db *DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `id, video_id, difficulty, sample_ratio, seed, status,
	sampled, generated, degraded, skipped_no_candidates, skipped_annotation,
	error, created_at, updated_at`

// CreateJob inserts a new job.
func (s *JobStore) CreateJob(ctx context.Context, job *domain.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), job.VideoID, string(job.Difficulty), job.SampleRatio,
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

// GetJob retrieves a job by ID.
func (s *JobStore) GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrJobNotFound
	}
	return job, err
}

// UpdateJob stores the job's status and counts.
func (s *JobStore) UpdateJob(ctx context.Context, job *domain.Job) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, sampled = ?, generated = ?, degraded = ?,
			skipped_no_candidates = ?, skipped_annotation = ?, error = ?, updated_at = ?
		WHERE id = ?`,
		string(job.Status), job.Sampled, job.Generated, job.Degraded,
		job.Skipped.NoCandidates, job.Skipped.AnnotationFailures,
		job.Error, job.UpdatedAt, job.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// ListJobs returns jobs newest first, optionally for one video.
func (s *JobStore) ListJobs(ctx context.Context, videoID string) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if videoID != "" {
		query += ` WHERE video_id = ?`
		args = append(args, videoID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
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

func scanJob(row scanner) (*domain.Job, error) {
	var (
		job                    domain.Job
		id, difficulty, status string
		seed                   int64
	)
	err := row.Scan(
		&id, &job.VideoID, &difficulty, &job.SampleRatio, &seed, &status,
		&job.Sampled, &job.Generated, &job.Degraded,
		&job.Skipped.NoCandidates, &job.Skipped.AnnotationFailures,
		&job.Error, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}

	job.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}
	job.Difficulty = domain.Tier(difficulty)
	job.Status = domain.JobStatus(status)
	job.Seed = uint64(seed)
	return &job, nil
}
