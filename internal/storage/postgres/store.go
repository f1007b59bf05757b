// Package postgres implements the exercise, segment, job and attempt stores
// on PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/comprende/internal/domain"
	"github.com/felixgeelhaar/comprende/internal/jobs"
)

//go:embed schema.sql
var schema string

// Store implements every persistence interface using PostgreSQL
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements the storage interfaces
var (
	_ jobs.SegmentStore  = (*Store)(nil)
	_ jobs.ExerciseStore = (*Store)(nil)
	_ jobs.JobStore      = (*Store)(nil)
	_ jobs.AttemptStore  = (*Store)(nil)
)

// NewStore creates a new PostgreSQL store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool and verifies connectivity
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Stores exposes s through the service's store bundle
func (s *Store) Stores() jobs.Stores {
	return jobs.Stores{Segments: s, Exercises: s, Jobs: s, Attempts: s}
}

// ReplaceSegments deletes the video's segments and inserts segs
func (s *Store) ReplaceSegments(ctx context.Context, videoID string, segs []domain.Segment) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM segments WHERE video_id = $1`, videoID); err != nil {
			return fmt.Errorf("delete segments: %w", err)
		}

		batch := &pgx.Batch{}
		for _, seg := range segs {
			batch.Queue(`
				INSERT INTO segments (video_id, segment_number, text, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5)`,
				videoID, seg.Number, seg.Text, seg.Start, seg.End,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert segments: %w", err)
		}
		return nil
	})
}

// ListSegments returns the video's segments ordered by number
func (s *Store) ListSegments(ctx context.Context, videoID string) ([]domain.Segment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT segment_number, text, start_time, end_time
		FROM segments WHERE video_id = $1 ORDER BY segment_number`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var segs []domain.Segment
	for rows.Next() {
		var seg domain.Segment
		if err := rows.Scan(&seg.Number, &seg.Text, &seg.Start, &seg.End); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segs = append(segs, seg)
	}
	return segs, rows.Err()
}

const exerciseColumns = `id, video_id, segment_number, original_text, exercise_text,
	answers, hints, start_time, end_time, difficulty, created_at`

// SaveExercises replaces the video's exercises
func (s *Store) SaveExercises(ctx context.Context, videoID string, exs []*domain.Exercise) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM exercises WHERE video_id = $1`, videoID); err != nil {
			return fmt.Errorf("delete exercises: %w", err)
		}

		batch := &pgx.Batch{}
		for _, ex := range exs {
			ex.Stamp(videoID)
			answers, err := json.Marshal(ex.Answers)
			if err != nil {
				return fmt.Errorf("marshal answers: %w", err)
			}
			hints, err := json.Marshal(ex.Hints)
			if err != nil {
				return fmt.Errorf("marshal hints: %w", err)
			}
			batch.Queue(`INSERT INTO exercises (`+exerciseColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				ex.ID, ex.VideoID, ex.SegmentNumber, ex.OriginalText, ex.Text,
				answers, hints, ex.Start, ex.End, string(ex.Difficulty), ex.CreatedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert exercises: %w", err)
		}
		return nil
	})
}

// ListExercises returns the video's exercises ordered by start time
func (s *Store) ListExercises(ctx context.Context, videoID string) ([]*domain.Exercise, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+exerciseColumns+`
		FROM exercises WHERE video_id = $1 ORDER BY start_time, segment_number`, videoID)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var exs []*domain.Exercise
	for rows.Next() {
		ex, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		exs = append(exs, ex)
	}
	return exs, rows.Err()
}

// GetExercise retrieves an exercise by ID
func (s *Store) GetExercise(ctx context.Context, id string) (*domain.Exercise, error) {
	ex, err := scanExercise(s.pool.QueryRow(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrExerciseNotFound
	}
	return ex, err
}

// DeleteExercises removes all exercises of a video
func (s *Store) DeleteExercises(ctx context.Context, videoID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM exercises WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("delete exercises: %w", err)
	}
	return nil
}

func scanExercise(row pgx.Row) (*domain.Exercise, error) {
	var (
		ex             domain.Exercise
		answers, hints []byte
		difficulty     string
	)
	err := row.Scan(
		&ex.ID, &ex.VideoID, &ex.SegmentNumber, &ex.OriginalText, &ex.Text,
		&answers, &hints, &ex.Start, &ex.End, &difficulty, &ex.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exercise: %w", err)
	}
	if err := json.Unmarshal(answers, &ex.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(hints, &ex.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	ex.Difficulty = domain.Tier(difficulty)
	return &ex, nil
}
