package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// ExerciseStore implements exercise persistence backed by SQLite.
type ExerciseStore struct {
	db *DB
}

// NewExerciseStore creates a new SQLite-backed exercise store.
func NewExerciseStore(db *DB) *ExerciseStore {
	return &ExerciseStore{db: db}
}

const exerciseColumns = `id, video_id, segment_number, original_text, exercise_text,
	answers, hints, start_time, end_time, difficulty, created_at`

// SaveExercises replaces the video's exercises. Attempts on the old
// exercises are removed by cascade.
func (s *ExerciseStore) SaveExercises(ctx context.Context, videoID string, exs []*domain.Exercise) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM exercises WHERE video_id = ?", videoID); err != nil {
		return fmt.Errorf("delete exercises: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exercises (`+exerciseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

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
		_, err = stmt.ExecContext(ctx,
			ex.ID, ex.VideoID, ex.SegmentNumber, ex.OriginalText, ex.Text,
			string(answers), string(hints), ex.Start, ex.End,
			string(ex.Difficulty), ex.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert exercise %s: %w", ex.ID, err)
		}
	}

	return tx.Commit()
}

// ListExercises returns the video's exercises ordered by start time.
func (s *ExerciseStore) ListExercises(ctx context.Context, videoID string) ([]*domain.Exercise, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+exerciseColumns+`
		FROM exercises WHERE video_id = ? ORDER BY start_time, segment_number`, videoID)
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

// GetExercise retrieves an exercise by ID.
func (s *ExerciseStore) GetExercise(ctx context.Context, id string) (*domain.Exercise, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+exerciseColumns+` FROM exercises WHERE id = ?`, id)
	ex, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrExerciseNotFound
	}
	return ex, err
}

// DeleteExercises removes all exercises of a video.
func (s *ExerciseStore) DeleteExercises(ctx context.Context, videoID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM exercises WHERE video_id = ?", videoID); err != nil {
		return fmt.Errorf("delete exercises: %w", err)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanExercise(row scanner) (*domain.Exercise, error) {
	var (
		ex             domain.Exercise
		answers, hints string
		difficulty     string
	)
	err := row.Scan(
		&ex.ID, &ex.VideoID, &ex.SegmentNumber, &ex.OriginalText, &ex.Text,
		&answers, &hints, &ex.Start, &ex.End, &difficulty, &ex.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan exercise: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &ex.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if err := json.Unmarshal([]byte(hints), &ex.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	ex.Difficulty = domain.Tier(difficulty)
	return &ex, nil
}
