package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// AttemptStore implements learner progress persistence backed by SQLite.
type AttemptStore struct {
	db *DB
}

// NewAttemptStore creates a new SQLite-backed attempt store.
func NewAttemptStore(db *DB) *AttemptStore {
	return &AttemptStore{db: db}
}

// SaveAttempt upserts the latest attempt for an exercise.
func (s *AttemptStore) SaveAttempt(ctx context.Context, a *domain.Attempt) error {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempts (exercise_id, video_id, responses, correct, total, all_correct, answered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(exercise_id) DO UPDATE SET
			video_id=excluded.video_id, responses=excluded.responses,
			correct=excluded.correct, total=excluded.total,
			all_correct=excluded.all_correct, answered_at=excluded.answered_at`,
		a.ExerciseID, a.VideoID, string(responses), a.Correct, a.Total, a.AllCorrect, a.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("upsert attempt: %w", err)
	}
	return nil
}

// AttemptSummary counts answered exercises of a video and how many were
// fully correct.
func (s *AttemptStore) AttemptSummary(ctx context.Context, videoID string) (domain.ProgressSummary, error) {
	var sum domain.ProgressSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(all_correct), 0)
		FROM attempts WHERE video_id = ?`, videoID,
	).Scan(&sum.Answered, &sum.Correct)
	if err != nil {
		return sum, fmt.Errorf("summarize attempts: %w", err)
	}
	sum.Incorrect = sum.Answered - sum.Correct
	return sum, nil
}
