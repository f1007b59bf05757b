package sqlite

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/comprende/internal/domain"
)

// SegmentStore implements segment persistence backed by SQLite.
type SegmentStore struct {
	db *DB
}

// NewSegmentStore creates a new SQLite-backed segment store.
func NewSegmentStore(db *DB) *SegmentStore {
	return &SegmentStore{db: db}
}

// ReplaceSegments deletes the video's segments and inserts segs in one
// transaction.
func (s *SegmentStore) ReplaceSegments(ctx context.Context, videoID string, segs []domain.Segment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM segments WHERE video_id = ?", videoID); err != nil {
		return fmt.Errorf("delete segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments (video_id, segment_number, text, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, seg := range segs {
		if _, err := stmt.ExecContext(ctx, videoID, seg.Number, seg.Text, seg.Start, seg.End); err != nil {
			return fmt.Errorf("insert segment %d: %w", seg.Number, err)
		}
	}

	return tx.Commit()
}

// ListSegments returns the video's segments ordered by number.
func (s *SegmentStore) ListSegments(ctx context.Context, videoID string) ([]domain.Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT segment_number, text, start_time, end_time
		FROM segments WHERE video_id = ? ORDER BY segment_number`, videoID)
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
