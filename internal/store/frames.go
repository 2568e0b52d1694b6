package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/karyon-ai/karyon/internal/model"
)

// ReplaceFrames writes a video's analyzed keyframes in one transaction,
// dropping frames from a previous processing run first.
func (s *Store) ReplaceFrames(ctx context.Context, videoID uuid.UUID, frames []model.VideoFrame) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM video_frames WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("delete old frames: %w", err)
	}

	for _, f := range frames {
		_, err := tx.Exec(ctx, `
			INSERT INTO video_frames (id, video_id, timestamp, visual_context, embedding)
			VALUES ($1, $2, $3, $4, $5)`,
			f.ID, videoID, f.Timestamp, f.VisualContext, pgVector(f.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert frame at %.1fs: %w", f.Timestamp, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// FramesByVideo returns a video's frames in timestamp order.
func (s *Store) FramesByVideo(ctx context.Context, videoID uuid.UUID) ([]model.VideoFrame, error) {
	return s.queryFrames(ctx, `
		SELECT id, video_id, timestamp, visual_context, embedding::text
		FROM video_frames WHERE video_id = $1 ORDER BY timestamp`, videoID)
}

// FramesInWindow returns the frames captured between start and end,
// inclusive on both edges.
func (s *Store) FramesInWindow(ctx context.Context, videoID uuid.UUID, start, end float64) ([]model.VideoFrame, error) {
	return s.queryFrames(ctx, `
		SELECT id, video_id, timestamp, visual_context, embedding::text
		FROM video_frames WHERE video_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp`, videoID, start, end)
}

func (s *Store) queryFrames(ctx context.Context, sql string, args ...any) ([]model.VideoFrame, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select frames: %w", err)
	}
	defer rows.Close()

	frames, err := scanFrames(rows)
	if err != nil {
		return nil, err
	}
	return frames, rows.Err()
}

func scanFrames(rows pgx.Rows) ([]model.VideoFrame, error) {
	var frames []model.VideoFrame
	for rows.Next() {
		var f model.VideoFrame
		var embedding *string
		if err := rows.Scan(&f.ID, &f.VideoID, &f.Timestamp, &f.VisualContext, &embedding); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if embedding != nil {
			var err error
			f.Embedding, err = parsePgVector(*embedding)
			if err != nil {
				return nil, fmt.Errorf("parse embedding for frame at %.1fs: %w", f.Timestamp, err)
			}
		}
		frames = append(frames, f)
	}
	return frames, nil
}
