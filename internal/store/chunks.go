package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/karyon-ai/karyon/internal/model"
)

// ReplaceChunks writes a video's transcript chunks in one transaction,
// dropping any chunks from a previous processing run first.
func (s *Store) ReplaceChunks(ctx context.Context, videoID uuid.UUID, chunks []model.TranscriptChunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM transcript_chunks WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	for _, c := range chunks {
		segments, err := json.Marshal(c.Segments)
		if err != nil {
			return fmt.Errorf("marshal segments for chunk %d: %w", c.ChunkIndex, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO transcript_chunks (id, video_id, chunk_index, text, start_time, end_time, segments, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, videoID, c.ChunkIndex, c.Text, c.Start, c.End, segments, pgVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ChunksByVideo returns a video's transcript chunks in order.
func (s *Store) ChunksByVideo(ctx context.Context, videoID uuid.UUID) ([]model.TranscriptChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, video_id, chunk_index, text, start_time, end_time, segments, embedding::text
		FROM transcript_chunks WHERE video_id = $1 ORDER BY chunk_index`, videoID)
	if err != nil {
		return nil, fmt.Errorf("select chunks: %w", err)
	}
	defer rows.Close()

	var chunks []model.TranscriptChunk
	for rows.Next() {
		var c model.TranscriptChunk
		var segments []byte
		var embedding *string
		if err := rows.Scan(&c.ID, &c.VideoID, &c.ChunkIndex, &c.Text, &c.Start, &c.End, &segments, &embedding); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if len(segments) > 0 {
			if err := json.Unmarshal(segments, &c.Segments); err != nil {
				return nil, fmt.Errorf("unmarshal segments for chunk %d: %w", c.ChunkIndex, err)
			}
		}
		if embedding != nil {
			c.Embedding, err = parsePgVector(*embedding)
			if err != nil {
				return nil, fmt.Errorf("parse embedding for chunk %d: %w", c.ChunkIndex, err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
