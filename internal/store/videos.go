package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/karyon-ai/karyon/internal/model"
)

const videoColumns = `id, title, file_path, audio_path, youtube_url, processing_mode, status, error_message, created_at`

// CreateVideo inserts a new video record and fills in its CreatedAt.
func (s *Store) CreateVideo(ctx context.Context, v *model.Video) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO videos (id, title, file_path, audio_path, youtube_url, processing_mode, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '')
		RETURNING created_at`,
		v.ID, v.Title, v.FilePath, v.AudioPath, v.YouTubeURL, v.Mode, v.Status,
	)
	if err := row.Scan(&v.CreatedAt); err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// VideoByID fetches one video.
func (s *Store) VideoByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+videoColumns+`
		FROM videos WHERE id = $1`, id)

	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrVideoNotFound
		}
		return nil, fmt.Errorf("select video: %w", err)
	}
	return v, nil
}

// ListVideos returns all videos, newest first.
func (s *Store) ListVideos(ctx context.Context) ([]model.Video, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+videoColumns+`
		FROM videos ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select videos: %w", err)
	}
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, *v)
	}
	return videos, rows.Err()
}

// SetStatus moves a video to the given processing status and clears any
// previous error message.
func (s *Store) SetStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE videos SET status = $1, error_message = '' WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVideoNotFound
	}
	return nil
}

// MarkFailed records a processing failure.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, message string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE videos SET status = $1, error_message = $2 WHERE id = $3`,
		model.StatusFailed, message, id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// SetDownloaded records the downloaded file path and resolved title.
func (s *Store) SetDownloaded(ctx context.Context, id uuid.UUID, filePath, title string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE videos SET file_path = $1, title = $2 WHERE id = $3`,
		filePath, title, id,
	)
	if err != nil {
		return fmt.Errorf("set downloaded: %w", err)
	}
	return nil
}

// SetAudioPath records where the extracted audio track was written.
func (s *Store) SetAudioPath(ctx context.Context, id uuid.UUID, audioPath string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE videos SET audio_path = $1 WHERE id = $2`,
		audioPath, id,
	)
	if err != nil {
		return fmt.Errorf("set audio path: %w", err)
	}
	return nil
}

// DeleteVideo removes a video. Chunks, frames, and chat sessions go with
// it through ON DELETE CASCADE.
func (s *Store) DeleteVideo(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrVideoNotFound
	}
	return nil
}

func scanVideo(row pgx.Row) (*model.Video, error) {
	var v model.Video
	err := row.Scan(&v.ID, &v.Title, &v.FilePath, &v.AudioPath, &v.YouTubeURL, &v.Mode, &v.Status, &v.ErrorMessage, &v.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
