package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/karyon-ai/karyon/internal/model"
)

// SessionFor returns the chat session for one user on one video,
// creating it on first use.
func (s *Store) SessionFor(ctx context.Context, videoID uuid.UUID, userRef string) (*model.ChatSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, video_id, user_ref, created_at
		FROM chat_sessions WHERE video_id = $1 AND user_ref = $2`, videoID, userRef)

	var sess model.ChatSession
	err := row.Scan(&sess.ID, &sess.VideoID, &sess.UserRef, &sess.CreatedAt)
	if err == nil {
		return &sess, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("select session: %w", err)
	}

	sess = model.ChatSession{ID: uuid.New(), VideoID: videoID, UserRef: userRef}
	row = s.pool.QueryRow(ctx, `
		INSERT INTO chat_sessions (id, video_id, user_ref)
		VALUES ($1, $2, $3)
		RETURNING created_at`,
		sess.ID, sess.VideoID, sess.UserRef,
	)
	if err := row.Scan(&sess.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return &sess, nil
}

// AppendExchange records one question/answer pair atomically. sources is
// the serialized answer payload stored alongside the assistant turn.
func (s *Store) AppendExchange(ctx context.Context, sessionID uuid.UUID, question, answer string, sources []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content)
		VALUES ($1, $2, $3, $4)`,
		uuid.New(), sessionID, model.RoleUser, question,
	)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_messages (id, session_id, role, content, sources)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), sessionID, model.RoleAssistant, answer, sources,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// History returns a session's messages oldest first.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID) ([]model.ChatMessage, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, sources, created_at
		FROM chat_messages WHERE session_id = $1 ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("select messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Sources, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
