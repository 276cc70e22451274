package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"minichat/internal/models"
)

// AppendMessage inserts one message row and returns the stored record.
func (s *Store) AppendMessage(ctx context.Context, userID int64, modelID *int64, role models.Role, content string) (*models.Message, error) {
	if userID <= 0 {
		return nil, errors.New("user_id is required")
	}
	if !role.Valid() {
		return nil, fmt.Errorf("invalid role: %s", role)
	}
	if content == "" {
		return nil, errors.New("content cannot be empty")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (user_id, model_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, modelID, role, content, now,
	)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("message id: %w", err)
	}
	return &models.Message{
		ID:        id,
		UserID:    userID,
		ModelID:   modelID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// ListMessages returns the full message history for one user in creation
// order, ties broken by insertion order, with the model tag resolved for
// rows that reference a model.
func (s *Store) ListMessages(ctx context.Context, userID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.user_id, m.model_id, m.role, m.content, m.created_at, COALESCE(mo.tag, '')
		 FROM messages m
		 LEFT JOIN models mo ON mo.id = m.model_id
		 WHERE m.user_id = ?
		 ORDER BY m.created_at ASC, m.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.UserID, &m.ModelID, &m.Role, &m.Content, &m.CreatedAt, &m.ModelTag); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountMessages reports how many messages a user has stored.
func (s *Store) CountMessages(ctx context.Context, userID int64) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE user_id = ?`, userID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return count, nil
}
