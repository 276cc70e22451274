package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"minichat/internal/models"
)

// ListModels returns the selectable model catalog.
func (s *Store) ListModels(ctx context.Context) ([]models.Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tag, name, provider FROM models ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var catalog []models.Model
	for rows.Next() {
		var m models.Model
		if err := rows.Scan(&m.ID, &m.Tag, &m.Name, &m.Provider); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		catalog = append(catalog, m)
	}
	return catalog, rows.Err()
}

// GetModel fetches one catalog row by id.
func (s *Store) GetModel(ctx context.Context, id int64) (*models.Model, error) {
	var m models.Model
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tag, name, provider FROM models WHERE id = ?`, id,
	).Scan(&m.ID, &m.Tag, &m.Name, &m.Provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return &m, nil
}
