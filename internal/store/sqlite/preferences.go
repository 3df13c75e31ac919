package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pabliki/pabliki-server/internal/domain"
)

// GetViewPreferences returns the user's saved preferences, or the defaults
// when nothing has been saved yet.
func (s *Store) GetViewPreferences(ctx context.Context, userID string) (*domain.ViewPreferences, error) {
	var (
		p         domain.ViewPreferences
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, view_mode, sort_by, sort_direction, theme, updated_at
		FROM view_preferences WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &p.ViewMode, &p.SortBy, &p.SortDirection, &p.Theme, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		defaults := domain.DefaultViewPreferences(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveViewPreferences inserts or replaces the user's preferences.
func (s *Store) SaveViewPreferences(ctx context.Context, p *domain.ViewPreferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO view_preferences (user_id, view_mode, sort_by, sort_direction, theme, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			view_mode = excluded.view_mode,
			sort_by = excluded.sort_by,
			sort_direction = excluded.sort_direction,
			theme = excluded.theme,
			updated_at = excluded.updated_at`,
		p.UserID, p.ViewMode, p.SortBy, p.SortDirection, p.Theme, formatTime(p.UpdatedAt))
	return err
}
