package sqlite

import (
	"context"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/id"
)

// Default sizes for the search history views.
const (
	RecentSearchLimit   = 10
	FrequentSearchLimit = 10
)

// RecordSearch appends a query to the user's history.
func (s *Store) RecordSearch(ctx context.Context, userID, query string) (*domain.SearchHistoryEntry, error) {
	entry := &domain.SearchHistoryEntry{
		ID:        id.MustGenerate(id.PrefixSearch),
		UserID:    userID,
		Query:     query,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (id, user_id, query, created_at) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.UserID, entry.Query, formatTime(entry.CreatedAt))
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ListRecentSearches returns the user's latest searches, newest first.
func (s *Store) ListRecentSearches(ctx context.Context, userID string, limit int) ([]*domain.SearchHistoryEntry, error) {
	if limit <= 0 {
		limit = RecentSearchLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, query, created_at FROM search_history
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (*domain.SearchHistoryEntry, error) {
		var (
			e         domain.SearchHistoryEntry
			createdAt string
		)
		if err := scanner.Scan(&e.ID, &e.UserID, &e.Query, &createdAt); err != nil {
			return nil, err
		}
		var err error
		e.CreatedAt, err = parseTime(createdAt)
		return &e, err
	})
}

// ListFrequentSearches groups the user's history by exact query, most run first.
// Ties go to the query run most recently.
func (s *Store) ListFrequentSearches(ctx context.Context, userID string, limit int) ([]domain.FrequentSearch, error) {
	if limit <= 0 {
		limit = FrequentSearchLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS n
		FROM search_history
		WHERE user_id = ?
		GROUP BY query
		ORDER BY n DESC, MAX(created_at) DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (domain.FrequentSearch, error) {
		var f domain.FrequentSearch
		err := scanner.Scan(&f.Query, &f.Count)
		return f, err
	})
}

// ClearSearchHistory deletes the user's whole history and returns the number of entries removed.
func (s *Store) ClearSearchHistory(ctx context.Context, userID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM search_history WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// DeleteSearch removes one history entry.
func (s *Store) DeleteSearch(ctx context.Context, userID, entryID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM search_history WHERE id = ? AND user_id = ?`, entryID, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
