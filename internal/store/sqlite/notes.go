package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/store"
)

// noteColumns must match the scan order in scanNote.
const noteColumns = `id, link_id, user_id, created_at, updated_at, content`

const prefixedNoteColumns = `n.id, n.link_id, n.user_id, n.created_at, n.updated_at, n.content`

func scanNote(scanner interface{ Scan(dest ...any) error }) (*domain.Note, error) {
	return scanNoteWith(scanner)
}

func scanNoteWith(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.Note, error) {
	var (
		n         domain.Note
		createdAt string
		updatedAt string
	)

	dest := append([]any{&n.ID, &n.LinkID, &n.UserID, &createdAt, &updatedAt, &n.Content}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNoteWithLink(scanner interface{ Scan(dest ...any) error }) (*domain.NoteWithLink, error) {
	var out domain.NoteWithLink
	n, err := scanNoteWith(scanner, &out.LinkTitle, &out.LinkURL)
	if err != nil {
		return nil, err
	}
	out.Note = *n
	return &out, nil
}

// ListNotesForLink returns a link's notes, most recently updated first.
func (s *Store) ListNotesForLink(ctx context.Context, linkID string) ([]*domain.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+noteColumns+` FROM notes
		WHERE link_id = ?
		ORDER BY updated_at DESC, id`, linkID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanNote)
}

// ListNotes returns a user's notes across all links, most recently updated first.
func (s *Store) ListNotes(ctx context.Context, userID string, params store.ListParams) ([]*domain.NoteWithLink, error) {
	params.Normalize(store.DefaultLimit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedNoteColumns+`, l.title, l.url
		FROM notes n
		JOIN links l ON l.id = n.link_id
		WHERE n.user_id = ?
		ORDER BY n.updated_at DESC, n.id
		LIMIT ? OFFSET ?`, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanNoteWithLink)
}

// GetNote returns a note by id. Ownership is checked by the caller through NoteBelongsTo.
func (s *Store) GetNote(ctx context.Context, noteID string) (*domain.Note, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = ?`, noteID)

	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return n, err
}

// CreateNote inserts a note. The link must belong to the note's user.
func (s *Store) CreateNote(ctx context.Context, n *domain.Note) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO notes (`+noteColumns+`)
		SELECT ?, id, user_id, ?, ?, ? FROM links WHERE id = ? AND user_id = ?`,
		n.ID,
		formatTime(n.CreatedAt),
		formatTime(n.UpdatedAt),
		n.Content,
		n.LinkID,
		n.UserID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// UpdateNote replaces a note's content.
func (s *Store) UpdateNote(ctx context.Context, n *domain.Note) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notes SET content = ?, updated_at = ? WHERE id = ?`,
		n.Content, formatTime(n.UpdatedAt), n.ID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteNote deletes a note.
func (s *Store) DeleteNote(ctx context.Context, noteID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, noteID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteNotesForLink removes every note on a link and returns how many went.
func (s *Store) DeleteNotesForLink(ctx context.Context, linkID string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE link_id = ?`, linkID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// NoteBelongsTo reports whether noteID exists and is owned by userID.
func (s *Store) NoteBelongsTo(ctx context.Context, noteID, userID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM notes WHERE id = ? AND user_id = ?)`, noteID, userID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists == 1, nil
}

// SearchNotes matches query as a case-insensitive substring of note content.
func (s *Store) SearchNotes(ctx context.Context, userID, query string, params store.ListParams) ([]*domain.NoteWithLink, error) {
	params.Normalize(store.DefaultLimit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedNoteColumns+`, l.title, l.url
		FROM notes n
		JOIN links l ON l.id = n.link_id
		WHERE n.user_id = ? AND unicode_lower(n.content) LIKE ? ESCAPE '\'
		ORDER BY n.updated_at DESC, n.id
		LIMIT ? OFFSET ?`, userID, likePattern(query), params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanNoteWithLink)
}
