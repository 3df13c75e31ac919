package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/util"
)

// tagColumns must match the scan order in scanTag.
const tagColumns = `id, user_id, created_at, updated_at, name, slug, color, is_ai_generated`

const prefixedTagColumns = `t.id, t.user_id, t.created_at, t.updated_at, t.name, t.slug, t.color, t.is_ai_generated`

func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	t, _, err := scanTagWith(scanner)
	return t, err
}

// scanTagWith scans a tag followed by any extra trailing columns.
func scanTagWith(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.Tag, []any, error) {
	var (
		t         domain.Tag
		createdAt string
		updatedAt string
		color     sql.NullString
		isAI      int
	)

	dest := append([]any{&t.ID, &t.UserID, &createdAt, &updatedAt, &t.Name, &t.Slug, &color, &isAI}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, nil, err
	}

	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, nil, err
	}
	t.Color = color.String
	t.IsAIGenerated = isAI != 0

	return &t, extra, nil
}

// ListTags returns a user's tags ordered by name.
func (s *Store) ListTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? ORDER BY unicode_lower(name) ASC`, userID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanTag)
}

// GetTag returns one of the user's tags.
func (s *Store) GetTag(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// GetTagByName finds a user's tag by name. Names match through their slug,
// so case and separators do not matter.
func (s *Store) GetTagByName(ctx context.Context, userID, name string) (*domain.Tag, error) {
	return getTagBySlug(ctx, s.db, userID, util.NormalizeTagSlug(name))
}

func getTagBySlug(ctx context.Context, q querier, userID, slug string) (*domain.Tag, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+tagColumns+` FROM tags WHERE user_id = ? AND slug = ?`, userID, slug)

	t, err := scanTag(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return t, err
}

// CreateTag inserts a tag. Slug is derived from Name when empty.
// Returns store.ErrAlreadyExists when the user has a tag with the same slug.
func (s *Store) CreateTag(ctx context.Context, t *domain.Tag) error {
	return insertTag(ctx, s.db, t)
}

func insertTag(ctx context.Context, q querier, t *domain.Tag) error {
	if t.Slug == "" {
		t.Slug = util.NormalizeTagSlug(t.Name)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO tags (`+tagColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
		t.Name,
		t.Slug,
		nullString(t.Color),
		boolToInt(t.IsAIGenerated),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	return err
}

// UpdateTag renames or recolors a tag. The slug follows the name.
func (s *Store) UpdateTag(ctx context.Context, t *domain.Tag) error {
	t.Slug = util.NormalizeTagSlug(t.Name)
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags SET updated_at = ?, name = ?, slug = ?, color = ?, is_ai_generated = ?
		WHERE id = ? AND user_id = ?`,
		formatTime(t.UpdatedAt),
		t.Name,
		t.Slug,
		nullString(t.Color),
		boolToInt(t.IsAIGenerated),
		t.ID,
		t.UserID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteTag deletes a user's tag and detaches it from every link.
func (s *Store) DeleteTag(ctx context.Context, userID, tagID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ? AND user_id = ?`, tagID, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// GetOrCreateTag returns the user's tag matching name, creating it when absent.
// The boolean reports whether a tag was created.
func (s *Store) GetOrCreateTag(ctx context.Context, userID, name string, isAI bool) (*domain.Tag, bool, error) {
	var (
		tag     *domain.Tag
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		tag, created, err = getOrCreateTag(ctx, tx, userID, name, isAI)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return tag, created, nil
}

func getOrCreateTag(ctx context.Context, q querier, userID, name string, isAI bool) (*domain.Tag, bool, error) {
	name = util.NormalizeTagName(name)
	slug := util.NormalizeTagSlug(name)
	if slug == "" {
		return nil, false, store.ErrInvalidInput.WithMessage(fmt.Sprintf("tag name %q has no letters or digits", name))
	}

	existing, err := getTagBySlug(ctx, q, userID, slug)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	t := &domain.Tag{
		Timestamps:    domain.Timestamps{ID: id.MustGenerate(id.PrefixTag), CreatedAt: now, UpdatedAt: now},
		UserID:        userID,
		Name:          name,
		Slug:          slug,
		IsAIGenerated: isAI,
	}
	if err := insertTag(ctx, q, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

// CreateTags get-or-creates every name in one transaction and returns the tags
// in input order, without duplicates. No names yields an empty result.
func (s *Store) CreateTags(ctx context.Context, userID string, names []string, isAI bool) ([]*domain.Tag, error) {
	out := make([]*domain.Tag, 0, len(names))
	if len(names) == 0 {
		return out, nil
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		seen := make(map[string]bool, len(names))
		for _, name := range names {
			t, _, err := getOrCreateTag(ctx, tx, userID, name, isAI)
			if err != nil {
				return err
			}
			if !seen[t.ID] {
				seen[t.ID] = true
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddTagToLink attaches a tag to a link. Attaching an already attached tag
// returns the existing association unchanged, confidence included.
func (s *Store) AddTagToLink(ctx context.Context, linkID, tagID string, confidence *float64) (*domain.LinkTag, error) {
	var lt *domain.LinkTag
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getLinkTag(ctx, tx, linkID, tagID)
		if err == nil {
			lt = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		lt = &domain.LinkTag{
			ID:         id.MustGenerate(id.PrefixLinkTag),
			LinkID:     linkID,
			TagID:      tagID,
			Confidence: confidence,
			CreatedAt:  time.Now().UTC(),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO link_tags (id, link_id, tag_id, confidence, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			lt.ID, lt.LinkID, lt.TagID, nullFloat(lt.Confidence), formatTime(lt.CreatedAt))
		return err
	})
	if err != nil {
		return nil, err
	}
	return lt, nil
}

func getLinkTag(ctx context.Context, q querier, linkID, tagID string) (*domain.LinkTag, error) {
	var (
		lt         domain.LinkTag
		confidence sql.NullFloat64
		createdAt  string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, link_id, tag_id, confidence, created_at FROM link_tags WHERE link_id = ? AND tag_id = ?`,
		linkID, tagID,
	).Scan(&lt.ID, &lt.LinkID, &lt.TagID, &confidence, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if confidence.Valid {
		lt.Confidence = &confidence.Float64
	}
	if lt.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &lt, nil
}

// RemoveTagFromLink detaches a tag from a link.
func (s *Store) RemoveTagFromLink(ctx context.Context, linkID, tagID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM link_tags WHERE link_id = ? AND tag_id = ?`, linkID, tagID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListTagsForLink returns a link's tags, most confident first. Tags without a
// confidence sort last, then by name.
func (s *Store) ListTagsForLink(ctx context.Context, linkID string) ([]domain.LinkTagView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedTagColumns+`, lt.confidence
		FROM link_tags lt
		JOIN tags t ON t.id = lt.tag_id
		WHERE lt.link_id = ?
		ORDER BY lt.confidence IS NULL, lt.confidence DESC, unicode_lower(t.name) ASC`, linkID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (domain.LinkTagView, error) {
		var confidence sql.NullFloat64
		t, _, err := scanTagWith(scanner, &confidence)
		if err != nil {
			return domain.LinkTagView{}, err
		}
		view := domain.LinkTagView{Tag: *t}
		if confidence.Valid {
			view.Confidence = &confidence.Float64
		}
		return view, nil
	})
}

// ListLinksForTag returns the user's links carrying a tag, newest first.
func (s *Store) ListLinksForTag(ctx context.Context, userID, tagID string, params store.ListParams) ([]*domain.Link, error) {
	params.Normalize(store.DefaultLimit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedLinkColumns+`
		FROM link_tags lt
		JOIN links l ON l.id = lt.link_id
		WHERE lt.tag_id = ? AND l.user_id = ?
		ORDER BY l.created_at DESC, l.id
		LIMIT ? OFFSET ?`, tagID, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanLink)
}

// ListTagsWithLinkCount returns a user's tags with link counts, most used first.
func (s *Store) ListTagsWithLinkCount(ctx context.Context, userID string) ([]domain.TagWithCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedTagColumns+`, COUNT(lt.id) AS link_count
		FROM tags t
		LEFT JOIN link_tags lt ON lt.tag_id = t.id
		WHERE t.user_id = ?
		GROUP BY t.id
		ORDER BY link_count DESC, unicode_lower(t.name) ASC`, userID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (domain.TagWithCount, error) {
		var count int
		t, _, err := scanTagWith(scanner, &count)
		if err != nil {
			return domain.TagWithCount{}, err
		}
		return domain.TagWithCount{Tag: *t, LinkCount: count}, nil
	})
}

// SearchTags returns the user's tags whose name contains query, ignoring case.
func (s *Store) SearchTags(ctx context.Context, userID, query string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE user_id = ? AND unicode_lower(name) LIKE ? ESCAPE '\'
		ORDER BY unicode_lower(name) ASC`, userID, likePattern(query))
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanTag)
}

// ListAIGeneratedTags returns the user's AI-suggested tags ordered by name.
func (s *Store) ListAIGeneratedTags(ctx context.Context, userID string) ([]*domain.Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tagColumns+` FROM tags
		WHERE user_id = ? AND is_ai_generated = 1
		ORDER BY unicode_lower(name) ASC`, userID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanTag)
}
