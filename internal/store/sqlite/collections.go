package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/store"
)

// collectionColumns must match the scan order in scanCollection.
const collectionColumns = `id, user_id, created_at, updated_at, name, description, color, icon, is_private, parent_id`

const prefixedCollectionColumns = `c.id, c.user_id, c.created_at, c.updated_at, c.name, c.description, c.color, c.icon, c.is_private, c.parent_id`

func scanCollection(scanner interface{ Scan(dest ...any) error }) (*domain.Collection, error) {
	return scanCollectionWith(scanner)
}

func scanCollectionWith(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.Collection, error) {
	var (
		c           domain.Collection
		createdAt   string
		updatedAt   string
		description sql.NullString
		color       sql.NullString
		icon        sql.NullString
		isPrivate   int
		parentID    sql.NullString
	)

	dest := append([]any{
		&c.ID, &c.UserID, &createdAt, &updatedAt, &c.Name,
		&description, &color, &icon, &isPrivate, &parentID,
	}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	c.Description = description.String
	c.Color = color.String
	c.Icon = icon.String
	c.IsPrivate = isPrivate != 0
	if parentID.Valid {
		c.ParentID = &parentID.String
	}

	return &c, nil
}

func (s *Store) queryCollections(ctx context.Context, query string, args ...any) ([]*domain.Collection, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanCollection)
}

// ListCollections returns every collection a user owns, ordered by name.
func (s *Store) ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error) {
	return s.queryCollections(ctx, `
		SELECT `+collectionColumns+` FROM collections
		WHERE user_id = ?
		ORDER BY unicode_lower(name) ASC, id`, userID)
}

// ListRootCollections returns a user's top-level collections.
func (s *Store) ListRootCollections(ctx context.Context, userID string) ([]*domain.Collection, error) {
	return s.queryCollections(ctx, `
		SELECT `+collectionColumns+` FROM collections
		WHERE user_id = ? AND parent_id IS NULL
		ORDER BY unicode_lower(name) ASC, id`, userID)
}

// ListChildCollections returns the direct children of parentID.
func (s *Store) ListChildCollections(ctx context.Context, userID, parentID string) ([]*domain.Collection, error) {
	return s.queryCollections(ctx, `
		SELECT `+collectionColumns+` FROM collections
		WHERE user_id = ? AND parent_id = ?
		ORDER BY unicode_lower(name) ASC, id`, userID, parentID)
}

// ListCollectionsWithLinkCount returns a user's collections with their direct link counts.
func (s *Store) ListCollectionsWithLinkCount(ctx context.Context, userID string) ([]domain.CollectionWithCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedCollectionColumns+`, COUNT(lc.id)
		FROM collections c
		LEFT JOIN link_collections lc ON lc.collection_id = c.id
		WHERE c.user_id = ?
		GROUP BY c.id
		ORDER BY unicode_lower(c.name) ASC, c.id`, userID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (domain.CollectionWithCount, error) {
		var count int
		c, err := scanCollectionWith(scanner, &count)
		if err != nil {
			return domain.CollectionWithCount{}, err
		}
		return domain.CollectionWithCount{Collection: *c, LinkCount: count}, nil
	})
}

// GetCollection returns one of the user's collections.
func (s *Store) GetCollection(ctx context.Context, userID, collectionID string) (*domain.Collection, error) {
	return getCollection(ctx, s.db, userID, collectionID)
}

func getCollection(ctx context.Context, q querier, userID, collectionID string) (*domain.Collection, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ? AND user_id = ?`, collectionID, userID)

	c, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return c, err
}

// CreateCollection inserts a collection. A parent, when set, must belong to
// the same user; otherwise store.ErrNotFound is returned.
func (s *Store) CreateCollection(ctx context.Context, c *domain.Collection) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if c.ParentID != nil {
			if _, err := getCollection(ctx, tx, c.UserID, *c.ParentID); err != nil {
				return err
			}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO collections (`+collectionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID,
			c.UserID,
			formatTime(c.CreatedAt),
			formatTime(c.UpdatedAt),
			c.Name,
			nullString(c.Description),
			nullString(c.Color),
			nullString(c.Icon),
			boolToInt(c.IsPrivate),
			nullableString(c.ParentID),
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	})
}

// UpdateCollection rewrites a collection's descriptive fields. The parent is
// changed only through MoveCollection.
func (s *Store) UpdateCollection(ctx context.Context, c *domain.Collection) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE collections SET updated_at = ?, name = ?, description = ?, color = ?, icon = ?, is_private = ?
		WHERE id = ? AND user_id = ?`,
		formatTime(c.UpdatedAt),
		c.Name,
		nullString(c.Description),
		nullString(c.Color),
		nullString(c.Icon),
		boolToInt(c.IsPrivate),
		c.ID,
		c.UserID,
	)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteCollection removes a collection together with all of its descendants
// and returns every deleted id, the collection's own id first.
func (s *Store) DeleteCollection(ctx context.Context, userID, collectionID string) ([]string, error) {
	var deleted []string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getCollection(ctx, tx, userID, collectionID); err != nil {
			return err
		}

		ids, err := descendantIDs(ctx, tx, userID, collectionID)
		if err != nil {
			return err
		}
		deleted = append([]string{collectionID}, ids...)

		// Leaves first: associations, then the collection.
		for i := len(deleted) - 1; i >= 0; i-- {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM link_collections WHERE collection_id = ?`, deleted[i],
			); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM collections WHERE id = ? AND user_id = ?`, deleted[i], userID,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// descendantIDs lists every collection below rootID in breadth-first order.
func descendantIDs(ctx context.Context, q querier, userID, rootID string) ([]string, error) {
	var out []string
	queue := []string{rootID}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		rows, err := q.QueryContext(ctx,
			`SELECT id FROM collections WHERE user_id = ? AND parent_id = ? ORDER BY id`, userID, parent)
		if err != nil {
			return nil, err
		}
		children, err := scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (string, error) {
			var childID string
			err := scanner.Scan(&childID)
			return childID, err
		})
		if err != nil {
			return nil, err
		}
		out = append(out, children...)
		queue = append(queue, children...)
	}
	return out, nil
}

// MoveCollection sets a collection's parent; nil makes it a root. Moving a
// collection under itself or any of its descendants returns store.ErrCycle.
func (s *Store) MoveCollection(ctx context.Context, userID, collectionID string, parentID *string) (*domain.Collection, error) {
	var moved *domain.Collection
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getCollection(ctx, tx, userID, collectionID); err != nil {
			return err
		}

		if parentID != nil {
			// Walk up from the new parent; meeting the moved collection means a cycle.
			cursor := *parentID
			for {
				if cursor == collectionID {
					return store.ErrCycle
				}
				ancestor, err := getCollection(ctx, tx, userID, cursor)
				if err != nil {
					return err
				}
				if ancestor.ParentID == nil {
					break
				}
				cursor = *ancestor.ParentID
			}
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE collections SET parent_id = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			nullableString(parentID), formatTime(time.Now()), collectionID, userID,
		); err != nil {
			return err
		}

		var err error
		moved, err = getCollection(ctx, tx, userID, collectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// GetCollectionPath returns the chain of collections from the root down to
// collectionID, inclusive.
func (s *Store) GetCollectionPath(ctx context.Context, userID, collectionID string) ([]*domain.Collection, error) {
	var path []*domain.Collection
	seen := make(map[string]bool)

	cursor := collectionID
	for {
		if seen[cursor] {
			return nil, store.ErrCycle
		}
		seen[cursor] = true

		c, err := getCollection(ctx, s.db, userID, cursor)
		if err != nil {
			return nil, err
		}
		path = append(path, c)
		if c.ParentID == nil {
			break
		}
		cursor = *c.ParentID
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// SearchCollections matches query against collection names and descriptions, ignoring case.
func (s *Store) SearchCollections(ctx context.Context, userID, query string) ([]*domain.Collection, error) {
	pattern := likePattern(query)
	return s.queryCollections(ctx, `
		SELECT `+collectionColumns+` FROM collections
		WHERE user_id = ? AND (
			unicode_lower(name) LIKE ? ESCAPE '\' OR
			unicode_lower(COALESCE(description, '')) LIKE ? ESCAPE '\'
		)
		ORDER BY unicode_lower(name) ASC, id`, userID, pattern, pattern)
}

// AddLinkToCollection files a link under a collection. Adding it twice
// returns the existing association.
func (s *Store) AddLinkToCollection(ctx context.Context, linkID, collectionID string) (*domain.LinkCollection, error) {
	var lc *domain.LinkCollection
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getLinkCollection(ctx, tx, linkID, collectionID)
		if err == nil {
			lc = existing
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		lc = &domain.LinkCollection{
			ID:           id.MustGenerate(id.PrefixLinkColl),
			LinkID:       linkID,
			CollectionID: collectionID,
			CreatedAt:    time.Now().UTC(),
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO link_collections (id, link_id, collection_id, created_at)
			VALUES (?, ?, ?, ?)`,
			lc.ID, lc.LinkID, lc.CollectionID, formatTime(lc.CreatedAt))
		return err
	})
	if err != nil {
		return nil, err
	}
	return lc, nil
}

func getLinkCollection(ctx context.Context, q querier, linkID, collectionID string) (*domain.LinkCollection, error) {
	var (
		lc        domain.LinkCollection
		createdAt string
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, link_id, collection_id, created_at FROM link_collections WHERE link_id = ? AND collection_id = ?`,
		linkID, collectionID,
	).Scan(&lc.ID, &lc.LinkID, &lc.CollectionID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lc.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &lc, nil
}

// RemoveLinkFromCollection takes a link out of a collection.
func (s *Store) RemoveLinkFromCollection(ctx context.Context, linkID, collectionID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM link_collections WHERE link_id = ? AND collection_id = ?`, linkID, collectionID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListCollectionLinks returns the links filed directly under a collection, newest first.
func (s *Store) ListCollectionLinks(ctx context.Context, userID, collectionID string, params store.ListParams) ([]*domain.Link, error) {
	params.Normalize(store.DefaultLimit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixedLinkColumns+`
		FROM link_collections lc
		JOIN links l ON l.id = lc.link_id
		WHERE lc.collection_id = ? AND l.user_id = ?
		ORDER BY l.created_at DESC, l.id
		LIMIT ? OFFSET ?`, collectionID, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanLink)
}

// ListCollectionsForLink returns the user's collections that contain a link.
func (s *Store) ListCollectionsForLink(ctx context.Context, userID, linkID string) ([]*domain.Collection, error) {
	return s.queryCollections(ctx, `
		SELECT `+prefixedCollectionColumns+`
		FROM link_collections lc
		JOIN collections c ON c.id = lc.collection_id
		WHERE lc.link_id = ? AND c.user_id = ?
		ORDER BY unicode_lower(c.name) ASC, c.id`, linkID, userID)
}
