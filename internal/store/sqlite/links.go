package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/store"
)

// linkColumnList must match the scan order in scanLink.
var linkColumnList = []string{
	"id", "user_id", "created_at", "updated_at", "url", "title", "description", "content",
	"image", "favicon", "site_name", "is_archived", "is_favorite", "reading_time",
	"last_visited", "metadata",
}

var (
	linkColumns         = strings.Join(linkColumnList, ", ")
	prefixedLinkColumns = prefixColumns("l", linkColumnList)
)

func prefixColumns(alias string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}

// linkSortColumns maps accepted sort fields to SQL expressions.
var linkSortColumns = map[string]string{
	store.SortCreatedAt: "created_at",
	store.SortUpdatedAt: "updated_at",
	store.SortTitle:     "unicode_lower(title)",
}

func scanLink(scanner interface{ Scan(dest ...any) error }) (*domain.Link, error) {
	var (
		l           domain.Link
		createdAt   string
		updatedAt   string
		description sql.NullString
		content     sql.NullString
		image       sql.NullString
		favicon     sql.NullString
		siteName    sql.NullString
		isArchived  int
		isFavorite  int
		lastVisited sql.NullString
		metadata    sql.NullString
	)

	err := scanner.Scan(
		&l.ID, &l.UserID, &createdAt, &updatedAt, &l.URL, &l.Title,
		&description, &content, &image, &favicon, &siteName,
		&isArchived, &isFavorite, &l.ReadingTime, &lastVisited, &metadata,
	)
	if err != nil {
		return nil, err
	}

	if l.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if l.LastVisited, err = parseNullableTime(lastVisited); err != nil {
		return nil, err
	}
	if l.Metadata, err = decodeJSON(metadata); err != nil {
		return nil, err
	}

	l.Description = description.String
	l.Content = content.String
	l.Image = image.String
	l.Favicon = favicon.String
	l.SiteName = siteName.String
	l.IsArchived = isArchived != 0
	l.IsFavorite = isFavorite != 0

	return &l, nil
}

func getLink(ctx context.Context, q querier, userID, linkID string) (*domain.Link, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = ? AND user_id = ?`, linkID, userID)

	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return l, err
}

// ListLinks returns one page of a user's links.
func (s *Store) ListLinks(ctx context.Context, userID string, params store.LinkListParams) (*store.Page[*domain.Link], error) {
	params.Normalize()

	conds := squirrel.And{squirrel.Eq{"user_id": userID}}
	if params.IsArchived != nil {
		conds = append(conds, squirrel.Eq{"is_archived": boolToInt(*params.IsArchived)})
	}
	if params.IsFavorite != nil {
		conds = append(conds, squirrel.Eq{"is_favorite": boolToInt(*params.IsFavorite)})
	}

	order := linkSortColumns[params.SortBy] + " " + strings.ToUpper(params.SortDirection)
	query := s.sq.Select(linkColumnList...).From("links").Where(conds).
		OrderBy(order, "id").
		Limit(uint64(params.Limit)).
		Offset(uint64(params.Offset))

	return s.pageOfLinks(ctx, query, s.sq.Select("COUNT(*)").From("links").Where(conds), params.ListParams)
}

func (s *Store) pageOfLinks(ctx context.Context, query, count squirrel.SelectBuilder, params store.ListParams) (*store.Page[*domain.Link], error) {
	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	querySQL, queryArgs, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build link query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, querySQL, queryArgs...)
	if err != nil {
		return nil, err
	}
	items, err := scanAll(rows, scanLink)
	if err != nil {
		return nil, err
	}

	return &store.Page[*domain.Link]{Items: items, Total: total, Limit: params.Limit, Offset: params.Offset}, nil
}

// GetLink returns a user's link, joined with the requested relations.
func (s *Store) GetLink(ctx context.Context, userID, linkID string, rel store.LinkRelations) (*domain.LinkWithRelations, error) {
	l, err := getLink(ctx, s.db, userID, linkID)
	if err != nil {
		return nil, err
	}

	out := &domain.LinkWithRelations{Link: *l}
	if rel.Tags {
		if out.Tags, err = s.ListTagsForLink(ctx, linkID); err != nil {
			return nil, err
		}
	}
	if rel.Collections {
		cols, err := s.ListCollectionsForLink(ctx, userID, linkID)
		if err != nil {
			return nil, err
		}
		out.Collections = make([]domain.Collection, len(cols))
		for i, c := range cols {
			out.Collections[i] = *c
		}
	}
	if rel.Notes {
		notes, err := s.ListNotesForLink(ctx, linkID)
		if err != nil {
			return nil, err
		}
		out.Notes = make([]domain.Note, len(notes))
		for i, n := range notes {
			out.Notes[i] = *n
		}
	}
	return out, nil
}

// GetLinkByURL returns the user's link saved under url.
func (s *Store) GetLinkByURL(ctx context.Context, userID, url string) (*domain.Link, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+linkColumns+` FROM links WHERE user_id = ? AND url = ?`, userID, url)

	l, err := scanLink(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return l, err
}

// CreateLink inserts a link and attaches the given tags and collections in one
// transaction. Ids that do not belong to the link's owner are skipped.
// Returns store.ErrAlreadyExists when the user already saved the URL.
func (s *Store) CreateLink(ctx context.Context, link *domain.Link, tagIDs, collectionIDs []string) error {
	metadata, err := encodeJSON(link.Metadata)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO links (`+linkColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			link.ID,
			link.UserID,
			formatTime(link.CreatedAt),
			formatTime(link.UpdatedAt),
			link.URL,
			link.Title,
			nullString(link.Description),
			nullString(link.Content),
			nullString(link.Image),
			nullString(link.Favicon),
			nullString(link.SiteName),
			boolToInt(link.IsArchived),
			boolToInt(link.IsFavorite),
			link.ReadingTime,
			nullTimeString(link.LastVisited),
			metadata,
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if err != nil {
			return err
		}

		now := formatTime(link.CreatedAt)
		for _, tagID := range dedupe(tagIDs) {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO link_tags (id, link_id, tag_id, confidence, created_at)
				SELECT ?, ?, id, NULL, ? FROM tags WHERE id = ? AND user_id = ?`,
				id.MustGenerate(id.PrefixLinkTag), link.ID, now, tagID, link.UserID,
			); err != nil {
				return fmt.Errorf("attach tag %s: %w", tagID, err)
			}
		}
		for _, collectionID := range dedupe(collectionIDs) {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO link_collections (id, link_id, collection_id, created_at)
				SELECT ?, ?, id, ? FROM collections WHERE id = ? AND user_id = ?`,
				id.MustGenerate(id.PrefixLinkColl), link.ID, now, collectionID, link.UserID,
			); err != nil {
				return fmt.Errorf("attach collection %s: %w", collectionID, err)
			}
		}
		return nil
	})
}

// UpdateLink rewrites every mutable field of a link.
func (s *Store) UpdateLink(ctx context.Context, link *domain.Link) error {
	metadata, err := encodeJSON(link.Metadata)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE links SET
			updated_at = ?,
			url = ?,
			title = ?,
			description = ?,
			content = ?,
			image = ?,
			favicon = ?,
			site_name = ?,
			is_archived = ?,
			is_favorite = ?,
			reading_time = ?,
			last_visited = ?,
			metadata = ?
		WHERE id = ? AND user_id = ?`,
		formatTime(link.UpdatedAt),
		link.URL,
		link.Title,
		nullString(link.Description),
		nullString(link.Content),
		nullString(link.Image),
		nullString(link.Favicon),
		nullString(link.SiteName),
		boolToInt(link.IsArchived),
		boolToInt(link.IsFavorite),
		link.ReadingTime,
		nullTimeString(link.LastVisited),
		metadata,
		link.ID,
		link.UserID,
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ToggleLinkFavorite flips is_favorite and returns the updated link.
func (s *Store) ToggleLinkFavorite(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	return s.toggleLinkFlag(ctx, userID, linkID, "is_favorite")
}

// ToggleLinkArchive flips is_archived and returns the updated link.
func (s *Store) ToggleLinkArchive(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	return s.toggleLinkFlag(ctx, userID, linkID, "is_archived")
}

// toggleLinkFlag reads the link, then writes the negated flag. Both steps share
// a transaction so concurrent toggles serialize on SQLite's write lock.
func (s *Store) toggleLinkFlag(ctx context.Context, userID, linkID, column string) (*domain.Link, error) {
	var updated *domain.Link
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getLink(ctx, tx, userID, linkID)
		if err != nil {
			return err
		}

		next := !current.IsFavorite
		if column == "is_archived" {
			next = !current.IsArchived
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE links SET `+column+` = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			boolToInt(next), formatTime(time.Now()), linkID, userID,
		); err != nil {
			return err
		}

		updated, err = getLink(ctx, tx, userID, linkID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteLink deletes a user's link. Tag, collection and note rows go with it.
func (s *Store) DeleteLink(ctx context.Context, userID, linkID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE id = ? AND user_id = ?`, linkID, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// SearchLinks matches Query as a case-insensitive substring of title,
// description or URL, newest first.
func (s *Store) SearchLinks(ctx context.Context, userID string, params store.LinkSearchParams) (*store.Page[*domain.Link], error) {
	params.ListParams.Normalize(store.DefaultLimit)

	conds := squirrel.And{squirrel.Eq{"user_id": userID}}
	if !params.IncludeArchived {
		conds = append(conds, squirrel.Eq{"is_archived": 0})
	}
	if q := strings.TrimSpace(params.Query); q != "" {
		pattern := likePattern(q)
		conds = append(conds, squirrel.Or{
			squirrel.Expr(`unicode_lower(title) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`unicode_lower(COALESCE(description, '')) LIKE ? ESCAPE '\'`, pattern),
			squirrel.Expr(`unicode_lower(url) LIKE ? ESCAPE '\'`, pattern),
		})
	}

	if tagIDs := dedupe(params.TagIDs); len(tagIDs) > 0 {
		cond, err := s.allOf("link_tags", "tag_id", tagIDs)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}
	if collectionIDs := dedupe(params.CollectionIDs); len(collectionIDs) > 0 {
		cond, err := s.allOf("link_collections", "collection_id", collectionIDs)
		if err != nil {
			return nil, err
		}
		conds = append(conds, cond)
	}

	query := s.sq.Select(linkColumnList...).From("links").Where(conds).
		OrderBy("created_at DESC", "id").
		Limit(uint64(params.Limit)).
		Offset(uint64(params.Offset))

	return s.pageOfLinks(ctx, query, s.sq.Select("COUNT(*)").From("links").Where(conds), params.ListParams)
}

// allOf restricts links to those associated with every id in ids through the join table.
func (s *Store) allOf(table, column string, ids []string) (squirrel.Sqlizer, error) {
	sub, args, err := s.sq.Select("link_id").From(table).
		Where(squirrel.Eq{column: ids}).
		GroupBy("link_id").
		Having("COUNT(DISTINCT "+column+") = ?", len(ids)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s filter: %w", table, err)
	}
	return squirrel.Expr("id IN ("+sub+")", args...), nil
}

// GetLinksByIDs returns the user's links with the given ids, in the order of ids.
// Unknown or foreign ids are skipped.
func (s *Store) GetLinksByIDs(ctx context.Context, userID string, ids []string) ([]*domain.Link, error) {
	if len(ids) == 0 {
		return []*domain.Link{}, nil
	}

	querySQL, args, err := s.sq.Select(linkColumnList...).From("links").
		Where(squirrel.Eq{"user_id": userID, "id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build link query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, err
	}
	links, err := scanAll(rows, scanLink)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Link, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}
	ordered := make([]*domain.Link, 0, len(links))
	for _, linkID := range ids {
		if l, ok := byID[linkID]; ok {
			ordered = append(ordered, l)
			delete(byID, linkID)
		}
	}
	return ordered, nil
}

// GetLinkStats counts a user's links, favorites, archived links, tags, collections and notes.
func (s *Store) GetLinkStats(ctx context.Context, userID string) (*domain.LinkStats, error) {
	var stats domain.LinkStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM links WHERE user_id = ?),
			(SELECT COUNT(*) FROM links WHERE user_id = ? AND is_favorite = 1),
			(SELECT COUNT(*) FROM links WHERE user_id = ? AND is_archived = 1),
			(SELECT COUNT(*) FROM tags WHERE user_id = ?),
			(SELECT COUNT(*) FROM collections WHERE user_id = ?),
			(SELECT COUNT(*) FROM notes WHERE user_id = ?)`,
		userID, userID, userID, userID, userID, userID,
	).Scan(&stats.Total, &stats.Favorites, &stats.Archived, &stats.Tags, &stats.Collections, &stats.Notes)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// TouchLinkVisited records when the user last opened a link.
func (s *Store) TouchLinkVisited(ctx context.Context, userID, linkID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE links SET last_visited = ? WHERE id = ? AND user_id = ?`,
		formatTime(at), linkID, userID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// AllLinks iterates over every link of every user. Used to rebuild the search index.
func (s *Store) AllLinks(ctx context.Context) iter.Seq2[*domain.Link, error] {
	return func(yield func(*domain.Link, error) bool) {
		rows, err := s.db.QueryContext(ctx, `SELECT `+linkColumns+` FROM links ORDER BY created_at`)
		if err != nil {
			yield(nil, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			l, err := scanLink(rows)
			if !yield(l, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// dedupe drops empty and repeated ids, keeping first occurrences in order.
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
