package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/store"
)

// activityColumnList must match the scan order in scanActivity.
var activityColumnList = []string{"id", "user_id", "action_type", "entity_id", "metadata", "created_at"}

// DefaultFrequencyDays is the window ActivityFrequency covers when days is not positive.
const DefaultFrequencyDays = 30

func scanActivityWith(scanner interface{ Scan(dest ...any) error }, extra ...any) (*domain.Activity, error) {
	var (
		a          domain.Activity
		actionType string
		entityID   sql.NullString
		metadata   sql.NullString
		createdAt  string
	)

	dest := append([]any{&a.ID, &a.UserID, &actionType, &entityID, &metadata, &createdAt}, extra...)
	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if a.Metadata, err = decodeJSON(metadata); err != nil {
		return nil, err
	}
	a.ActionType = domain.ActionType(actionType)
	a.EntityID = entityID.String

	return &a, nil
}

func scanActivity(scanner interface{ Scan(dest ...any) error }) (*domain.Activity, error) {
	return scanActivityWith(scanner)
}

// LogActivity appends an entry to the activity log.
func (s *Store) LogActivity(ctx context.Context, a *domain.Activity) error {
	metadata, err := encodeJSON(a.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, user_id, action_type, entity_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID,
		a.UserID,
		string(a.ActionType),
		nullString(a.EntityID),
		metadata,
		formatTime(a.CreatedAt),
	)
	return err
}

// ListActivities returns a user's activity, newest first, narrowed by filter.
func (s *Store) ListActivities(ctx context.Context, userID string, filter store.ActivityFilter) ([]*domain.Activity, error) {
	filter.ListParams.Normalize(store.DefaultLimit)

	conds := squirrel.And{squirrel.Eq{"user_id": userID}}
	if filter.ActionType != "" {
		conds = append(conds, squirrel.Eq{"action_type": string(filter.ActionType)})
	}
	if filter.Since != nil {
		conds = append(conds, squirrel.GtOrEq{"created_at": formatTime(*filter.Since)})
	}
	if filter.Until != nil {
		conds = append(conds, squirrel.Lt{"created_at": formatTime(*filter.Until)})
	}

	querySQL, args, err := s.sq.Select(activityColumnList...).From("activity_log").
		Where(conds).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build activity query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanActivity)
}

// ListEntityActivities returns every recorded action on one entity, newest
// first, joined with the acting user.
func (s *Store) ListEntityActivities(ctx context.Context, entityID string, params store.ListParams) ([]*domain.ActivityWithUser, error) {
	params.Normalize(store.DefaultLimit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixColumns("a", activityColumnList)+`, u.name, u.email
		FROM activity_log a
		JOIN users u ON u.id = a.user_id
		WHERE a.entity_id = ?
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?`, entityID, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (*domain.ActivityWithUser, error) {
		var out domain.ActivityWithUser
		a, err := scanActivityWith(scanner, &out.UserName, &out.UserEmail)
		if err != nil {
			return nil, err
		}
		out.Activity = *a
		return &out, nil
	})
}

// DeleteActivitiesBefore prunes entries older than before and returns the count removed.
func (s *Store) DeleteActivitiesBefore(ctx context.Context, before time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM activity_log WHERE created_at < ?`, formatTime(before))
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// ActivityFrequency counts a user's actions per type per UTC day over the last days days.
func (s *Store) ActivityFrequency(ctx context.Context, userID string, days int) ([]domain.ActivityFrequency, error) {
	if days <= 0 {
		days = DefaultFrequencyDays
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	rows, err := s.db.QueryContext(ctx, `
		SELECT action_type, substr(created_at, 1, 10) AS day, COUNT(*)
		FROM activity_log
		WHERE user_id = ? AND created_at >= ?
		GROUP BY action_type, day
		ORDER BY day ASC, action_type ASC`, userID, formatTime(since))
	if err != nil {
		return nil, err
	}
	return scanAll(rows, func(scanner interface{ Scan(dest ...any) error }) (domain.ActivityFrequency, error) {
		var (
			f          domain.ActivityFrequency
			actionType string
		)
		err := scanner.Scan(&actionType, &f.Day, &f.Count)
		f.ActionType = domain.ActionType(actionType)
		return f, err
	})
}
