package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/store/sqlite"
)

// ActivityService records and reads the per-user activity log.
type ActivityService struct {
	store  store.ActivityStore
	logger *slog.Logger
}

// NewActivityService creates a new activity service.
func NewActivityService(store store.ActivityStore, logger *slog.Logger) *ActivityService {
	return &ActivityService{store: store, logger: logger}
}

// Log appends an activity. Failures are logged, never returned: losing an
// audit entry must not fail the action it describes.
func (s *ActivityService) Log(ctx context.Context, userID string, action domain.ActionType, entityID string, metadata map[string]any) {
	activityID, err := id.Generate(id.PrefixActivity)
	if err != nil {
		s.logger.Error("generate activity id", "error", err)
		return
	}
	a := &domain.Activity{
		ID:         activityID,
		UserID:     userID,
		ActionType: action,
		EntityID:   entityID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}
	// The request may already be finished when side effects run.
	if err := s.store.LogActivity(context.WithoutCancel(ctx), a); err != nil {
		s.logger.Warn("failed to log activity",
			"user_id", userID,
			"action", action,
			"entity_id", entityID,
			"error", err,
		)
	}
}

// ActivityQuery filters a listing. Type must be a known action when set.
type ActivityQuery struct {
	Type   domain.ActionType
	Since  *time.Time
	Until  *time.Time
	Limit  int
	Offset int
}

// List returns the user's activities, newest first.
func (s *ActivityService) List(ctx context.Context, userID string, q ActivityQuery) ([]*domain.Activity, error) {
	if q.Type != "" && !q.Type.Valid() {
		return nil, domainerrors.FieldError("type", "unknown activity type")
	}
	if q.Since != nil && q.Until != nil && !q.Since.Before(*q.Until) {
		return nil, domainerrors.FieldError("since", "must be before until")
	}
	filter := store.ActivityFilter{
		ListParams: store.ListParams{Limit: q.Limit, Offset: q.Offset},
		ActionType: q.Type,
		Since:      q.Since,
		Until:      q.Until,
	}
	activities, err := s.store.ListActivities(ctx, userID, filter)
	return activities, translate(err, "activity")
}

// ForEntity returns the activity recorded against one of the user's entities.
// Callers check ownership of the entity first.
func (s *ActivityService) ForEntity(ctx context.Context, entityID string, params store.ListParams) ([]*domain.ActivityWithUser, error) {
	activities, err := s.store.ListEntityActivities(ctx, entityID, params)
	return activities, translate(err, "activity")
}

// Frequency counts actions per type per day over the last days days
// (sqlite.DefaultFrequencyDays when days is not positive, at most a year).
func (s *ActivityService) Frequency(ctx context.Context, userID string, days int) ([]domain.ActivityFrequency, error) {
	if days <= 0 {
		days = sqlite.DefaultFrequencyDays
	}
	days = min(days, 366)
	freq, err := s.store.ActivityFrequency(ctx, userID, days)
	return freq, translate(err, "activity")
}

// Purge deletes activities older than retention. A non-positive retention
// keeps everything.
func (s *ActivityService) Purge(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	n, err := s.store.DeleteActivitiesBefore(ctx, time.Now().UTC().Add(-retention))
	if err != nil {
		return 0, translate(err, "activity")
	}
	if n > 0 {
		s.logger.Info("purged old activity", "count", n, "retention", retention)
	}
	return n, nil
}
