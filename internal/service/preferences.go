package service

import (
	"context"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// PreferencesService reads and writes per-user view preferences.
type PreferencesService struct {
	store     store.PreferencesStore
	validator *validation.Validator
}

// NewPreferencesService creates a new preferences service.
func NewPreferencesService(store store.PreferencesStore, validator *validation.Validator) *PreferencesService {
	return &PreferencesService{store: store, validator: validator}
}

// UpdatePreferencesRequest changes view preferences. Nil fields are left alone.
type UpdatePreferencesRequest struct {
	ViewMode      *string `json:"view_mode,omitempty" validate:"omitnil,oneof=grid list compact"`
	SortBy        *string `json:"sort_by,omitempty" validate:"omitnil,oneof=createdAt updatedAt title"`
	SortDirection *string `json:"sort_direction,omitempty" validate:"omitnil,oneof=asc desc"`
	Theme         *string `json:"theme,omitempty" validate:"omitnil,oneof=light dark system"`
}

// Get returns the user's preferences, or the defaults if none were saved.
func (s *PreferencesService) Get(ctx context.Context, userID string) (*domain.ViewPreferences, error) {
	prefs, err := s.store.GetViewPreferences(ctx, userID)
	return prefs, translate(err, "preferences")
}

// Update applies the request on top of the current preferences.
func (s *PreferencesService) Update(ctx context.Context, userID string, req UpdatePreferencesRequest) (*domain.ViewPreferences, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.ViewMode != nil {
		prefs.ViewMode = *req.ViewMode
	}
	if req.SortBy != nil {
		prefs.SortBy = *req.SortBy
	}
	if req.SortDirection != nil {
		prefs.SortDirection = *req.SortDirection
	}
	if req.Theme != nil {
		prefs.Theme = *req.Theme
	}
	prefs.UpdatedAt = time.Now().UTC()
	if err := s.store.SaveViewPreferences(ctx, prefs); err != nil {
		return nil, translate(err, "preferences")
	}
	return prefs, nil
}
