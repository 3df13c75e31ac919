package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pabliki/pabliki-server/internal/api/dto"
	"github.com/pabliki/pabliki-server/internal/domain"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/service"
	"github.com/pabliki/pabliki-server/internal/store"
)

func (s *Server) registerActivityRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "listActivity",
		Method:      http.MethodGet,
		Path:        "/api/v1/activity",
		Summary:     "List activity",
		Description: "Returns the user's activity log, newest first",
		Tags:        []string{"Activity"},
		Security:    bearer,
	}, s.handleListActivity)

	huma.Register(s.api, huma.Operation{
		OperationID: "activityFrequency",
		Method:      http.MethodGet,
		Path:        "/api/v1/activity/frequency",
		Summary:     "Activity frequency",
		Description: "Counts actions per type per day",
		Tags:        []string{"Activity"},
		Security:    bearer,
	}, s.handleActivityFrequency)
}

// ListActivityInput filters the activity log.
type ListActivityInput struct {
	dto.PaginationParams
	Type  string `query:"type" doc:"Action type, e.g. save_link"`
	Since string `query:"since" doc:"RFC 3339 lower bound (inclusive)"`
	Until string `query:"until" doc:"RFC 3339 upper bound (exclusive)"`
}

// ActivityFrequencyInput selects the frequency window.
type ActivityFrequencyInput struct {
	Days int `query:"days" minimum:"0" maximum:"366" doc:"Window in days (default 30)"`
}

func parseTimeParam(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domainerrors.FieldError(field, "must be an RFC 3339 timestamp")
	}
	return &t, nil
}

func (s *Server) handleListActivity(ctx context.Context, input *ListActivityInput) (*dto.Output[dto.ListResponse[*domain.Activity]], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	since, err := parseTimeParam("since", input.Since)
	if err != nil {
		return nil, err
	}
	until, err := parseTimeParam("until", input.Until)
	if err != nil {
		return nil, err
	}
	params := input.ListParams()
	params.Normalize(store.DefaultLimit)

	activities, err := s.services.Activity.List(ctx, userID, service.ActivityQuery{
		Type:   domain.ActionType(input.Type),
		Since:  since,
		Until:  until,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &dto.Output[dto.ListResponse[*domain.Activity]]{Body: dto.NewList(activities, params)}, nil
}

func (s *Server) handleActivityFrequency(ctx context.Context, input *ActivityFrequencyInput) (*dto.Output[[]domain.ActivityFrequency], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	freq, err := s.services.Activity.Frequency(ctx, userID, input.Days)
	if err != nil {
		return nil, err
	}
	if freq == nil {
		freq = []domain.ActivityFrequency{}
	}
	return &dto.Output[[]domain.ActivityFrequency]{Body: freq}, nil
}
