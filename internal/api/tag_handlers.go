package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pabliki/pabliki-server/internal/api/dto"
	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/service"
	"github.com/pabliki/pabliki-server/internal/store"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns the user's tags, optionally with link counts, AI tags only, or filtered by name",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTag",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags",
		Summary:       "Create tag",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID:   "batchCreateTags",
		Method:        http.MethodPost,
		Path:          "/api/v1/tags/batch",
		Summary:       "Create tags in bulk",
		Description:   "Creates a tag per name, reusing existing ones. Tags are AI generated unless stated otherwise",
		Tags:          []string{"Tags"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleBatchCreateTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Update tag",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Delete tag",
		Description: "Removes the tag from every link, then deletes it",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTagLinks",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}/links",
		Summary:     "Get tag links",
		Description: "Returns the links carrying this tag, newest first",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTagLinks)
}

// === DTOs ===

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	WithCounts bool   `query:"with_counts" doc:"Include the number of links per tag"`
	AIOnly     bool   `query:"ai_only" doc:"Only AI generated tags"`
	Query      string `query:"q" doc:"Substring filter on the tag name"`
}

// CreateTagInput wraps the create tag request for huma.
type CreateTagInput struct {
	Body service.CreateTagRequest
}

// BatchCreateTagsInput wraps the batch create request for huma.
type BatchCreateTagsInput struct {
	Body service.BatchCreateTagsRequest
}

// UpdateTagInput wraps the update tag request for huma.
type UpdateTagInput struct {
	ID   string `path:"id" doc:"Tag ID"`
	Body service.UpdateTagRequest
}

// GetTagLinksInput contains parameters for getting tag links.
type GetTagLinksInput struct {
	ID string `path:"id" doc:"Tag ID"`
	dto.PaginationParams
}

// === Handlers ===

// handleListTags returns []*domain.Tag, or []domain.TagWithCount when counts
// are requested.
func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*dto.Output[any], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	var tags any
	switch {
	case input.WithCounts:
		tags, err = s.services.Tag.ListWithCounts(ctx, userID)
	case input.AIOnly:
		tags, err = s.services.Tag.ListAIGenerated(ctx, userID)
	case input.Query != "":
		tags, err = s.services.Tag.Search(ctx, userID, input.Query)
	default:
		tags, err = s.services.Tag.List(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &dto.Output[any]{Body: tags}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*dto.Output[*domain.Tag], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	tag, err := s.services.Tag.Create(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Tag]{Body: tag}, nil
}

func (s *Server) handleBatchCreateTags(ctx context.Context, input *BatchCreateTagsInput) (*dto.Output[[]*domain.Tag], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.services.Tag.BatchCreate(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[[]*domain.Tag]{Body: tags}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Tag], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	tag, err := s.services.Tag.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Tag]{Body: tag}, nil
}

func (s *Server) handleUpdateTag(ctx context.Context, input *UpdateTagInput) (*dto.Output[*domain.Tag], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	tag, err := s.services.Tag.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Tag]{Body: tag}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *dto.IDParam) (*dto.MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Tag.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return dto.Message("tag deleted"), nil
}

func (s *Server) handleGetTagLinks(ctx context.Context, input *GetTagLinksInput) (*dto.Output[dto.ListResponse[*domain.Link]], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	params := input.ListParams()
	params.Normalize(store.DefaultLimit)
	links, err := s.services.Tag.LinksForTag(ctx, userID, input.ID, params)
	if err != nil {
		return nil, err
	}
	return &dto.Output[dto.ListResponse[*domain.Link]]{Body: dto.NewList(links, params)}, nil
}
