package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pabliki/pabliki-server/internal/api/dto"
	"github.com/pabliki/pabliki-server/internal/domain"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/service"
	"github.com/pabliki/pabliki-server/internal/store"
)

func (s *Server) registerLinkRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}
	op := func(id, method, path, summary string) huma.Operation {
		return huma.Operation{
			OperationID: id,
			Method:      method,
			Path:        path,
			Summary:     summary,
			Tags:        []string{"Links"},
			Security:    bearer,
		}
	}
	created := func(o huma.Operation) huma.Operation {
		o.DefaultStatus = http.StatusCreated
		return o
	}

	huma.Register(s.api, op("listLinks", http.MethodGet, "/api/v1/links", "List links"), s.handleListLinks)
	huma.Register(s.api, created(op("createLink", http.MethodPost, "/api/v1/links", "Save link")), s.handleCreateLink)
	huma.Register(s.api, op("lookupLink", http.MethodGet, "/api/v1/links/lookup", "Find link by URL"), s.handleLookupLink)
	huma.Register(s.api, op("getLink", http.MethodGet, "/api/v1/links/{id}", "Get link"), s.handleGetLink)
	huma.Register(s.api, op("updateLink", http.MethodPatch, "/api/v1/links/{id}", "Update link"), s.handleUpdateLink)
	huma.Register(s.api, op("deleteLink", http.MethodDelete, "/api/v1/links/{id}", "Delete link"), s.handleDeleteLink)
	huma.Register(s.api, op("toggleFavorite", http.MethodPost, "/api/v1/links/{id}/favorite", "Toggle favorite"), s.handleToggleFavorite)
	huma.Register(s.api, op("toggleArchive", http.MethodPost, "/api/v1/links/{id}/archive", "Toggle archive"), s.handleToggleArchive)
	huma.Register(s.api, op("visitLink", http.MethodPost, "/api/v1/links/{id}/visit", "Record visit"), s.handleVisitLink)
	huma.Register(s.api, op("refreshPreview", http.MethodPost, "/api/v1/links/{id}/preview", "Refetch preview"), s.handleRefreshPreview)
	huma.Register(s.api, op("listLinkTags", http.MethodGet, "/api/v1/links/{id}/tags", "List link tags"), s.handleListLinkTags)
	huma.Register(s.api, op("attachTag", http.MethodPost, "/api/v1/links/{id}/tags", "Attach tag"), s.handleAttachTag)
	huma.Register(s.api, op("detachTag", http.MethodDelete, "/api/v1/links/{id}/tags/{tagId}", "Detach tag"), s.handleDetachTag)
	huma.Register(s.api, op("listLinkCollections", http.MethodGet, "/api/v1/links/{id}/collections", "List link collections"), s.handleListLinkCollections)
	huma.Register(s.api, op("listLinkNotes", http.MethodGet, "/api/v1/links/{id}/notes", "List link notes"), s.handleListLinkNotes)
	huma.Register(s.api, created(op("createNote", http.MethodPost, "/api/v1/links/{id}/notes", "Add note")), s.handleCreateNote)
	huma.Register(s.api, op("listLinkActivity", http.MethodGet, "/api/v1/links/{id}/activity", "Link activity"), s.handleLinkActivity)
}

// === DTOs ===

// ListLinksInput contains parameters for listing links.
type ListLinksInput struct {
	dto.PaginationParams
	SortBy        string `query:"sort_by" doc:"createdAt, updatedAt, title or lastVisitedAt"`
	SortDirection string `query:"sort_direction" doc:"asc or desc"`
	Archived      string `query:"archived" enum:"true,false" doc:"Filter by archived state"`
	Favorite      string `query:"favorite" enum:"true,false" doc:"Filter by favorite state"`
}

// LookupLinkInput finds a link by URL.
type LookupLinkInput struct {
	URL string `query:"url" doc:"URL as saved, normalized before lookup"`
}

// GetLinkInput contains parameters for getting a link.
type GetLinkInput struct {
	ID      string `path:"id" doc:"Link ID"`
	Include string `query:"include" doc:"Comma separated relations: tags, collections, notes"`
}

// CreateLinkInput wraps the create link request for huma.
type CreateLinkInput struct {
	Body service.CreateLinkRequest
}

// UpdateLinkInput wraps the update link request for huma.
type UpdateLinkInput struct {
	ID   string `path:"id" doc:"Link ID"`
	Body service.UpdateLinkRequest
}

// AttachTagInput wraps the attach tag request for huma.
type AttachTagInput struct {
	ID   string `path:"id" doc:"Link ID"`
	Body service.AttachTagRequest
}

// LinkTagResponse is a tag attached to a link.
type LinkTagResponse struct {
	LinkTag *domain.LinkTag `json:"link_tag" doc:"Association"`
	Tag     *domain.Tag     `json:"tag" doc:"Attached tag"`
}

// DetachTagInput identifies a link tag association.
type DetachTagInput struct {
	ID    string `path:"id" doc:"Link ID"`
	TagID string `path:"tagId" doc:"Tag ID"`
}

// CreateNoteInput wraps the create note request for huma.
type CreateNoteInput struct {
	ID   string `path:"id" doc:"Link ID"`
	Body service.NoteRequest
}

// LinkActivityInput pages a link's activity.
type LinkActivityInput struct {
	ID string `path:"id" doc:"Link ID"`
	dto.PaginationParams
}

// === Handlers ===

func parseBoolFilter(field, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domainerrors.FieldError(field, "must be true or false")
	}
	return &v, nil
}

func parseInclude(raw string) store.LinkRelations {
	var rel store.LinkRelations
	for part := range strings.SplitSeq(raw, ",") {
		switch strings.TrimSpace(strings.ToLower(part)) {
		case "tags":
			rel.Tags = true
		case "collections":
			rel.Collections = true
		case "notes":
			rel.Notes = true
		}
	}
	return rel
}

func (s *Server) handleListLinks(ctx context.Context, input *ListLinksInput) (*dto.Output[*store.Page[*domain.Link]], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	archived, err := parseBoolFilter("archived", input.Archived)
	if err != nil {
		return nil, err
	}
	favorite, err := parseBoolFilter("favorite", input.Favorite)
	if err != nil {
		return nil, err
	}
	page, err := s.services.Link.List(ctx, userID, store.LinkListParams{
		ListParams:    input.ListParams(),
		SortBy:        input.SortBy,
		SortDirection: input.SortDirection,
		IsArchived:    archived,
		IsFavorite:    favorite,
	})
	if err != nil {
		return nil, err
	}
	return &dto.Output[*store.Page[*domain.Link]]{Body: page}, nil
}

func (s *Server) handleCreateLink(ctx context.Context, input *CreateLinkInput) (*dto.Output[*domain.LinkWithRelations], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	link, err := s.services.Link.Create(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.LinkWithRelations]{Body: link}, nil
}

func (s *Server) handleLookupLink(ctx context.Context, input *LookupLinkInput) (*dto.Output[*domain.Link], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	link, err := s.services.Link.GetByURL(ctx, userID, input.URL)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Link]{Body: link}, nil
}

func (s *Server) handleGetLink(ctx context.Context, input *GetLinkInput) (*dto.Output[*domain.LinkWithRelations], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	link, err := s.services.Link.Get(ctx, userID, input.ID, parseInclude(input.Include))
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.LinkWithRelations]{Body: link}, nil
}

func (s *Server) handleUpdateLink(ctx context.Context, input *UpdateLinkInput) (*dto.Output[*domain.Link], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	link, err := s.services.Link.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Link]{Body: link}, nil
}

func (s *Server) handleDeleteLink(ctx context.Context, input *dto.IDParam) (*dto.MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Link.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return dto.Message("link deleted"), nil
}

// linkAction adapts a per-link service call into a handler.
func (s *Server) linkAction(fn func(ctx context.Context, userID, linkID string) (*domain.Link, error)) func(context.Context, *dto.IDParam) (*dto.Output[*domain.Link], error) {
	return func(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Link], error) {
		userID, err := GetUserID(ctx)
		if err != nil {
			return nil, err
		}
		link, err := fn(ctx, userID, input.ID)
		if err != nil {
			return nil, err
		}
		return &dto.Output[*domain.Link]{Body: link}, nil
	}
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Link], error) {
	return s.linkAction(s.services.Link.ToggleFavorite)(ctx, input)
}

func (s *Server) handleToggleArchive(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Link], error) {
	return s.linkAction(s.services.Link.ToggleArchive)(ctx, input)
}

func (s *Server) handleVisitLink(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Link], error) {
	return s.linkAction(s.services.Link.Visit)(ctx, input)
}

func (s *Server) handleRefreshPreview(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Link], error) {
	return s.linkAction(s.services.Link.RefreshPreview)(ctx, input)
}

func (s *Server) handleListLinkTags(ctx context.Context, input *dto.IDParam) (*dto.Output[[]domain.LinkTagView], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := s.services.Tag.ForLink(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []domain.LinkTagView{}
	}
	return &dto.Output[[]domain.LinkTagView]{Body: tags}, nil
}

func (s *Server) handleAttachTag(ctx context.Context, input *AttachTagInput) (*dto.Output[LinkTagResponse], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	lt, tag, err := s.services.Tag.AttachToLink(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[LinkTagResponse]{Body: LinkTagResponse{LinkTag: lt, Tag: tag}}, nil
}

func (s *Server) handleDetachTag(ctx context.Context, input *DetachTagInput) (*dto.MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Tag.DetachFromLink(ctx, userID, input.ID, input.TagID); err != nil {
		return nil, err
	}
	return dto.Message("tag removed"), nil
}

func (s *Server) handleListLinkCollections(ctx context.Context, input *dto.IDParam) (*dto.Output[[]*domain.Collection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	collections, err := s.services.Collection.ForLink(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	if collections == nil {
		collections = []*domain.Collection{}
	}
	return &dto.Output[[]*domain.Collection]{Body: collections}, nil
}

func (s *Server) handleListLinkNotes(ctx context.Context, input *dto.IDParam) (*dto.Output[[]*domain.Note], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := s.services.Note.ForLink(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []*domain.Note{}
	}
	return &dto.Output[[]*domain.Note]{Body: notes}, nil
}

func (s *Server) handleCreateNote(ctx context.Context, input *CreateNoteInput) (*dto.Output[*domain.Note], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	note, err := s.services.Note.Create(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Note]{Body: note}, nil
}

func (s *Server) handleLinkActivity(ctx context.Context, input *LinkActivityInput) (*dto.Output[dto.ListResponse[*domain.ActivityWithUser]], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.services.Link.Get(ctx, userID, input.ID, store.LinkRelations{}); err != nil {
		return nil, err
	}
	params := input.ListParams()
	params.Normalize(store.DefaultLimit)
	activities, err := s.services.Activity.ForEntity(ctx, input.ID, params)
	if err != nil {
		return nil, err
	}
	return &dto.Output[dto.ListResponse[*domain.ActivityWithUser]]{Body: dto.NewList(activities, params)}, nil
}
