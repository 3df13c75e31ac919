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

func (s *Server) registerCollectionRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}
	op := func(id, method, path, summary string) huma.Operation {
		return huma.Operation{
			OperationID: id,
			Method:      method,
			Path:        path,
			Summary:     summary,
			Tags:        []string{"Collections"},
			Security:    bearer,
		}
	}

	huma.Register(s.api, op("listCollections", http.MethodGet, "/api/v1/collections", "List collections"), s.handleListCollections)

	create := op("createCollection", http.MethodPost, "/api/v1/collections", "Create collection")
	create.DefaultStatus = http.StatusCreated
	huma.Register(s.api, create, s.handleCreateCollection)

	huma.Register(s.api, op("getCollection", http.MethodGet, "/api/v1/collections/{id}", "Get collection"), s.handleGetCollection)
	huma.Register(s.api, op("updateCollection", http.MethodPatch, "/api/v1/collections/{id}", "Update collection"), s.handleUpdateCollection)

	del := op("deleteCollection", http.MethodDelete, "/api/v1/collections/{id}", "Delete collection")
	del.Description = "Deletes the collection and its whole subtree. Links are kept"
	huma.Register(s.api, del, s.handleDeleteCollection)

	huma.Register(s.api, op("listChildCollections", http.MethodGet, "/api/v1/collections/{id}/children", "List children"), s.handleCollectionChildren)
	huma.Register(s.api, op("getCollectionPath", http.MethodGet, "/api/v1/collections/{id}/path", "Breadcrumb path"), s.handleCollectionPath)
	huma.Register(s.api, op("moveCollection", http.MethodPost, "/api/v1/collections/{id}/move", "Move collection"), s.handleMoveCollection)
	huma.Register(s.api, op("listCollectionLinks", http.MethodGet, "/api/v1/collections/{id}/links", "List collection links"), s.handleCollectionLinks)
	huma.Register(s.api, op("addCollectionLink", http.MethodPost, "/api/v1/collections/{id}/links", "Add link to collection"), s.handleAddCollectionLink)
	huma.Register(s.api, op("removeCollectionLink", http.MethodDelete, "/api/v1/collections/{id}/links/{linkId}", "Remove link from collection"), s.handleRemoveCollectionLink)
}

// Collection list views.
const (
	ViewFlat  = "flat"
	ViewRoots = "roots"
	ViewTree  = "tree"
)

// === DTOs ===

// ListCollectionsInput contains parameters for listing collections.
type ListCollectionsInput struct {
	View       string `query:"view" enum:"flat,roots,tree" doc:"flat (default), roots, or tree"`
	WithCounts bool   `query:"with_counts" doc:"Include link counts (flat view)"`
	Query      string `query:"q" doc:"Substring filter on the name"`
}

// CreateCollectionInput wraps the create collection request for huma.
type CreateCollectionInput struct {
	Body service.CreateCollectionRequest
}

// UpdateCollectionInput wraps the update collection request for huma.
type UpdateCollectionInput struct {
	ID   string `path:"id" doc:"Collection ID"`
	Body service.UpdateCollectionRequest
}

// MoveCollectionInput wraps the move request for huma.
type MoveCollectionInput struct {
	ID   string `path:"id" doc:"Collection ID"`
	Body service.MoveCollectionRequest
}

// DeleteCollectionResponse is the usual delete message plus every collection
// removed with the subtree.
type DeleteCollectionResponse struct {
	Message    string   `json:"message" doc:"Success message"`
	DeletedIDs []string `json:"deleted_ids" doc:"IDs of the deleted collections"`
}

// CollectionLinksInput pages a collection's links.
type CollectionLinksInput struct {
	ID string `path:"id" doc:"Collection ID"`
	dto.PaginationParams
}

// AddCollectionLinkRequest names the link to add.
type AddCollectionLinkRequest struct {
	LinkID string `json:"link_id" minLength:"1" doc:"Link ID"`
}

// AddCollectionLinkInput wraps the add link request for huma.
type AddCollectionLinkInput struct {
	ID   string `path:"id" doc:"Collection ID"`
	Body AddCollectionLinkRequest
}

// RemoveCollectionLinkInput identifies a collection link association.
type RemoveCollectionLinkInput struct {
	ID     string `path:"id" doc:"Collection ID"`
	LinkID string `path:"linkId" doc:"Link ID"`
}

// === Handlers ===

// handleListCollections returns a flat list, the roots, or the nested tree.
func (s *Server) handleListCollections(ctx context.Context, input *ListCollectionsInput) (*dto.Output[any], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	var body any
	switch {
	case input.Query != "":
		body, err = s.services.Collection.Search(ctx, userID, input.Query)
	case input.View == ViewTree:
		body, err = s.services.Collection.Tree(ctx, userID)
	case input.View == ViewRoots:
		body, err = s.services.Collection.Roots(ctx, userID)
	case input.WithCounts:
		body, err = s.services.Collection.ListWithCounts(ctx, userID)
	default:
		body, err = s.services.Collection.List(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &dto.Output[any]{Body: body}, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*dto.Output[*domain.Collection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.Create(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Collection]{Body: c}, nil
}

func (s *Server) handleGetCollection(ctx context.Context, input *dto.IDParam) (*dto.Output[*domain.Collection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.Get(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Collection]{Body: c}, nil
}

func (s *Server) handleUpdateCollection(ctx context.Context, input *UpdateCollectionInput) (*dto.Output[*domain.Collection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.Update(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Collection]{Body: c}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *dto.IDParam) (*dto.Output[DeleteCollectionResponse], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	ids, err := s.services.Collection.Delete(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[DeleteCollectionResponse]{Body: DeleteCollectionResponse{
		Message:    "collection deleted",
		DeletedIDs: ids,
	}}, nil
}

func (s *Server) handleCollectionChildren(ctx context.Context, input *dto.IDParam) (*dto.Output[[]*domain.Collection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	children, err := s.services.Collection.Children(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	if children == nil {
		children = []*domain.Collection{}
	}
	return &dto.Output[[]*domain.Collection]{Body: children}, nil
}

func (s *Server) handleCollectionPath(ctx context.Context, input *dto.IDParam) (*dto.Output[[]*domain.Collection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	path, err := s.services.Collection.Path(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[[]*domain.Collection]{Body: path}, nil
}

func (s *Server) handleMoveCollection(ctx context.Context, input *MoveCollectionInput) (*dto.Output[*domain.Collection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.services.Collection.Move(ctx, userID, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.Collection]{Body: c}, nil
}

func (s *Server) handleCollectionLinks(ctx context.Context, input *CollectionLinksInput) (*dto.Output[dto.ListResponse[*domain.Link]], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	params := input.ListParams()
	params.Normalize(store.DefaultLimit)
	links, err := s.services.Collection.Links(ctx, userID, input.ID, params)
	if err != nil {
		return nil, err
	}
	return &dto.Output[dto.ListResponse[*domain.Link]]{Body: dto.NewList(links, params)}, nil
}

func (s *Server) handleAddCollectionLink(ctx context.Context, input *AddCollectionLinkInput) (*dto.Output[*domain.LinkCollection], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	lc, err := s.services.Collection.AddLink(ctx, userID, input.ID, input.Body.LinkID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.LinkCollection]{Body: lc}, nil
}

func (s *Server) handleRemoveCollectionLink(ctx context.Context, input *RemoveCollectionLinkInput) (*dto.MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Collection.RemoveLink(ctx, userID, input.ID, input.LinkID); err != nil {
		return nil, err
	}
	return dto.Message("link removed from collection"), nil
}
