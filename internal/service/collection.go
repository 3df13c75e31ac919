package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// CollectionService manages the collection tree and link membership.
type CollectionService struct {
	store     store.Store
	validator *validation.Validator
	activity  *ActivityService
	events    EventPublisher
	indexer   LinkIndexer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewCollectionService creates a new collection service.
func NewCollectionService(
	store store.Store,
	validator *validation.Validator,
	activity *ActivityService,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CollectionService {
	return &CollectionService{
		store:     store,
		validator: validator,
		activity:  activity,
		events:    publisherOrNoop(events),
		indexer:   noopIndexer{},
		metrics:   m,
		logger:    logger,
	}
}

// SetIndexer attaches the search index; link documents carry their collections.
func (s *CollectionService) SetIndexer(indexer LinkIndexer) {
	if indexer == nil {
		indexer = noopIndexer{}
	}
	s.indexer = indexer
}

// CreateCollectionRequest is a new collection. IsPrivate defaults to true.
type CreateCollectionRequest struct {
	Name        string  `json:"name" validate:"required,notblank,max=100"`
	Description string  `json:"description,omitempty" validate:"max=1000"`
	Color       string  `json:"color,omitempty" validate:"omitempty,color"`
	Icon        string  `json:"icon,omitempty" validate:"max=50"`
	IsPrivate   *bool   `json:"is_private,omitempty"`
	ParentID    *string `json:"parent_id,omitempty" validate:"omitnil,notblank"`
}

// UpdateCollectionRequest changes a collection's attributes. Nil fields are
// left alone; the parent is changed with Move.
type UpdateCollectionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitnil,notblank,max=100"`
	Description *string `json:"description,omitempty" validate:"omitnil,max=1000"`
	Color       *string `json:"color,omitempty" validate:"omitempty,color"`
	Icon        *string `json:"icon,omitempty" validate:"omitnil,max=50"`
	IsPrivate   *bool   `json:"is_private,omitempty"`
}

// MoveCollectionRequest reparents a collection. A nil parent makes it a root.
type MoveCollectionRequest struct {
	ParentID *string `json:"parent_id,omitempty" validate:"omitnil,notblank"`
}

// List returns every collection of the user, flat.
func (s *CollectionService) List(ctx context.Context, userID string) ([]*domain.Collection, error) {
	cols, err := s.store.ListCollections(ctx, userID)
	return cols, translate(err, entityCollection)
}

// Roots returns the top-level collections.
func (s *CollectionService) Roots(ctx context.Context, userID string) ([]*domain.Collection, error) {
	cols, err := s.store.ListRootCollections(ctx, userID)
	return cols, translate(err, entityCollection)
}

// Children returns the direct children of a collection.
func (s *CollectionService) Children(ctx context.Context, userID, collectionID string) ([]*domain.Collection, error) {
	if _, err := s.store.GetCollection(ctx, userID, collectionID); err != nil {
		return nil, translate(err, entityCollection)
	}
	cols, err := s.store.ListChildCollections(ctx, userID, collectionID)
	return cols, translate(err, entityCollection)
}

// Tree returns the user's collections nested under their parents.
func (s *CollectionService) Tree(ctx context.Context, userID string) ([]*domain.CollectionNode, error) {
	cols, err := s.store.ListCollections(ctx, userID)
	if err != nil {
		return nil, translate(err, entityCollection)
	}
	flat := make([]domain.Collection, len(cols))
	for i, c := range cols {
		flat[i] = *c
	}
	return domain.BuildCollectionTree(flat), nil
}

// ListWithCounts returns collections with their direct link counts.
func (s *CollectionService) ListWithCounts(ctx context.Context, userID string) ([]domain.CollectionWithCount, error) {
	cols, err := s.store.ListCollectionsWithLinkCount(ctx, userID)
	return cols, translate(err, entityCollection)
}

// Get returns one collection.
func (s *CollectionService) Get(ctx context.Context, userID, collectionID string) (*domain.Collection, error) {
	c, err := s.store.GetCollection(ctx, userID, collectionID)
	return c, translate(err, entityCollection)
}

// Path returns the breadcrumb from the root down to the collection.
func (s *CollectionService) Path(ctx context.Context, userID, collectionID string) ([]*domain.Collection, error) {
	path, err := s.store.GetCollectionPath(ctx, userID, collectionID)
	return path, translate(err, entityCollection)
}

// Search matches collection names and descriptions by substring.
func (s *CollectionService) Search(ctx context.Context, userID, query string) ([]*domain.Collection, error) {
	query = normalizeQuery(query)
	if query == "" {
		return s.List(ctx, userID)
	}
	cols, err := s.store.SearchCollections(ctx, userID, query)
	return cols, translate(err, entityCollection)
}

// Create adds a collection, optionally under a parent the user owns.
func (s *CollectionService) Create(ctx context.Context, userID string, req CreateCollectionRequest) (*domain.Collection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	collectionID, err := id.Generate(id.PrefixCollection)
	if err != nil {
		return nil, err
	}
	c := &domain.Collection{
		Timestamps:  domain.Timestamps{ID: collectionID},
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Color:       strings.ToLower(req.Color),
		Icon:        req.Icon,
		IsPrivate:   req.IsPrivate == nil || *req.IsPrivate,
		ParentID:    req.ParentID,
	}
	c.InitTimestamps()
	if err := s.store.CreateCollection(ctx, c); err != nil {
		if isNotFound(err) && c.ParentID != nil {
			return nil, translate(err, "parent collection")
		}
		return nil, translate(err, entityCollection)
	}

	s.activity.Log(ctx, userID, domain.ActionCreateCollection, c.ID, meta("name", c.Name))
	s.events.Publish(userID, sse.EventCollectionCreated, c)
	s.metrics.EntityMutated(entityCollection, metrics.OpCreate)
	return c, nil
}

// Update changes a collection's attributes.
func (s *CollectionService) Update(ctx context.Context, userID, collectionID string, req UpdateCollectionRequest) (*domain.Collection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	c, err := s.store.GetCollection(ctx, userID, collectionID)
	if err != nil {
		return nil, translate(err, entityCollection)
	}
	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		c.Description = strings.TrimSpace(*req.Description)
	}
	if req.Color != nil {
		c.Color = strings.ToLower(*req.Color)
	}
	if req.Icon != nil {
		c.Icon = *req.Icon
	}
	if req.IsPrivate != nil {
		c.IsPrivate = *req.IsPrivate
	}
	c.Touch()
	if err := s.store.UpdateCollection(ctx, c); err != nil {
		return nil, translate(err, entityCollection)
	}
	s.updated(userID, c)
	return c, nil
}

func (s *CollectionService) updated(userID string, c *domain.Collection) {
	s.events.Publish(userID, sse.EventCollectionUpdated, c)
	s.metrics.EntityMutated(entityCollection, metrics.OpUpdate)
}

// Move reparents a collection. Moving a collection under itself or one of
// its descendants is rejected.
func (s *CollectionService) Move(ctx context.Context, userID, collectionID string, req MoveCollectionRequest) (*domain.Collection, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	c, err := s.store.MoveCollection(ctx, userID, collectionID, req.ParentID)
	if err != nil {
		return nil, translate(err, entityCollection)
	}
	s.updated(userID, c)
	return c, nil
}

// Delete removes a collection and everything nested under it. Links in
// those collections are kept.
func (s *CollectionService) Delete(ctx context.Context, userID, collectionID string) ([]string, error) {
	affected := s.memberLinksOfSubtree(ctx, userID, collectionID)

	deleted, err := s.store.DeleteCollection(ctx, userID, collectionID)
	if err != nil {
		return nil, translate(err, entityCollection)
	}

	s.events.Publish(userID, sse.EventCollectionDeleted, sse.IDPayload{ID: collectionID, DeletedIDs: deleted})
	s.metrics.EntityMutated(entityCollection, metrics.OpDelete)
	for linkID := range affected {
		s.indexer.IndexLink(ctx, userID, linkID)
	}
	s.logger.Info("collection deleted", "user_id", userID, "collection_id", collectionID, "removed", len(deleted))
	return deleted, nil
}

// memberLinksOfSubtree collects the links filed anywhere under collectionID
// so their index documents can be refreshed after a delete. Errors only
// cost index freshness.
func (s *CollectionService) memberLinksOfSubtree(ctx context.Context, userID, collectionID string) map[string]struct{} {
	links := make(map[string]struct{})
	all, err := s.store.ListCollections(ctx, userID)
	if err != nil {
		return links
	}
	children := make(map[string][]string)
	for _, c := range all {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}
	queue := []string{collectionID}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		queue = append(queue, children[current]...)

		params := store.ListParams{Limit: store.MaxLimit}
		for {
			page, err := s.store.ListCollectionLinks(ctx, userID, current, params)
			if err != nil {
				break
			}
			for _, l := range page {
				links[l.ID] = struct{}{}
			}
			if len(page) < params.Limit {
				break
			}
			params.Offset += params.Limit
		}
	}
	return links
}

// AddLink files a link in a collection. Both must belong to the user.
func (s *CollectionService) AddLink(ctx context.Context, userID, collectionID, linkID string) (*domain.LinkCollection, error) {
	c, err := s.store.GetCollection(ctx, userID, collectionID)
	if err != nil {
		return nil, translate(err, entityCollection)
	}
	if _, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{}); err != nil {
		return nil, translate(err, entityLink)
	}
	lc, err := s.store.AddLinkToCollection(ctx, linkID, collectionID)
	if err != nil {
		return nil, translate(err, entityCollection)
	}

	s.activity.Log(ctx, userID, domain.ActionAddToCollection, linkID, meta("collection_id", collectionID, "collection", c.Name))
	s.events.Publish(userID, sse.EventCollectionLinkAdded, sse.IDPayload{ID: lc.ID, LinkID: linkID, CollectionID: collectionID})
	s.indexer.IndexLink(ctx, userID, linkID)
	return lc, nil
}

// RemoveLink takes a link out of a collection.
func (s *CollectionService) RemoveLink(ctx context.Context, userID, collectionID, linkID string) error {
	if _, err := s.store.GetCollection(ctx, userID, collectionID); err != nil {
		return translate(err, entityCollection)
	}
	if err := s.store.RemoveLinkFromCollection(ctx, linkID, collectionID); err != nil {
		return translate(err, entityLink)
	}
	s.events.Publish(userID, sse.EventCollectionLinkRemoved, sse.IDPayload{ID: collectionID, LinkID: linkID, CollectionID: collectionID})
	s.indexer.IndexLink(ctx, userID, linkID)
	return nil
}

// Links returns the links filed in a collection, most recently added first.
func (s *CollectionService) Links(ctx context.Context, userID, collectionID string, params store.ListParams) ([]*domain.Link, error) {
	if _, err := s.store.GetCollection(ctx, userID, collectionID); err != nil {
		return nil, translate(err, entityCollection)
	}
	params.Normalize(store.DefaultLimit)
	links, err := s.store.ListCollectionLinks(ctx, userID, collectionID, params)
	return links, translate(err, entityLink)
}

// ForLink returns the collections a link is filed in.
func (s *CollectionService) ForLink(ctx context.Context, userID, linkID string) ([]*domain.Collection, error) {
	if _, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{}); err != nil {
		return nil, translate(err, entityLink)
	}
	cols, err := s.store.ListCollectionsForLink(ctx, userID, linkID)
	return cols, translate(err, entityCollection)
}
