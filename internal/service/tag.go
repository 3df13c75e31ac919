package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pabliki/pabliki-server/internal/color"
	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/util"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// TagService manages tags and their attachment to links.
type TagService struct {
	store     store.Store
	validator *validation.Validator
	activity  *ActivityService
	events    EventPublisher
	indexer   LinkIndexer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(
	store store.Store,
	validator *validation.Validator,
	activity *ActivityService,
	events EventPublisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *TagService {
	return &TagService{
		store:     store,
		validator: validator,
		activity:  activity,
		events:    publisherOrNoop(events),
		indexer:   noopIndexer{},
		metrics:   m,
		logger:    logger,
	}
}

// SetIndexer attaches the search index; link documents carry their tags.
func (s *TagService) SetIndexer(indexer LinkIndexer) {
	if indexer == nil {
		indexer = noopIndexer{}
	}
	s.indexer = indexer
}

// CreateTagRequest is a new tag.
type CreateTagRequest struct {
	Name  string `json:"name" validate:"required,notblank,max=100"`
	Color string `json:"color,omitempty" validate:"omitempty,color"`
}

// UpdateTagRequest changes a tag. Nil fields are left alone.
type UpdateTagRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,notblank,max=100"`
	Color *string `json:"color,omitempty" validate:"omitempty,color"`
}

// BatchCreateTagsRequest creates several tags at once, typically AI suggestions.
type BatchCreateTagsRequest struct {
	Names         []string `json:"names" validate:"required,min=1,max=50,dive,notblank,max=100"`
	IsAIGenerated *bool    `json:"is_ai_generated,omitempty"`
}

// AttachTagRequest attaches a tag to a link, by id or by name. A name is
// resolved with get-or-create.
type AttachTagRequest struct {
	TagID      string   `json:"tag_id,omitempty" validate:"required_without=Name"`
	Name       string   `json:"name,omitempty" validate:"omitempty,notblank,max=100"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitnil,min=0,max=1"`
}

// List returns the user's tags by name.
func (s *TagService) List(ctx context.Context, userID string) ([]*domain.Tag, error) {
	tags, err := s.store.ListTags(ctx, userID)
	return tags, translate(err, entityTag)
}

// ListWithCounts returns tags with the number of links carrying each.
func (s *TagService) ListWithCounts(ctx context.Context, userID string) ([]domain.TagWithCount, error) {
	tags, err := s.store.ListTagsWithLinkCount(ctx, userID)
	return tags, translate(err, entityTag)
}

// ListAIGenerated returns the tags created from AI suggestions.
func (s *TagService) ListAIGenerated(ctx context.Context, userID string) ([]*domain.Tag, error) {
	tags, err := s.store.ListAIGeneratedTags(ctx, userID)
	return tags, translate(err, entityTag)
}

// Get returns one tag.
func (s *TagService) Get(ctx context.Context, userID, tagID string) (*domain.Tag, error) {
	tag, err := s.store.GetTag(ctx, userID, tagID)
	return tag, translate(err, entityTag)
}

// Search matches tag names by substring.
func (s *TagService) Search(ctx context.Context, userID, query string) ([]*domain.Tag, error) {
	query = normalizeQuery(query)
	if query == "" {
		return s.List(ctx, userID)
	}
	tags, err := s.store.SearchTags(ctx, userID, query)
	return tags, translate(err, entityTag)
}

// Create adds a tag. A tag whose slug is already taken is a conflict.
func (s *TagService) Create(ctx context.Context, userID string, req CreateTagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	tagID, err := id.Generate(id.PrefixTag)
	if err != nil {
		return nil, err
	}
	tag := &domain.Tag{
		Timestamps: domain.Timestamps{ID: tagID},
		UserID:     userID,
		Name:       util.NormalizeTagName(req.Name),
		Color:      strings.ToLower(req.Color),
	}
	if tag.Color == "" {
		tag.Color = color.ForKey(util.NormalizeTagSlug(tag.Name))
	}
	tag.InitTimestamps()
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return nil, translate(err, entityTag)
	}
	s.created(userID, tag)
	return tag, nil
}

func (s *TagService) created(userID string, tag *domain.Tag) {
	s.events.Publish(userID, sse.EventTagCreated, tag)
	s.metrics.EntityMutated(entityTag, metrics.OpCreate)
}

// GetOrCreate returns the user's tag for name, creating it when missing.
func (s *TagService) GetOrCreate(ctx context.Context, userID, name string, isAI bool) (*domain.Tag, error) {
	if err := s.validator.Var("name", name, "required,notblank,max=100"); err != nil {
		return nil, err
	}
	tag, created, err := s.store.GetOrCreateTag(ctx, userID, name, isAI)
	if err != nil {
		return nil, translate(err, entityTag)
	}
	if created {
		s.created(userID, tag)
	}
	return tag, nil
}

// BatchCreate creates tags for each name, reusing existing ones. Tags are
// marked AI generated unless the request says otherwise.
func (s *TagService) BatchCreate(ctx context.Context, userID string, req BatchCreateTagsRequest) ([]*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	isAI := req.IsAIGenerated == nil || *req.IsAIGenerated

	before, err := s.store.ListTags(ctx, userID)
	if err != nil {
		return nil, translate(err, entityTag)
	}
	known := make(map[string]bool, len(before))
	for _, t := range before {
		known[t.ID] = true
	}

	tags, err := s.store.CreateTags(ctx, userID, req.Names, isAI)
	if err != nil {
		return nil, translate(err, entityTag)
	}
	for _, t := range tags {
		if !known[t.ID] {
			s.created(userID, t)
		}
	}
	return tags, nil
}

// Update renames or recolors a tag.
func (s *TagService) Update(ctx context.Context, userID, tagID string, req UpdateTagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	tag, err := s.store.GetTag(ctx, userID, tagID)
	if err != nil {
		return nil, translate(err, entityTag)
	}
	renamed := false
	if req.Name != nil {
		name := util.NormalizeTagName(*req.Name)
		renamed = name != tag.Name
		tag.Name = name
	}
	if req.Color != nil {
		tag.Color = strings.ToLower(*req.Color)
	}
	tag.Touch()
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return nil, translate(err, entityTag)
	}

	s.events.Publish(userID, sse.EventTagUpdated, tag)
	s.metrics.EntityMutated(entityTag, metrics.OpUpdate)
	if renamed {
		s.reindexTagged(ctx, userID, tagID)
	}
	return tag, nil
}

// Delete removes a tag from every link and then the tag itself.
func (s *TagService) Delete(ctx context.Context, userID, tagID string) error {
	linkIDs, err := s.taggedLinkIDs(ctx, userID, tagID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTag(ctx, userID, tagID); err != nil {
		return translate(err, entityTag)
	}
	s.events.Publish(userID, sse.EventTagDeleted, sse.IDPayload{ID: tagID})
	s.metrics.EntityMutated(entityTag, metrics.OpDelete)
	for _, linkID := range linkIDs {
		s.indexer.IndexLink(ctx, userID, linkID)
	}
	return nil
}

func (s *TagService) reindexTagged(ctx context.Context, userID, tagID string) {
	linkIDs, err := s.taggedLinkIDs(ctx, userID, tagID)
	if err != nil {
		s.logger.Warn("failed to list tagged links for reindex", "tag_id", tagID, "error", err)
		return
	}
	for _, linkID := range linkIDs {
		s.indexer.IndexLink(ctx, userID, linkID)
	}
}

func (s *TagService) taggedLinkIDs(ctx context.Context, userID, tagID string) ([]string, error) {
	var ids []string
	params := store.ListParams{Limit: store.MaxLimit}
	for {
		links, err := s.store.ListLinksForTag(ctx, userID, tagID, params)
		if err != nil {
			return nil, translate(err, entityTag)
		}
		for _, l := range links {
			ids = append(ids, l.ID)
		}
		if len(links) < params.Limit {
			return ids, nil
		}
		params.Offset += params.Limit
	}
}

// LinksForTag returns the user's links carrying the tag, newest first.
func (s *TagService) LinksForTag(ctx context.Context, userID, tagID string, params store.ListParams) ([]*domain.Link, error) {
	if _, err := s.store.GetTag(ctx, userID, tagID); err != nil {
		return nil, translate(err, entityTag)
	}
	params.Normalize(store.DefaultLimit)
	links, err := s.store.ListLinksForTag(ctx, userID, tagID, params)
	return links, translate(err, entityLink)
}

// ForLink returns the tags on one of the user's links, most confident first.
func (s *TagService) ForLink(ctx context.Context, userID, linkID string) ([]domain.LinkTagView, error) {
	if _, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{}); err != nil {
		return nil, translate(err, entityLink)
	}
	tags, err := s.store.ListTagsForLink(ctx, linkID)
	return tags, translate(err, entityTag)
}

// AttachToLink puts a tag on a link. Both must belong to the user. Attaching
// an attached tag again keeps the original association.
func (s *TagService) AttachToLink(ctx context.Context, userID, linkID string, req AttachTagRequest) (*domain.LinkTag, *domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, nil, err
	}
	if _, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{}); err != nil {
		return nil, nil, translate(err, entityLink)
	}

	var tag *domain.Tag
	var err error
	if req.TagID != "" {
		tag, err = s.Get(ctx, userID, req.TagID)
	} else {
		tag, err = s.GetOrCreate(ctx, userID, req.Name, req.Confidence != nil)
	}
	if err != nil {
		return nil, nil, err
	}

	lt, err := s.store.AddTagToLink(ctx, linkID, tag.ID, req.Confidence)
	if err != nil {
		return nil, nil, translate(err, entityTag)
	}

	md := meta("tag_id", tag.ID, "tag", tag.Name)
	if lt.Confidence != nil {
		md["confidence"] = *lt.Confidence
	}
	s.activity.Log(ctx, userID, domain.ActionAddTag, linkID, md)
	s.events.Publish(userID, sse.EventLinkTagAdded, sse.IDPayload{ID: lt.ID, LinkID: linkID, TagID: tag.ID})
	s.indexer.IndexLink(ctx, userID, linkID)
	return lt, tag, nil
}

// DetachFromLink takes a tag off a link.
func (s *TagService) DetachFromLink(ctx context.Context, userID, linkID, tagID string) error {
	if _, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{}); err != nil {
		return translate(err, entityLink)
	}
	tag, err := s.store.GetTag(ctx, userID, tagID)
	if err != nil {
		return translate(err, entityTag)
	}
	if err := s.store.RemoveTagFromLink(ctx, linkID, tagID); err != nil {
		return translate(err, entityTag)
	}

	s.activity.Log(ctx, userID, domain.ActionRemoveTag, linkID, meta("tag_id", tagID, "tag", tag.Name))
	s.events.Publish(userID, sse.EventLinkTagRemoved, sse.IDPayload{ID: tagID, LinkID: linkID, TagID: tagID})
	s.indexer.IndexLink(ctx, userID, linkID)
	return nil
}
