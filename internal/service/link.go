package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/preview"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/util"
	"github.com/pabliki/pabliki-server/internal/validation"
)

// PreviewFetcher retrieves page metadata. *preview.Fetcher implements it.
type PreviewFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*preview.Preview, error)
	Refresh(ctx context.Context, rawURL string) (*preview.Preview, error)
}

// LinkIndexer keeps the full-text index in step with the store.
// *SearchService implements it.
type LinkIndexer interface {
	IndexLink(ctx context.Context, userID, linkID string)
	DeleteLinks(ids ...string)
}

type noopIndexer struct{}

func (noopIndexer) IndexLink(context.Context, string, string) {}
func (noopIndexer) DeleteLinks(...string)                     {}

// LinkService manages saved links.
type LinkService struct {
	store     store.Store
	validator *validation.Validator
	activity  *ActivityService
	events    EventPublisher
	indexer   LinkIndexer
	previews  PreviewFetcher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewLinkService creates a new link service. previews may be nil, in which
// case links keep exactly what the client sent.
func NewLinkService(
	store store.Store,
	validator *validation.Validator,
	activity *ActivityService,
	events EventPublisher,
	previews PreviewFetcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *LinkService {
	return &LinkService{
		store:     store,
		validator: validator,
		activity:  activity,
		events:    publisherOrNoop(events),
		indexer:   noopIndexer{},
		previews:  previews,
		metrics:   m,
		logger:    logger,
	}
}

// SetIndexer attaches the search index. The search service depends on links,
// so it is wired after construction.
func (s *LinkService) SetIndexer(indexer LinkIndexer) {
	if indexer == nil {
		indexer = noopIndexer{}
	}
	s.indexer = indexer
}

// CreateLinkRequest is a new bookmark. Empty metadata fields are filled from
// the page preview unless FetchPreview is false.
type CreateLinkRequest struct {
	URL           string         `json:"url" validate:"required,max=2048"`
	Title         string         `json:"title,omitempty" validate:"max=500"`
	Description   string         `json:"description,omitempty" validate:"max=5000"`
	Content       string         `json:"content,omitempty"`
	Image         string         `json:"image,omitempty" validate:"omitempty,url,max=2048"`
	Favicon       string         `json:"favicon,omitempty" validate:"omitempty,url,max=2048"`
	SiteName      string         `json:"site_name,omitempty" validate:"max=200"`
	IsFavorite    bool           `json:"is_favorite,omitempty"`
	IsArchived    bool           `json:"is_archived,omitempty"`
	TagIDs        []string       `json:"tag_ids,omitempty" validate:"max=50,dive,required"`
	TagNames      []string       `json:"tag_names,omitempty" validate:"max=50,dive,notblank,max=100"`
	CollectionIDs []string       `json:"collection_ids,omitempty" validate:"max=50,dive,required"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	FetchPreview  *bool          `json:"fetch_preview,omitempty"`
}

// UpdateLinkRequest changes a link. Nil fields are left alone.
type UpdateLinkRequest struct {
	URL         *string        `json:"url,omitempty" validate:"omitnil,notblank,max=2048"`
	Title       *string        `json:"title,omitempty" validate:"omitnil,notblank,max=500"`
	Description *string        `json:"description,omitempty" validate:"omitnil,max=5000"`
	Content     *string        `json:"content,omitempty"`
	Image       *string        `json:"image,omitempty" validate:"omitempty,url,max=2048"`
	Favicon     *string        `json:"favicon,omitempty" validate:"omitempty,url,max=2048"`
	SiteName    *string        `json:"site_name,omitempty" validate:"omitnil,max=200"`
	IsFavorite  *bool          `json:"is_favorite,omitempty"`
	IsArchived  *bool          `json:"is_archived,omitempty"`
	ReadingTime *int           `json:"reading_time,omitempty" validate:"omitnil,min=0,max=10000"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// List returns one page of the user's links.
func (s *LinkService) List(ctx context.Context, userID string, params store.LinkListParams) (*store.Page[*domain.Link], error) {
	params.Normalize()
	page, err := s.store.ListLinks(ctx, userID, params)
	return page, translate(err, entityLink)
}

// Get returns a link with the requested relations.
func (s *LinkService) Get(ctx context.Context, userID, linkID string, rel store.LinkRelations) (*domain.LinkWithRelations, error) {
	link, err := s.store.GetLink(ctx, userID, linkID, rel)
	return link, translate(err, entityLink)
}

// GetByURL finds the user's link for a URL, normalizing it first.
func (s *LinkService) GetByURL(ctx context.Context, userID, rawURL string) (*domain.Link, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	link, err := s.store.GetLinkByURL(ctx, userID, normalized)
	return link, translate(err, entityLink)
}

// Create saves a new link.
func (s *LinkService) Create(ctx context.Context, userID string, req CreateLinkRequest) (*domain.LinkWithRelations, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	normalized, err := NormalizeURL(req.URL)
	if err != nil {
		return nil, err
	}

	switch _, err := s.store.GetLinkByURL(ctx, userID, normalized); {
	case err == nil:
		return nil, domainerrors.Conflict("link with this URL already exists").
			WithDetails(map[string]string{"url": "is already saved"})
	case !isNotFound(err):
		return nil, translate(err, entityLink)
	}

	linkID, err := id.Generate(id.PrefixLink)
	if err != nil {
		return nil, err
	}
	link := &domain.Link{
		Timestamps:  domain.Timestamps{ID: linkID},
		UserID:      userID,
		URL:         normalized,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Content:     req.Content,
		Image:       req.Image,
		Favicon:     req.Favicon,
		SiteName:    strings.TrimSpace(req.SiteName),
		IsFavorite:  req.IsFavorite,
		IsArchived:  req.IsArchived,
		Metadata:    req.Metadata,
	}
	link.InitTimestamps()
	if link.Content != "" {
		link.ReadingTime = util.EstimateReadingTime(link.Content)
	}

	if req.FetchPreview == nil || *req.FetchPreview {
		s.fillFromPreview(ctx, link, false)
	}
	if link.Title == "" {
		link.Title = hostOf(normalized)
	}

	tagIDs := req.TagIDs
	if len(req.TagNames) > 0 {
		tags, err := s.store.CreateTags(ctx, userID, req.TagNames, false)
		if err != nil {
			return nil, translate(err, entityTag)
		}
		for _, t := range tags {
			tagIDs = append(tagIDs, t.ID)
		}
	}

	if err := s.store.CreateLink(ctx, link, tagIDs, req.CollectionIDs); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("link with this URL already exists").WithCause(err)
		}
		return nil, translate(err, entityLink)
	}

	created, err := s.store.GetLink(ctx, userID, link.ID, store.LinkRelations{Tags: true, Collections: true})
	if err != nil {
		return nil, translate(err, entityLink)
	}

	s.activity.Log(ctx, userID, domain.ActionSaveLink, link.ID, meta("url", link.URL, "title", link.Title))
	s.events.Publish(userID, sse.EventLinkCreated, created)
	s.indexer.IndexLink(ctx, userID, link.ID)
	s.metrics.EntityMutated(entityLink, metrics.OpCreate)

	s.logger.Info("link saved", "user_id", userID, "link_id", link.ID)
	return created, nil
}

// fillFromPreview copies preview fields into the link. With overwrite false
// only empty fields are filled. Fetch failures are logged and ignored.
func (s *LinkService) fillFromPreview(ctx context.Context, link *domain.Link, overwrite bool) bool {
	if s.previews == nil {
		return false
	}

	fetch := s.previews.Fetch
	if overwrite {
		fetch = s.previews.Refresh
	}
	p, err := fetch(ctx, link.URL)
	if err != nil {
		s.metrics.PreviewFetched("error")
		s.logger.Warn("preview fetch failed", "url", link.URL, "error", err)
		return false
	}
	s.metrics.PreviewFetched("ok")

	set := func(dst *string, v string) {
		if v != "" && (overwrite || *dst == "") {
			*dst = v
		}
	}
	set(&link.Title, util.Truncate(p.Title, 500))
	set(&link.Description, p.Description)
	set(&link.Image, p.Image)
	set(&link.Favicon, p.Favicon)
	set(&link.SiteName, p.SiteName)
	set(&link.Content, p.Content)
	if p.ReadingTime > 0 && (overwrite || link.ReadingTime == 0) {
		link.ReadingTime = p.ReadingTime
	}
	return true
}

// Update changes a link's fields.
func (s *LinkService) Update(ctx context.Context, userID, linkID string, req UpdateLinkRequest) (*domain.Link, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	current, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{})
	if err != nil {
		return nil, translate(err, entityLink)
	}
	link := &current.Link

	changed := make([]string, 0, 4)
	if req.URL != nil {
		normalized, err := NormalizeURL(*req.URL)
		if err != nil {
			return nil, err
		}
		if normalized != link.URL {
			link.URL = normalized
			changed = append(changed, "url")
		}
	}
	setString := func(name string, dst *string, v *string) {
		if v != nil && *dst != strings.TrimSpace(*v) {
			*dst = strings.TrimSpace(*v)
			changed = append(changed, name)
		}
	}
	setString("title", &link.Title, req.Title)
	setString("description", &link.Description, req.Description)
	setString("image", &link.Image, req.Image)
	setString("favicon", &link.Favicon, req.Favicon)
	setString("site_name", &link.SiteName, req.SiteName)
	if req.Content != nil && *req.Content != link.Content {
		link.Content = *req.Content
		link.ReadingTime = util.EstimateReadingTime(link.Content)
		changed = append(changed, "content")
	}
	if req.ReadingTime != nil {
		link.ReadingTime = *req.ReadingTime
	}
	if req.IsFavorite != nil && *req.IsFavorite != link.IsFavorite {
		link.IsFavorite = *req.IsFavorite
		changed = append(changed, "is_favorite")
	}
	if req.IsArchived != nil && *req.IsArchived != link.IsArchived {
		link.IsArchived = *req.IsArchived
		changed = append(changed, "is_archived")
	}
	if req.Metadata != nil {
		link.Metadata = req.Metadata
		changed = append(changed, "metadata")
	}

	link.Touch()
	if err := s.store.UpdateLink(ctx, link); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.Conflict("link with this URL already exists").WithCause(err)
		}
		return nil, translate(err, entityLink)
	}

	s.afterUpdate(ctx, userID, link, meta("fields", changed))
	return link, nil
}

func (s *LinkService) afterUpdate(ctx context.Context, userID string, link *domain.Link, metadata map[string]any) {
	s.activity.Log(ctx, userID, domain.ActionUpdateLink, link.ID, metadata)
	s.events.Publish(userID, sse.EventLinkUpdated, link)
	s.indexer.IndexLink(ctx, userID, link.ID)
	s.metrics.EntityMutated(entityLink, metrics.OpUpdate)
}

// ToggleFavorite flips the favorite flag.
func (s *LinkService) ToggleFavorite(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	link, err := s.store.ToggleLinkFavorite(ctx, userID, linkID)
	if err != nil {
		return nil, translate(err, entityLink)
	}
	s.afterUpdate(ctx, userID, link, meta("is_favorite", link.IsFavorite))
	return link, nil
}

// ToggleArchive flips the archived flag.
func (s *LinkService) ToggleArchive(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	link, err := s.store.ToggleLinkArchive(ctx, userID, linkID)
	if err != nil {
		return nil, translate(err, entityLink)
	}
	s.afterUpdate(ctx, userID, link, meta("is_archived", link.IsArchived))
	return link, nil
}

// Delete removes a link with its tags, collection memberships and notes.
func (s *LinkService) Delete(ctx context.Context, userID, linkID string) error {
	link, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{})
	if err != nil {
		return translate(err, entityLink)
	}
	if err := s.store.DeleteLink(ctx, userID, linkID); err != nil {
		return translate(err, entityLink)
	}

	s.activity.Log(ctx, userID, domain.ActionDeleteLink, linkID, meta("url", link.URL, "title", link.Title))
	s.events.Publish(userID, sse.EventLinkDeleted, sse.IDPayload{ID: linkID})
	s.indexer.DeleteLinks(linkID)
	s.metrics.EntityMutated(entityLink, metrics.OpDelete)
	return nil
}

// Search is a substring search over the user's links in the store. The
// query is recorded in the search history.
func (s *LinkService) Search(ctx context.Context, userID string, params store.LinkSearchParams) (*store.Page[*domain.Link], error) {
	params.Query = normalizeQuery(params.Query)
	params.ListParams.Normalize(store.DefaultLimit)
	page, err := s.store.SearchLinks(ctx, userID, params)
	if err != nil {
		return nil, translate(err, entityLink)
	}
	s.metrics.Searched("store")
	if params.Offset == 0 {
		recordSearch(ctx, s.store, s.activity, s.logger, userID, params.Query, page.Total)
	}
	return page, nil
}

// recordSearch writes a non-empty query to the history and the activity log.
// Later pages of the same search are not recorded again.
func recordSearch(ctx context.Context, history store.SearchHistoryStore, activity *ActivityService, logger *slog.Logger, userID, query string, results int) {
	if query == "" {
		return
	}
	entry, err := history.RecordSearch(context.WithoutCancel(ctx), userID, query)
	if err != nil {
		logger.Warn("failed to record search", "user_id", userID, "error", err)
		return
	}
	activity.Log(ctx, userID, domain.ActionSearch, entry.ID, meta("query", query, "results", results))
}

// Stats summarizes the user's library.
func (s *LinkService) Stats(ctx context.Context, userID string) (*domain.LinkStats, error) {
	stats, err := s.store.GetLinkStats(ctx, userID)
	return stats, translate(err, entityLink)
}

// Visit records that the user opened the link.
func (s *LinkService) Visit(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	now := time.Now().UTC()
	if err := s.store.TouchLinkVisited(ctx, userID, linkID, now); err != nil {
		return nil, translate(err, entityLink)
	}
	got, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{})
	if err != nil {
		return nil, translate(err, entityLink)
	}
	s.activity.Log(ctx, userID, domain.ActionVisitLink, linkID, meta("url", got.URL))
	return &got.Link, nil
}

// RefreshPreview refetches the page and overwrites the link's metadata
// with what the page reports now.
func (s *LinkService) RefreshPreview(ctx context.Context, userID, linkID string) (*domain.Link, error) {
	if s.previews == nil {
		return nil, domainerrors.Validation("link previews are disabled")
	}
	current, err := s.store.GetLink(ctx, userID, linkID, store.LinkRelations{})
	if err != nil {
		return nil, translate(err, entityLink)
	}
	link := &current.Link
	if !s.fillFromPreview(ctx, link, true) {
		return nil, domainerrors.Upstream(fmt.Sprintf("could not fetch a preview for %s", hostOf(link.URL)))
	}
	link.Touch()
	if err := s.store.UpdateLink(ctx, link); err != nil {
		return nil, translate(err, entityLink)
	}
	s.afterUpdate(ctx, userID, link, meta("fields", []string{"preview"}))
	return link, nil
}
