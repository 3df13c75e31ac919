package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/search"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/validation"
)

const reindexBatchSize = 500

// SearchService runs link searches against the full-text index, falling
// back to the store's substring search when the index is unavailable, and
// keeps the index in step with link changes.
type SearchService struct {
	index     *search.Index // nil when search is disabled
	store     store.Store
	validator *validation.Validator
	activity  *ActivityService
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewSearchService creates a new search service. index may be nil.
func NewSearchService(
	index *search.Index,
	store store.Store,
	validator *validation.Validator,
	activity *ActivityService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SearchService {
	return &SearchService{
		index:     index,
		store:     store,
		validator: validator,
		activity:  activity,
		metrics:   m,
		logger:    logger,
	}
}

// LinkSearchRequest is a link search. Every listed tag and collection is
// required of a hit.
type LinkSearchRequest struct {
	Query           string   `json:"q" validate:"max=200"`
	TagIDs          []string `json:"tag_ids" validate:"max=20,dive,required"`
	CollectionIDs   []string `json:"collection_ids" validate:"max=20,dive,required"`
	IncludeArchived bool     `json:"include_archived"`
	Sort            string   `json:"sort" validate:"omitempty,oneof=relevance recent"`
	Limit           int      `json:"limit" validate:"min=0,max=100"`
	Offset          int      `json:"offset" validate:"min=0"`
}

// LinkSearchResult is one page of matching links.
type LinkSearchResult struct {
	Query      string                       `json:"query"`
	Total      int                          `json:"total"`
	Limit      int                          `json:"limit"`
	Offset     int                          `json:"offset"`
	Links      []*domain.Link               `json:"links"`
	Highlights map[string]map[string]string `json:"highlights,omitempty"`
	TagFacets  []search.FacetCount          `json:"tag_facets,omitempty"`
	Backend    string                       `json:"backend"`
}

// Search backends reported in results and metrics.
const (
	BackendIndex = "index"
	BackendStore = "store"
)

// SearchLinks searches the user's links.
func (s *SearchService) SearchLinks(ctx context.Context, userID string, req LinkSearchRequest) (*LinkSearchResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	req.Query = normalizeQuery(req.Query)
	page := store.ListParams{Limit: req.Limit, Offset: req.Offset}
	page.Normalize(store.DefaultLimit)
	req.Limit, req.Offset = page.Limit, page.Offset

	var (
		result *LinkSearchResult
		err    error
	)
	if s.index != nil {
		result, err = s.searchIndex(ctx, userID, req)
		if err != nil {
			s.logger.Warn("index search failed, falling back to store", "user_id", userID, "error", err)
		}
	}
	if result == nil {
		if result, err = s.searchStore(ctx, userID, req); err != nil {
			return nil, err
		}
	}
	s.metrics.Searched(result.Backend)

	if req.Offset == 0 {
		recordSearch(ctx, s.store, s.activity, s.logger, userID, req.Query, result.Total)
	}
	return result, nil
}

func (s *SearchService) searchIndex(ctx context.Context, userID string, req LinkSearchRequest) (*LinkSearchResult, error) {
	sortBy := req.Sort
	if sortBy == "" {
		sortBy = search.SortRelevance
	}
	res, err := s.index.Search(ctx, search.Params{
		UserID:          userID,
		Query:           req.Query,
		TagIDs:          req.TagIDs,
		CollectionIDs:   req.CollectionIDs,
		IncludeArchived: req.IncludeArchived,
		Limit:           req.Limit,
		Offset:          req.Offset,
		SortBy:          sortBy,
		Highlight:       req.Query != "",
	})
	if err != nil {
		return nil, err
	}

	links, err := s.store.GetLinksByIDs(ctx, userID, res.IDs())
	if err != nil {
		return nil, translate(err, entityLink)
	}
	highlights := make(map[string]map[string]string)
	for _, h := range res.Hits {
		if len(h.Highlights) > 0 {
			highlights[h.ID] = h.Highlights
		}
	}
	return &LinkSearchResult{
		Query:      req.Query,
		Total:      int(res.Total),
		Limit:      req.Limit,
		Offset:     req.Offset,
		Links:      links,
		Highlights: highlights,
		TagFacets:  res.TagFacets,
		Backend:    BackendIndex,
	}, nil
}

func (s *SearchService) searchStore(ctx context.Context, userID string, req LinkSearchRequest) (*LinkSearchResult, error) {
	page, err := s.store.SearchLinks(ctx, userID, store.LinkSearchParams{
		ListParams:      store.ListParams{Limit: req.Limit, Offset: req.Offset},
		Query:           req.Query,
		IncludeArchived: req.IncludeArchived,
		TagIDs:          req.TagIDs,
		CollectionIDs:   req.CollectionIDs,
	})
	if err != nil {
		return nil, translate(err, entityLink)
	}
	return &LinkSearchResult{
		Query:   req.Query,
		Total:   page.Total,
		Limit:   page.Limit,
		Offset:  page.Offset,
		Links:   page.Items,
		Backend: BackendStore,
	}, nil
}

// RecentSearches returns the user's latest searches.
func (s *SearchService) RecentSearches(ctx context.Context, userID string, limit int) ([]*domain.SearchHistoryEntry, error) {
	entries, err := s.store.ListRecentSearches(ctx, userID, limit)
	return entries, translate(err, "search")
}

// FrequentSearches returns the user's most repeated queries.
func (s *SearchService) FrequentSearches(ctx context.Context, userID string, limit int) ([]domain.FrequentSearch, error) {
	entries, err := s.store.ListFrequentSearches(ctx, userID, limit)
	return entries, translate(err, "search")
}

// ClearHistory deletes the user's whole search history.
func (s *SearchService) ClearHistory(ctx context.Context, userID string) (int, error) {
	n, err := s.store.ClearSearchHistory(ctx, userID)
	return n, translate(err, "search")
}

// DeleteSearch removes one history entry.
func (s *SearchService) DeleteSearch(ctx context.Context, userID, searchID string) error {
	return translate(s.store.DeleteSearch(ctx, userID, searchID), "search")
}

// Enabled reports whether a full-text index is attached.
func (s *SearchService) Enabled() bool {
	return s.index != nil
}

// DocumentCount returns the number of indexed links, or zero when search is
// disabled.
func (s *SearchService) DocumentCount() (uint64, error) {
	if s.index == nil {
		return 0, nil
	}
	return s.index.DocumentCount()
}

// IndexLink refreshes one link's document. Failures are logged.
func (s *SearchService) IndexLink(ctx context.Context, userID, linkID string) {
	if s.index == nil {
		return
	}
	link, err := s.store.GetLink(context.WithoutCancel(ctx), userID, linkID, store.LinkRelations{Tags: true, Collections: true})
	if err != nil {
		s.logger.Warn("failed to load link for indexing", "link_id", linkID, "error", err)
		return
	}
	if err := s.index.IndexLink(search.NewLinkDocument(link)); err != nil {
		s.logger.Warn("failed to index link", "link_id", linkID, "error", err)
	}
}

// DeleteLinks drops documents from the index. Failures are logged.
func (s *SearchService) DeleteLinks(ids ...string) {
	if s.index == nil || len(ids) == 0 {
		return
	}
	if err := s.index.DeleteLinks(ids); err != nil {
		s.logger.Warn("failed to delete links from index", "count", len(ids), "error", err)
	}
}

// ReindexIfNeeded rebuilds the index when it was just created or holds no
// documents while the store has links.
func (s *SearchService) ReindexIfNeeded(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	count, err := s.index.DocumentCount()
	if err != nil {
		return err
	}
	if !s.index.Created() && count > 0 {
		return nil
	}
	return s.ReindexAll(ctx)
}

// ReindexAll rebuilds the index from every link in the store.
func (s *SearchService) ReindexAll(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	start := time.Now()
	s.logger.Info("starting full reindex")

	type ref struct{ userID, linkID string }
	var refs []ref
	for link, err := range s.store.AllLinks(ctx) {
		if err != nil {
			return err
		}
		refs = append(refs, ref{link.UserID, link.ID})
	}

	if err := s.index.Rebuild(); err != nil {
		return err
	}

	batch := make([]*search.LinkDocument, 0, reindexBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := s.index.IndexLinks(batch)
		batch = batch[:0]
		return err
	}
	for _, r := range refs {
		if err := ctx.Err(); err != nil {
			return err
		}
		link, err := s.store.GetLink(ctx, r.userID, r.linkID, store.LinkRelations{Tags: true, Collections: true})
		if err != nil {
			s.logger.Warn("skipping link during reindex", "link_id", r.linkID, "error", err)
			continue
		}
		batch = append(batch, search.NewLinkDocument(link))
		if len(batch) == reindexBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	s.logger.Info("full reindex complete", "links", len(refs), "took", time.Since(start))
	return nil
}
