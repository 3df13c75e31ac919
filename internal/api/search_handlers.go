package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pabliki/pabliki-server/internal/api/dto"
	"github.com/pabliki/pabliki-server/internal/service"
)

func (s *Server) registerSearchRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "searchLinks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/links",
		Summary:     "Search links",
		Description: "Full-text search over title, description, content and URL. Every listed tag and collection is required of a hit",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, s.handleSearchLinks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSearchHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/search/history",
		Summary:     "Search history",
		Description: "Recent searches, or the most repeated queries with mode=frequent",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, s.handleSearchHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearSearchHistory",
		Method:      http.MethodDelete,
		Path:        "/api/v1/search/history",
		Summary:     "Clear search history",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, s.handleClearSearchHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteSearchHistoryEntry",
		Method:      http.MethodDelete,
		Path:        "/api/v1/search/history/{id}",
		Summary:     "Delete search history entry",
		Tags:        []string{"Search"},
		Security:    bearer,
	}, s.handleDeleteSearch)
}

// Search history modes.
const (
	HistoryRecent   = "recent"
	HistoryFrequent = "frequent"
)

// SearchLinksInput contains the link search query.
type SearchLinksInput struct {
	dto.PaginationParams
	Query           string `query:"q" maxLength:"200" doc:"Search text"`
	Tags            string `query:"tags" doc:"Comma separated tag IDs"`
	Collections     string `query:"collections" doc:"Comma separated collection IDs"`
	IncludeArchived bool   `query:"include_archived" doc:"Also match archived links"`
	Sort            string `query:"sort" enum:"relevance,recent" doc:"relevance (default) or recent"`
}

// SearchHistoryInput selects the history view.
type SearchHistoryInput struct {
	Mode  string `query:"mode" enum:"recent,frequent" doc:"recent (default) or frequent"`
	Limit int    `query:"limit" minimum:"0" maximum:"100" doc:"Entries to return"`
}

// ClearHistoryResponse reports how many entries were removed.
type ClearHistoryResponse struct {
	Deleted int `json:"deleted" doc:"Entries removed"`
}

func splitIDs(raw string) []string {
	var ids []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func (s *Server) handleSearchLinks(ctx context.Context, input *SearchLinksInput) (*dto.Output[*service.LinkSearchResult], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.services.Search.SearchLinks(ctx, userID, service.LinkSearchRequest{
		Query:           input.Query,
		TagIDs:          splitIDs(input.Tags),
		CollectionIDs:   splitIDs(input.Collections),
		IncludeArchived: input.IncludeArchived,
		Sort:            input.Sort,
		Limit:           input.Limit,
		Offset:          input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &dto.Output[*service.LinkSearchResult]{Body: result}, nil
}

// handleSearchHistory returns []*domain.SearchHistoryEntry for recent mode
// and []domain.FrequentSearch for frequent mode.
func (s *Server) handleSearchHistory(ctx context.Context, input *SearchHistoryInput) (*dto.Output[any], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	var body any
	if input.Mode == HistoryFrequent {
		body, err = s.services.Search.FrequentSearches(ctx, userID, input.Limit)
	} else {
		body, err = s.services.Search.RecentSearches(ctx, userID, input.Limit)
	}
	if err != nil {
		return nil, err
	}
	return &dto.Output[any]{Body: body}, nil
}

func (s *Server) handleClearSearchHistory(ctx context.Context, _ *struct{}) (*dto.Output[ClearHistoryResponse], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.services.Search.ClearHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[ClearHistoryResponse]{Body: ClearHistoryResponse{Deleted: n}}, nil
}

func (s *Server) handleDeleteSearch(ctx context.Context, input *dto.IDParam) (*dto.MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Search.DeleteSearch(ctx, userID, input.ID); err != nil {
		return nil, err
	}
	return dto.Message("search deleted"), nil
}
