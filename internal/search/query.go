package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Sort orders accepted by Params.SortBy.
const (
	SortRelevance = "relevance"
	SortRecent    = "recent"
)

// ErrNoUser is returned for a query without an owner; the index never
// searches across users.
var ErrNoUser = errors.New("search: user id is required")

// Params configures a link search.
type Params struct {
	UserID          string
	Query           string
	TagIDs          []string // every tag is required
	CollectionIDs   []string // every collection is required
	IncludeArchived bool
	FavoritesOnly   bool

	Limit  int
	Offset int
	SortBy string

	Highlight bool
}

// Result is one page of search hits.
type Result struct {
	Query     string       `json:"query"`
	Total     uint64       `json:"total"`
	TookMs    int64        `json:"took_ms"`
	Hits      []Hit        `json:"hits"`
	TagFacets []FacetCount `json:"tag_facets,omitempty"`
}

// Hit is one matching link.
type Hit struct {
	ID         string            `json:"id"`
	Score      float64           `json:"score"`
	Title      string            `json:"title"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// FacetCount is a facet value and the number of hits carrying it.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// IDs returns the link ids of the hits in rank order.
func (r *Result) IDs() []string {
	ids := make([]string, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}
	return ids
}

// Search runs a query scoped to params.UserID.
func (s *Index) Search(ctx context.Context, params Params) (*Result, error) {
	if params.UserID == "" {
		return nil, ErrNoUser
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildQuery(params), params.Limit, params.Offset, false)
	if params.SortBy == SortRecent || strings.TrimSpace(params.Query) == "" {
		req.SortBy([]string{"-created_at"})
	} else {
		req.SortBy([]string{"-_score", "-created_at"})
	}
	req.AddFacet("tags", bleve.NewFacetRequest("tags", 20))
	if params.Highlight {
		req.Highlight = bleve.NewHighlight()
		req.Highlight.AddField("title")
		req.Highlight.AddField("description")
	}
	req.Fields = []string{"id", "title"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	result := &Result{
		Query:  params.Query,
		Total:  res.Total,
		TookMs: res.Took.Milliseconds(),
		Hits:   make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if title, ok := h.Fields["title"].(string); ok {
			hit.Title = title
		}
		if len(h.Fragments) > 0 {
			hit.Highlights = make(map[string]string, len(h.Fragments))
			for field, fragments := range h.Fragments {
				if len(fragments) > 0 {
					hit.Highlights[field] = fragments[0]
				}
			}
		}
		result.Hits = append(result.Hits, hit)
	}

	if facet, ok := res.Facets["tags"]; ok && facet.Terms != nil {
		for _, term := range facet.Terms.Terms() {
			result.TagFacets = append(result.TagFacets, FacetCount{Value: term.Term, Count: term.Count})
		}
	}
	return result, nil
}

func buildQuery(params Params) query.Query {
	owner := bleve.NewTermQuery(params.UserID)
	owner.SetField("user_id")
	must := []query.Query{owner}

	if q := strings.TrimSpace(params.Query); q != "" {
		must = append(must, textQuery(q))
	}

	if !params.IncludeArchived {
		notArchived := bleve.NewBoolFieldQuery(false)
		notArchived.SetField("is_archived")
		must = append(must, notArchived)
	}
	if params.FavoritesOnly {
		fav := bleve.NewBoolFieldQuery(true)
		fav.SetField("is_favorite")
		must = append(must, fav)
	}

	for _, tagID := range params.TagIDs {
		tq := bleve.NewTermQuery(tagID)
		tq.SetField("tag_ids")
		must = append(must, tq)
	}
	for _, collectionID := range params.CollectionIDs {
		cq := bleve.NewTermQuery(collectionID)
		cq.SetField("collections")
		must = append(must, cq)
	}

	return bleve.NewConjunctionQuery(must...)
}

// textQuery matches the analyzed text fields; single words also get fuzzy
// and prefix matching on the title for typos and as-you-type search.
func textQuery(q string) query.Query {
	match := func(field string, boost float64) query.Query {
		m := bleve.NewMatchQuery(q)
		m.SetField(field)
		m.SetBoost(boost)
		return m
	}
	should := []query.Query{
		match("title", 3.0),
		match("description", 1.5),
		match("content", 1.0),
		match("site_name", 1.0),
		match("url", 0.5),
	}

	if !strings.ContainsFunc(q, isSpace) {
		term := strings.ToLower(q)

		fuzzy := bleve.NewFuzzyQuery(term)
		fuzzy.SetFuzziness(1)
		fuzzy.SetField("title")
		fuzzy.SetBoost(0.8)
		should = append(should, fuzzy)

		if utf8.RuneCountInString(term) >= 2 {
			prefix := bleve.NewPrefixQuery(term)
			prefix.SetField("title")
			prefix.SetBoost(0.5)
			should = append(should, prefix)
		}
	}
	return bleve.NewDisjunctionQuery(should...)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
