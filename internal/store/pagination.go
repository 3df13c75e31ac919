package store

import (
	"slices"
	"strings"
)

// Default and maximum page sizes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ListParams is offset pagination shared by list queries.
type ListParams struct {
	Limit  int
	Offset int
}

// Normalize clamps the params: a non-positive limit becomes def, limits above
// MaxLimit are capped, and negative offsets become zero.
func (p *ListParams) Normalize(def int) {
	if p.Limit <= 0 {
		p.Limit = def
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Page is one page of results together with the total matching count.
type Page[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// HasMore reports whether results exist past this page.
func (p Page[T]) HasMore() bool {
	return p.Offset+len(p.Items) < p.Total
}

// Link sort fields accepted by ListLinks.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortTitle     = "title"
)

// LinkSortFields lists the accepted sort fields.
var LinkSortFields = []string{SortCreatedAt, SortUpdatedAt, SortTitle}

// LinkListParams filters and orders a user's links.
type LinkListParams struct {
	ListParams
	SortBy        string
	SortDirection string
	IsArchived    *bool
	IsFavorite    *bool
}

// Normalize applies defaults: 20 per page, newest first.
func (p *LinkListParams) Normalize() {
	p.ListParams.Normalize(DefaultLimit)
	if !slices.Contains(LinkSortFields, p.SortBy) {
		p.SortBy = SortCreatedAt
	}
	p.SortDirection = strings.ToLower(p.SortDirection)
	if p.SortDirection != "asc" {
		p.SortDirection = "desc"
	}
}

// LinkSearchParams is a substring search over a user's links.
// A link must carry every tag in TagIDs and belong to every collection in CollectionIDs.
type LinkSearchParams struct {
	ListParams
	Query           string
	IncludeArchived bool
	TagIDs          []string
	CollectionIDs   []string
}

// LinkRelations selects which relations GetLink joins in.
type LinkRelations struct {
	Tags        bool
	Collections bool
	Notes       bool
}
