// Package search provides full-text search over saved links using Bleve.
// Every document carries its owner's id and every query is filtered by it.
package search

import (
	"github.com/pabliki/pabliki-server/internal/domain"
)

// LinkDocument is the indexed form of a link. Tags and collections are
// denormalized into it so filtering needs no store round trip.
type LinkDocument struct {
	ID          string   `json:"id"`
	UserID      string   `json:"user_id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content,omitempty"`
	URL         string   `json:"url"`
	SiteName    string   `json:"site_name,omitempty"`
	Tags        []string `json:"tags,omitempty"`        // slugs, for facets
	TagIDs      []string `json:"tag_ids,omitempty"`     // for filters
	Collections []string `json:"collections,omitempty"` // collection ids
	IsArchived  bool     `json:"is_archived"`
	IsFavorite  bool     `json:"is_favorite"`
	CreatedAt   int64    `json:"created_at"` // Unix millis
}

// ToMap converts the document to the field names of the index mapping.
func (d *LinkDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":          d.ID,
		"user_id":     d.UserID,
		"title":       d.Title,
		"url":         d.URL,
		"is_archived": d.IsArchived,
		"is_favorite": d.IsFavorite,
		"created_at":  d.CreatedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Content != "" {
		m["content"] = d.Content
	}
	if d.SiteName != "" {
		m["site_name"] = d.SiteName
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if len(d.TagIDs) > 0 {
		m["tag_ids"] = d.TagIDs
	}
	if len(d.Collections) > 0 {
		m["collections"] = d.Collections
	}
	return m
}

// NewLinkDocument builds the document for a link. The link must have been
// loaded with its tags and collections.
func NewLinkDocument(l *domain.LinkWithRelations) *LinkDocument {
	doc := &LinkDocument{
		ID:          l.ID,
		UserID:      l.UserID,
		Title:       l.Title,
		Description: l.Description,
		Content:     l.Content,
		URL:         l.URL,
		SiteName:    l.SiteName,
		IsArchived:  l.IsArchived,
		IsFavorite:  l.IsFavorite,
		CreatedAt:   l.CreatedAt.UnixMilli(),
	}
	for _, t := range l.Tags {
		doc.Tags = append(doc.Tags, t.Slug)
		doc.TagIDs = append(doc.TagIDs, t.ID)
	}
	for _, c := range l.Collections {
		doc.Collections = append(doc.Collections, c.ID)
	}
	return doc
}
