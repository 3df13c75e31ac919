package domain

import "time"

// Link is a saved URL together with the metadata captured for it.
// A user saves a given URL at most once.
type Link struct {
	Timestamps
	UserID      string         `json:"user_id"`
	URL         string         `json:"url"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Content     string         `json:"content,omitempty"`
	Image       string         `json:"image,omitempty"`
	Favicon     string         `json:"favicon,omitempty"`
	SiteName    string         `json:"site_name,omitempty"`
	IsArchived  bool           `json:"is_archived"`
	IsFavorite  bool           `json:"is_favorite"`
	ReadingTime int            `json:"reading_time,omitempty"` // minutes
	LastVisited *time.Time     `json:"last_visited,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// LinkWithRelations is a link joined with the entities attached to it.
// Relations that were not requested stay nil.
type LinkWithRelations struct {
	Link
	Tags        []LinkTagView `json:"tags,omitempty"`
	Collections []Collection  `json:"collections,omitempty"`
	Notes       []Note        `json:"notes,omitempty"`
}

// LinkStats summarizes a user's library.
type LinkStats struct {
	Total       int `json:"total"`
	Favorites   int `json:"favorites"`
	Archived    int `json:"archived"`
	Tags        int `json:"tags"`
	Collections int `json:"collections"`
	Notes       int `json:"notes"`
}
