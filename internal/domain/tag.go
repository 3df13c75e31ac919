package domain

import "time"

// Tag is a user-owned label. Slug is the normalized name and is unique per user,
// so "Go Lang" and "go-lang" resolve to the same tag.
type Tag struct {
	Timestamps
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Slug          string `json:"slug"`
	Color         string `json:"color,omitempty"`
	IsAIGenerated bool   `json:"is_ai_generated"`
}

// LinkTag associates a tag with a link. Confidence is set only for
// AI-suggested tags and lies in [0, 1].
type LinkTag struct {
	ID         string    `json:"id"`
	LinkID     string    `json:"link_id"`
	TagID      string    `json:"tag_id"`
	Confidence *float64  `json:"confidence,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// LinkTagView is a tag as seen from one link, carrying the association's confidence.
type LinkTagView struct {
	Tag
	Confidence *float64 `json:"confidence,omitempty"`
}

// TagWithCount is a tag together with the number of links carrying it.
type TagWithCount struct {
	Tag
	LinkCount int `json:"link_count"`
}
