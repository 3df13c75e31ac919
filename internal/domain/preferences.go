package domain

import "time"

// View modes for the link list.
const (
	ViewModeGrid    = "grid"
	ViewModeList    = "list"
	ViewModeCompact = "compact"
)

// ViewPreferences stores how a user likes the link list presented.
type ViewPreferences struct {
	UserID        string    `json:"user_id"`
	ViewMode      string    `json:"view_mode"`
	SortBy        string    `json:"sort_by"`
	SortDirection string    `json:"sort_direction"`
	Theme         string    `json:"theme"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// DefaultViewPreferences returns the preferences used before a user saves any.
func DefaultViewPreferences(userID string) ViewPreferences {
	return ViewPreferences{
		UserID:        userID,
		ViewMode:      ViewModeGrid,
		SortBy:        "createdAt",
		SortDirection: "desc",
		Theme:         "system",
	}
}
