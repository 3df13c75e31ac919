package backup

import "time"

// FormatVersion is the export format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Archive paths.
const (
	ManifestFile      = "manifest.json"
	UserFile          = "user.json"
	PreferencesFile   = "preferences.json"
	LinksFile         = "links.jsonl"
	TagsFile          = "tags.jsonl"
	CollectionsFile   = "collections.jsonl"
	SearchHistoryFile = "search_history.jsonl"
)

// Manifest describes an export archive.
type Manifest struct {
	Version       string       `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	ServerVersion string       `json:"server_version"`
	UserID        string       `json:"user_id"`
	Counts        EntityCounts `json:"counts"`
}

// EntityCounts tracks how many entries each file holds.
type EntityCounts struct {
	Links         int `json:"links"`
	Tags          int `json:"tags"`
	Collections   int `json:"collections"`
	Notes         int `json:"notes"`
	SearchHistory int `json:"search_history"`
}
