package domain

import "time"

// SearchHistoryEntry records one search a user ran.
type SearchHistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Query     string    `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// FrequentSearch is a query with the number of times it was run.
type FrequentSearch struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}
