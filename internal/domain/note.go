package domain

// Note is a free-text annotation on exactly one link.
type Note struct {
	Timestamps
	LinkID  string `json:"link_id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// NoteWithLink is a note joined with the title and URL of its link.
type NoteWithLink struct {
	Note
	LinkTitle string `json:"link_title"`
	LinkURL   string `json:"link_url"`
}
