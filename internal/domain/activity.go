package domain

import "time"

// ActionType enumerates the actions recorded in the activity log.
type ActionType string

const (
	ActionSaveLink         ActionType = "save_link"
	ActionDeleteLink       ActionType = "delete_link"
	ActionUpdateLink       ActionType = "update_link"
	ActionAddTag           ActionType = "add_tag"
	ActionRemoveTag        ActionType = "remove_tag"
	ActionCreateCollection ActionType = "create_collection"
	ActionAddToCollection  ActionType = "add_to_collection"
	ActionSearch           ActionType = "search"
	ActionVisitLink        ActionType = "visit_link"
)

// ActionTypes lists every recorded action type.
var ActionTypes = []ActionType{
	ActionSaveLink, ActionDeleteLink, ActionUpdateLink,
	ActionAddTag, ActionRemoveTag,
	ActionCreateCollection, ActionAddToCollection,
	ActionSearch, ActionVisitLink,
}

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	for _, t := range ActionTypes {
		if t == a {
			return true
		}
	}
	return false
}

// Activity is an append-only audit entry. EntityID is empty for actions
// without a target entity, such as search.
type Activity struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	ActionType ActionType     `json:"action_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ActivityWithUser is an activity joined with the acting user's name and email.
type ActivityWithUser struct {
	Activity
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// ActivityFrequency counts actions of one type on one UTC day (YYYY-MM-DD).
type ActivityFrequency struct {
	ActionType ActionType `json:"action_type"`
	Day        string     `json:"day"`
	Count      int        `json:"count"`
}
