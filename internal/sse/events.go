// Package sse streams per-user change events to connected browsers.
package sse

import "time"

// EventType names an event on the wire ("event:" line).
type EventType string

const (
	EventLinkCreated EventType = "link.created"
	EventLinkUpdated EventType = "link.updated"
	EventLinkDeleted EventType = "link.deleted"

	EventLinkTagAdded   EventType = "link.tag_added"
	EventLinkTagRemoved EventType = "link.tag_removed"

	EventTagCreated EventType = "tag.created"
	EventTagUpdated EventType = "tag.updated"
	EventTagDeleted EventType = "tag.deleted"

	EventCollectionCreated     EventType = "collection.created"
	EventCollectionUpdated     EventType = "collection.updated"
	EventCollectionDeleted     EventType = "collection.deleted"
	EventCollectionLinkAdded   EventType = "collection.link_added"
	EventCollectionLinkRemoved EventType = "collection.link_removed"

	EventNoteCreated EventType = "note.created"
	EventNoteUpdated EventType = "note.updated"
	EventNoteDeleted EventType = "note.deleted"

	// EventHeartbeat keeps idle connections open through proxies.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message for one user. Events without a UserID are delivered to
// every client; only heartbeats are sent that way.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	UserID    string    `json:"-"`
}

// NewEvent builds an event addressed to userID.
func NewEvent(userID string, t EventType, data any) Event {
	return Event{Type: t, Timestamp: time.Now().UTC(), Data: data, UserID: userID}
}

// NewHeartbeatEvent builds a heartbeat for all clients.
func NewHeartbeatEvent() Event {
	return Event{Type: EventHeartbeat, Timestamp: time.Now().UTC()}
}

// IDPayload is the body of deletion and association events.
type IDPayload struct {
	ID           string   `json:"id"`
	LinkID       string   `json:"link_id,omitempty"`
	TagID        string   `json:"tag_id,omitempty"`
	CollectionID string   `json:"collection_id,omitempty"`
	DeletedIDs   []string `json:"deleted_ids,omitempty"`
}
