// Package store defines the persistence interfaces for the Pabliki server.
//
// Every read and write of user-owned data is scoped by user id: a row that
// exists but belongs to another user is reported as ErrNotFound.
package store

import (
	"context"
	"iter"
	"time"

	"github.com/pabliki/pabliki-server/internal/domain"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	UpdateUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
}

// SessionStore persists refresh-token sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	UpdateSession(ctx context.Context, session *domain.Session) error
	DeleteSession(ctx context.Context, id string) error
	ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error)
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// LinkStore persists links and their associations.
type LinkStore interface {
	ListLinks(ctx context.Context, userID string, params LinkListParams) (*Page[*domain.Link], error)
	GetLink(ctx context.Context, userID, id string, rel LinkRelations) (*domain.LinkWithRelations, error)
	GetLinkByURL(ctx context.Context, userID, url string) (*domain.Link, error)
	CreateLink(ctx context.Context, link *domain.Link, tagIDs, collectionIDs []string) error
	UpdateLink(ctx context.Context, link *domain.Link) error
	ToggleLinkFavorite(ctx context.Context, userID, id string) (*domain.Link, error)
	ToggleLinkArchive(ctx context.Context, userID, id string) (*domain.Link, error)
	DeleteLink(ctx context.Context, userID, id string) error
	SearchLinks(ctx context.Context, userID string, params LinkSearchParams) (*Page[*domain.Link], error)
	GetLinksByIDs(ctx context.Context, userID string, ids []string) ([]*domain.Link, error)
	GetLinkStats(ctx context.Context, userID string) (*domain.LinkStats, error)
	TouchLinkVisited(ctx context.Context, userID, id string, at time.Time) error
	AllLinks(ctx context.Context) iter.Seq2[*domain.Link, error]
}

// TagStore persists tags and link-tag associations.
type TagStore interface {
	ListTags(ctx context.Context, userID string) ([]*domain.Tag, error)
	GetTag(ctx context.Context, userID, id string) (*domain.Tag, error)
	GetTagByName(ctx context.Context, userID, name string) (*domain.Tag, error)
	CreateTag(ctx context.Context, tag *domain.Tag) error
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	DeleteTag(ctx context.Context, userID, id string) error
	GetOrCreateTag(ctx context.Context, userID, name string, isAI bool) (*domain.Tag, bool, error)
	CreateTags(ctx context.Context, userID string, names []string, isAI bool) ([]*domain.Tag, error)
	AddTagToLink(ctx context.Context, linkID, tagID string, confidence *float64) (*domain.LinkTag, error)
	RemoveTagFromLink(ctx context.Context, linkID, tagID string) error
	ListTagsForLink(ctx context.Context, linkID string) ([]domain.LinkTagView, error)
	ListLinksForTag(ctx context.Context, userID, tagID string, params ListParams) ([]*domain.Link, error)
	ListTagsWithLinkCount(ctx context.Context, userID string) ([]domain.TagWithCount, error)
	SearchTags(ctx context.Context, userID, query string) ([]*domain.Tag, error)
	ListAIGeneratedTags(ctx context.Context, userID string) ([]*domain.Tag, error)
}

// CollectionStore persists the collection tree and link-collection associations.
type CollectionStore interface {
	ListCollections(ctx context.Context, userID string) ([]*domain.Collection, error)
	ListRootCollections(ctx context.Context, userID string) ([]*domain.Collection, error)
	ListChildCollections(ctx context.Context, userID, parentID string) ([]*domain.Collection, error)
	ListCollectionsWithLinkCount(ctx context.Context, userID string) ([]domain.CollectionWithCount, error)
	GetCollection(ctx context.Context, userID, id string) (*domain.Collection, error)
	CreateCollection(ctx context.Context, c *domain.Collection) error
	UpdateCollection(ctx context.Context, c *domain.Collection) error
	DeleteCollection(ctx context.Context, userID, id string) ([]string, error)
	MoveCollection(ctx context.Context, userID, id string, parentID *string) (*domain.Collection, error)
	GetCollectionPath(ctx context.Context, userID, id string) ([]*domain.Collection, error)
	SearchCollections(ctx context.Context, userID, query string) ([]*domain.Collection, error)
	AddLinkToCollection(ctx context.Context, linkID, collectionID string) (*domain.LinkCollection, error)
	RemoveLinkFromCollection(ctx context.Context, linkID, collectionID string) error
	ListCollectionLinks(ctx context.Context, userID, collectionID string, params ListParams) ([]*domain.Link, error)
	ListCollectionsForLink(ctx context.Context, userID, linkID string) ([]*domain.Collection, error)
}

// NoteStore persists notes.
type NoteStore interface {
	ListNotesForLink(ctx context.Context, linkID string) ([]*domain.Note, error)
	ListNotes(ctx context.Context, userID string, params ListParams) ([]*domain.NoteWithLink, error)
	GetNote(ctx context.Context, id string) (*domain.Note, error)
	CreateNote(ctx context.Context, note *domain.Note) error
	UpdateNote(ctx context.Context, note *domain.Note) error
	DeleteNote(ctx context.Context, id string) error
	DeleteNotesForLink(ctx context.Context, linkID string) (int, error)
	NoteBelongsTo(ctx context.Context, noteID, userID string) (bool, error)
	SearchNotes(ctx context.Context, userID, query string, params ListParams) ([]*domain.NoteWithLink, error)
}

// SearchHistoryStore persists the searches users run.
type SearchHistoryStore interface {
	RecordSearch(ctx context.Context, userID, query string) (*domain.SearchHistoryEntry, error)
	ListRecentSearches(ctx context.Context, userID string, limit int) ([]*domain.SearchHistoryEntry, error)
	ListFrequentSearches(ctx context.Context, userID string, limit int) ([]domain.FrequentSearch, error)
	ClearSearchHistory(ctx context.Context, userID string) (int, error)
	DeleteSearch(ctx context.Context, userID, id string) error
}

// ActivityFilter narrows an activity listing. Zero values mean no constraint.
type ActivityFilter struct {
	ListParams
	ActionType domain.ActionType
	Since      *time.Time
	Until      *time.Time
}

// ActivityStore persists the append-only activity log.
type ActivityStore interface {
	LogActivity(ctx context.Context, a *domain.Activity) error
	ListActivities(ctx context.Context, userID string, filter ActivityFilter) ([]*domain.Activity, error)
	ListEntityActivities(ctx context.Context, entityID string, params ListParams) ([]*domain.ActivityWithUser, error)
	DeleteActivitiesBefore(ctx context.Context, before time.Time) (int, error)
	ActivityFrequency(ctx context.Context, userID string, days int) ([]domain.ActivityFrequency, error)
}

// PreferencesStore persists view preferences.
type PreferencesStore interface {
	GetViewPreferences(ctx context.Context, userID string) (*domain.ViewPreferences, error)
	SaveViewPreferences(ctx context.Context, prefs *domain.ViewPreferences) error
}

// Store is the complete persistence interface.
type Store interface {
	UserStore
	SessionStore
	LinkStore
	TagStore
	CollectionStore
	NoteStore
	SearchHistoryStore
	ActivityStore
	PreferencesStore

	Ping(ctx context.Context) error
	Close() error
}
