package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/store"
)

func seedCollection(t *testing.T, s *Store, userID, id, name string, parentID *string) *domain.Collection {
	t.Helper()
	c := &domain.Collection{
		Timestamps: domain.Timestamps{ID: id, CreatedAt: baseTime, UpdatedAt: baseTime},
		UserID:     userID,
		Name:       name,
		IsPrivate:  true,
		ParentID:   parentID,
	}
	require.NoError(t, s.CreateCollection(context.Background(), c))
	return c
}

func ptr[T any](v T) *T { return &v }

func TestCollectionTreeQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "usr-1", "anna@example.com")

	seedCollection(t, s, u.ID, "col-work", "Work", nil)
	seedCollection(t, s, u.ID, "col-home", "home", nil)
	seedCollection(t, s, u.ID, "col-go", "Go", ptr("col-work"))
	seedCollection(t, s, u.ID, "col-gen", "Generics", ptr("col-go"))

	roots, err := s.ListRootCollections(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"col-home", "col-work"}, collectionIDs(roots))

	children, err := s.ListChildCollections(ctx, u.ID, "col-work")
	require.NoError(t, err)
	assert.Equal(t, []string{"col-go"}, collectionIDs(children))

	path, err := s.GetCollectionPath(ctx, u.ID, "col-gen")
	require.NoError(t, err)
	assert.Equal(t, []string{"col-work", "col-go", "col-gen"}, collectionIDs(path))

	all, err := s.ListCollections(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestCreateCollection_ForeignParent(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "usr-1", "anna@example.com")
	other := seedUser(t, s, "usr-2", "boris@example.com")
	seedCollection(t, s, other.ID, "col-theirs", "Theirs", nil)

	c := &domain.Collection{
		Timestamps: domain.Timestamps{ID: "col-mine", CreatedAt: baseTime, UpdatedAt: baseTime},
		UserID:     u.ID, Name: "Mine", ParentID: ptr("col-theirs"),
	}
	assert.ErrorIs(t, s.CreateCollection(context.Background(), c), store.ErrNotFound)
}

func TestMoveCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "usr-1", "anna@example.com")
	seedCollection(t, s, u.ID, "col-a", "A", nil)
	seedCollection(t, s, u.ID, "col-b", "B", ptr("col-a"))
	seedCollection(t, s, u.ID, "col-c", "C", ptr("col-b"))
	seedCollection(t, s, u.ID, "col-d", "D", nil)

	_, err := s.MoveCollection(ctx, u.ID, "col-a", ptr("col-c"))
	assert.ErrorIs(t, err, store.ErrCycle)

	_, err = s.MoveCollection(ctx, u.ID, "col-a", ptr("col-a"))
	assert.ErrorIs(t, err, store.ErrCycle)

	moved, err := s.MoveCollection(ctx, u.ID, "col-b", ptr("col-d"))
	require.NoError(t, err)
	require.NotNil(t, moved.ParentID)
	assert.Equal(t, "col-d", *moved.ParentID)

	moved, err = s.MoveCollection(ctx, u.ID, "col-b", nil)
	require.NoError(t, err)
	assert.True(t, moved.IsRoot())

	_, err = s.MoveCollection(ctx, u.ID, "col-b", ptr("col-missing"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteCollection_RemovesSubtree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "usr-1", "anna@example.com")
	seedCollection(t, s, u.ID, "col-a", "A", nil)
	seedCollection(t, s, u.ID, "col-b", "B", ptr("col-a"))
	seedCollection(t, s, u.ID, "col-c", "C", ptr("col-b"))
	seedCollection(t, s, u.ID, "col-keep", "Keep", nil)
	seedLink(t, s, u.ID, "lnk-1", "https://example.com", "Example", 0)
	_, err := s.AddLinkToCollection(ctx, "lnk-1", "col-c")
	require.NoError(t, err)

	deleted, err := s.DeleteCollection(ctx, u.ID, "col-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"col-a", "col-b", "col-c"}, deleted)

	remaining, err := s.ListCollections(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"col-keep"}, collectionIDs(remaining))

	// The link itself survives; only its membership goes.
	got, err := s.GetLink(ctx, u.ID, "lnk-1", store.LinkRelations{Collections: true})
	require.NoError(t, err)
	assert.Empty(t, got.Collections)

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM link_collections WHERE link_id = 'lnk-1'`).Scan(&rows))
	assert.Zero(t, rows)

	_, err = s.DeleteCollection(ctx, u.ID, "col-a")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLinkCollectionMembership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "usr-1", "anna@example.com")
	seedCollection(t, s, u.ID, "col-a", "Reading", nil)
	seedCollection(t, s, u.ID, "col-b", "Archive", nil)
	seedLink(t, s, u.ID, "lnk-1", "https://one.example", "One", 0)
	seedLink(t, s, u.ID, "lnk-2", "https://two.example", "Two", 1)

	first, err := s.AddLinkToCollection(ctx, "lnk-1", "col-a")
	require.NoError(t, err)
	again, err := s.AddLinkToCollection(ctx, "lnk-1", "col-a")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = s.AddLinkToCollection(ctx, "lnk-2", "col-a")
	require.NoError(t, err)
	_, err = s.AddLinkToCollection(ctx, "lnk-1", "col-b")
	require.NoError(t, err)

	links, err := s.ListCollectionLinks(ctx, u.ID, "col-a", store.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"lnk-2", "lnk-1"}, linkIDs(links))

	cols, err := s.ListCollectionsForLink(ctx, u.ID, "lnk-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"col-b", "col-a"}, collectionIDs(cols))

	counts, err := s.ListCollectionsWithLinkCount(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, 1, counts[0].LinkCount)
	assert.Equal(t, 2, counts[1].LinkCount)

	require.NoError(t, s.RemoveLinkFromCollection(ctx, "lnk-1", "col-a"))
	assert.ErrorIs(t, s.RemoveLinkFromCollection(ctx, "lnk-1", "col-a"), store.ErrNotFound)
}

func TestSearchAndUpdateCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "usr-1", "anna@example.com")
	c := seedCollection(t, s, u.ID, "col-a", "Кулинария", nil)

	c.Description = "Рецепты на каждый день"
	c.Icon = "🍳"
	require.NoError(t, s.UpdateCollection(ctx, c))

	found, err := s.SearchCollections(ctx, u.ID, "РЕЦЕПТЫ")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "🍳", found[0].Icon)

	found, err = s.SearchCollections(ctx, u.ID, "кулин")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func collectionIDs(cols []*domain.Collection) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.ID
	}
	return out
}
