package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/domain"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/store"
)

func TestCollectionTreeOperations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")

	work, err := env.collections.Create(ctx, user.ID, CreateCollectionRequest{Name: "Work"})
	require.NoError(t, err)
	assert.True(t, work.IsPrivate)
	golang, err := env.collections.Create(ctx, user.ID, CreateCollectionRequest{Name: "Go", ParentID: &work.ID})
	require.NoError(t, err)
	generics, err := env.collections.Create(ctx, user.ID, CreateCollectionRequest{Name: "Generics", ParentID: &golang.ID})
	require.NoError(t, err)

	tree, err := env.collections.Tree(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, generics.ID, tree[0].Children[0].Children[0].ID)

	path, err := env.collections.Path(ctx, user.ID, generics.ID)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, work.ID, path[0].ID)
	assert.Equal(t, generics.ID, path[2].ID)

	_, err = env.collections.Move(ctx, user.ID, work.ID, MoveCollectionRequest{ParentID: &generics.ID})
	assert.Contains(t, fieldErrors(t, err), "parent_id")

	moved, err := env.collections.Move(ctx, user.ID, generics.ID, MoveCollectionRequest{})
	require.NoError(t, err)
	assert.True(t, moved.IsRoot())

	roots, err := env.collections.Roots(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, roots, 2)

	activities, err := env.activity.List(ctx, user.ID, ActivityQuery{Type: domain.ActionCreateCollection})
	require.NoError(t, err)
	assert.Len(t, activities, 3)
}

func TestCollectionForeignParent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anna := env.register(t, "Anna", "anna@example.com")
	boris := env.register(t, "Boris", "boris@example.com")
	theirs, err := env.collections.Create(ctx, boris.ID, CreateCollectionRequest{Name: "Theirs"})
	require.NoError(t, err)

	_, err = env.collections.Create(ctx, anna.ID, CreateCollectionRequest{Name: "Mine", ParentID: &theirs.ID})
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(err))
}

func TestCollectionLinksAndRecursiveDelete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")
	link := env.saveLink(t, user.ID, "https://example.com", "Example")

	parent, err := env.collections.Create(ctx, user.ID, CreateCollectionRequest{Name: "Parent"})
	require.NoError(t, err)
	child, err := env.collections.Create(ctx, user.ID, CreateCollectionRequest{Name: "Child", ParentID: &parent.ID})
	require.NoError(t, err)

	first, err := env.collections.AddLink(ctx, user.ID, child.ID, link.ID)
	require.NoError(t, err)
	again, err := env.collections.AddLink(ctx, user.ID, child.ID, link.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	links, err := env.collections.Links(ctx, user.ID, child.ID, store.ListParams{})
	require.NoError(t, err)
	require.Len(t, links, 1)

	forLink, err := env.collections.ForLink(ctx, user.ID, link.ID)
	require.NoError(t, err)
	require.Len(t, forLink, 1)

	deleted, err := env.collections.Delete(ctx, user.ID, parent.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{parent.ID, child.ID}, deleted)

	// The link survives without its membership.
	got, err := env.links.Get(ctx, user.ID, link.ID, store.LinkRelations{Collections: true})
	require.NoError(t, err)
	assert.Empty(t, got.Collections)
}

func TestCollectionUpdateAndSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")
	c, err := env.collections.Create(ctx, user.ID, CreateCollectionRequest{Name: "Recipes"})
	require.NoError(t, err)

	updated, err := env.collections.Update(ctx, user.ID, c.ID, UpdateCollectionRequest{
		Description: ptr("Weeknight dinners"),
		IsPrivate:   ptr(false),
		Color:       ptr("#00AA00"),
	})
	require.NoError(t, err)
	assert.False(t, updated.IsPrivate)
	assert.Equal(t, "#00aa00", updated.Color)

	found, err := env.collections.Search(ctx, user.ID, "DINNERS")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	counts, err := env.collections.ListWithCounts(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Zero(t, counts[0].LinkCount)
}
