package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/color"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/search"
	"github.com/pabliki/pabliki-server/internal/sse"
)

func TestTagCreateAndConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")

	tag, err := env.tags.Create(ctx, user.ID, CreateTagRequest{Name: "  Machine   Learning ", Color: "#FF8800"})
	require.NoError(t, err)
	assert.Equal(t, "machine-learning", tag.Slug)
	assert.Equal(t, "#ff8800", tag.Color)

	_, err = env.tags.Create(ctx, user.ID, CreateTagRequest{Name: "machine learning"})
	assert.Equal(t, domainerrors.CodeConflict, codeOf(err))

	_, err = env.tags.Create(ctx, user.ID, CreateTagRequest{Name: "x", Color: "red"})
	assert.Contains(t, fieldErrors(t, err), "color")

	plain, err := env.tags.Create(ctx, user.ID, CreateTagRequest{Name: "Databases"})
	require.NoError(t, err)
	assert.Equal(t, color.ForKey("databases"), plain.Color)
}

func TestTagGetOrCreateIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")

	first, err := env.tags.GetOrCreate(ctx, user.ID, "Go Lang", false)
	require.NoError(t, err)
	second, err := env.tags.GetOrCreate(ctx, user.ID, "  go   LANG", false)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []sse.EventType{sse.EventTagCreated}, env.events.types())
}

func TestTagBatchCreateMarksAI(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")
	_, err := env.tags.Create(ctx, user.ID, CreateTagRequest{Name: "manual"})
	require.NoError(t, err)

	tags, err := env.tags.BatchCreate(ctx, user.ID, BatchCreateTagsRequest{Names: []string{"Manual", "suggested"}})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.False(t, tags[0].IsAIGenerated)
	assert.True(t, tags[1].IsAIGenerated)

	ai, err := env.tags.ListAIGenerated(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, ai, 1)
	assert.Equal(t, "suggested", ai[0].Name)
}

func TestAttachTagToLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")
	link := env.saveLink(t, user.ID, "https://example.com", "Example")

	lt, tag, err := env.tags.AttachToLink(ctx, user.ID, link.ID, AttachTagRequest{Name: "golang", Confidence: ptr(0.87)})
	require.NoError(t, err)
	assert.True(t, tag.IsAIGenerated)
	require.NotNil(t, lt.Confidence)

	again, _, err := env.tags.AttachToLink(ctx, user.ID, link.ID, AttachTagRequest{TagID: tag.ID, Confidence: ptr(0.1)})
	require.NoError(t, err)
	assert.Equal(t, lt.ID, again.ID)
	assert.InDelta(t, 0.87, *again.Confidence, 1e-9)

	views, err := env.tags.ForLink(ctx, user.ID, link.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	res, err := env.index.Search(ctx, search.Params{UserID: user.ID, TagIDs: []string{tag.ID}})
	require.NoError(t, err)
	assert.Equal(t, []string{link.ID}, res.IDs())

	require.NoError(t, env.tags.DetachFromLink(ctx, user.ID, link.ID, tag.ID))
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(env.tags.DetachFromLink(ctx, user.ID, link.ID, tag.ID)))
}

func TestAttachTag_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")
	link := env.saveLink(t, user.ID, "https://example.com", "Example")

	_, _, err := env.tags.AttachToLink(ctx, user.ID, link.ID, AttachTagRequest{})
	assert.Contains(t, fieldErrors(t, err), "tag_id")

	_, _, err = env.tags.AttachToLink(ctx, user.ID, link.ID, AttachTagRequest{Name: "x", Confidence: ptr(1.5)})
	assert.Contains(t, fieldErrors(t, err), "confidence")
}

func TestAttachTag_ForeignEntitiesAreNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anna := env.register(t, "Anna", "anna@example.com")
	boris := env.register(t, "Boris", "boris@example.com")
	annasLink := env.saveLink(t, anna.ID, "https://example.com", "Example")
	borisTag, err := env.tags.Create(ctx, boris.ID, CreateTagRequest{Name: "private"})
	require.NoError(t, err)

	_, _, err = env.tags.AttachToLink(ctx, anna.ID, annasLink.ID, AttachTagRequest{TagID: borisTag.ID})
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(err))

	_, _, err = env.tags.AttachToLink(ctx, boris.ID, annasLink.ID, AttachTagRequest{TagID: borisTag.ID})
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(err))
}

func TestDeleteTagReindexesLinks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")
	link := env.saveLink(t, user.ID, "https://example.com", "Example")
	_, tag, err := env.tags.AttachToLink(ctx, user.ID, link.ID, AttachTagRequest{Name: "temp"})
	require.NoError(t, err)

	require.NoError(t, env.tags.Delete(ctx, user.ID, tag.ID))

	res, err := env.index.Search(ctx, search.Params{UserID: user.ID, TagIDs: []string{tag.ID}})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	assert.Equal(t, domainerrors.CodeNotFound, codeOf(env.tags.Delete(ctx, user.ID, tag.ID)))
}
