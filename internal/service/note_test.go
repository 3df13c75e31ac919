package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store"
)

func TestNoteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.register(t, "Anna", "anna@example.com")
	link := env.saveLink(t, user.ID, "https://example.com", "Example")

	note, err := env.notes.Create(ctx, user.ID, link.ID, NoteRequest{Content: "  worth rereading  "})
	require.NoError(t, err)
	assert.Equal(t, "worth rereading", note.Content)

	forLink, err := env.notes.ForLink(ctx, user.ID, link.ID)
	require.NoError(t, err)
	require.Len(t, forLink, 1)

	updated, err := env.notes.Update(ctx, user.ID, note.ID, NoteRequest{Content: "read twice"})
	require.NoError(t, err)
	assert.Equal(t, "read twice", updated.Content)

	found, err := env.notes.Search(ctx, user.ID, "TWICE", store.ListParams{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Example", found[0].LinkTitle)

	require.NoError(t, env.notes.Delete(ctx, user.ID, note.ID))
	_, err = env.notes.Get(ctx, user.ID, note.ID)
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(err))

	assert.Equal(t, []sse.EventType{
		sse.EventLinkCreated, sse.EventNoteCreated, sse.EventNoteUpdated, sse.EventNoteDeleted,
	}, env.events.types())
}

func TestNotesAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	anna := env.register(t, "Anna", "anna@example.com")
	boris := env.register(t, "Boris", "boris@example.com")
	link := env.saveLink(t, anna.ID, "https://example.com", "Example")
	note, err := env.notes.Create(ctx, anna.ID, link.ID, NoteRequest{Content: "mine"})
	require.NoError(t, err)

	_, err = env.notes.Create(ctx, boris.ID, link.ID, NoteRequest{Content: "sneaky"})
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(err))

	_, err = env.notes.Update(ctx, boris.ID, note.ID, NoteRequest{Content: "changed"})
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(err))
	assert.Equal(t, domainerrors.CodeNotFound, codeOf(env.notes.Delete(ctx, boris.ID, note.ID)))

	_, err = env.notes.Create(ctx, anna.ID, link.ID, NoteRequest{Content: "   "})
	assert.Contains(t, fieldErrors(t, err), "content")
}
