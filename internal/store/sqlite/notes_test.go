package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/store"
)

func seedNote(t *testing.T, s *Store, userID, linkID, id, content string, offset int) *domain.Note {
	t.Helper()
	at := baseTime.Add(time.Duration(offset) * time.Minute)
	n := &domain.Note{
		Timestamps: domain.Timestamps{ID: id, CreatedAt: at, UpdatedAt: at},
		LinkID:     linkID,
		UserID:     userID,
		Content:    content,
	}
	require.NoError(t, s.CreateNote(context.Background(), n))
	return n
}

func TestNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "usr-1", "anna@example.com")
	seedLink(t, s, u.ID, "lnk-1", "https://one.example", "One", 0)
	seedLink(t, s, u.ID, "lnk-2", "https://two.example", "Two", 1)

	seedNote(t, s, u.ID, "lnk-1", "note-1", "первая заметка", 0)
	n2 := seedNote(t, s, u.ID, "lnk-1", "note-2", "second thought", 1)
	seedNote(t, s, u.ID, "lnk-2", "note-3", "Другая ЗАМЕТКА", 2)

	forLink, err := s.ListNotesForLink(ctx, "lnk-1")
	require.NoError(t, err)
	require.Len(t, forLink, 2)
	assert.Equal(t, "note-2", forLink[0].ID)

	all, err := s.ListNotes(ctx, u.ID, store.ListParams{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "note-3", all[0].ID)
	assert.Equal(t, "Two", all[0].LinkTitle)
	assert.Equal(t, "https://two.example", all[0].LinkURL)

	found, err := s.SearchNotes(ctx, u.ID, "заметка", store.ListParams{})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	n2.Content = "revised"
	n2.UpdatedAt = baseTime.Add(time.Hour)
	require.NoError(t, s.UpdateNote(ctx, n2))
	got, err := s.GetNote(ctx, "note-2")
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Content)

	owned, err := s.NoteBelongsTo(ctx, "note-2", u.ID)
	require.NoError(t, err)
	assert.True(t, owned)
	owned, err = s.NoteBelongsTo(ctx, "note-2", "usr-other")
	require.NoError(t, err)
	assert.False(t, owned)

	removed, err := s.DeleteNotesForLink(ctx, "lnk-1")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	require.NoError(t, s.DeleteNote(ctx, "note-3"))
	assert.ErrorIs(t, s.DeleteNote(ctx, "note-3"), store.ErrNotFound)
}

func TestCreateNote_ForeignLink(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "usr-1", "anna@example.com")
	other := seedUser(t, s, "usr-2", "boris@example.com")
	seedLink(t, s, other.ID, "lnk-1", "https://one.example", "One", 0)

	n := &domain.Note{
		Timestamps: domain.Timestamps{ID: "note-1", CreatedAt: baseTime, UpdatedAt: baseTime},
		LinkID:     "lnk-1", UserID: u.ID, Content: "hi",
	}
	assert.ErrorIs(t, s.CreateNote(context.Background(), n), store.ErrNotFound)
}
