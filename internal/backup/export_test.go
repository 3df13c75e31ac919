package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/backup/stream"
	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/store/sqlite"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func stamps(id string, offset int) domain.Timestamps {
	at := baseTime.Add(time.Duration(offset) * time.Minute)
	return domain.Timestamps{ID: id, CreatedAt: at, UpdatedAt: at}
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "pabliki.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedLibrary(t *testing.T, s *sqlite.Store, linkCount int) {
	t.Helper()
	ctx := context.Background()

	for _, u := range []struct{ id, email string }{{"usr_anna", "anna@example.com"}, {"usr_boris", "boris@example.com"}} {
		require.NoError(t, s.CreateUser(ctx, &domain.User{
			Timestamps:   stamps(u.id, 0),
			Name:         u.id,
			Email:        u.email,
			PasswordHash: "$argon2id$secret",
		}))
	}

	tag := &domain.Tag{Timestamps: stamps("tag_go", 0), UserID: "usr_anna", Name: "golang"}
	require.NoError(t, s.CreateTag(ctx, tag))
	lot := &domain.Collection{Timestamps: stamps("col_reading", 0), UserID: "usr_anna", Name: "Reading"}
	require.NoError(t, s.CreateCollection(ctx, lot))

	for i := range linkCount {
		l := &domain.Link{
			Timestamps: stamps(fmt.Sprintf("lnk_%03d", i), i),
			UserID:     "usr_anna",
			URL:        fmt.Sprintf("https://example.com/%d", i),
			Title:      fmt.Sprintf("Article %d", i),
		}
		var tags, lots []string
		if i == 0 {
			tags, lots = []string{tag.ID}, []string{lot.ID}
		}
		require.NoError(t, s.CreateLink(ctx, l, tags, lots))
	}
	require.NoError(t, s.CreateNote(ctx, &domain.Note{
		Timestamps: stamps("note_1", 0), LinkID: "lnk_000", UserID: "usr_anna", Content: "worth rereading",
	}))

	// Another user's data never leaks into the export.
	require.NoError(t, s.CreateLink(ctx, &domain.Link{
		Timestamps: stamps("lnk_boris", 0), UserID: "usr_boris", URL: "https://example.com/private", Title: "Private",
	}, nil, nil))

	_, err := s.RecordSearch(ctx, "usr_anna", "raft")
	require.NoError(t, err)
}

func TestExport(t *testing.T) {
	s := newStore(t)
	seedLibrary(t, s, 105)
	exporter := NewExporter(s, "1.2.3", logger.Discard())
	exporter.now = func() time.Time { return baseTime }

	var buf bytes.Buffer
	manifest, err := exporter.Export(context.Background(), "usr_anna", &buf)
	require.NoError(t, err)

	assert.Equal(t, FormatVersion, manifest.Version)
	assert.Equal(t, "1.2.3", manifest.ServerVersion)
	assert.Equal(t, EntityCounts{Links: 105, Tags: 1, Collections: 1, Notes: 1, SearchHistory: 1}, manifest.Counts)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var stored Manifest
	require.NoError(t, stream.ReadJSON(zr, ManifestFile, &stored))
	assert.Equal(t, manifest.Counts, stored.Counts)
	assert.True(t, baseTime.Equal(stored.CreatedAt))

	user := map[string]any{}
	require.NoError(t, stream.ReadJSON(zr, UserFile, &user))
	assert.Equal(t, "anna@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	rc, err := stream.OpenFile(zr, LinksFile)
	require.NoError(t, err)
	var links []domain.LinkWithRelations
	for l, err := range stream.NewReader[domain.LinkWithRelations](rc).All() {
		require.NoError(t, err)
		links = append(links, l)
	}
	require.Len(t, links, 105)
	assert.Equal(t, "lnk_000", links[0].ID, "oldest first")
	require.Len(t, links[0].Tags, 1)
	assert.Equal(t, "golang", links[0].Tags[0].Name)
	require.Len(t, links[0].Collections, 1)
	require.Len(t, links[0].Notes, 1)
	assert.Equal(t, "worth rereading", links[0].Notes[0].Content)
	for _, l := range links {
		assert.Equal(t, "usr_anna", l.UserID)
	}
}

func TestExport_UnknownUser(t *testing.T) {
	s := newStore(t)
	_, err := NewExporter(s, "dev", logger.Discard()).Export(context.Background(), "usr_ghost", &bytes.Buffer{})
	assert.Error(t, err)
}
