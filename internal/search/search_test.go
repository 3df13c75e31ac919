package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/domain"
)

func setupTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := Open(Options{DataPath: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })
	return index
}

func seedDocs(t *testing.T, index *Index) {
	t.Helper()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	docs := []*LinkDocument{
		{ID: "lnk-1", UserID: "usr-1", Title: "Concurrency in Go", Description: "Goroutines and channels",
			URL: "https://go.dev/blog/concurrency", Tags: []string{"go"}, TagIDs: []string{"tag-go"},
			Collections: []string{"col-work"}, CreatedAt: base.UnixMilli()},
		{ID: "lnk-2", UserID: "usr-1", Title: "Generics tutorial", Description: "Type parameters in Go",
			URL: "https://go.dev/doc/tutorial/generics", Tags: []string{"go", "tutorial"},
			TagIDs: []string{"tag-go", "tag-tutorial"}, CreatedAt: base.Add(time.Hour).UnixMilli()},
		{ID: "lnk-3", UserID: "usr-1", Title: "Рецепт борща", Content: "Свёкла, капуста и картофель",
			URL: "https://food.example/borsch", IsArchived: true, CreatedAt: base.Add(2 * time.Hour).UnixMilli()},
		{ID: "lnk-4", UserID: "usr-2", Title: "Go at scale", URL: "https://example.com/go",
			Tags: []string{"go"}, TagIDs: []string{"tag-other"}, CreatedAt: base.UnixMilli()},
	}
	require.NoError(t, index.IndexLinks(docs))
}

func TestOpen_CreatesEmptyIndex(t *testing.T) {
	index := setupTestIndex(t)
	assert.True(t, index.Created())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOpen_RebuildsOnMappingChange(t *testing.T) {
	dir := t.TempDir()
	index, err := Open(Options{DataPath: dir})
	require.NoError(t, err)
	require.NoError(t, index.IndexLink(&LinkDocument{ID: "lnk-1", UserID: "usr-1", Title: "x"}))
	require.NoError(t, index.Close())

	reopened, err := Open(Options{DataPath: dir})
	require.NoError(t, err)
	assert.False(t, reopened.Created())
	require.NoError(t, reopened.Close())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.version"), []byte("0"), 0o644))
	rebuilt, err := Open(Options{DataPath: dir})
	require.NoError(t, err)
	defer rebuilt.Close()
	assert.True(t, rebuilt.Created())
	count, err := rebuilt.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSearch_ScopedToUser(t *testing.T) {
	index := setupTestIndex(t)
	seedDocs(t, index)

	res, err := index.Search(context.Background(), Params{UserID: "usr-1", Query: "go"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lnk-1", "lnk-2"}, res.IDs())

	_, err = index.Search(context.Background(), Params{Query: "go"})
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestSearch_ArchivedExcludedByDefault(t *testing.T) {
	index := setupTestIndex(t)
	seedDocs(t, index)
	ctx := context.Background()

	res, err := index.Search(ctx, Params{UserID: "usr-1", Query: "борща"})
	require.NoError(t, err)
	assert.Empty(t, res.Hits)

	res, err = index.Search(ctx, Params{UserID: "usr-1", Query: "капуста", IncludeArchived: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"lnk-3"}, res.IDs())
}

func TestSearch_TagAndCollectionFiltersIntersect(t *testing.T) {
	index := setupTestIndex(t)
	seedDocs(t, index)
	ctx := context.Background()

	res, err := index.Search(ctx, Params{UserID: "usr-1", TagIDs: []string{"tag-go"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"lnk-2", "lnk-1"}, res.IDs(), "empty query sorts newest first")

	res, err = index.Search(ctx, Params{UserID: "usr-1", TagIDs: []string{"tag-go", "tag-tutorial"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"lnk-2"}, res.IDs())

	res, err = index.Search(ctx, Params{UserID: "usr-1", TagIDs: []string{"tag-go"}, CollectionIDs: []string{"col-work"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"lnk-1"}, res.IDs())
}

func TestSearch_PrefixAndFuzzy(t *testing.T) {
	index := setupTestIndex(t)
	seedDocs(t, index)
	ctx := context.Background()

	res, err := index.Search(ctx, Params{UserID: "usr-1", Query: "Gener"})
	require.NoError(t, err)
	assert.Contains(t, res.IDs(), "lnk-2")

	res, err = index.Search(ctx, Params{UserID: "usr-1", Query: "genrics"})
	require.NoError(t, err)
	assert.Contains(t, res.IDs(), "lnk-2")
}

func TestSearch_FacetsAndHighlights(t *testing.T) {
	index := setupTestIndex(t)
	seedDocs(t, index)

	res, err := index.Search(context.Background(), Params{UserID: "usr-1", Query: "concurrency", Highlight: true})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "lnk-1", res.Hits[0].ID)
	assert.Equal(t, "Concurrency in Go", res.Hits[0].Title)
	assert.Contains(t, res.Hits[0].Highlights["title"], "<mark>")

	facets := map[string]int{}
	for _, f := range res.TagFacets {
		facets[f.Value] = f.Count
	}
	assert.Equal(t, 1, facets["go"])
}

func TestDeleteAndRebuild(t *testing.T) {
	index := setupTestIndex(t)
	seedDocs(t, index)

	require.NoError(t, index.DeleteLink("lnk-1"))
	require.NoError(t, index.DeleteLinks([]string{"lnk-2", "missing"}))
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	require.NoError(t, index.Rebuild())
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewLinkDocument(t *testing.T) {
	l := &domain.LinkWithRelations{
		Link: domain.Link{
			Timestamps: domain.Timestamps{ID: "lnk-1", CreatedAt: time.UnixMilli(1000)},
			UserID:     "usr-1", URL: "https://example.com", Title: "Example", IsFavorite: true,
		},
		Tags:        []domain.LinkTagView{{Tag: domain.Tag{Timestamps: domain.Timestamps{ID: "tag-1"}, Slug: "go"}}},
		Collections: []domain.Collection{{Timestamps: domain.Timestamps{ID: "col-1"}}},
	}
	doc := NewLinkDocument(l)
	assert.Equal(t, []string{"go"}, doc.Tags)
	assert.Equal(t, []string{"tag-1"}, doc.TagIDs)
	assert.Equal(t, []string{"col-1"}, doc.Collections)
	assert.Equal(t, int64(1000), doc.CreatedAt)

	m := doc.ToMap()
	assert.Equal(t, true, m["is_favorite"])
	assert.NotContains(t, m, "description")
}
