package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/store"
)

func TestCreateLink_Success(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")

	resp := ts.api.Post("/api/v1/links", auth, map[string]any{
		"url":           "HTTPS://Example.com:443/article#top",
		"title":         "An article",
		"tag_names":     []string{"Go", "Reading"},
		"fetch_preview": false,
	})

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	env := decode[domain.LinkWithRelations](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, "https://example.com/article", env.Data.URL)
	assert.Equal(t, "An article", env.Data.Title)
	assert.Len(t, env.Data.Tags, 2)
}

func TestCreateLink_Duplicate(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")
	ts.createLink(t, auth, "https://example.com/a", "A")

	resp := ts.api.Post("/api/v1/links", auth, map[string]any{
		"url":           "https://EXAMPLE.com/a#section",
		"fetch_preview": false,
	})

	assert.Equal(t, http.StatusConflict, resp.Code)
	env := decode[any](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)
}

func TestCreateLink_MissingURL(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")

	resp := ts.api.Post("/api/v1/links", auth, map[string]any{"title": "no url"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	env := decode[any](t, resp.Body.Bytes())
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION", env.Error.Code)
}

func TestLinks_RequireAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/links")

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListLinks_Filters(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")
	first := ts.createLink(t, auth, "https://example.com/1", "One")
	ts.createLink(t, auth, "https://example.com/2", "Two")
	ts.createLink(t, auth, "https://example.com/3", "Three")

	resp := ts.api.Post("/api/v1/links/"+first+"/favorite", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.True(t, decode[domain.Link](t, resp.Body.Bytes()).Data.IsFavorite)

	resp = ts.api.Get("/api/v1/links?limit=2", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page := decode[store.Page[*domain.Link]](t, resp.Body.Bytes()).Data
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Items, 2)

	resp = ts.api.Get("/api/v1/links?favorite=true", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	page = decode[store.Page[*domain.Link]](t, resp.Body.Bytes()).Data
	require.Len(t, page.Items, 1)
	assert.Equal(t, first, page.Items[0].ID)

	resp = ts.api.Get("/api/v1/links?limit=500", auth)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetLink_OtherUserIsNotFound(t *testing.T) {
	ts := setupTestServer(t)
	ada := ts.registerUser(t, "Ada", "ada@example.com")
	bob := ts.registerUser(t, "Bob", "bob@example.com")
	linkID := ts.createLink(t, ada, "https://example.com", "Mine")

	resp := ts.api.Get("/api/v1/links/"+linkID, bob)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Delete("/api/v1/links/"+linkID, bob)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/links/"+linkID, ada)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestLinkLifecycle(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")
	linkID := ts.createLink(t, auth, "https://example.com/post", "Post")

	resp := ts.api.Patch("/api/v1/links/"+linkID, auth, map[string]any{"title": "Renamed"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "Renamed", decode[domain.Link](t, resp.Body.Bytes()).Data.Title)

	resp = ts.api.Post("/api/v1/links/"+linkID+"/archive", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, decode[domain.Link](t, resp.Body.Bytes()).Data.IsArchived)

	resp = ts.api.Post("/api/v1/links/"+linkID+"/visit", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotNil(t, decode[domain.Link](t, resp.Body.Bytes()).Data.LastVisited)

	resp = ts.api.Get("/api/v1/links/lookup?url="+url.QueryEscape("example.com/post#comments"), auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, linkID, decode[domain.Link](t, resp.Body.Bytes()).Data.ID)

	resp = ts.api.Get("/api/v1/links/"+linkID+"/activity", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	activity := decode[struct {
		Items []map[string]any `json:"items"`
	}](t, resp.Body.Bytes()).Data
	assert.NotEmpty(t, activity.Items)

	resp = ts.api.Delete("/api/v1/links/"+linkID, auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "link deleted", decode[map[string]string](t, resp.Body.Bytes()).Data["message"])

	resp = ts.api.Get("/api/v1/links/"+linkID, auth)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRefreshPreview_DisabledWithoutFetcher(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")
	linkID := ts.createLink(t, auth, "https://example.com", "Example")

	resp := ts.api.Post("/api/v1/links/"+linkID+"/preview", auth)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLinkTags(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")
	linkID := ts.createLink(t, auth, "https://example.com", "Example")

	resp := ts.api.Post("/api/v1/links/"+linkID+"/tags", auth, map[string]any{
		"name":       "Machine Learning",
		"confidence": 0.9,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	attached := decode[LinkTagResponse](t, resp.Body.Bytes()).Data
	require.NotNil(t, attached.Tag)
	assert.Equal(t, "machine-learning", attached.Tag.Slug)
	require.NotNil(t, attached.LinkTag.Confidence)
	assert.InDelta(t, 0.9, *attached.LinkTag.Confidence, 0.0001)

	resp = ts.api.Get("/api/v1/links/"+linkID+"/tags", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]domain.LinkTagView](t, resp.Body.Bytes()).Data, 1)

	resp = ts.api.Delete("/api/v1/links/"+linkID+"/tags/"+attached.Tag.ID, auth)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/links/"+linkID+"/tags", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"v":1,"success":true,"data":[]}`, resp.Body.String())
}

func TestLinkNotes(t *testing.T) {
	ts := setupTestServer(t)
	auth := ts.registerUser(t, "Ada", "ada@example.com")
	linkID := ts.createLink(t, auth, "https://example.com", "Example")

	resp := ts.api.Post("/api/v1/links/"+linkID+"/notes", auth, map[string]any{"content": "read later"})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	note := decode[domain.Note](t, resp.Body.Bytes()).Data

	resp = ts.api.Patch("/api/v1/notes/"+note.ID, auth, map[string]any{"content": "read twice"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "read twice", decode[domain.Note](t, resp.Body.Bytes()).Data.Content)

	resp = ts.api.Get("/api/v1/links/"+linkID+"/notes", auth)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[[]domain.Note](t, resp.Body.Bytes()).Data, 1)

	resp = ts.api.Get("/api/v1/notes?q=twice", auth)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	found := decode[struct {
		Items []map[string]any `json:"items"`
	}](t, resp.Body.Bytes()).Data
	assert.Len(t, found.Items, 1)

	resp = ts.api.Post("/api/v1/links/"+linkID+"/notes", auth, map[string]any{"content": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = ts.api.Delete("/api/v1/notes/"+note.ID, auth)
	require.Equal(t, http.StatusOK, resp.Code)
	resp = ts.api.Get("/api/v1/notes/"+note.ID, auth)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
