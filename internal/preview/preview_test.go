package preview

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/pabliki/pabliki-server/internal/logger"
)

var articleBody = strings.Repeat(
	"<p>A goroutine is a lightweight thread managed by the Go runtime. "+
		"Channels let goroutines communicate without sharing memory, and select waits on several of them at once.</p>\n", 12)

func articlePage(head string) string {
	return `<!doctype html><html><head>` + head + `</head><body>
<nav><a href="/">Home</a></nav>
<article><h1>Concurrency patterns</h1>` + articleBody + `</article>
<footer>© Example</footer></body></html>`
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestExtract_OpenGraphWins(t *testing.T) {
	page := articlePage(`
		<title>Fallback title</title>
		<meta property="og:title" content="Concurrency in Go">
		<meta property="og:description" content="Patterns for goroutines">
		<meta name="description" content="ignored">
		<meta property="og:image" content="/img/cover.png">
		<meta property="og:site_name" content="Go Blog">
		<link rel="shortcut icon" href="/static/fav.png">`)

	p, err := Extract(mustURL(t, "https://go.dev/blog/pipelines"), []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Concurrency in Go", p.Title)
	assert.Equal(t, "Patterns for goroutines", p.Description)
	assert.Equal(t, "https://go.dev/img/cover.png", p.Image)
	assert.Equal(t, "https://go.dev/static/fav.png", p.Favicon)
	assert.Equal(t, "Go Blog", p.SiteName)
	assert.Contains(t, p.Content, "goroutine")
	assert.GreaterOrEqual(t, p.ReadingTime, 1)
}

func TestExtract_Fallbacks(t *testing.T) {
	page := `<html><head><title> Plain page </title>
		<meta name="description" content="Just a page"></head><body><p>short</p></body></html>`

	p, err := Extract(mustURL(t, "https://www.example.com/a/b"), []byte(page))
	require.NoError(t, err)

	assert.Equal(t, "Plain page", p.Title)
	assert.Equal(t, "Just a page", p.Description)
	assert.Empty(t, p.Image)
	assert.Equal(t, "https://www.example.com/favicon.ico", p.Favicon)
	assert.Equal(t, "example.com", p.SiteName)
}

func TestExtract_TruncatesDescription(t *testing.T) {
	long := strings.Repeat("д", MaxDescriptionLength+50)
	page := `<html><head><meta name="description" content="` + long + `"></head></html>`

	p, err := Extract(mustURL(t, "https://example.com"), []byte(page))
	require.NoError(t, err)
	assert.Len(t, []rune(p.Description), MaxDescriptionLength)
}

func newMemoryCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := NewMemoryCache(ttl, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCache_ExpiredEntriesMiss(t *testing.T) {
	c := newMemoryCache(t, time.Hour)
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	_, ok := c.Get("https://example.com")
	assert.False(t, ok)

	require.NoError(t, c.Set("https://example.com", &Preview{URL: "https://example.com", Title: "Example"}))
	got, ok := c.Get("https://example.com")
	require.True(t, ok)
	assert.Equal(t, "Example", got.Title)

	clock = clock.Add(time.Hour)
	_, ok = c.Get("https://example.com")
	assert.False(t, ok)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, c.Delete("https://example.com"))
	require.NoError(t, c.RunGC())
}

func TestCache_OnDisk(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenCache(dir, time.Hour, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, c.Set("https://example.com", &Preview{Title: "Kept"}))
	require.NoError(t, c.Close())

	c, err = OpenCache(dir, time.Hour, logger.Discard())
	require.NoError(t, err)
	defer c.Close()
	got, ok := c.Get("https://example.com")
	require.True(t, ok)
	assert.Equal(t, "Kept", got.Title)
}

func TestCache_EachReadOnly(t *testing.T) {
	dir := t.TempDir()
	c, err := OpenCache(dir, time.Hour, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, c.Set("https://a.example", &Preview{URL: "https://a.example", Title: "A"}))
	require.NoError(t, c.Set("https://b.example", &Preview{URL: "https://b.example", Title: "B"}))
	require.NoError(t, c.Close())

	ro, err := OpenCacheReadOnly(dir, logger.Discard())
	require.NoError(t, err)
	defer ro.Close()

	var titles []string
	require.NoError(t, ro.Each(func(p *Preview, expiresAt time.Time) bool {
		titles = append(titles, p.Title)
		assert.True(t, expiresAt.After(time.Now()))
		return true
	}))
	assert.ElementsMatch(t, []string{"A", "B"}, titles)

	seen := 0
	require.NoError(t, ro.Each(func(*Preview, time.Time) bool {
		seen++
		return false
	}))
	assert.Equal(t, 1, seen)
}

func newTestFetcher(t *testing.T, cache *Cache) *Fetcher {
	t.Helper()
	f := NewFetcher(Options{Timeout: 2 * time.Second, HostRPS: 100, AllowPrivate: true}, cache, logger.Discard())
	t.Cleanup(f.Close)
	return f
}

func TestFetcher_FetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Contains(t, r.Header.Get("User-Agent"), "PablikiBot")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, articlePage(`<title>Cached page</title>`))
	}))
	defer srv.Close()

	f := newTestFetcher(t, newMemoryCache(t, time.Hour))
	ctx := context.Background()

	p, err := f.Fetch(ctx, srv.URL+"/post")
	require.NoError(t, err)
	assert.Equal(t, "Cached page", p.Title)
	assert.Equal(t, srv.URL+"/post", p.URL)
	assert.False(t, p.FetchedAt.IsZero())

	_, err = f.Fetch(ctx, srv.URL+"/post")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	_, err = f.Refresh(ctx, srv.URL+"/post")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetcher_DecodesLegacyCharset(t *testing.T) {
	encoded, err := charmap.Windows1251.NewEncoder().String(`<html><head><title>Новости дня</title></head><body></body></html>`)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	p, err := newTestFetcher(t, nil).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Новости дня", p.Title)
}

func TestFetcher_NonHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))
	defer srv.Close()

	p, err := newTestFetcher(t, nil).Fetch(context.Background(), srv.URL+"/paper.pdf")
	require.NoError(t, err)
	assert.Empty(t, p.Title)
	assert.Equal(t, "127.0.0.1", p.SiteName)
}

func TestFetcher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()
	f := newTestFetcher(t, nil)
	ctx := context.Background()

	_, err := f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, ErrBadStatus)

	for _, raw := range []string{"ftp://example.com/file", "javascript:alert(1)", "not a url", ""} {
		_, err := f.Fetch(ctx, raw)
		assert.ErrorIs(t, err, ErrUnsupportedURL, raw)
	}
}

func TestFetcher_LimitsBodySize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><head><title>Early</title></head><body>`+strings.Repeat("x", 10_000)+`<meta property="og:title" content="Late"></body></html>`)
	}))
	defer srv.Close()

	f := NewFetcher(Options{MaxBytes: 512, HostRPS: 100, AllowPrivate: true}, nil, logger.Discard())
	defer f.Close()

	p, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Early", p.Title)
}
