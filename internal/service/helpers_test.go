package service

import (
	"context"
	"crypto/rand"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/auth"
	"github.com/pabliki/pabliki-server/internal/domain"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/preview"
	"github.com/pabliki/pabliki-server/internal/search"
	"github.com/pabliki/pabliki-server/internal/sse"
	"github.com/pabliki/pabliki-server/internal/store/sqlite"
	"github.com/pabliki/pabliki-server/internal/validation"
)

type recordedEvent struct {
	UserID string
	Type   sse.EventType
	Data   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(userID string, t sse.EventType, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{UserID: userID, Type: t, Data: data})
}

func (p *recordingPublisher) types() []sse.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]sse.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakePreviews struct {
	mu    sync.Mutex
	pages map[string]*preview.Preview
	calls int
}

func (f *fakePreviews) Fetch(_ context.Context, rawURL string) (*preview.Preview, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if p, ok := f.pages[rawURL]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, preview.ErrBadStatus
}

func (f *fakePreviews) Refresh(ctx context.Context, rawURL string) (*preview.Preview, error) {
	return f.Fetch(ctx, rawURL)
}

type testEnv struct {
	store       *sqlite.Store
	events      *recordingPublisher
	previews    *fakePreviews
	index       *search.Index
	auth        *AuthService
	sessions    *SessionService
	activity    *ActivityService
	links       *LinkService
	tags        *TagService
	collections *CollectionService
	notes       *NoteService
	search      *SearchService
	prefs       *PreferencesService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	log := logger.Discard()

	st, err := sqlite.Open(filepath.Join(dir, "pabliki.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	idx, err := search.Open(search.Options{DataPath: dir, Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	key := make([]byte, 32)
	_, err = rand.Read(key)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, 15*time.Minute, 24*time.Hour)
	require.NoError(t, err)

	v := validation.New()
	events := &recordingPublisher{}
	previews := &fakePreviews{pages: map[string]*preview.Preview{}}

	env := &testEnv{store: st, events: events, previews: previews, index: idx}
	env.activity = NewActivityService(st, log)
	env.sessions = NewSessionService(st, tokens, log)
	env.auth = NewAuthService(st, tokens, env.sessions, v, nil, log)
	env.links = NewLinkService(st, v, env.activity, events, previews, nil, log)
	env.tags = NewTagService(st, v, env.activity, events, nil, log)
	env.collections = NewCollectionService(st, v, env.activity, events, nil, log)
	env.notes = NewNoteService(st, v, events, nil, log)
	env.search = NewSearchService(idx, st, v, env.activity, nil, log)
	env.prefs = NewPreferencesService(st, v)

	env.links.SetIndexer(env.search)
	env.tags.SetIndexer(env.search)
	env.collections.SetIndexer(env.search)
	return env
}

func (e *testEnv) register(t *testing.T, name, email string) *domain.User {
	t.Helper()
	resp, err := e.auth.Register(context.Background(), RegisterRequest{
		Name:            name,
		Email:           email,
		Password:        "correct horse",
		ConfirmPassword: "correct horse",
		Terms:           true,
	}, auth.ClientInfo{IPAddress: "127.0.0.1"})
	require.NoError(t, err)
	return resp.User
}

func (e *testEnv) saveLink(t *testing.T, userID, rawURL, title string) *domain.LinkWithRelations {
	t.Helper()
	noPreview := false
	link, err := e.links.Create(context.Background(), userID, CreateLinkRequest{
		URL: rawURL, Title: title, FetchPreview: &noPreview,
	})
	require.NoError(t, err)
	return link
}

func codeOf(err error) domainerrors.Code {
	var de *domainerrors.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var de *domainerrors.Error
	require.ErrorAs(t, err, &de)
	details, ok := de.Details.(map[string]string)
	require.True(t, ok, "details %T", de.Details)
	return details
}

func ptr[T any](v T) *T { return &v }
