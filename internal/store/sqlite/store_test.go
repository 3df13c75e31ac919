package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, logger.Discard())
	require.NoError(t, err, "open store")
	t.Cleanup(func() { s.Close() })
	return s
}

// baseTime anchors test timestamps so orderings are deterministic.
var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, id, email string) *domain.User {
	t.Helper()
	u := &domain.User{
		Timestamps: domain.Timestamps{ID: id, CreatedAt: baseTime, UpdatedAt: baseTime},
		Name:       "User " + id,
		Email:      email,
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// seedLink creates a link whose created_at is baseTime plus offset minutes.
func seedLink(t *testing.T, s *Store, userID, id, url, title string, offset int) *domain.Link {
	t.Helper()
	at := baseTime.Add(time.Duration(offset) * time.Minute)
	l := &domain.Link{
		Timestamps: domain.Timestamps{ID: id, CreatedAt: at, UpdatedAt: at},
		UserID:     userID,
		URL:        url,
		Title:      title,
	}
	require.NoError(t, s.CreateLink(context.Background(), l, nil, nil))
	return l
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	tables := []string{
		"users", "sessions", "links", "tags", "link_tags",
		"collections", "link_collections", "notes",
		"search_history", "activity_log", "view_preferences",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s not found", table)
	}
}

func TestOpenClose(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(dbPath, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger.Discard())
	require.NoError(t, err)
	defer s2.Close()

	assert.NoError(t, s2.Ping(context.Background()))
}

func TestUnicodeLower(t *testing.T) {
	s := newTestStore(t)

	var got string
	require.NoError(t, s.db.QueryRow(`SELECT unicode_lower('Привет, МИР')`).Scan(&got))
	assert.Equal(t, "привет, мир", got)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, "%go%", likePattern("Go"))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\_b%`, likePattern("a_b"))
	assert.Equal(t, `%c:\\dir%`, likePattern(`C:\dir`))
}

func TestFormatTime_SortsLexically(t *testing.T) {
	a := time.Date(2025, 1, 1, 0, 0, 0, 500_000_000, time.UTC)
	b := time.Date(2025, 1, 1, 0, 0, 0, 50_000_000, time.UTC)

	assert.Greater(t, formatTime(a), formatTime(b))

	parsed, err := parseTime(formatTime(a))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(a))
}

func TestOpen_PragmasOnEveryConnection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Pin two connections so the pool has to open fresh ones.
	first, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for _, conn := range []interface {
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	}{first, second} {
		var fk, timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 1, fk)
		assert.Equal(t, 5000, timeout)
	}
}

func TestDeleteLink_CascadesOnPooledConnections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	held, err := s.db.Conn(ctx)
	require.NoError(t, err)
	defer held.Close()

	u := seedUser(t, s, "usr_1", "one@example.com")
	tag := &domain.Tag{Timestamps: domain.Timestamps{ID: "tag_1", CreatedAt: baseTime, UpdatedAt: baseTime}, UserID: u.ID, Name: "go"}
	require.NoError(t, s.CreateTag(ctx, tag))
	l := &domain.Link{
		Timestamps: domain.Timestamps{ID: "lnk_1", CreatedAt: baseTime, UpdatedAt: baseTime},
		UserID:     u.ID,
		URL:        "https://example.com/a",
		Title:      "A",
	}
	require.NoError(t, s.CreateLink(ctx, l, []string{tag.ID}, nil))

	require.NoError(t, s.DeleteLink(ctx, u.ID, l.ID))

	var rows int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM link_tags WHERE link_id = ?`, l.ID).Scan(&rows))
	assert.Zero(t, rows)

	counts, err := s.ListTagsWithLinkCount(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Zero(t, counts[0].LinkCount)
}
