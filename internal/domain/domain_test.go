package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestBuildCollectionTree(t *testing.T) {
	cols := []Collection{
		{Timestamps: Timestamps{ID: "a"}, Name: "Articles"},
		{Timestamps: Timestamps{ID: "b"}, Name: "Go", ParentID: ptr("a")},
		{Timestamps: Timestamps{ID: "c"}, Name: "Concurrency", ParentID: ptr("b")},
		{Timestamps: Timestamps{ID: "d"}, Name: "Recipes"},
		{Timestamps: Timestamps{ID: "e"}, Name: "Orphan", ParentID: ptr("missing")},
	}

	roots := BuildCollectionTree(cols)

	require.Len(t, roots, 3)
	assert.Equal(t, "a", roots[0].ID)
	assert.Equal(t, "d", roots[1].ID)
	assert.Equal(t, "e", roots[2].ID)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "b", roots[0].Children[0].ID)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, "c", roots[0].Children[0].Children[0].ID)
	assert.Empty(t, roots[1].Children)
}

func TestBuildCollectionTree_Empty(t *testing.T) {
	roots := BuildCollectionTree(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
}

func TestActionType_Valid(t *testing.T) {
	for _, a := range ActionTypes {
		assert.True(t, a.Valid(), a)
	}
	assert.False(t, ActionType("launch_rocket").Valid())
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Now()
	s := &Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(time.Minute)))
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "Anna", (&User{Name: "Anna", Email: "anna@example.com"}).DisplayName())
	assert.Equal(t, "anna", (&User{Email: "anna@example.com"}).DisplayName())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "anna@example.com", NormalizeEmail("  Anna@Example.COM "))
}

func TestTimestamps(t *testing.T) {
	var ts Timestamps
	ts.InitTimestamps()
	assert.Equal(t, ts.CreatedAt, ts.UpdatedAt)

	before := ts.UpdatedAt
	time.Sleep(time.Millisecond)
	ts.Touch()
	assert.True(t, ts.UpdatedAt.After(before))
}
