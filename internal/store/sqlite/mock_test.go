package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newWithDB(db, logger.Discard()), mock
}

func TestMock_ListTagsPropagatesDriverError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .* FROM tags WHERE user_id = ?").
		WithArgs("usr-1").
		WillReturnError(sql.ErrConnDone)

	_, err := s.ListTags(context.Background(), "usr-1")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_CreateTagsRollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT .* FROM tags WHERE user_id = \\? AND slug = \\?").
		WithArgs("usr-1", "go").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("INSERT INTO tags").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := s.CreateTags(context.Background(), "usr-1", []string{"go", "web"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_DeleteLinkWithNoRowsIsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM links WHERE id = \\? AND user_id = \\?").
		WithArgs("lnk-1", "usr-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.DeleteLink(context.Background(), "usr-1", "lnk-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMock_CreateUserMapsEmailConflict(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.email_lower (2067)"))

	err := s.CreateUser(context.Background(), &domain.User{
		Timestamps: domain.Timestamps{ID: "usr-1", CreatedAt: baseTime, UpdatedAt: baseTime},
		Email:      "a@example.com",
	})
	assert.ErrorIs(t, err, store.ErrEmailExists)
}
