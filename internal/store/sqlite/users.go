package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/store"
)

// userColumns must match the scan order in scanUser.
const userColumns = `id, created_at, updated_at, name, email, password_hash, image`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var (
		u         domain.User
		createdAt string
		updatedAt string
		passwordH sql.NullString
		image     sql.NullString
	)

	err := scanner.Scan(&u.ID, &createdAt, &updatedAt, &u.Name, &u.Email, &passwordH, &image)
	if err != nil {
		return nil, err
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	u.PasswordHash = passwordH.String
	u.Image = image.String

	return &u, nil
}

// CreateUser inserts a new user.
// Returns store.ErrEmailExists when the email (case-insensitive) is taken and
// store.ErrAlreadyExists when the id is.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, created_at, updated_at, name, email, email_lower, password_hash, image)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
		user.Name,
		user.Email,
		domain.NormalizeEmail(user.Email),
		nullString(user.PasswordHash),
		nullString(user.Image),
	)
	if isUniqueViolation(err) {
		if containsColumn(err, "email_lower") {
			return store.ErrEmailExists
		}
		return store.ErrAlreadyExists
	}
	return err
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// GetUserByEmail retrieves a user by email, ignoring case and surrounding space.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email_lower = ?`, domain.NormalizeEmail(email))

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return u, err
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanUser)
}

// UpdateUser updates a user's profile fields and password hash.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			updated_at = ?,
			name = ?,
			email = ?,
			email_lower = ?,
			password_hash = ?,
			image = ?
		WHERE id = ?`,
		formatTime(user.UpdatedAt),
		user.Name,
		user.Email,
		domain.NormalizeEmail(user.Email),
		nullString(user.PasswordHash),
		nullString(user.Image),
		user.ID,
	)
	if isUniqueViolation(err) {
		return store.ErrEmailExists
	}
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// DeleteUser deletes a user. Everything the user owns is removed by cascade.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
