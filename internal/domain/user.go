// Package domain holds the entities of the Pabliki bookmark organizer.
package domain

import "strings"

// User is an account that owns links, tags, collections and notes.
// Everything a user owns is removed with the account.
type User struct {
	Timestamps
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Image        string `json:"image,omitempty"`
}

// NormalizeEmail lowercases and trims an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName returns the name to show for the user, falling back to the
// local part of the email address.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	local, _, _ := strings.Cut(u.Email, "@")
	return local
}
