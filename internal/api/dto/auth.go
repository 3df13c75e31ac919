package dto

import (
	"github.com/pabliki/pabliki-server/internal/domain"
	"github.com/pabliki/pabliki-server/internal/service"
)

// RegisterInput wraps the registration request for huma.
type RegisterInput struct {
	Body service.RegisterRequest
}

// LoginInput wraps the login request for huma.
type LoginInput struct {
	Body service.LoginRequest
}

// RefreshInput wraps the refresh request for huma.
type RefreshInput struct {
	Body service.RefreshRequest
}

// LogoutRequest revokes the session holding the refresh token. An empty
// token only clears the cookie.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty" doc:"Refresh token of the session to end"`
}

// LogoutInput wraps the logout request for huma.
type LogoutInput struct {
	Body LogoutRequest `required:"false"`
}

// AuthOutput carries tokens and sets the access token cookie.
type AuthOutput = CookieOutput[*service.AuthResponse]

// RegisterOutput carries the new account's tokens and sets the cookie.
type RegisterOutput = CookieOutput[*service.RegisterResponse]

// LogoutOutput clears the access token cookie.
type LogoutOutput = CookieOutput[MessageResponse]

// UpdateProfileInput wraps the profile update for huma.
type UpdateProfileInput struct {
	Body service.UpdateProfileRequest
}

// ChangePasswordInput wraps the password change for huma.
type ChangePasswordInput struct {
	Body service.ChangePasswordRequest
}

// DeleteAccountRequest confirms account deletion with the password.
type DeleteAccountRequest struct {
	Password string `json:"password" doc:"Current password"`
}

// DeleteAccountInput wraps the account deletion for huma.
type DeleteAccountInput struct {
	Body DeleteAccountRequest
}

// UpdatePreferencesInput wraps the preferences update for huma.
type UpdatePreferencesInput struct {
	Body service.UpdatePreferencesRequest
}

// UserOutput wraps a user for huma.
type UserOutput = Output[*domain.User]
