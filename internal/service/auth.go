package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pabliki/pabliki-server/internal/auth"
	"github.com/pabliki/pabliki-server/internal/domain"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/id"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/store"
	"github.com/pabliki/pabliki-server/internal/validation"
)

const invalidCredentialsMessage = "invalid email or password"

// AuthService handles registration, login and the signed-in user's account.
// Token issuing and rotation are delegated to SessionService.
type AuthService struct {
	store          store.Store
	tokenService   *auth.TokenService
	sessionService *SessionService
	validator      *validation.Validator
	metrics        *metrics.Metrics
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	validator *validation.Validator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          store,
		tokenService:   tokenService,
		sessionService: sessionService,
		validator:      validator,
		metrics:        m,
		logger:         logger,
	}
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Name            string `json:"name" validate:"required,notblank,min=2,max=100"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,min=8,max=100"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Terms           bool   `json:"terms" validate:"eq=true"`
}

// LoginRequest carries credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest changes the user's name or avatar. Nil fields are left alone.
type UpdateProfileRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitnil,notblank,min=2,max=100"`
	Image *string `json:"image,omitempty" validate:"omitempty,url,max=2048"`
}

// ChangePasswordRequest replaces the user's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=100,nefield=CurrentPassword"`
}

// AuthResponse is a signed-in user with a token pair.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// RegisterResponse is returned after sign-up. Registration signs the user in.
type RegisterResponse struct {
	AuthResponse
	Message string `json:"message"`
}

// Register creates an account and opens its first session.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, client auth.ClientInfo) (*RegisterResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = domain.NormalizeEmail(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Timestamps:   domain.Timestamps{ID: userID},
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, translate(err, "user")
	}
	s.metrics.EntityMutated(entityUser, metrics.OpCreate)

	session, err := s.sessionService.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID)

	return &RegisterResponse{
		AuthResponse: AuthResponse{User: user, SessionResponse: *session},
		Message:      "account created",
	}, nil
}

// Login checks credentials and opens a session. Unknown emails and wrong
// passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, req LoginRequest, client auth.ClientInfo) (*AuthResponse, error) {
	req.Email = domain.NormalizeEmail(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			return nil, domainerrors.InvalidCredentials(invalidCredentialsMessage)
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		s.logger.Info("failed login", "user_id", user.ID, "ip", client.IPAddress)
		return nil, domainerrors.InvalidCredentials(invalidCredentialsMessage)
	}

	session, err := s.sessionService.CreateSession(ctx, user, client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return &AuthResponse{User: user, SessionResponse: *session}, nil
}

// Refresh rotates a refresh token.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest, client auth.ClientInfo) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	session, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, client)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, SessionResponse: *session}, nil
}

// Logout ends the session holding refreshToken.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessionService.DeleteSessionByRefreshToken(ctx, refreshToken)
}

// VerifyAccessToken resolves an access token to its user.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, nil, domainerrors.TokenExpired("access token expired")
		}
		return nil, nil, domainerrors.Unauthorized("invalid access token").WithCause(err)
	}
	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, domainerrors.Unauthorized("account no longer exists")
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, claims, nil
}

// CurrentUser returns the signed-in user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	return user, translate(err, "user")
}

// UpdateProfile changes the user's name or image.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*domain.User, error) {
	req.Name = trimmed(req.Name)
	req.Image = trimmed(req.Image)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "user")
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Image != nil {
		user.Image = *req.Image
	}
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, translate(err, "user")
	}
	s.metrics.EntityMutated(entityUser, metrics.OpUpdate)
	return user, nil
}

// ChangePassword replaces the password after checking the current one. Other
// sessions stay signed in.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return translate(err, "user")
	}
	if !auth.VerifyPassword(user.PasswordHash, req.CurrentPassword) {
		return domainerrors.FieldError("current_password", "is incorrect")
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return translate(err, "user")
	}
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// DeleteAccount removes the user and, by cascade, everything they own.
// The password is required again.
func (s *AuthService) DeleteAccount(ctx context.Context, userID, password string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return translate(err, "user")
	}
	if !auth.VerifyPassword(user.PasswordHash, password) {
		return domainerrors.FieldError("password", "is incorrect")
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return translate(err, "user")
	}
	s.metrics.EntityMutated(entityUser, metrics.OpDelete)
	s.logger.Info("account deleted", "user_id", userID)
	return nil
}

// Stats summarizes the user's library.
func (s *AuthService) Stats(ctx context.Context, userID string) (*domain.LinkStats, error) {
	stats, err := s.store.GetLinkStats(ctx, userID)
	return stats, translate(err, "user")
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
