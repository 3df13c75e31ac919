package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pabliki/pabliki-server/internal/api/dto"
	"github.com/pabliki/pabliki-server/internal/domain"
)

func (s *Server) registerAuthRoutes() {
	limited := huma.Middlewares{s.rateLimited}

	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register",
		Description:   "Creates an account and signs it in",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
		Middlewares:   limited,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Login",
		Description: "Signs in with email and password",
		Tags:        []string{"Auth"},
		Middlewares: limited,
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refreshToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Rotates the refresh token and issues a new access token",
		Tags:        []string{"Auth"},
		Middlewares: limited,
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Ends the session and clears the token cookie",
		Tags:        []string{"Auth"},
	}, s.handleLogout)
}

func (s *Server) handleRegister(ctx context.Context, input *dto.RegisterInput) (*dto.RegisterOutput, error) {
	resp, err := s.services.Auth.Register(ctx, input.Body, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return &dto.RegisterOutput{
		SetCookie: s.tokenCookie(resp.AccessToken, resp.ExpiresAt),
		Body:      resp,
	}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *dto.LoginInput) (*dto.AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, input.Body, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return &dto.AuthOutput{
		SetCookie: s.tokenCookie(resp.AccessToken, resp.ExpiresAt),
		Body:      resp,
	}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *dto.RefreshInput) (*dto.AuthOutput, error) {
	resp, err := s.services.Auth.Refresh(ctx, input.Body, clientInfo(ctx))
	if err != nil {
		return nil, err
	}
	return &dto.AuthOutput{
		SetCookie: s.tokenCookie(resp.AccessToken, resp.ExpiresAt),
		Body:      resp,
	}, nil
}

func (s *Server) handleLogout(ctx context.Context, input *dto.LogoutInput) (*dto.LogoutOutput, error) {
	if input.Body.RefreshToken != "" {
		if err := s.services.Auth.Logout(ctx, input.Body.RefreshToken); err != nil {
			return nil, err
		}
	}
	return &dto.LogoutOutput{
		SetCookie: s.clearTokenCookie(),
		Body:      dto.MessageResponse{Message: "logged out"},
	}, nil
}

func (s *Server) registerUserRoutes() {
	bearer := []map[string][]string{{"bearer": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "getCurrentUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me",
		Summary:     "Get current user",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleGetCurrentUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCurrentUser",
		Method:      http.MethodPatch,
		Path:        "/api/v1/users/me",
		Summary:     "Update profile",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleUpdateProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "changePassword",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/me/password",
		Summary:     "Change password",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleChangePassword)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCurrentUser",
		Method:      http.MethodDelete,
		Path:        "/api/v1/users/me",
		Summary:     "Delete account",
		Description: "Deletes the account and everything it owns",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleDeleteAccount)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSessions",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me/sessions",
		Summary:     "List sessions",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleListSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me/stats",
		Summary:     "Library statistics",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleUserStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPreferences",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/me/preferences",
		Summary:     "Get view preferences",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleGetPreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePreferences",
		Method:      http.MethodPut,
		Path:        "/api/v1/users/me/preferences",
		Summary:     "Update view preferences",
		Tags:        []string{"Users"},
		Security:    bearer,
	}, s.handleUpdatePreferences)

	if s.services.Export != nil {
		huma.Register(s.api, huma.Operation{
			OperationID: "exportLibrary",
			Method:      http.MethodGet,
			Path:        "/api/v1/users/me/export",
			Summary:     "Export library",
			Description: "Downloads links, tags, collections, notes and search history as a zip of JSONL files",
			Tags:        []string{"Users"},
			Security:    bearer,
			Responses: map[string]*huma.Response{
				"200": {
					Description: "Export archive",
					Content:     map[string]*huma.MediaType{"application/zip": {}},
				},
			},
		}, s.handleExport)
	}
}

func (s *Server) handleGetCurrentUser(ctx context.Context, _ *struct{}) (*dto.UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Auth.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.UserOutput{Body: user}, nil
}

func (s *Server) handleUpdateProfile(ctx context.Context, input *dto.UpdateProfileInput) (*dto.UserOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	user, err := s.services.Auth.UpdateProfile(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.UserOutput{Body: user}, nil
}

func (s *Server) handleChangePassword(ctx context.Context, input *dto.ChangePasswordInput) (*dto.MessageOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.ChangePassword(ctx, userID, input.Body); err != nil {
		return nil, err
	}
	return dto.Message("password changed"), nil
}

func (s *Server) handleDeleteAccount(ctx context.Context, input *dto.DeleteAccountInput) (*dto.LogoutOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Auth.DeleteAccount(ctx, userID, input.Body.Password); err != nil {
		return nil, err
	}
	return &dto.LogoutOutput{
		SetCookie: s.clearTokenCookie(),
		Body:      dto.MessageResponse{Message: "account deleted"},
	}, nil
}

func (s *Server) handleListSessions(ctx context.Context, _ *struct{}) (*dto.Output[[]*domain.Session], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	sessions, err := s.services.Session.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[[]*domain.Session]{Body: sessions}, nil
}

func (s *Server) handleUserStats(ctx context.Context, _ *struct{}) (*dto.Output[*domain.LinkStats], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.services.Auth.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.LinkStats]{Body: stats}, nil
}

func (s *Server) handleGetPreferences(ctx context.Context, _ *struct{}) (*dto.Output[*domain.ViewPreferences], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.services.Preferences.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.ViewPreferences]{Body: prefs}, nil
}

func (s *Server) handleUpdatePreferences(ctx context.Context, input *dto.UpdatePreferencesInput) (*dto.Output[*domain.ViewPreferences], error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.services.Preferences.Update(ctx, userID, input.Body)
	if err != nil {
		return nil, err
	}
	return &dto.Output[*domain.ViewPreferences]{Body: prefs}, nil
}

// handleExport builds the whole archive before answering so a failure still
// gets an error envelope instead of a truncated download.
func (s *Server) handleExport(ctx context.Context, _ *struct{}) (*huma.StreamResponse, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	manifest, err := s.services.Export.Export(ctx, userID, &buf)
	if err != nil {
		return nil, err
	}
	filename := fmt.Sprintf("pabliki-export-%s.zip", manifest.CreatedAt.Format("2006-01-02"))

	return &huma.StreamResponse{
		Body: func(hctx huma.Context) {
			hctx.SetHeader("Content-Type", "application/zip")
			hctx.SetHeader("Content-Disposition", `attachment; filename="`+filename+`"`)
			hctx.SetHeader("Content-Length", strconv.Itoa(buf.Len()))
			if _, err := hctx.BodyWriter().Write(buf.Bytes()); err != nil {
				s.logger.Warn("export download interrupted", "user_id", userID, "error", err)
			}
		},
	}, nil
}
