package api

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pabliki/pabliki-server/internal/auth"
	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
	"github.com/pabliki/pabliki-server/internal/service"
)

// TokenCookie carries the access token for page requests.
const TokenCookie = "pabliki_token"

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	userIDKey ctxKey = "userID"
	clientKey ctxKey = "client"
)

// GetUserID returns the authenticated user ID from context.
// Returns 401 error if user is not authenticated.
func GetUserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", domainerrors.Unauthorized("authentication required")
	}
	return userID, nil
}

func clientInfo(ctx context.Context) auth.ClientInfo {
	info, _ := ctx.Value(clientKey).(auth.ClientInfo)
	return info
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// requestToken looks for an access token in the Authorization header, then
// the "token" query parameter (EventSource cannot set headers), then the
// token cookie.
func requestToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// authMiddleware validates access tokens and stores the user in context.
// Requests without a valid token continue anonymously; handlers use
// GetUserID to require authentication.
func authMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientKey, auth.ClientInfo{
				IPAddress: getClientIP(r),
				UserAgent: r.UserAgent(),
			})

			if token := requestToken(r); token != "" {
				if user, _, err := authService.VerifyAccessToken(ctx, token); err == nil {
					ctx = context.WithValue(ctx, userIDKey, user.ID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticated reports whether authMiddleware accepted the request's token.
func authenticated(r *http.Request) bool {
	_, err := GetUserID(r.Context())
	return err == nil
}

// streamUser authenticates an event stream request.
func streamUser(r *http.Request) (string, error) {
	return GetUserID(r.Context())
}

// getClientIP returns the client address without its port. chi's RealIP
// middleware has already applied proxy headers to RemoteAddr.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// tokenCookie builds the cookie holding an access token for page requests.
func (s *Server) tokenCookie(token string, expiresAt time.Time) http.Cookie {
	return http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (s *Server) clearTokenCookie() http.Cookie {
	return http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
