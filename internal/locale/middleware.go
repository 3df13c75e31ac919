package locale

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Paths under these prefixes, and any path containing a dot, are assets or
// API calls and pass through untouched.
var bypassPrefixes = []string{"/api", "/metrics", "/health", "/static", "/images", "/favicon", "/openapi", "/docs", "/schemas"}

var (
	authPages        = []string{"login", "register", "signin", "signup"}
	publicAuthPieces = []string{"/auth/login", "/auth/register", "/auth/error", "/auth/signin", "/auth/signup"}
)

// Decision is the outcome for one page request. An empty Redirect means the
// request proceeds.
type Decision struct {
	Locale   string
	Redirect string
}

// Middleware applies locale and login redirects to page routes.
type Middleware struct {
	negotiator    *Negotiator
	authenticated func(*http.Request) bool
	cookieSecure  bool
	logger        *slog.Logger
}

// NewMiddleware creates the page middleware. authenticated reports whether a
// request carries a valid session.
func NewMiddleware(n *Negotiator, authenticated func(*http.Request) bool, cookieSecure bool, logger *slog.Logger) *Middleware {
	return &Middleware{negotiator: n, authenticated: authenticated, cookieSecure: cookieSecure, logger: logger}
}

// Handler wraps next with the redirect logic.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bypass(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		d := m.Decide(r)
		m.setCookie(w, d.Locale)

		if d.Redirect != "" {
			m.logger.Debug("page redirect", "path", r.URL.Path, "to", d.Redirect)
			http.Redirect(w, r, d.Redirect, http.StatusTemporaryRedirect)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithLocale(r.Context(), d.Locale)))
	})
}

// Decide computes the redirect for a page request.
func (m *Middleware) Decide(r *http.Request) Decision {
	path := r.URL.Path
	def := m.negotiator.Default()

	locale, hasLocale := m.negotiator.FromPath(path)
	if !hasLocale {
		locale = m.negotiator.Resolve(r)
	}
	d := Decision{Locale: locale}

	if path == "/" {
		d.Redirect = "/" + locale
		return d
	}
	if hasLocale && path == "/"+locale {
		return d
	}

	authed := m.authenticated(r)
	if authed && m.isAuthPage(path) {
		d.Redirect = "/" + locale
		return d
	}

	switch path {
	case "/auth/login", "/auth/signin":
		d.Redirect = "/" + def + "/auth/login"
		return d
	case "/auth/register", "/auth/signup":
		d.Redirect = withQuery("/"+def+"/auth/register", r.URL.RawQuery)
		return d
	case "/auth/error":
		d.Redirect = "/" + def + "/auth/error"
		return d
	}

	if !authed && !m.isPublic(path) {
		if strings.Contains(path, "/auth/register") || strings.Contains(path, "/auth/signup") {
			return d
		}
		q := url.Values{"returnUrl": {withQuery(path, r.URL.RawQuery)}}
		d.Redirect = "/" + locale + "/auth/login?" + q.Encode()
		return d
	}

	if !hasLocale && !strings.HasPrefix(path, "/auth/") {
		d.Redirect = withQuery("/"+locale+path, r.URL.RawQuery)
		return d
	}
	return d
}

func (m *Middleware) isAuthPage(path string) bool {
	rest := path
	if l, ok := m.negotiator.FromPath(path); ok {
		rest = strings.TrimPrefix(path, "/"+l)
	}
	page, ok := strings.CutPrefix(rest, "/auth/")
	if !ok {
		return false
	}
	for _, p := range authPages {
		if page == p {
			return true
		}
	}
	return false
}

func (m *Middleware) isPublic(path string) bool {
	if _, ok := m.negotiator.FromPath(path); ok && strings.Count(path, "/") == 1 {
		return true
	}
	for _, piece := range publicAuthPieces {
		if strings.Contains(path, piece) {
			return true
		}
	}
	return false
}

func (m *Middleware) setCookie(w http.ResponseWriter, locale string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    locale,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
		Secure:   m.cookieSecure,
	})
}

func bypass(path string) bool {
	if strings.Contains(path, ".") {
		return true
	}
	for _, p := range bypassPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func withQuery(path, rawQuery string) string {
	if rawQuery == "" {
		return path
	}
	return path + "?" + rawQuery
}
