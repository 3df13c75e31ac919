package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pabliki/pabliki-server/internal/http/response"
	"github.com/pabliki/pabliki-server/internal/locale"
)

//go:embed templates/*.html
var templates embed.FS

var pageTemplate = template.Must(template.ParseFS(templates, "templates/page.html"))

// pageData fills the HTML shell served for every page route.
type pageData struct {
	Lang          string
	Page          string
	Title         string
	ID            string
	Authenticated bool
}

// registerPageRoutes mounts the browser-facing pages behind the locale
// middleware.
func (s *Server) registerPageRoutes() {
	if s.negotiator == nil {
		return
	}
	pages := locale.NewMiddleware(s.negotiator, authenticated, s.cookieSecure, s.logger)

	s.router.Group(func(r chi.Router) {
		r.Use(pages.Handler)
		r.Get("/", s.servePage("home"))
		r.Get("/{locale}", s.servePage("home"))
		r.Get("/{locale}/auth/{page}", s.serveAuthPage)
		r.Get("/{locale}/{page}", s.serveNamedPage)
		r.Get("/{locale}/links/{id}", s.servePage("link"))
		r.Get("/{locale}/lots/{id}", s.servePage("lot"))
	})
}

func (s *Server) servePage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, page, chi.URLParam(r, "id"))
	}
}

func (s *Server) serveAuthPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "auth/"+chi.URLParam(r, "page"), "")
}

func (s *Server) serveNamedPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, chi.URLParam(r, "page"), "")
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page, id string) {
	if l := chi.URLParam(r, "locale"); l != "" && !s.negotiator.IsSupported(l) {
		if l == "api" {
			response.NotFound(w, "route not found", s.logger)
			return
		}
		http.NotFound(w, r)
		return
	}
	lang := locale.FromContext(r.Context())
	if lang == "" {
		lang = s.negotiator.Default()
	}

	data := pageData{
		Lang:          lang,
		Page:          page,
		Title:         pageTitle(page),
		ID:            id,
		Authenticated: authenticated(r),
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("failed to render page", "page", page, "error", err)
		response.InternalError(w, s.logger)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

// pageTitle turns "auth/login" into "Login".
func pageTitle(page string) string {
	if i := strings.LastIndexByte(page, '/'); i >= 0 {
		page = page[i+1:]
	}
	if page == "" {
		return "Pabliki"
	}
	return strings.ToUpper(page[:1]) + strings.ReplaceAll(page[1:], "-", " ")
}
