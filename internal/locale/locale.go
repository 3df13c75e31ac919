// Package locale negotiates the UI locale for page requests and applies the
// locale and login redirects in front of the page routes.
package locale

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// CookieName holds the user's chosen locale.
const CookieName = "NEXT_LOCALE"

// Negotiator resolves a request's locale from the path, the locale cookie and
// Accept-Language, in that order, falling back to the default.
type Negotiator struct {
	names   []string // default first, matching matcher order
	def     string
	matcher language.Matcher
}

// NewNegotiator creates a Negotiator. def must be one of supported.
func NewNegotiator(supported []string, def string) (*Negotiator, error) {
	if len(supported) == 0 {
		return nil, errors.New("locale: no supported locales")
	}
	if !slices.Contains(supported, def) {
		return nil, fmt.Errorf("locale: default %q is not supported", def)
	}

	names := []string{def}
	for _, s := range supported {
		if s != def {
			names = append(names, s)
		}
	}
	tags := make([]language.Tag, len(names))
	for i, name := range names {
		tag, err := language.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("locale: parse %q: %w", name, err)
		}
		tags[i] = tag
	}

	return &Negotiator{names: names, def: def, matcher: language.NewMatcher(tags)}, nil
}

// Default returns the default locale.
func (n *Negotiator) Default() string { return n.def }

// Supported returns the supported locales, default first.
func (n *Negotiator) Supported() []string { return slices.Clone(n.names) }

// IsSupported reports whether name is a supported locale.
func (n *Negotiator) IsSupported(name string) bool {
	return slices.Contains(n.names, name)
}

// FromPath returns the locale prefix of path ("/en" or "/en/...").
func (n *Negotiator) FromPath(path string) (string, bool) {
	first, _, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if n.IsSupported(first) {
		return first, true
	}
	return "", false
}

// Match picks the best supported locale for an Accept-Language header.
func (n *Negotiator) Match(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return n.def
	}
	_, index, confidence := n.matcher.Match(tags...)
	if confidence == language.No {
		return n.def
	}
	return n.names[index]
}

// Resolve returns the locale for r, ignoring its path.
func (n *Negotiator) Resolve(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && n.IsSupported(c.Value) {
		return c.Value
	}
	return n.Match(r.Header.Get("Accept-Language"))
}

type ctxKey struct{}

// WithLocale stores the locale in ctx.
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// FromContext returns the locale stored by the middleware, or "".
func FromContext(ctx context.Context) string {
	l, _ := ctx.Value(ctxKey{}).(string)
	return l
}
