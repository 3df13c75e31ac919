package service

import (
	"net/url"
	"strings"

	domainerrors "github.com/pabliki/pabliki-server/internal/errors"
)

// NormalizeURL canonicalizes a user-supplied link so the same page saved
// twice compares equal: a missing scheme becomes https, scheme and host are
// lowercased, default ports and the fragment are dropped, and an empty path
// becomes "/".
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domainerrors.FieldError("url", "is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", domainerrors.FieldError("url", "must be a valid URL")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", domainerrors.FieldError("url", "must use http or https")
	}
	host := strings.ToLower(u.Hostname())
	if host == "" || strings.ContainsAny(host, " \t") {
		return "", domainerrors.FieldError("url", "must be a valid URL")
	}
	hostPart := host
	if strings.Contains(host, ":") { // IPv6 literal
		hostPart = "[" + host + "]"
	}
	switch port := u.Port(); {
	case port == "",
		u.Scheme == "http" && port == "80",
		u.Scheme == "https" && port == "443":
		u.Host = hostPart
	default:
		u.Host = hostPart + ":" + port
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// hostOf returns the host of an already normalized URL without a www. prefix.
func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}
