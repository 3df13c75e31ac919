package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/pabliki/pabliki-server/internal/ratelimit"
)

// Fetch errors.
var (
	ErrUnsupportedURL = errors.New("preview: only http and https URLs can be fetched")
	ErrBadStatus      = errors.New("preview: unexpected response status")
)

// Options configures a Fetcher.
type Options struct {
	Timeout   time.Duration
	MaxBytes  int64
	HostRPS   float64
	UserAgent string

	// AllowPrivate permits loopback and private network targets, for
	// fetching pages on a trusted LAN.
	AllowPrivate bool
	Client       *http.Client // overrides the public-only default
}

// Fetcher retrieves previews, consulting the cache first and spacing out
// requests to the same host.
type Fetcher struct {
	client    *http.Client
	guard     bool
	cache     *Cache
	limiter   *ratelimit.KeyedRateLimiter
	maxBytes  int64
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

// NewFetcher creates a Fetcher. cache may be nil.
func NewFetcher(opts Options, cache *Cache, logger *slog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 2 << 20
	}
	if opts.HostRPS <= 0 {
		opts.HostRPS = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; PablikiBot/1.0)"
	}
	client := opts.Client
	switch {
	case client != nil:
	case opts.AllowPrivate:
		client = &http.Client{Timeout: opts.Timeout}
	default:
		client = newPublicClient(opts.Timeout)
	}
	return &Fetcher{
		client:    client,
		guard:     opts.Client == nil && !opts.AllowPrivate,
		cache:     cache,
		limiter:   ratelimit.New(opts.HostRPS, 1),
		maxBytes:  opts.MaxBytes,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    logger,
	}
}

// Close stops the host limiter. The cache is closed by its owner.
func (f *Fetcher) Close() {
	f.limiter.Stop()
}

// Fetch returns the preview for rawURL, from cache when fresh.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	return f.fetch(ctx, rawURL, true)
}

// Refresh fetches rawURL bypassing the cache and stores the new result.
func (f *Fetcher) Refresh(ctx context.Context, rawURL string) (*Preview, error) {
	return f.fetch(ctx, rawURL, false)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, useCache bool) (*Preview, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return nil, ErrUnsupportedURL
	}
	if f.guard {
		if err := checkHost(pageURL.Hostname()); err != nil {
			return nil, err
		}
	}

	if useCache && f.cache != nil {
		if p, ok := f.cache.Get(rawURL); ok {
			return p, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx, pageURL.Hostname()); err != nil {
		return nil, fmt.Errorf("wait for %s: %w", pageURL.Hostname(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL.Hostname(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	// Redirects change the base for relative image and icon URLs.
	finalURL := resp.Request.URL
	contentType := resp.Header.Get("Content-Type")

	var p *Preview
	if isHTML(contentType) {
		body, err := f.readBody(resp.Body, contentType)
		if err != nil {
			return nil, err
		}
		p, err = Extract(finalURL, body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", pageURL.Hostname(), err)
		}
	} else {
		// Images, PDFs and the like: nothing to parse, but the site is known.
		p = &Preview{
			URL:      finalURL.String(),
			SiteName: strings.TrimPrefix(finalURL.Hostname(), "www."),
		}
	}
	p.URL = rawURL
	p.FetchedAt = time.Now().UTC()

	if f.cache != nil {
		if err := f.cache.Set(rawURL, p); err != nil {
			f.logger.Warn("preview cache write failed", "url", rawURL, "error", err)
		}
	}
	return p, nil
}

// readBody reads at most maxBytes, decoding to UTF-8 per the declared or
// sniffed charset.
func (f *Fetcher) readBody(body io.Reader, contentType string) ([]byte, error) {
	limited := io.LimitReader(body, f.maxBytes)
	r, err := charset.NewReader(limited, contentType)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}
