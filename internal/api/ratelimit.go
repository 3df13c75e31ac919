package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pabliki/pabliki-server/internal/ratelimit"
)

// RateLimiter wraps KeyedRateLimiter for API use.
type RateLimiter = ratelimit.KeyedRateLimiter

// NewRateLimiter allows perMinute requests per client with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return ratelimit.New(ratelimit.PerMinute(perMinute), burst)
}

// rateLimited is huma operation middleware that limits requests per client
// IP and answers 429 RATE_LIMITED when the bucket is empty.
func (s *Server) rateLimited(ctx huma.Context, next func(huma.Context)) {
	if s.authLimiter == nil {
		next(ctx)
		return
	}
	key := remoteIP(ctx.RemoteAddr())
	if !s.authLimiter.Allow(key) {
		s.logger.Warn("rate limit exceeded", "ip", key, "path", ctx.URL().Path)
		if wait := s.authLimiter.RetryAfter(key); wait > 0 {
			ctx.SetHeader("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
		}
		_ = huma.WriteErr(s.api, ctx, http.StatusTooManyRequests, "too many requests, try again later")
		return
	}
	next(ctx)
}

func remoteIP(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
