package jobs

import (
	"context"
	"time"

	"github.com/pabliki/pabliki-server/internal/ratelimit"
)

// Job names, used as the job label on metrics.
const (
	JobActivityRetention = "activity_retention"
	JobExpiredSessions   = "expired_sessions"
	JobPreviewCacheGC    = "preview_cache_gc"
	JobLimiterSweep      = "limiter_sweep"
)

// ActivityPurger deletes activity older than a retention window.
type ActivityPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int, error)
}

// SessionCleaner removes sessions past their expiry.
type SessionCleaner interface {
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// GarbageCollector reclaims space in a value log.
type GarbageCollector interface {
	RunGC() error
}

// ActivityRetention purges activity older than days. Zero keeps everything.
func ActivityRetention(purger ActivityPurger, days int) Func {
	return func(ctx context.Context) error {
		_, err := purger.Purge(ctx, time.Duration(days)*24*time.Hour)
		return err
	}
}

// ExpiredSessions deletes expired refresh-token sessions.
func ExpiredSessions(cleaner SessionCleaner) Func {
	return func(ctx context.Context) error {
		_, err := cleaner.DeleteExpiredSessions(ctx)
		return err
	}
}

// PreviewCacheGC compacts the preview cache.
func PreviewCacheGC(gc GarbageCollector) Func {
	return func(context.Context) error {
		return gc.RunGC()
	}
}

// LimiterSweep evicts idle keys from rate limiters.
func LimiterSweep(limiters ...*ratelimit.KeyedRateLimiter) Func {
	return func(context.Context) error {
		for _, l := range limiters {
			l.Sweep()
		}
		return nil
	}
}
