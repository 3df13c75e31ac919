package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pabliki/pabliki-server/internal/config"
	"github.com/pabliki/pabliki-server/internal/jobs"
	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/service"
)

// SchedulerHandle wraps the maintenance scheduler for lifecycle management.
type SchedulerHandle struct {
	*jobs.Scheduler
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	if h.Scheduler == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Stop(ctx)
}

// ProvideScheduler registers and starts the periodic maintenance jobs.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	activity := do.MustInvoke[*service.ActivityService](i)
	sessions := do.MustInvoke[*service.SessionService](i)
	previews := do.MustInvoke[*PreviewHandle](i)
	limiter := do.MustInvoke[*AuthLimiterHandle](i)

	if cfg.Jobs.MaintenanceSchedule == "" {
		log.Info("Maintenance jobs disabled")
		return &SchedulerHandle{}, nil
	}

	scheduler, err := jobs.NewScheduler(cfg.Jobs.MaintenanceSchedule, m, log.Logger)
	if err != nil {
		return nil, err
	}

	scheduler.Register(jobs.JobActivityRetention, jobs.ActivityRetention(activity, cfg.Jobs.ActivityRetentionDays))
	scheduler.Register(jobs.JobExpiredSessions, jobs.ExpiredSessions(sessions))
	if previews.Cache != nil {
		scheduler.Register(jobs.JobPreviewCacheGC, jobs.PreviewCacheGC(previews.Cache))
	}
	scheduler.Register(jobs.JobLimiterSweep, jobs.LimiterSweep(limiter.KeyedRateLimiter))

	if err := scheduler.Start(); err != nil {
		return nil, err
	}

	log.Info("Maintenance scheduler started", "schedule", cfg.Jobs.MaintenanceSchedule)

	return &SchedulerHandle{Scheduler: scheduler}, nil
}
