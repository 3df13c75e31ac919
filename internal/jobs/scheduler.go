// Package jobs runs the server's periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pabliki/pabliki-server/internal/metrics"
)

// Func is one unit of maintenance work.
type Func func(ctx context.Context) error

type job struct {
	name string
	fn   Func
}

// Scheduler runs registered jobs, in registration order, every time the
// schedule fires. A run never overlaps the previous one.
type Scheduler struct {
	cron    *cron.Cron
	spec    string
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu   sync.Mutex
	jobs []job

	ctx    context.Context
	cancel context.CancelFunc
}

// Parser accepts standard five-field cron expressions and descriptors such
// as "@daily".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSpec reports whether spec is a schedule the Scheduler accepts.
func ValidateSpec(spec string) error {
	_, err := Parser.Parse(spec)
	return err
}

// NewScheduler creates a scheduler firing on spec.
func NewScheduler(spec string, m *metrics.Metrics, logger *slog.Logger) (*Scheduler, error) {
	if err := ValidateSpec(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	cl := cronLogger{logger}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(Parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		spec:    spec,
		metrics: m,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Register adds a job. Jobs registered after Start run from the next firing.
func (s *Scheduler) Register(name string, fn Func) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job{name: name, fn: fn})
}

// Start begins firing on the schedule.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunAll(s.ctx) }); err != nil {
		return fmt.Errorf("schedule maintenance: %w", err)
	}
	s.cron.Start()

	entries := s.cron.Entries()
	if len(entries) > 0 {
		s.logger.Info("maintenance scheduled", "schedule", s.spec, "next_run", entries[0].Next)
	}
	return nil
}

// Stop cancels running jobs and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunAll runs every job once. A failing job is logged and does not stop
// the ones after it.
func (s *Scheduler) RunAll(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]job(nil), s.jobs...)
	s.mu.Unlock()

	for _, j := range jobs {
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, j)
	}
}

func (s *Scheduler) run(ctx context.Context, j job) {
	start := time.Now()
	err := j.fn(ctx)
	took := time.Since(start)
	s.metrics.JobFinished(j.name, took, err)

	if err != nil {
		s.logger.Error("maintenance job failed", "job", j.name, "took", took, "error", err)
		return
	}
	s.logger.Debug("maintenance job finished", "job", j.name, "took", took)
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
