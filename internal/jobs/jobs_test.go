package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pabliki/pabliki-server/internal/logger"
	"github.com/pabliki/pabliki-server/internal/metrics"
	"github.com/pabliki/pabliki-server/internal/ratelimit"
)

type fakePurger struct{ got time.Duration }

func (f *fakePurger) Purge(_ context.Context, retention time.Duration) (int, error) {
	f.got = retention
	return 3, nil
}

type fakeSessions struct{ calls int }

func (f *fakeSessions) DeleteExpiredSessions(context.Context) (int, error) {
	f.calls++
	return 0, errors.New("database is locked")
}

func TestValidateSpec(t *testing.T) {
	assert.NoError(t, ValidateSpec("30 3 * * *"))
	assert.NoError(t, ValidateSpec("@daily"))
	assert.Error(t, ValidateSpec("every night"))

	_, err := NewScheduler("61 * * * *", nil, logger.Discard())
	assert.Error(t, err)
}

func TestRunAll_ContinuesAfterFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s, err := NewScheduler("@daily", m, logger.Discard())
	require.NoError(t, err)

	purger := &fakePurger{}
	sessions := &fakeSessions{}
	s.Register(JobExpiredSessions, ExpiredSessions(sessions))
	s.Register(JobActivityRetention, ActivityRetention(purger, 30))

	s.RunAll(context.Background())

	assert.Equal(t, 1, sessions.calls)
	assert.Equal(t, 30*24*time.Hour, purger.got)
	assert.InDelta(t, 1, testutil.ToFloat64(m.JobRuns.WithLabelValues(JobExpiredSessions, "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.JobRuns.WithLabelValues(JobActivityRetention, "ok")), 0)
}

func TestRunAll_StopsWhenCancelled(t *testing.T) {
	s, err := NewScheduler("@daily", nil, logger.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ran := 0
	s.Register("first", func(context.Context) error { ran++; cancel(); return nil })
	s.Register("second", func(context.Context) error { ran++; return nil })

	s.RunAll(ctx)
	assert.Equal(t, 1, ran)
}

func TestLimiterSweep(t *testing.T) {
	l := ratelimit.NewWithTTL(1, 1, 10*time.Millisecond)
	defer l.Stop()
	l.Allow("a")
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, LimiterSweep(l)(context.Background()))
	assert.Zero(t, l.Len())
}

func TestStartStop(t *testing.T) {
	s, err := NewScheduler("@every 1h", nil, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, s.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
