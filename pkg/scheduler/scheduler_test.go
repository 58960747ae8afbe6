package scheduler_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/adpulse/adsync/pkg/scheduler"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func TestScheduler_RunsJobImmediatelyAndOnTicks(t *testing.T) {
	s := scheduler.NewScheduler(getTestLogger())

	var runs atomic.Int32
	s.Every("counter", 50*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	// One immediate run plus at least one tick
	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, time.Second, 10*time.Millisecond)
}

func TestScheduler_StartTwiceFails(t *testing.T) {
	s := scheduler.NewScheduler(getTestLogger())
	s.Every("noop", time.Hour, func(ctx context.Context) error { return nil })

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.ErrorIs(t, s.Start(context.Background()), scheduler.ErrSchedulerAlreadyRunning)
}

func TestScheduler_StopHaltsJobs(t *testing.T) {
	s := scheduler.NewScheduler(getTestLogger())

	var runs atomic.Int32
	s.Every("counter", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return runs.Load() >= 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(context.Background()))
	assert.False(t, s.IsRunning())

	after := runs.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, after, runs.Load(), "no runs after Stop")
}

func TestScheduler_JobErrorDoesNotStopLoop(t *testing.T) {
	s := scheduler.NewScheduler(getTestLogger())

	var runs atomic.Int32
	s.Every("flaky", 20*time.Millisecond, func(ctx context.Context) error {
		runs.Add(1)
		return assert.AnError
	})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, time.Second, 5*time.Millisecond)
}
