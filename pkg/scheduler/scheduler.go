// Package scheduler runs the recurring sync jobs on fixed intervals. Each
// job ticks independently; overlap protection lives in the job itself, so a
// tick that lands mid-run is simply skipped there.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/adpulse/adsync/pkg/tracing"
)

var (
	// ErrSchedulerStopped is returned when the scheduler is stopped
	ErrSchedulerStopped = errors.New("scheduler stopped")

	// ErrSchedulerAlreadyRunning is returned when trying to start an already running scheduler
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")
)

// Task is one recurring job body. Errors are logged, never fatal to the loop.
type Task func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	task     Task
}

// Scheduler drives registered jobs on their intervals
type Scheduler struct {
	jobs   []job
	logger ectologger.Logger

	// Coordination
	stopCh   chan struct{}
	stoppedC chan struct{}
	running  bool
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

// NewScheduler creates an empty scheduler
func NewScheduler(logger ectologger.Logger) *Scheduler {
	return &Scheduler{
		logger:   logger,
		stopCh:   make(chan struct{}),
		stoppedC: make(chan struct{}),
	}
}

// Every registers a named job to run each interval. Must be called before
// Start.
func (s *Scheduler) Every(name string, interval time.Duration, task Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job{name: name, interval: interval, task: task})
}

// Start launches one ticker loop per registered job. Each job also runs once
// immediately so a fresh deploy does not wait a full interval for data.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	s.running = true
	jobs := s.jobs
	s.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, "Scheduler.Start")
	defer span.End()

	for _, j := range jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
		s.logger.WithContext(ctx).Infof("Scheduled job %s every %s", j.name, j.interval)
	}

	go func() {
		s.wg.Wait()
		close(s.stoppedC)
	}()

	s.logger.WithContext(ctx).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.logger.WithContext(ctx).Info("Stopping scheduler...")

	close(s.stopCh)

	select {
	case <-s.stoppedC:
		s.logger.WithContext(ctx).Info("Scheduler stopped gracefully")
	case <-ctx.Done():
		s.logger.WithContext(ctx).Warn("Scheduler shutdown timed out")
		return ctx.Err()
	}

	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	s.run(ctx, j)

	for {
		select {
		case <-s.stopCh:
			s.logger.WithContext(ctx).Debugf("Job %s loop stopping", j.name)
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx, j)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, j job) {
	ctx, span := tracing.StartSpan(ctx, "Scheduler.run")
	defer span.End()

	start := time.Now()
	if err := j.task(ctx); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"job": j.name,
		}).Error("Scheduled job failed")
		return
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"job":      j.name,
		"duration": time.Since(start).String(),
	}).Debug("Scheduled job finished")
}
