package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/observability/metrics"
)

// Schedule yields the next firing instant strictly after the given time.
type Schedule interface {
	Next(after time.Time) time.Time
}

// DailyAt fires once a day at the given UTC wall-clock time.
type DailyAt struct {
	Hour   int
	Minute int
}

func (s DailyAt) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	if !next.After(after) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// WeeklyAt fires once a week on the given UTC weekday and wall-clock time.
type WeeklyAt struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

func (s WeeklyAt) Next(after time.Time) time.Time {
	after = after.UTC()
	next := time.Date(after.Year(), after.Month(), after.Day(), s.Hour, s.Minute, 0, 0, time.UTC)
	days := (int(s.Weekday) - int(after.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, days)
	if !next.After(after) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

// Job is one scheduled unit of work. Run receives the instant the job fired
// so window math stays stable when a run starts late.
type Job struct {
	Name     string
	Schedule Schedule
	Timeout  time.Duration
	Run      func(ctx context.Context, firedAt time.Time) error
}

type Scheduler struct {
	log     *zap.Logger
	clock   clock.Clock
	locker  Locker
	metrics *metrics.SchedulerMetrics
	cfg     Config
	jobs    []Job

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(log *zap.Logger, clk clock.Clock, locker Locker, m *metrics.SchedulerMetrics, cfg Config, jobs []Job) *Scheduler {
	return &Scheduler{
		log:     log.Named("scheduler"),
		clock:   clk,
		locker:  locker,
		metrics: m,
		cfg:     cfg.withDefaults(),
		jobs:    jobs,
	}
}

// Start launches one goroutine per job. Stop waits for in-flight runs.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	for {
		now := s.clock.Now()
		next := job.Schedule.Next(now)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.RunJob(ctx, job, next)
		}
	}
}

// RunJob executes one job under the distributed lock, with a timeout and
// metrics around it.
func (s *Scheduler) RunJob(ctx context.Context, job Job, firedAt time.Time) {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = s.cfg.JobTimeout
	}

	release, ok, err := s.locker.Acquire(ctx, "scheduler:"+job.Name, timeout)
	if err != nil {
		s.log.Error("job lock unavailable", zap.String("job", job.Name), zap.Error(err))
		s.metrics.IncJobError(job.Name)
		return
	}
	if !ok {
		s.log.Debug("job held by another instance", zap.String("job", job.Name))
		return
	}
	defer release()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	s.log.Info("job started", zap.String("job", job.Name))
	s.metrics.IncJobRun(job.Name)

	if err := job.Run(runCtx, firedAt); err != nil {
		s.metrics.IncJobError(job.Name)
		s.log.Error("job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return
	}

	s.metrics.ObserveJobDuration(job.Name, time.Since(started))
	s.log.Info("job finished",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(started)),
	)
}
