package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/observability/metrics"
)

func TestDailyAtNext(t *testing.T) {
	schedule := DailyAt{Hour: 2}

	before := time.Date(2026, 6, 1, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC), schedule.Next(before))

	after := time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 2, 2, 0, 0, 0, time.UTC), schedule.Next(after))
}

func TestWeeklyAtNext(t *testing.T) {
	schedule := WeeklyAt{Weekday: time.Monday, Hour: 3}

	// 2026-06-03 is a Wednesday.
	wednesday := time.Date(2026, 6, 3, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 8, 3, 0, 0, 0, time.UTC), schedule.Next(wednesday))

	// Monday before the firing time still fires the same day.
	monday := time.Date(2026, 6, 8, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 8, 3, 0, 0, 0, time.UTC), schedule.Next(monday))

	// Monday at the firing time rolls a full week.
	atTime := time.Date(2026, 6, 8, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 6, 15, 3, 0, 0, 0, time.UTC), schedule.Next(atTime))
}

type countingLocker struct {
	held     bool
	acquired int
}

func (l *countingLocker) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	if l.held {
		return nil, false, nil
	}
	l.acquired++
	return func() {}, true, nil
}

// Collectors register in the global Prometheus registry, so the metrics
// instance must be shared across tests to avoid duplicate registration.
var testSchedulerMetrics = metrics.NewSchedulerMetrics()

func newTestScheduler(locker Locker, jobs []Job) *Scheduler {
	return NewScheduler(
		zap.NewNop(),
		clock.NewFakeClock(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
		locker,
		testSchedulerMetrics,
		Config{},
		jobs,
	)
}

func TestRunJobPassesFiringTime(t *testing.T) {
	var got time.Time
	job := Job{
		Name:     "test",
		Schedule: DailyAt{Hour: 2},
		Run: func(_ context.Context, firedAt time.Time) error {
			got = firedAt
			return nil
		},
	}
	locker := &countingLocker{}
	s := newTestScheduler(locker, nil)

	firedAt := time.Date(2026, 6, 1, 2, 0, 0, 0, time.UTC)
	s.RunJob(context.Background(), job, firedAt)

	assert.Equal(t, firedAt, got)
	assert.Equal(t, 1, locker.acquired)
}

func TestRunJobSkipsWhenLockHeld(t *testing.T) {
	ran := false
	job := Job{
		Name:     "test",
		Schedule: DailyAt{Hour: 2},
		Run: func(context.Context, time.Time) error {
			ran = true
			return nil
		},
	}
	s := newTestScheduler(&countingLocker{held: true}, nil)
	s.RunJob(context.Background(), job, time.Now())

	assert.False(t, ran)
}

func TestRunJobSurvivesFailure(t *testing.T) {
	job := Job{
		Name:     "test",
		Schedule: DailyAt{Hour: 2},
		Run: func(context.Context, time.Time) error {
			return errors.New("boom")
		},
	}
	s := newTestScheduler(&countingLocker{}, nil)

	// Must not panic and must release the lock for the next run.
	s.RunJob(context.Background(), job, time.Now())
	s.RunJob(context.Background(), job, time.Now())
}

func TestStartStop(t *testing.T) {
	done := make(chan struct{}, 1)
	job := Job{
		Name:     "test",
		Schedule: DailyAt{Hour: 2},
		Run: func(context.Context, time.Time) error {
			done <- struct{}{}
			return nil
		},
	}
	s := newTestScheduler(&countingLocker{}, []Job{job})
	s.Start()
	s.Stop()

	select {
	case <-done:
		require.Fail(t, "job fired immediately")
	default:
	}
}
