package scheduler

import (
	"context"
	"time"

	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
)

// Jobs builds the platform batch jobs: a daily sweep that backfills missed
// commission entries and a weekly platform commission report.
func Jobs(cfg Config, commissions commissiondomain.Service) []Job {
	cfg = cfg.withDefaults()

	return []Job{
		{
			Name:     "commission_sweep",
			Schedule: DailyAt{Hour: cfg.SweepHour, Minute: cfg.SweepMinute},
			Run: func(ctx context.Context, firedAt time.Time) error {
				_, err := commissions.SweepCompleted(ctx, firedAt.Add(-24*time.Hour), firedAt)
				return err
			},
		},
		{
			Name:     "weekly_commission_report",
			Schedule: WeeklyAt{Weekday: cfg.ReportWeekday, Hour: cfg.ReportHour, Minute: cfg.ReportMinute},
			Run: func(ctx context.Context, firedAt time.Time) error {
				_, err := commissions.GenerateReport(ctx, commissiondomain.ReportRequest{
					PeriodStart: firedAt.AddDate(0, 0, -7),
					PeriodEnd:   firedAt,
					GeneratedBy: "scheduler",
				})
				return err
			},
		},
	}
}
