package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/commission/domain"
	"github.com/salasbeats/marketplace/internal/config"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Policy      *config.PolicyHolder
	Repo        domain.Repository
	BookingRepo bookingdomain.Repository
	Payouts     domain.PayoutReader `optional:"true"`
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyHolder
	repo        domain.Repository
	bookingRepo bookingdomain.Repository
	payouts     domain.PayoutReader
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("commission.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		policy:      p.Policy,
		repo:        p.Repo,
		bookingRepo: p.BookingRepo,
		payouts:     p.Payouts,
	}
}

func (s *service) CurrentRate(ctx context.Context) (float64, error) {
	setting, err := s.repo.CurrentSetting(ctx, s.db)
	if err != nil {
		return 0, err
	}
	if setting == nil {
		return s.policy.Current().DefaultCommissionRate, nil
	}
	return setting.Rate, nil
}

func (s *service) Calculate(ctx context.Context, req domain.CalculateRequest) (*domain.Record, error) {
	rate, err := s.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}
	source := req.Source
	if source == "" {
		source = domain.SourceAPI
	}

	var record *domain.Record
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByID(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrBookingNotFound
		}
		if booking.Status != bookingdomain.StatusCompleted {
			return domain.ErrBookingNotCompleted
		}

		now := s.clock.Now()
		commission := booking.TotalAmount * rate
		record = &domain.Record{
			ID:               s.genID.Generate(),
			BookingID:        booking.ID,
			ListingID:        booking.ListingID,
			HostID:           booking.HostID,
			BookingAmount:    booking.TotalAmount,
			Rate:             rate,
			CommissionAmount: commission,
			HostEarnings:     booking.TotalAmount - commission,
			Source:           source,
			CreatedAt:        now,
		}

		inserted, err := s.repo.InsertIgnoreDuplicate(ctx, tx, record)
		if err != nil {
			return err
		}
		if !inserted {
			// Another caller got here first; hand back their record.
			record, err = s.repo.FindByBookingID(ctx, tx, booking.ID)
			return err
		}
		return s.bookingRepo.SetCommission(ctx, tx, booking.ID, record.CommissionAmount, record.HostEarnings, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("commission recorded",
		zap.Int64("booking_id", record.BookingID.Int64()),
		zap.Float64("rate", record.Rate),
		zap.Float64("commission", record.CommissionAmount),
	)
	return record, nil
}

func (s *service) UpdateRate(ctx context.Context, req domain.UpdateRateRequest) (*domain.RateChange, error) {
	if req.Rate < 0 || req.Rate > 1 {
		return nil, domain.ErrInvalidRate
	}

	var change *domain.RateChange
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		previous := s.policy.Current().DefaultCommissionRate

		setting, err := s.repo.CurrentSetting(ctx, tx)
		if err != nil {
			return err
		}
		if setting == nil {
			setting = &domain.Setting{ID: 1}
		} else {
			previous = setting.Rate
		}
		setting.Rate = req.Rate
		setting.UpdatedBy = req.ChangedBy
		setting.UpdatedAt = now
		if err := s.repo.SaveSetting(ctx, tx, setting); err != nil {
			return err
		}

		change = &domain.RateChange{
			ID:           s.genID.Generate(),
			PreviousRate: previous,
			NewRate:      req.Rate,
			ChangedBy:    req.ChangedBy,
			CreatedAt:    now,
		}
		return s.repo.InsertRateChange(ctx, tx, change)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("commission rate updated",
		zap.Float64("previous", change.PreviousRate),
		zap.Float64("rate", change.NewRate),
		zap.String("changed_by", change.ChangedBy),
	)
	return change, nil
}

func (s *service) HostEarnings(ctx context.Context, hostID string, from, to time.Time) (*domain.EarningsReport, error) {
	if !to.After(from) {
		return nil, domain.ErrInvalidPeriod
	}
	rate, err := s.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}

	completed, err := s.bookingRepo.CompletedForHost(ctx, s.db, hostID, from, to)
	if err != nil {
		return nil, err
	}
	confirmed, err := s.bookingRepo.ConfirmedForHost(ctx, s.db, hostID)
	if err != nil {
		return nil, err
	}

	report := &domain.EarningsReport{
		HostID:            hostID,
		PeriodStart:       from,
		PeriodEnd:         to,
		CompletedBookings: len(completed),
		DailyBreakdown:    []domain.DailyEarnings{},
	}

	byDay := map[string]*domain.DailyEarnings{}
	var days []string
	for _, booking := range completed {
		earnings := booking.TotalAmount * (1 - rate)
		if booking.HostEarnings != nil {
			earnings = *booking.HostEarnings
		}
		commission := booking.TotalAmount * rate
		if booking.CommissionAmount != nil {
			commission = *booking.CommissionAmount
		}
		report.TotalRevenue += booking.TotalAmount
		report.TotalCommissions += commission
		report.TotalEarnings += earnings

		day := booking.CompletedAt.UTC().Format("2006-01-02")
		entry, ok := byDay[day]
		if !ok {
			entry = &domain.DailyEarnings{Date: day}
			byDay[day] = entry
			days = append(days, day)
		}
		entry.Bookings++
		entry.Earnings += earnings
	}
	for _, day := range days {
		report.DailyBreakdown = append(report.DailyBreakdown, *byDay[day])
	}

	for _, booking := range confirmed {
		report.PendingEarnings += booking.TotalAmount * (1 - rate)
	}

	if s.payouts != nil {
		paidOut, err := s.payouts.SumForHost(ctx, s.db, hostID, from, to)
		if err != nil {
			return nil, err
		}
		report.TotalPaidOut = paidOut
	}
	report.AvailableForPayout = report.TotalEarnings - report.TotalPaidOut
	if report.AvailableForPayout < 0 {
		report.AvailableForPayout = 0
	}
	return report, nil
}

func (s *service) GenerateReport(ctx context.Context, req domain.ReportRequest) (*domain.Report, error) {
	if !req.PeriodEnd.After(req.PeriodStart) {
		return nil, domain.ErrInvalidPeriod
	}
	totals, err := s.repo.TotalsForPeriod(ctx, s.db, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		return nil, err
	}

	report := &domain.Report{
		ID:                 s.genID.Generate(),
		PeriodStart:        req.PeriodStart,
		PeriodEnd:          req.PeriodEnd,
		TotalBookings:      totals.Count,
		TotalBookingAmount: totals.BookingAmount,
		TotalCommission:    totals.Commission,
		TotalHostEarnings:  totals.HostEarnings,
		GeneratedBy:        req.GeneratedBy,
		CreatedAt:          s.clock.Now(),
	}
	if err := s.repo.InsertReport(ctx, s.db, report); err != nil {
		return nil, err
	}
	return report, nil
}

// SweepCompleted backfills ledger entries for bookings completed in the
// window that never got one, in a single transaction.
func (s *service) SweepCompleted(ctx context.Context, from, to time.Time) (*domain.SweepResult, error) {
	rate, err := s.CurrentRate(ctx)
	if err != nil {
		return nil, err
	}

	result := &domain.SweepResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bookings, err := s.bookingRepo.CompletedWithoutCommission(ctx, tx, from, to)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		for _, booking := range bookings {
			commission := booking.TotalAmount * rate
			record := &domain.Record{
				ID:               s.genID.Generate(),
				BookingID:        booking.ID,
				ListingID:        booking.ListingID,
				HostID:           booking.HostID,
				BookingAmount:    booking.TotalAmount,
				Rate:             rate,
				CommissionAmount: commission,
				HostEarnings:     booking.TotalAmount - commission,
				Source:           domain.SourceSweep,
				CreatedAt:        now,
			}
			inserted, err := s.repo.InsertIgnoreDuplicate(ctx, tx, record)
			if err != nil {
				return err
			}
			if !inserted {
				result.Skipped++
				continue
			}
			if err := s.bookingRepo.SetCommission(ctx, tx, booking.ID, record.CommissionAmount, record.HostEarnings, now); err != nil {
				return err
			}
			result.Processed++
			result.Total += record.CommissionAmount
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("commission sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Float64("total_commission", result.Total),
	)
	return result, nil
}
