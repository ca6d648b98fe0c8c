package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
	bookingrepo "github.com/salasbeats/marketplace/internal/booking/repository"
	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/commission/domain"
	"github.com/salasbeats/marketplace/internal/commission/repository"
	"github.com/salasbeats/marketplace/internal/config"
)

type fakePayoutReader struct {
	sum float64
}

func (f *fakePayoutReader) SumForHost(_ context.Context, _ *gorm.DB, _ string, _, _ time.Time) (float64, error) {
	return f.sum, nil
}

type fixture struct {
	svc   domain.Service
	db    *gorm.DB
	clock *clock.FakeClock
	genID *snowflake.Node
	paid  *fakePayoutReader
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&bookingdomain.Booking{},
		&domain.Record{},
		&domain.Setting{},
		&domain.RateChange{},
		&domain.Report{},
	))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	paid := &fakePayoutReader{}

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fc,
		Policy:      config.NewStaticPolicyHolder(config.DefaultMarketplacePolicy()),
		Repo:        repository.Provide(),
		BookingRepo: bookingrepo.Provide(),
		Payouts:     paid,
	})
	return &fixture{svc: svc, db: db, clock: fc, genID: node, paid: paid}
}

func (f *fixture) seedBooking(t *testing.T, status bookingdomain.BookingStatus, amount float64, completedAt time.Time) *bookingdomain.Booking {
	t.Helper()
	booking := &bookingdomain.Booking{
		ID:            f.genID.Generate(),
		ListingID:     f.genID.Generate(),
		UserID:        "user_1",
		HostID:        "host_1",
		StartDate:     completedAt.Truncate(24 * time.Hour),
		EndDate:       completedAt.Truncate(24 * time.Hour),
		StartTime:     "10:00",
		EndTime:       "12:00",
		StartMinute:   600,
		EndMinute:     720,
		Guests:        2,
		TotalAmount:   amount,
		Status:        status,
		PaymentStatus: bookingdomain.PaymentPaid,
		CreatedAt:     f.clock.Now(),
		UpdatedAt:     f.clock.Now(),
	}
	if status == bookingdomain.StatusCompleted {
		at := completedAt
		booking.CompletedAt = &at
	}
	require.NoError(t, f.db.Create(booking).Error)
	return booking
}

func TestCalculateCommission(t *testing.T) {
	f := newFixture(t)
	booking := f.seedBooking(t, bookingdomain.StatusCompleted, 1000, f.clock.Now())

	record, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{BookingID: booking.ID})
	require.NoError(t, err)
	assert.InDelta(t, 0.15, record.Rate, 1e-9)
	assert.InDelta(t, 150, record.CommissionAmount, 1e-9)
	assert.InDelta(t, 850, record.HostEarnings, 1e-9)

	var updated bookingdomain.Booking
	require.NoError(t, f.db.First(&updated, "id = ?", booking.ID).Error)
	require.NotNil(t, updated.CommissionAmount)
	assert.InDelta(t, 150, *updated.CommissionAmount, 1e-9)
	require.NotNil(t, updated.HostEarnings)
	assert.InDelta(t, 850, *updated.HostEarnings, 1e-9)
}

func TestCalculateIsIdempotent(t *testing.T) {
	f := newFixture(t)
	booking := f.seedBooking(t, bookingdomain.StatusCompleted, 1000, f.clock.Now())

	first, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{BookingID: booking.ID})
	require.NoError(t, err)

	second, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{BookingID: booking.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, f.db.Model(&domain.Record{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCalculateRequiresCompletedBooking(t *testing.T) {
	f := newFixture(t)
	booking := f.seedBooking(t, bookingdomain.StatusConfirmed, 500, f.clock.Now())

	_, err := f.svc.Calculate(context.Background(), domain.CalculateRequest{BookingID: booking.ID})
	assert.ErrorIs(t, err, domain.ErrBookingNotCompleted)

	_, err = f.svc.Calculate(context.Background(), domain.CalculateRequest{BookingID: f.genID.Generate()})
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestUpdateRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateRate(ctx, domain.UpdateRateRequest{Rate: 1.5, ChangedBy: "admin_1"})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)
	_, err = f.svc.UpdateRate(ctx, domain.UpdateRateRequest{Rate: -0.1, ChangedBy: "admin_1"})
	assert.ErrorIs(t, err, domain.ErrInvalidRate)

	change, err := f.svc.UpdateRate(ctx, domain.UpdateRateRequest{Rate: 0.2, ChangedBy: "admin_1"})
	require.NoError(t, err)
	assert.InDelta(t, 0.15, change.PreviousRate, 1e-9)
	assert.InDelta(t, 0.2, change.NewRate, 1e-9)

	rate, err := f.svc.CurrentRate(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, rate, 1e-9)

	// New bookings settle at the new rate.
	booking := f.seedBooking(t, bookingdomain.StatusCompleted, 1000, f.clock.Now())
	record, err := f.svc.Calculate(ctx, domain.CalculateRequest{BookingID: booking.ID})
	require.NoError(t, err)
	assert.InDelta(t, 200, record.CommissionAmount, 1e-9)
}

func TestSweepCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	inWindow := f.seedBooking(t, bookingdomain.StatusCompleted, 1000, now.Add(-2*time.Hour))
	alreadyDone := f.seedBooking(t, bookingdomain.StatusCompleted, 400, now.Add(-3*time.Hour))
	f.seedBooking(t, bookingdomain.StatusCompleted, 700, now.Add(-48*time.Hour))
	f.seedBooking(t, bookingdomain.StatusConfirmed, 300, now.Add(-1*time.Hour))

	_, err := f.svc.Calculate(ctx, domain.CalculateRequest{BookingID: alreadyDone.ID})
	require.NoError(t, err)

	result, err := f.svc.SweepCompleted(ctx, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.InDelta(t, 150, result.Total, 1e-9)

	record, err := repository.Provide().FindByBookingID(ctx, f.db, inWindow.ID)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, domain.SourceSweep, record.Source)

	// Second run finds nothing left to do.
	result, err = f.svc.SweepCompleted(ctx, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
}

func TestHostEarnings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()
	f.paid.sum = 300

	day1 := f.seedBooking(t, bookingdomain.StatusCompleted, 1000, now.Add(-48*time.Hour))
	day2 := f.seedBooking(t, bookingdomain.StatusCompleted, 500, now.Add(-24*time.Hour))
	f.seedBooking(t, bookingdomain.StatusConfirmed, 200, now.Add(24*time.Hour))

	for _, b := range []*bookingdomain.Booking{day1, day2} {
		_, err := f.svc.Calculate(ctx, domain.CalculateRequest{BookingID: b.ID})
		require.NoError(t, err)
	}

	report, err := f.svc.HostEarnings(ctx, "host_1", now.Add(-72*time.Hour), now)
	require.NoError(t, err)

	assert.Equal(t, 2, report.CompletedBookings)
	assert.InDelta(t, 1500, report.TotalRevenue, 1e-9)
	assert.InDelta(t, 150+75, report.TotalCommissions, 1e-9)
	assert.InDelta(t, 850+425, report.TotalEarnings, 1e-9)
	assert.InDelta(t, 170, report.PendingEarnings, 1e-9)
	assert.InDelta(t, 300, report.TotalPaidOut, 1e-9)
	assert.InDelta(t, 975, report.AvailableForPayout, 1e-9)
	require.Len(t, report.DailyBreakdown, 2)
}

func TestGenerateReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := f.clock.Now()

	b1 := f.seedBooking(t, bookingdomain.StatusCompleted, 1000, now.Add(-2*time.Hour))
	b2 := f.seedBooking(t, bookingdomain.StatusCompleted, 600, now.Add(-1*time.Hour))
	for _, b := range []*bookingdomain.Booking{b1, b2} {
		_, err := f.svc.Calculate(ctx, domain.CalculateRequest{BookingID: b.ID})
		require.NoError(t, err)
	}

	report, err := f.svc.GenerateReport(ctx, domain.ReportRequest{
		PeriodStart: now.Add(-24 * time.Hour),
		PeriodEnd:   now.Add(time.Hour),
		GeneratedBy: "admin_1",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, report.TotalBookings)
	assert.InDelta(t, 1600, report.TotalBookingAmount, 1e-9)
	assert.InDelta(t, 240, report.TotalCommission, 1e-9)
	assert.InDelta(t, 1360, report.TotalHostEarnings, 1e-9)
}
