package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/salasbeats/marketplace/internal/booking/domain"
	"github.com/salasbeats/marketplace/internal/booking/repository"
	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/config"
	"github.com/salasbeats/marketplace/internal/identity"
	listingdomain "github.com/salasbeats/marketplace/internal/listing/domain"
	listingrepo "github.com/salasbeats/marketplace/internal/listing/repository"
)

type fakeRefunder struct {
	refs    []string
	amounts []float64
	err     error
}

func (f *fakeRefunder) CreateRefund(_ context.Context, paymentRef string, amount float64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.refs = append(f.refs, paymentRef)
	f.amounts = append(f.amounts, amount)
	return "re_test_1", nil
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	refunder *fakeRefunder
	listings listingdomain.Repository
	genID    *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&listingdomain.Listing{}, &domain.Booking{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fc := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	refunder := &fakeRefunder{}
	listings := listingrepo.Provide()

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fc,
		Policy:      config.NewStaticPolicyHolder(config.DefaultMarketplacePolicy()),
		Repo:        repository.Provide(),
		ListingRepo: listings,
		Refunder:    refunder,
	})

	return &fixture{svc: svc, db: db, clock: fc, refunder: refunder, listings: listings, genID: node}
}

func (f *fixture) seedListing(t *testing.T, maxGuests int) *listingdomain.Listing {
	t.Helper()
	listing := &listingdomain.Listing{
		ID:        f.genID.Generate(),
		HostID:    "host_1",
		Title:     "Studio A",
		MaxGuests: maxGuests,
		Status:    listingdomain.ListingStatusActive,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.listings.Insert(context.Background(), f.db, listing))
	return listing
}

func callerCtx(id string, role identity.Role) context.Context {
	return identity.WithCaller(context.Background(), identity.Caller{ID: id, Role: role})
}

func createRequest(listingID snowflake.ID) domain.CreateBookingRequest {
	return domain.CreateBookingRequest{
		ListingID:   listingID,
		StartDate:   "2026-03-02",
		StartTime:   "10:00",
		EndTime:     "12:00",
		Guests:      2,
		TotalAmount: 1000,
	}
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	booking, err := f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusPending, booking.Status)
	assert.Equal(t, domain.PaymentPending, booking.PaymentStatus)
	assert.Equal(t, "user_1", booking.UserID)
	assert.Equal(t, "host_1", booking.HostID)
	assert.Equal(t, 600, booking.StartMinute)
	assert.Equal(t, 720, booking.EndMinute)

	got, err := f.listings.FindByID(context.Background(), f.db, listing.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.TotalBookings)
	assert.EqualValues(t, 1, got.PendingBookings)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	_, err := f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)

	// 11:00-13:00 intersects 10:00-12:00 even though the windows differ.
	overlapping := createRequest(listing.ID)
	overlapping.StartTime = "11:00"
	overlapping.EndTime = "13:00"
	_, err = f.svc.Create(ctx, overlapping)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	// Half-open intervals: a booking starting when the other ends is fine.
	adjacent := createRequest(listing.ID)
	adjacent.StartTime = "12:00"
	adjacent.EndTime = "14:00"
	_, err = f.svc.Create(ctx, adjacent)
	assert.NoError(t, err)

	// Same window on another day is fine too.
	nextDay := createRequest(listing.ID)
	nextDay.StartDate = "2026-03-03"
	_, err = f.svc.Create(ctx, nextDay)
	assert.NoError(t, err)
}

func TestCancelledSlotBecomesFree(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	booking, err := f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, domain.CancelRequest{BookingID: booking.ID, Reason: "changed plans"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, createRequest(listing.ID))
	assert.NoError(t, err)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 2)
	ctx := callerCtx("user_1", identity.RoleUser)

	req := createRequest(listing.ID)
	req.Guests = 3
	_, err := f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrTooManyGuests)

	req = createRequest(listing.ID)
	req.EndTime = "10:00"
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidTimeWindow)

	req = createRequest(listing.ID)
	req.StartTime = "25:00"
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidTimeWindow)

	req = createRequest(listing.ID)
	req.TotalAmount = 0
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	req = createRequest(f.genID.Generate())
	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, domain.ErrListingNotFound)
}

func TestTransitionStateMachine(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	booking, err := f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)

	// pending -> completed skips confirmation and is rejected.
	_, err = f.svc.Transition(ctx, domain.TransitionRequest{BookingID: booking.ID, Status: domain.StatusCompleted})
	var invalid *domain.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, domain.StatusPending, invalid.From)
	assert.Equal(t, domain.StatusCompleted, invalid.To)

	confirmed, err := f.svc.Transition(ctx, domain.TransitionRequest{BookingID: booking.ID, Status: domain.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)

	completed, err := f.svc.Transition(ctx, domain.TransitionRequest{BookingID: booking.ID, Status: domain.StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	got, err := f.listings.FindByID(context.Background(), f.db, listing.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, got.CompletedBookings)
	assert.EqualValues(t, 0, got.PendingBookings)
	assert.EqualValues(t, 0, got.ConfirmedBookings)
	assert.InDelta(t, 1000, got.TotalRevenue, 1e-9)

	// Terminal bookings stay terminal.
	_, err = f.svc.Cancel(ctx, domain.CancelRequest{BookingID: booking.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)
}

func TestCancelRefundPolicy(t *testing.T) {
	cases := []struct {
		name       string
		hoursAhead time.Duration
		want       float64
	}{
		{"more than 24h", 25 * time.Hour, 1000},
		{"exactly 24h", 24 * time.Hour, 500},
		{"between 12 and 24h", 18 * time.Hour, 500},
		{"under 12h", 6 * time.Hour, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			listing := f.seedListing(t, 4)
			ctx := callerCtx("user_1", identity.RoleUser)

			booking, err := f.svc.Create(ctx, createRequest(listing.ID))
			require.NoError(t, err)

			// Pin "now" so the window starts exactly hoursAhead from it.
			f.clock.Advance(booking.StartsAt().Add(-tc.hoursAhead).Sub(f.clock.Now()))

			cancelled, err := f.svc.Cancel(ctx, domain.CancelRequest{BookingID: booking.ID, Reason: "test"})
			require.NoError(t, err)
			require.NotNil(t, cancelled.RefundAmount)
			assert.InDelta(t, tc.want, *cancelled.RefundAmount, 1e-9)
		})
	}
}

func TestCancelIssuesRefundThroughProvider(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	booking, err := f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)

	_, err = f.svc.AttachPayment(ctx, domain.AttachPaymentRequest{
		BookingID:       booking.ID,
		PaymentIntentID: "pi_123",
	})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, domain.CancelRequest{BookingID: booking.ID, Reason: "refund me"})
	require.NoError(t, err)

	require.Len(t, f.refunder.refs, 1)
	assert.Equal(t, "pi_123", f.refunder.refs[0])
	assert.InDelta(t, 1000, f.refunder.amounts[0], 1e-9)
}

func TestCancelSurfacesRefundFailure(t *testing.T) {
	f := newFixture(t)
	f.refunder.err = errors.New("processor down")
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	booking, err := f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)
	_, err = f.svc.AttachPayment(ctx, domain.AttachPaymentRequest{BookingID: booking.ID, PaymentIntentID: "pi_123"})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, domain.CancelRequest{BookingID: booking.ID})
	assert.ErrorIs(t, err, domain.ErrRefundFailed)

	// The cancellation itself stuck.
	got, err := f.svc.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
}

func TestConfirmPayment(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	booking, err := f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmPayment(ctx, booking.ID, "pi_456")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, confirmed.Status)
	assert.Equal(t, domain.PaymentPaid, confirmed.PaymentStatus)
	assert.Equal(t, "pi_456", confirmed.PaymentIntentID)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	listing := f.seedListing(t, 4)
	ctx := callerCtx("user_1", identity.RoleUser)

	result, err := f.svc.CheckAvailability(ctx, domain.AvailabilityRequest{
		ListingID: listing.ID,
		Date:      "2026-03-02",
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.True(t, result.Available)

	_, err = f.svc.Create(ctx, createRequest(listing.ID))
	require.NoError(t, err)

	result, err = f.svc.CheckAvailability(ctx, domain.AvailabilityRequest{
		ListingID: listing.ID,
		Date:      "2026-03-02",
		StartTime: "11:30",
		EndTime:   "12:30",
	})
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Equal(t, 1, result.Conflicting)
}
