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
	"github.com/salasbeats/marketplace/internal/clock"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	"github.com/salasbeats/marketplace/internal/config"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	hostrepo "github.com/salasbeats/marketplace/internal/host/repository"
	"github.com/salasbeats/marketplace/internal/payout/domain"
	"github.com/salasbeats/marketplace/internal/payout/repository"
)

type fakeProvider struct {
	payout *domain.ProviderPayout
	err    error
	calls  int
}

func (f *fakeProvider) CreatePayout(_ context.Context, _ string, _ float64, _ string) (*domain.ProviderPayout, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	payout := *f.payout
	return &payout, nil
}

type fakeCommissions struct {
	available float64
}

func (f *fakeCommissions) Calculate(context.Context, commissiondomain.CalculateRequest) (*commissiondomain.Record, error) {
	panic("not used")
}
func (f *fakeCommissions) CurrentRate(context.Context) (float64, error) { return 0.15, nil }
func (f *fakeCommissions) UpdateRate(context.Context, commissiondomain.UpdateRateRequest) (*commissiondomain.RateChange, error) {
	panic("not used")
}
func (f *fakeCommissions) HostEarnings(_ context.Context, hostID string, from, to time.Time) (*commissiondomain.EarningsReport, error) {
	return &commissiondomain.EarningsReport{HostID: hostID, AvailableForPayout: f.available}, nil
}
func (f *fakeCommissions) GenerateReport(context.Context, commissiondomain.ReportRequest) (*commissiondomain.Report, error) {
	panic("not used")
}
func (f *fakeCommissions) SweepCompleted(context.Context, time.Time, time.Time) (*commissiondomain.SweepResult, error) {
	panic("not used")
}

type fakeBookings struct {
	confirmed []snowflake.ID
	failed    []snowflake.ID
	err       error
}

func (f *fakeBookings) Create(context.Context, bookingdomain.CreateBookingRequest) (*bookingdomain.Booking, error) {
	panic("not used")
}
func (f *fakeBookings) GetBooking(context.Context, snowflake.ID) (*bookingdomain.Booking, error) {
	panic("not used")
}
func (f *fakeBookings) Transition(context.Context, bookingdomain.TransitionRequest) (*bookingdomain.Booking, error) {
	panic("not used")
}
func (f *fakeBookings) Cancel(context.Context, bookingdomain.CancelRequest) (*bookingdomain.Booking, error) {
	panic("not used")
}
func (f *fakeBookings) AttachPayment(context.Context, bookingdomain.AttachPaymentRequest) (*bookingdomain.Booking, error) {
	panic("not used")
}
func (f *fakeBookings) ConfirmPayment(_ context.Context, id snowflake.ID, _ string) (*bookingdomain.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.confirmed = append(f.confirmed, id)
	return &bookingdomain.Booking{ID: id}, nil
}
func (f *fakeBookings) FailPayment(_ context.Context, id snowflake.ID, _ string) (*bookingdomain.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.failed = append(f.failed, id)
	return &bookingdomain.Booking{ID: id}, nil
}
func (f *fakeBookings) CheckAvailability(context.Context, bookingdomain.AvailabilityRequest) (*bookingdomain.AvailabilityResult, error) {
	panic("not used")
}

type fakeHostService struct {
	verified []string
}

func (f *fakeHostService) Onboard(context.Context, hostdomain.OnboardRequest) (*hostdomain.Host, error) {
	panic("not used")
}
func (f *fakeHostService) Get(context.Context, string) (*hostdomain.Host, error) { panic("not used") }
func (f *fakeHostService) VerifyAccount(_ context.Context, id string) (*hostdomain.Host, error) {
	f.verified = append(f.verified, id)
	return &hostdomain.Host{ID: id}, nil
}
func (f *fakeHostService) UpdateStatus(context.Context, hostdomain.UpdateStatusRequest) (*hostdomain.Host, error) {
	panic("not used")
}

type fixture struct {
	svc         domain.Service
	db          *gorm.DB
	clock       *clock.FakeClock
	provider    *fakeProvider
	commissions *fakeCommissions
	bookings    *fakeBookings
	hostService *fakeHostService
	hosts       hostdomain.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&hostdomain.Host{}, &domain.Payout{}))

	fc := clock.NewFakeClock(time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	provider := &fakeProvider{payout: &domain.ProviderPayout{ID: "po_1", Status: "pending"}}
	commissions := &fakeCommissions{available: 1000}
	bookings := &fakeBookings{}
	hostService := &fakeHostService{}
	hosts := hostrepo.Provide()

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		Clock:       fc,
		Policy:      config.NewStaticPolicyHolder(config.DefaultMarketplacePolicy()),
		Repo:        repository.Provide(),
		HostRepo:    hosts,
		HostService: hostService,
		Commissions: commissions,
		Bookings:    bookings,
		Provider:    provider,
	})
	return &fixture{
		svc: svc, db: db, clock: fc,
		provider: provider, commissions: commissions,
		bookings: bookings, hostService: hostService, hosts: hosts,
	}
}

func (f *fixture) seedHost(t *testing.T, payoutsEnabled bool) *hostdomain.Host {
	t.Helper()
	host := &hostdomain.Host{
		ID:             "host_1",
		Email:          "host@example.com",
		AccountRef:     "acct_1",
		PayoutsEnabled: payoutsEnabled,
		Status:         hostdomain.HostStatusActive,
	}
	require.NoError(t, f.hosts.Insert(context.Background(), f.db, host))
	return host
}

func TestRequestPayout(t *testing.T) {
	f := newFixture(t)
	f.seedHost(t, true)
	ctx := context.Background()

	payout, err := f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{
		HostID: "host_1",
		Amount: 400,
	})
	require.NoError(t, err)
	assert.Equal(t, "po_1", payout.ID)
	assert.Equal(t, domain.PayoutPending, payout.Status)
	assert.Equal(t, "usd", payout.Currency)

	host, err := f.hosts.FindByID(ctx, f.db, "host_1")
	require.NoError(t, err)
	assert.InDelta(t, 400, host.TotalPaidOut, 1e-9)
	require.NotNil(t, host.LastPayoutAt)
}

func TestRequestPayoutPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: "host_1", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrHostNotFound)

	host := f.seedHost(t, false)
	_, err = f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: host.ID, Amount: 100})
	assert.ErrorIs(t, err, domain.ErrPayoutsDisabled)

	host.PayoutsEnabled = true
	require.NoError(t, f.hosts.Update(ctx, f.db, host))

	_, err = f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: host.ID, Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: host.ID, Amount: 0.5})
	assert.ErrorIs(t, err, domain.ErrBelowMinimum)

	_, err = f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: host.ID, Amount: 2000})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	host.AccountRef = ""
	require.NoError(t, f.hosts.Update(ctx, f.db, host))
	_, err = f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: host.ID, Amount: 100})
	assert.ErrorIs(t, err, domain.ErrNoProcessorAccount)

	assert.Zero(t, f.provider.calls)
}

func TestRequestPayoutBlockedWhileInFlight(t *testing.T) {
	f := newFixture(t)
	f.seedHost(t, true)
	ctx := context.Background()

	_, err := f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: "host_1", Amount: 100})
	require.NoError(t, err)

	_, err = f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: "host_1", Amount: 100})
	assert.ErrorIs(t, err, domain.ErrPayoutInFlight)
}

func TestHandlePayoutEvents(t *testing.T) {
	f := newFixture(t)
	f.seedHost(t, true)
	ctx := context.Background()

	_, err := f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: "host_1", Amount: 400})
	require.NoError(t, err)

	event := &domain.Event{
		Type:     domain.EventPayoutPaid,
		PayoutID: "po_1",
		Status:   "paid",
		Amount:   400,
		Currency: "usd",
	}
	require.NoError(t, f.svc.HandleEvent(ctx, event))

	payout, err := f.svc.GetPayout(ctx, "po_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutPaid, payout.Status)
	assert.Equal(t, "host_1", payout.HostID)
	require.NotNil(t, payout.ReconciledAt)

	// Replays are harmless.
	require.NoError(t, f.svc.HandleEvent(ctx, event))
	var count int64
	require.NoError(t, f.db.Model(&domain.Payout{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestFailedPayoutRestoresBalance(t *testing.T) {
	f := newFixture(t)
	f.seedHost(t, true)
	ctx := context.Background()

	_, err := f.svc.RequestPayout(ctx, domain.RequestPayoutRequest{HostID: "host_1", Amount: 400})
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleEvent(ctx, &domain.Event{
		Type:          domain.EventPayoutFailed,
		PayoutID:      "po_1",
		Status:        "failed",
		FailureReason: "account_closed",
		Amount:        400,
	}))

	host, err := f.hosts.FindByID(ctx, f.db, "host_1")
	require.NoError(t, err)
	assert.InDelta(t, 0, host.TotalPaidOut, 1e-9)

	payout, err := f.svc.GetPayout(ctx, "po_1")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutFailed, payout.Status)
	assert.Equal(t, "account_closed", payout.FailureReason)

	// Second failure event must not restore the balance twice.
	require.NoError(t, f.svc.HandleEvent(ctx, &domain.Event{
		Type: domain.EventPayoutFailed, PayoutID: "po_1", Status: "failed", Amount: 400,
	}))
	host, err = f.hosts.FindByID(ctx, f.db, "host_1")
	require.NoError(t, err)
	assert.InDelta(t, 0, host.TotalPaidOut, 1e-9)
}

func TestHandlePaymentEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, &domain.Event{
		Type:            domain.EventPaymentSucceeded,
		PaymentIntentID: "pi_1",
		BookingID:       "123456789",
	}))
	require.Len(t, f.bookings.confirmed, 1)
	assert.EqualValues(t, 123456789, f.bookings.confirmed[0])

	require.NoError(t, f.svc.HandleEvent(ctx, &domain.Event{
		Type:          domain.EventPaymentFailed,
		BookingID:     "123456789",
		FailureReason: "card_declined",
	}))
	require.Len(t, f.bookings.failed, 1)

	// Unparseable metadata is logged and dropped, not retried forever.
	require.NoError(t, f.svc.HandleEvent(ctx, &domain.Event{
		Type:      domain.EventPaymentSucceeded,
		BookingID: "not-a-number",
	}))
}

func TestHandleAccountUpdated(t *testing.T) {
	f := newFixture(t)
	f.seedHost(t, true)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleEvent(ctx, &domain.Event{
		Type:       domain.EventAccountUpdated,
		AccountRef: "acct_1",
	}))
	require.Len(t, f.hostService.verified, 1)
	assert.Equal(t, "host_1", f.hostService.verified[0])

	// Unknown accounts are ignored.
	require.NoError(t, f.svc.HandleEvent(ctx, &domain.Event{
		Type:       domain.EventAccountUpdated,
		AccountRef: "acct_unknown",
	}))
	assert.Len(t, f.hostService.verified, 1)
}
