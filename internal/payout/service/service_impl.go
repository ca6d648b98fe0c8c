package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	bookingdomain "github.com/salasbeats/marketplace/internal/booking/domain"
	"github.com/salasbeats/marketplace/internal/clock"
	commissiondomain "github.com/salasbeats/marketplace/internal/commission/domain"
	"github.com/salasbeats/marketplace/internal/config"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	"github.com/salasbeats/marketplace/internal/payout/domain"
)

// earningsStart bounds the all-time earnings scan used for the payout
// ceiling. Anything before the platform existed is noise.
var earningsStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Policy      *config.PolicyHolder
	Repo        domain.Repository
	HostRepo    hostdomain.Repository
	HostService hostdomain.Service
	Commissions commissiondomain.Service
	Bookings    bookingdomain.Service
	Provider    domain.Provider
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	policy      *config.PolicyHolder
	repo        domain.Repository
	hostRepo    hostdomain.Repository
	hostService hostdomain.Service
	commissions commissiondomain.Service
	bookings    bookingdomain.Service
	provider    domain.Provider
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("payout.service"),
		clock:       p.Clock,
		policy:      p.Policy,
		repo:        p.Repo,
		hostRepo:    p.HostRepo,
		hostService: p.HostService,
		commissions: p.Commissions,
		bookings:    p.Bookings,
		provider:    p.Provider,
	}
}

func (s *service) RequestPayout(ctx context.Context, req domain.RequestPayoutRequest) (*domain.Payout, error) {
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.Amount < s.policy.Current().MinPayoutAmount {
		return nil, domain.ErrBelowMinimum
	}
	currency := req.Currency
	if currency == "" {
		currency = "usd"
	}

	host, err := s.hostRepo.FindByID(ctx, s.db, req.HostID)
	if err != nil {
		return nil, err
	}
	if host == nil {
		return nil, domain.ErrHostNotFound
	}
	if host.AccountRef == "" {
		return nil, domain.ErrNoProcessorAccount
	}
	if !host.PayoutsEnabled {
		return nil, domain.ErrPayoutsDisabled
	}

	inFlight, err := s.repo.HasUnsettledForHost(ctx, s.db, host.ID)
	if err != nil {
		return nil, err
	}
	if inFlight {
		return nil, domain.ErrPayoutInFlight
	}

	earnings, err := s.commissions.HostEarnings(ctx, host.ID, earningsStart, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if req.Amount > earnings.AvailableForPayout {
		return nil, domain.ErrInsufficientFunds
	}

	created, err := s.provider.CreatePayout(ctx, host.AccountRef, req.Amount, currency)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	payout := &domain.Payout{
		ID:          created.ID,
		HostID:      host.ID,
		AccountRef:  host.AccountRef,
		Amount:      req.Amount,
		Currency:    currency,
		Status:      mapProviderStatus(created.Status),
		ArrivalDate: created.ArrivalDate,
		RequestedBy: req.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, payout); err != nil {
			return err
		}
		return s.hostRepo.AddPaidOut(ctx, tx, host.ID, payout.Amount, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payout requested",
		zap.String("payout_id", payout.ID),
		zap.String("host_id", host.ID),
		zap.Float64("amount", payout.Amount),
	)
	return payout, nil
}

func (s *service) GetPayout(ctx context.Context, id string) (*domain.Payout, error) {
	payout, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, domain.ErrNotFound
	}
	return payout, nil
}

func (s *service) ListForHost(ctx context.Context, hostID string, limit int) ([]domain.Payout, error) {
	return s.repo.ListForHost(ctx, s.db, hostID, limit)
}

func (s *service) HandleEvent(ctx context.Context, event *domain.Event) error {
	switch event.Type {
	case domain.EventPayoutCreated, domain.EventPayoutUpdated, domain.EventPayoutPaid, domain.EventPayoutFailed:
		return s.reconcilePayout(ctx, event)
	case domain.EventAccountUpdated:
		return s.refreshAccount(ctx, event)
	case domain.EventPaymentSucceeded:
		return s.settlePayment(ctx, event, true)
	case domain.EventPaymentFailed:
		return s.settlePayment(ctx, event, false)
	default:
		s.log.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
		return nil
	}
}

// reconcilePayout folds a processor payout event into the local row. The
// processor id is the primary key, so replays land on the same record.
func (s *service) reconcilePayout(ctx context.Context, event *domain.Event) error {
	if event.PayoutID == "" {
		return nil
	}
	now := s.clock.Now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, event.PayoutID)
		if err != nil {
			return err
		}

		payout := &domain.Payout{
			ID:            event.PayoutID,
			AccountRef:    event.AccountRef,
			Amount:        event.Amount,
			Currency:      event.Currency,
			Status:        mapProviderStatus(event.Status),
			FailureReason: event.FailureReason,
			ArrivalDate:   event.ArrivalDate,
			ReconciledAt:  &now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if existing != nil {
			payout.HostID = existing.HostID
			payout.RequestedBy = existing.RequestedBy
			payout.CreatedAt = existing.CreatedAt
			if payout.AccountRef == "" {
				payout.AccountRef = existing.AccountRef
			}
			if payout.Amount == 0 {
				payout.Amount = existing.Amount
			}
		} else if event.AccountRef != "" {
			// Payout initiated outside the platform; attach it to the host
			// owning the account so their history stays complete.
			host, err := s.hostRepo.FindByAccountRef(ctx, tx, event.AccountRef)
			if err != nil {
				return err
			}
			if host != nil {
				payout.HostID = host.ID
			}
		}

		if err := s.repo.Merge(ctx, tx, payout); err != nil {
			return err
		}

		// A failed payout gives the money back to the host's balance.
		failed := payout.Status == domain.PayoutFailed || payout.Status == domain.PayoutCanceled
		wasCounted := existing != nil && existing.Status != domain.PayoutFailed && existing.Status != domain.PayoutCanceled
		if failed && wasCounted && payout.HostID != "" {
			if err := s.hostRepo.AddPaidOut(ctx, tx, payout.HostID, -payout.Amount, now); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *service) refreshAccount(ctx context.Context, event *domain.Event) error {
	if event.AccountRef == "" {
		return nil
	}
	host, err := s.hostRepo.FindByAccountRef(ctx, s.db, event.AccountRef)
	if err != nil {
		return err
	}
	if host == nil {
		s.log.Warn("account event for unknown host", zap.String("account_ref", event.AccountRef))
		return nil
	}
	_, err = s.hostService.VerifyAccount(ctx, host.ID)
	return err
}

func (s *service) settlePayment(ctx context.Context, event *domain.Event, succeeded bool) error {
	if event.BookingID == "" {
		return nil
	}
	raw, err := strconv.ParseInt(event.BookingID, 10, 64)
	if err != nil {
		s.log.Warn("payment event with malformed booking id", zap.String("booking_id", event.BookingID))
		return nil
	}
	id := snowflake.ID(raw)

	if succeeded {
		_, err = s.bookings.ConfirmPayment(ctx, id, event.PaymentIntentID)
	} else {
		_, err = s.bookings.FailPayment(ctx, id, event.FailureReason)
	}
	if errors.Is(err, bookingdomain.ErrNotFound) {
		s.log.Warn("payment event for unknown booking", zap.String("booking_id", event.BookingID))
		return nil
	}
	// A replayed success event finds the booking already confirmed.
	var invalid *bookingdomain.InvalidTransitionError
	if errors.As(err, &invalid) {
		return nil
	}
	return err
}

func mapProviderStatus(raw string) domain.PayoutStatus {
	switch raw {
	case "paid":
		return domain.PayoutPaid
	case "in_transit":
		return domain.PayoutInTransit
	case "failed":
		return domain.PayoutFailed
	case "canceled":
		return domain.PayoutCanceled
	default:
		return domain.PayoutPending
	}
}
