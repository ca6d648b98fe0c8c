package service

import (
	"context"
	"database/sql"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/salasbeats/marketplace/internal/booking/domain"
	"github.com/salasbeats/marketplace/internal/clock"
	"github.com/salasbeats/marketplace/internal/config"
	"github.com/salasbeats/marketplace/internal/identity"
	listingdomain "github.com/salasbeats/marketplace/internal/listing/domain"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Policy      *config.PolicyHolder
	Repo        domain.Repository
	ListingRepo listingdomain.Repository
	Refunder    domain.Refunder `optional:"true"`
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	policy      *config.PolicyHolder
	repo        domain.Repository
	listingRepo listingdomain.Repository
	refunder    domain.Refunder
}

func New(p Params) domain.Service {
	return &service{
		db:          p.DB,
		log:         p.Log.Named("booking.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		policy:      p.Policy,
		repo:        p.Repo,
		listingRepo: p.ListingRepo,
		refunder:    p.Refunder,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	startDate, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	endDate := startDate
	if req.EndDate != "" {
		if endDate, err = domain.ParseDate(req.EndDate); err != nil {
			return nil, err
		}
	}
	startMinute, err := domain.MinuteOfDay(req.StartTime)
	if err != nil {
		return nil, domain.ErrInvalidTimeWindow
	}
	endMinute, err := domain.MinuteOfDay(req.EndTime)
	if err != nil {
		return nil, domain.ErrInvalidTimeWindow
	}
	if endMinute <= startMinute {
		return nil, domain.ErrInvalidTimeWindow
	}
	if req.Guests <= 0 {
		return nil, domain.ErrTooManyGuests
	}
	if req.TotalAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	listing, err := s.listingRepo.FindByID(ctx, s.db, req.ListingID)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, domain.ErrListingNotFound
	}
	if listing.Status != listingdomain.ListingStatusActive {
		return nil, domain.ErrListingUnavailable
	}
	if req.Guests > listing.MaxGuests {
		return nil, domain.ErrTooManyGuests
	}

	caller, _ := identity.CallerFromContext(ctx)
	now := s.clock.Now()
	booking := &domain.Booking{
		ID:              s.genID.Generate(),
		ListingID:       listing.ID,
		UserID:          caller.ID,
		HostID:          listing.HostID,
		StartDate:       startDate,
		EndDate:         endDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		StartMinute:     startMinute,
		EndMinute:       endMinute,
		Guests:          req.Guests,
		TotalAmount:     req.TotalAmount,
		SpecialRequests: req.SpecialRequests,
		Status:          domain.StatusPending,
		PaymentStatus:   domain.PaymentPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	// The overlap check has to run inside the same serializable transaction
	// as the insert, otherwise two requests for the same window both pass
	// the check and both commit.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountOverlapping(ctx, tx, listing.ID, startDate, startMinute, endMinute)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrSlotUnavailable
		}
		if err := s.repo.Insert(ctx, tx, booking); err != nil {
			return err
		}
		return s.listingRepo.AdjustCounters(ctx, tx, listing.ID, listingdomain.CounterDelta{
			TotalBookings:   1,
			PendingBookings: 1,
		}, now)
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.Int64("booking_id", booking.ID.Int64()),
		zap.Int64("listing_id", listing.ID.Int64()),
		zap.String("user_id", booking.UserID),
	)
	return booking, nil
}

func (s *service) GetBooking(ctx context.Context, id snowflake.ID) (*domain.Booking, error) {
	booking, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	return booking, nil
}

func (s *service) Transition(ctx context.Context, req domain.TransitionRequest) (*domain.Booking, error) {
	if req.Status != domain.StatusConfirmed && req.Status != domain.StatusCompleted && req.Status != domain.StatusCancelled {
		return nil, domain.ErrInvalidStatus
	}
	if req.Status == domain.StatusCancelled {
		return s.Cancel(ctx, domain.CancelRequest{BookingID: req.BookingID, Reason: req.Reason})
	}
	return s.transition(ctx, req.BookingID, req.Status, req.Reason, nil)
}

// transition moves a booking through the state machine and keeps the listing
// counters in step, all in one transaction.
func (s *service) transition(ctx context.Context, id snowflake.ID, target domain.BookingStatus, reason string, mutate func(b *domain.Booking)) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrNotFound
		}
		if !booking.Status.CanTransitionTo(target) {
			if booking.Status.Terminal() && target == domain.StatusCancelled {
				return domain.ErrAlreadyTerminal
			}
			return &domain.InvalidTransitionError{From: booking.Status, To: target}
		}

		now := s.clock.Now()
		delta := listingdomain.CounterDelta{}
		switch booking.Status {
		case domain.StatusPending:
			delta.PendingBookings = -1
		case domain.StatusConfirmed:
			delta.ConfirmedBookings = -1
		}

		booking.Status = target
		booking.StatusReason = reason
		booking.UpdatedAt = now
		switch target {
		case domain.StatusConfirmed:
			booking.ConfirmedAt = &now
			delta.ConfirmedBookings++
		case domain.StatusCompleted:
			booking.CompletedAt = &now
			delta.CompletedBookings++
			delta.Revenue += booking.TotalAmount
		case domain.StatusCancelled:
			booking.CancelledAt = &now
			delta.CancelledBookings++
		}
		if mutate != nil {
			mutate(booking)
		}

		if err := s.repo.Update(ctx, tx, booking); err != nil {
			return err
		}
		return s.listingRepo.AdjustCounters(ctx, tx, booking.ListingID, delta, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("booking status changed",
		zap.Int64("booking_id", booking.ID.Int64()),
		zap.String("status", string(booking.Status)),
	)
	return booking, nil
}

func (s *service) Cancel(ctx context.Context, req domain.CancelRequest) (*domain.Booking, error) {
	booking, err := s.transition(ctx, req.BookingID, domain.StatusCancelled, req.Reason, func(b *domain.Booking) {
		b.CancelReason = req.Reason
		refund := s.refundAmount(b, req.RefundOverride)
		b.RefundAmount = &refund
	})
	if err != nil {
		return nil, err
	}

	if booking.RefundAmount != nil && *booking.RefundAmount > 0 && booking.PaymentIntentID != "" {
		if s.refunder == nil {
			s.log.Warn("no payment provider configured, refund not issued",
				zap.Int64("booking_id", booking.ID.Int64()))
			return booking, nil
		}
		refundID, err := s.refunder.CreateRefund(ctx, booking.PaymentIntentID, *booking.RefundAmount)
		if err != nil {
			// The booking is already cancelled at this point. Surface the
			// failure so ops can retry the refund against the processor.
			s.log.Error("refund call failed",
				zap.Int64("booking_id", booking.ID.Int64()),
				zap.Float64("amount", *booking.RefundAmount),
				zap.Error(err),
			)
			return booking, domain.ErrRefundFailed
		}
		s.log.Info("refund issued",
			zap.Int64("booking_id", booking.ID.Int64()),
			zap.String("refund_id", refundID),
			zap.Float64("amount", *booking.RefundAmount),
		)
	}
	return booking, nil
}

func (s *service) refundAmount(b *domain.Booking, override *float64) float64 {
	if override != nil {
		if *override < 0 {
			return 0
		}
		if *override > b.TotalAmount {
			return b.TotalAmount
		}
		return *override
	}
	hours := b.StartsAt().Sub(s.clock.Now()).Hours()
	return b.TotalAmount * s.policy.Current().RefundFraction(hours)
}

func (s *service) AttachPayment(ctx context.Context, req domain.AttachPaymentRequest) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.repo.FindByID(ctx, tx, req.BookingID)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrNotFound
		}
		if booking.Status.Terminal() {
			return domain.ErrAlreadyTerminal
		}
		booking.PaymentIntentID = req.PaymentIntentID
		booking.PaymentStatus = domain.PaymentProcessing
		booking.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) ConfirmPayment(ctx context.Context, id snowflake.ID, paymentRef string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.StatusConfirmed, "payment_succeeded", func(b *domain.Booking) {
		b.PaymentStatus = domain.PaymentPaid
		if paymentRef != "" {
			b.PaymentIntentID = paymentRef
		}
	})
}

func (s *service) FailPayment(ctx context.Context, id snowflake.ID, reason string) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		booking, err = s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if booking == nil {
			return domain.ErrNotFound
		}
		booking.PaymentStatus = domain.PaymentFailed
		booking.StatusReason = reason
		booking.UpdatedAt = s.clock.Now()
		return s.repo.Update(ctx, tx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) CheckAvailability(ctx context.Context, req domain.AvailabilityRequest) (*domain.AvailabilityResult, error) {
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	startMinute, err := domain.MinuteOfDay(req.StartTime)
	if err != nil {
		return nil, domain.ErrInvalidTimeWindow
	}
	endMinute, err := domain.MinuteOfDay(req.EndTime)
	if err != nil {
		return nil, domain.ErrInvalidTimeWindow
	}
	if endMinute <= startMinute {
		return nil, domain.ErrInvalidTimeWindow
	}

	count, err := s.repo.CountOverlapping(ctx, s.db, req.ListingID, date, startMinute, endMinute)
	if err != nil {
		// Fail closed. Reporting a slot as free on a lookup error invites a
		// double booking.
		s.log.Error("availability check failed", zap.Error(err))
		return &domain.AvailabilityResult{Available: false}, nil
	}
	return &domain.AvailabilityResult{
		Available:   count == 0,
		Conflicting: int(count),
	}, nil
}
