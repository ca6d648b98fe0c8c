package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound           = errors.New("booking_not_found")
	ErrListingNotFound    = errors.New("listing_not_found")
	ErrListingUnavailable = errors.New("listing_unavailable")
	ErrTooManyGuests      = errors.New("too_many_guests")
	ErrSlotUnavailable    = errors.New("slot_unavailable")
	ErrInvalidTimeWindow  = errors.New("invalid_time_window")
	ErrInvalidDate        = errors.New("invalid_date")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrAlreadyTerminal    = errors.New("booking_already_terminal")
	ErrRefundFailed       = errors.New("refund_failed")
)

// InvalidTransitionError reports a status change the state machine does not
// allow, carrying both sides so callers can say which move was rejected.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot change booking status from %s to %s", e.From, e.To)
}

type CreateBookingRequest struct {
	ListingID       snowflake.ID
	StartDate       string
	EndDate         string
	StartTime       string
	EndTime         string
	Guests          int
	TotalAmount     float64
	SpecialRequests string
}

type TransitionRequest struct {
	BookingID snowflake.ID
	Status    BookingStatus
	Reason    string
}

type CancelRequest struct {
	BookingID snowflake.ID
	Reason    string

	// RefundOverride bypasses the time-based policy when set.
	RefundOverride *float64
}

type AttachPaymentRequest struct {
	BookingID       snowflake.ID
	PaymentIntentID string
}

type AvailabilityRequest struct {
	ListingID snowflake.ID
	Date      string
	StartTime string
	EndTime   string
}

type AvailabilityResult struct {
	Available   bool `json:"available"`
	Conflicting int  `json:"conflicting_bookings"`
}

// Refunder issues a refund against the payment processor. The booking
// service only needs this one call from the payment provider.
type Refunder interface {
	CreateRefund(ctx context.Context, paymentRef string, amount float64) (string, error)
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	GetBooking(ctx context.Context, id snowflake.ID) (*Booking, error)
	Transition(ctx context.Context, req TransitionRequest) (*Booking, error)
	Cancel(ctx context.Context, req CancelRequest) (*Booking, error)
	AttachPayment(ctx context.Context, req AttachPaymentRequest) (*Booking, error)
	ConfirmPayment(ctx context.Context, id snowflake.ID, paymentRef string) (*Booking, error)
	FailPayment(ctx context.Context, id snowflake.ID, reason string) (*Booking, error)
	CheckAvailability(ctx context.Context, req AvailabilityRequest) (*AvailabilityResult, error)
}

// ParseDate accepts the wire date format used on booking requests.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t.UTC(), nil
}
