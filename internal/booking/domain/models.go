package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentPaid       PaymentStatus = "paid"
	PaymentFailed     PaymentStatus = "failed"
)

var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

func ParseStatus(raw string) (BookingStatus, bool) {
	switch BookingStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, true
	case StatusConfirmed:
		return StatusConfirmed, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusCancelled:
		return StatusCancelled, true
	default:
		return "", false
	}
}

func (s BookingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Booking is one reservation of a listing's time slot. The time window is
// stored both as wall-clock strings and as minutes-since-midnight so the
// overlap check is plain integer arithmetic in the database.
type Booking struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	ListingID snowflake.ID `gorm:"not null;index:idx_bookings_slot,priority:1" json:"listing_id"`
	UserID    string       `gorm:"not null;index" json:"user_id"`
	HostID    string       `gorm:"not null;index" json:"host_id"`

	StartDate   time.Time `gorm:"not null;index:idx_bookings_slot,priority:2" json:"start_date"`
	EndDate     time.Time `gorm:"not null" json:"end_date"`
	StartTime   string    `gorm:"type:text;not null" json:"start_time"`
	EndTime     string    `gorm:"type:text;not null" json:"end_time"`
	StartMinute int       `gorm:"not null" json:"-"`
	EndMinute   int       `gorm:"not null" json:"-"`

	Guests          int     `gorm:"not null" json:"guests"`
	TotalAmount     float64 `gorm:"not null" json:"total_amount"`
	SpecialRequests string  `gorm:"type:text" json:"special_requests,omitempty"`

	Status        BookingStatus `gorm:"type:text;not null;index" json:"status"`
	StatusReason  string        `gorm:"type:text" json:"status_reason,omitempty"`
	PaymentStatus PaymentStatus `gorm:"type:text;not null" json:"payment_status"`

	PaymentIntentID string `gorm:"type:text" json:"payment_intent_id,omitempty"`

	CommissionAmount *float64 `json:"commission_amount,omitempty"`
	HostEarnings     *float64 `json:"host_earnings,omitempty"`

	CancelReason string   `gorm:"type:text" json:"cancel_reason,omitempty"`
	RefundAmount *float64 `json:"refund_amount,omitempty"`

	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt *time.Time `gorm:"index" json:"completed_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// StartsAt is the instant the reserved window begins, used by the
// cancellation policy.
func (b *Booking) StartsAt() time.Time {
	return b.StartDate.Add(time.Duration(b.StartMinute) * time.Minute)
}

// MinuteOfDay parses an "HH:MM" wall-clock string into minutes since
// midnight.
func MinuteOfDay(value string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time %q out of range", value)
	}
	return hours*60 + minutes, nil
}

// Overlaps tests half-open interval overlap on minutes since midnight.
func Overlaps(start1, end1, start2, end2 int) bool {
	return start1 < end2 && end1 > start2
}
