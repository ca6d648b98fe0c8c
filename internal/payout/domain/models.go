package domain

import "time"

type PayoutStatus string

const (
	PayoutPending   PayoutStatus = "pending"
	PayoutInTransit PayoutStatus = "in_transit"
	PayoutPaid      PayoutStatus = "paid"
	PayoutFailed    PayoutStatus = "failed"
	PayoutCanceled  PayoutStatus = "canceled"
)

func (s PayoutStatus) Settled() bool {
	return s == PayoutPaid || s == PayoutFailed || s == PayoutCanceled
}

// Payout is one transfer of host earnings to their bank. The processor
// issues the ID, so the same webhook replayed lands on the same row.
type Payout struct {
	ID         string  `gorm:"primaryKey" json:"id"`
	HostID     string  `gorm:"not null;index" json:"host_id"`
	AccountRef string  `gorm:"type:text;not null" json:"account_ref"`
	Amount     float64 `gorm:"not null" json:"amount"`
	Currency   string  `gorm:"type:text;not null" json:"currency"`

	Status        PayoutStatus `gorm:"type:text;not null;index" json:"status"`
	FailureReason string       `gorm:"type:text" json:"failure_reason,omitempty"`
	ArrivalDate   *time.Time   `json:"arrival_date,omitempty"`

	RequestedBy  string     `gorm:"type:text" json:"requested_by,omitempty"`
	ReconciledAt *time.Time `json:"reconciled_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Payout) TableName() string { return "payouts" }

// Event is a normalized processor webhook event. Only the fields the
// marketplace reacts to survive parsing.
type Event struct {
	ID   string
	Type EventType

	PayoutID      string
	AccountRef    string
	Status        string
	FailureReason string
	Amount        float64
	Currency      string
	ArrivalDate   *time.Time

	PaymentIntentID string
	BookingID       string
}

type EventType string

const (
	EventPayoutCreated EventType = "payout.created"
	EventPayoutUpdated EventType = "payout.updated"
	EventPayoutPaid    EventType = "payout.paid"
	EventPayoutFailed  EventType = "payout.failed"

	EventAccountUpdated EventType = "account.updated"

	EventPaymentSucceeded EventType = "payment_intent.succeeded"
	EventPaymentFailed    EventType = "payment_intent.payment_failed"
)
