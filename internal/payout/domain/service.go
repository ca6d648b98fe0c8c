package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("payout_not_found")
	ErrHostNotFound       = errors.New("host_not_found")
	ErrNoProcessorAccount = errors.New("host_has_no_processor_account")
	ErrPayoutsDisabled    = errors.New("payouts_disabled_for_host")
	ErrInvalidAmount      = errors.New("invalid_payout_amount")
	ErrBelowMinimum       = errors.New("amount_below_payout_minimum")
	ErrInsufficientFunds  = errors.New("amount_exceeds_available_earnings")
	ErrPayoutInFlight     = errors.New("previous_payout_still_pending")
	ErrBadSignature       = errors.New("invalid_webhook_signature")
)

type RequestPayoutRequest struct {
	HostID      string
	Amount      float64
	Currency    string
	RequestedBy string
}

// ProviderPayout is what the processor returns when a payout is created.
type ProviderPayout struct {
	ID          string
	Status      string
	Currency    string
	ArrivalDate *time.Time
}

// Provider issues payouts against the payment processor.
type Provider interface {
	CreatePayout(ctx context.Context, accountRef string, amount float64, currency string) (*ProviderPayout, error)
}

// EventParser verifies a webhook payload's signature and normalizes it.
type EventParser interface {
	VerifyAndParse(payload []byte, signatureHeader string) (*Event, error)
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Payout, error)
	Insert(ctx context.Context, db *gorm.DB, payout *Payout) error

	// Merge upserts by processor payout id, folding later webhook fields
	// into whatever is already stored.
	Merge(ctx context.Context, db *gorm.DB, payout *Payout) error

	ListForHost(ctx context.Context, db *gorm.DB, hostID string, limit int) ([]Payout, error)
	HasUnsettledForHost(ctx context.Context, db *gorm.DB, hostID string) (bool, error)
	SumForHost(ctx context.Context, db *gorm.DB, hostID string, from, to time.Time) (float64, error)
}

type Service interface {
	RequestPayout(ctx context.Context, req RequestPayoutRequest) (*Payout, error)
	GetPayout(ctx context.Context, id string) (*Payout, error)
	ListForHost(ctx context.Context, hostID string, limit int) ([]Payout, error)

	// HandleEvent ingests one verified processor event. Safe to replay.
	HandleEvent(ctx context.Context, event *Event) error
}
