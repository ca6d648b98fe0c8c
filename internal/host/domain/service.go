package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("host_not_found")
	ErrAlreadyOnboarded = errors.New("host_already_onboarded")
	ErrNoAccount        = errors.New("host_has_no_account")
	ErrInvalidStatus    = errors.New("invalid_host_status")
)

type OnboardRequest struct {
	HostID      string
	Email       string
	DisplayName string
	Country     string
}

type UpdateStatusRequest struct {
	HostID string
	Status HostStatus
	Reason string
}

// AccountProvider is the slice of the payment processor the host lifecycle
// needs: opening connected accounts and refreshing their capability flags.
type AccountProvider interface {
	CreateAccount(ctx context.Context, email, country string) (*AccountInfo, error)
	RetrieveAccount(ctx context.Context, accountRef string) (*AccountInfo, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, host *Host) error
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Host, error)
	FindByAccountRef(ctx context.Context, db *gorm.DB, accountRef string) (*Host, error)
	Update(ctx context.Context, db *gorm.DB, host *Host) error

	// AddPaidOut bumps the running payout total with in-database arithmetic.
	AddPaidOut(ctx context.Context, db *gorm.DB, id string, amount float64, at time.Time) error
}

type Service interface {
	Onboard(ctx context.Context, req OnboardRequest) (*Host, error)
	Get(ctx context.Context, id string) (*Host, error)
	VerifyAccount(ctx context.Context, id string) (*Host, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (*Host, error)
}
