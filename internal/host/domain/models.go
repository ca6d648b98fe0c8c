package domain

import (
	"strings"
	"time"
)

type HostStatus string

const (
	HostStatusActive    HostStatus = "active"
	HostStatusSuspended HostStatus = "suspended"
)

func ParseHostStatus(raw string) (HostStatus, bool) {
	switch HostStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case HostStatusActive:
		return HostStatusActive, true
	case HostStatusSuspended:
		return HostStatusSuspended, true
	default:
		return "", false
	}
}

// Host is a seller on the platform. The ID comes from the identity provider;
// AccountRef points at the payment processor's connected account.
type Host struct {
	ID          string `gorm:"primaryKey" json:"id"`
	Email       string `gorm:"not null" json:"email"`
	DisplayName string `gorm:"type:text" json:"display_name,omitempty"`
	Country     string `gorm:"type:text" json:"country,omitempty"`

	AccountRef       string `gorm:"type:text;index" json:"account_ref,omitempty"`
	ChargesEnabled   bool   `gorm:"not null;default:false" json:"charges_enabled"`
	PayoutsEnabled   bool   `gorm:"not null;default:false" json:"payouts_enabled"`
	DetailsSubmitted bool   `gorm:"not null;default:false" json:"details_submitted"`

	Status       HostStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	StatusReason string     `gorm:"type:text" json:"status_reason,omitempty"`

	TotalPaidOut float64    `gorm:"not null;default:0" json:"total_paid_out"`
	LastPayoutAt *time.Time `json:"last_payout_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Host) TableName() string { return "hosts" }

// AccountInfo mirrors the processor's view of a connected account.
type AccountInfo struct {
	Ref              string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}
