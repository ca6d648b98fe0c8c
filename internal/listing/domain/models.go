package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusInactive  ListingStatus = "inactive"
	ListingStatusSuspended ListingStatus = "suspended"
)

// Listing is a bookable space owned by a host. The per-status counters are
// only ever moved by atomic increments from booking transitions.
type Listing struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	HostID    string        `gorm:"not null;index" json:"host_id"`
	Title     string        `gorm:"not null" json:"title"`
	MaxGuests int           `gorm:"not null" json:"max_guests"`
	Status    ListingStatus `gorm:"type:text;not null;default:'active';index" json:"status"`

	TotalBookings     int64   `gorm:"not null;default:0" json:"total_bookings"`
	PendingBookings   int64   `gorm:"not null;default:0" json:"pending_bookings"`
	ConfirmedBookings int64   `gorm:"not null;default:0" json:"confirmed_bookings"`
	CompletedBookings int64   `gorm:"not null;default:0" json:"completed_bookings"`
	CancelledBookings int64   `gorm:"not null;default:0" json:"cancelled_bookings"`
	TotalRevenue      float64 `gorm:"not null;default:0" json:"total_revenue"`

	SuspensionReason string    `gorm:"type:text" json:"suspension_reason,omitempty"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Listing) TableName() string { return "listings" }
