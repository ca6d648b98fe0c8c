package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Record is the ledger entry for one completed booking. The unique index on
// BookingID is what makes commission calculation idempotent.
type Record struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	BookingID        snowflake.ID `gorm:"uniqueIndex;not null" json:"booking_id"`
	ListingID        snowflake.ID `gorm:"not null;index" json:"listing_id"`
	HostID           string       `gorm:"not null;index" json:"host_id"`
	BookingAmount    float64      `gorm:"not null" json:"booking_amount"`
	Rate             float64      `gorm:"not null" json:"rate"`
	CommissionAmount float64      `gorm:"not null" json:"commission_amount"`
	HostEarnings     float64      `gorm:"not null" json:"host_earnings"`
	Source           string       `gorm:"type:text;not null" json:"source"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

func (Record) TableName() string { return "commission_records" }

const (
	SourceAPI   = "api"
	SourceSweep = "sweep"
)

// Setting holds the platform commission rate. A single row, updated in place.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Rate      float64   `gorm:"not null" json:"rate"`
	UpdatedBy string    `gorm:"type:text" json:"updated_by"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Setting) TableName() string { return "commission_settings" }

// RateChange is the audit trail of commission rate updates.
type RateChange struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	PreviousRate float64      `gorm:"not null" json:"previous_rate"`
	NewRate      float64      `gorm:"not null" json:"new_rate"`
	ChangedBy    string       `gorm:"type:text;not null" json:"changed_by"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RateChange) TableName() string { return "commission_rate_changes" }

// Report is a stored platform-wide commission summary for a period.
type Report struct {
	ID                 snowflake.ID `gorm:"primaryKey" json:"id"`
	PeriodStart        time.Time    `gorm:"not null" json:"period_start"`
	PeriodEnd          time.Time    `gorm:"not null" json:"period_end"`
	TotalBookings      int64        `gorm:"not null" json:"total_bookings"`
	TotalBookingAmount float64      `gorm:"not null" json:"total_booking_amount"`
	TotalCommission    float64      `gorm:"not null" json:"total_commission"`
	TotalHostEarnings  float64      `gorm:"not null" json:"total_host_earnings"`
	GeneratedBy        string       `gorm:"type:text" json:"generated_by"`
	CreatedAt          time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Report) TableName() string { return "commission_reports" }
