package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// PeriodTotals is the aggregate over ledger entries in a period.
type PeriodTotals struct {
	Count         int64
	BookingAmount float64
	Commission    float64
	HostEarnings  float64
}

type Repository interface {
	// InsertIgnoreDuplicate writes the record unless one already exists for
	// the same booking. Returns false when the insert was a no-op.
	InsertIgnoreDuplicate(ctx context.Context, db *gorm.DB, record *Record) (bool, error)

	FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*Record, error)
	TotalsForPeriod(ctx context.Context, db *gorm.DB, from, to time.Time) (*PeriodTotals, error)

	CurrentSetting(ctx context.Context, db *gorm.DB) (*Setting, error)
	SaveSetting(ctx context.Context, db *gorm.DB, setting *Setting) error
	InsertRateChange(ctx context.Context, db *gorm.DB, change *RateChange) error

	InsertReport(ctx context.Context, db *gorm.DB, report *Report) error
}
