package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("listing_not_found")

// CounterDelta describes the per-status counter adjustments caused by one
// booking transition. Applied as a single atomic UPDATE.
type CounterDelta struct {
	TotalBookings     int
	PendingBookings   int
	ConfirmedBookings int
	CompletedBookings int
	CancelledBookings int
	Revenue           float64
}

func (d CounterDelta) IsZero() bool {
	return d == CounterDelta{}
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, listing *Listing) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Listing, error)
	AdjustCounters(ctx context.Context, db *gorm.DB, id snowflake.ID, delta CounterDelta, now time.Time) error
	SuspendAllForHost(ctx context.Context, db *gorm.DB, hostID, reason string, now time.Time) (int64, error)
}
