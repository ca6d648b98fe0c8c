package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Booking, error)
	Update(ctx context.Context, db *gorm.DB, booking *Booking) error

	// CountOverlapping counts pending and confirmed bookings on the same
	// listing and date whose minute window intersects [startMinute, endMinute).
	CountOverlapping(ctx context.Context, db *gorm.DB, listingID snowflake.ID, date time.Time, startMinute, endMinute int) (int64, error)

	// CompletedWithoutCommission lists bookings completed inside the window
	// that have no commission recorded yet, for the daily sweep.
	CompletedWithoutCommission(ctx context.Context, db *gorm.DB, from, to time.Time) ([]Booking, error)

	CompletedForHost(ctx context.Context, db *gorm.DB, hostID string, from, to time.Time) ([]Booking, error)
	ConfirmedForHost(ctx context.Context, db *gorm.DB, hostID string) ([]Booking, error)

	SetCommission(ctx context.Context, db *gorm.DB, id snowflake.ID, commission, hostEarnings float64, at time.Time) error
}
