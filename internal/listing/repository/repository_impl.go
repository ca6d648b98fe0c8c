package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/salasbeats/marketplace/internal/listing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, listing *domain.Listing) error {
	return db.WithContext(ctx).Create(listing).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Listing, error) {
	var listing domain.Listing
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM listings WHERE id = ?`,
		id,
	).Scan(&listing).Error
	if err != nil {
		return nil, err
	}
	if listing.ID == 0 {
		return nil, nil
	}
	return &listing, nil
}

// AdjustCounters applies the delta with in-database arithmetic so concurrent
// transitions on the same listing never lose updates.
func (r *repo) AdjustCounters(ctx context.Context, db *gorm.DB, id snowflake.ID, delta domain.CounterDelta, now time.Time) error {
	if delta.IsZero() {
		return nil
	}
	result := db.WithContext(ctx).Exec(
		`UPDATE listings SET
			total_bookings = total_bookings + ?,
			pending_bookings = pending_bookings + ?,
			confirmed_bookings = confirmed_bookings + ?,
			completed_bookings = completed_bookings + ?,
			cancelled_bookings = cancelled_bookings + ?,
			total_revenue = total_revenue + ?,
			updated_at = ?
		 WHERE id = ?`,
		delta.TotalBookings,
		delta.PendingBookings,
		delta.ConfirmedBookings,
		delta.CompletedBookings,
		delta.CancelledBookings,
		delta.Revenue,
		now,
		id,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) SuspendAllForHost(ctx context.Context, db *gorm.DB, hostID, reason string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE listings SET status = ?, suspension_reason = ?, updated_at = ?
		 WHERE host_id = ? AND status = ?`,
		domain.ListingStatusSuspended,
		reason,
		now,
		hostID,
		domain.ListingStatusActive,
	)
	return result.RowsAffected, result.Error
}
