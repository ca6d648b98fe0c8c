package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/salasbeats/marketplace/internal/booking/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&booking).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &booking, nil
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Save(booking).Error
}

func (r *repository) CountOverlapping(ctx context.Context, db *gorm.DB, listingID snowflake.ID, date time.Time, startMinute, endMinute int) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("listing_id = ?", listingID).
		Where("start_date = ?", date).
		Where("status IN ?", []domain.BookingStatus{domain.StatusPending, domain.StatusConfirmed}).
		Where("start_minute < ? AND end_minute > ?", endMinute, startMinute).
		Count(&count).Error
	return count, err
}

func (r *repository) CompletedWithoutCommission(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusCompleted).
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Where("commission_amount IS NULL").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) CompletedForHost(ctx context.Context, db *gorm.DB, hostID string, from, to time.Time) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Where("status = ?", domain.StatusCompleted).
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Order("completed_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) ConfirmedForHost(ctx context.Context, db *gorm.DB, hostID string) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Where("status = ?", domain.StatusConfirmed).
		Find(&bookings).Error
	return bookings, err
}

func (r *repository) SetCommission(ctx context.Context, db *gorm.DB, id snowflake.ID, commission, hostEarnings float64, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"commission_amount": commission,
			"host_earnings":     hostEarnings,
			"updated_at":        at,
		}).Error
}
