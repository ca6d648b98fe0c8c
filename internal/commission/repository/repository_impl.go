package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salasbeats/marketplace/internal/commission/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) InsertIgnoreDuplicate(ctx context.Context, db *gorm.DB, record *domain.Record) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "booking_id"}},
			DoNothing: true,
		}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindByBookingID(ctx context.Context, db *gorm.DB, bookingID snowflake.ID) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		First(&record).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) TotalsForPeriod(ctx context.Context, db *gorm.DB, from, to time.Time) (*domain.PeriodTotals, error) {
	var totals domain.PeriodTotals
	err := db.WithContext(ctx).
		Model(&domain.Record{}).
		Select(
			"COUNT(*) AS count",
			"COALESCE(SUM(booking_amount), 0) AS booking_amount",
			"COALESCE(SUM(commission_amount), 0) AS commission",
			"COALESCE(SUM(host_earnings), 0) AS host_earnings",
		).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func (r *repository) CurrentSetting(ctx context.Context, db *gorm.DB) (*domain.Setting, error) {
	var setting domain.Setting
	err := db.WithContext(ctx).
		Order("id ASC").
		First(&setting).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &setting, nil
}

func (r *repository) SaveSetting(ctx context.Context, db *gorm.DB, setting *domain.Setting) error {
	return db.WithContext(ctx).Save(setting).Error
}

func (r *repository) InsertRateChange(ctx context.Context, db *gorm.DB, change *domain.RateChange) error {
	return db.WithContext(ctx).Create(change).Error
}

func (r *repository) InsertReport(ctx context.Context, db *gorm.DB, report *domain.Report) error {
	return db.WithContext(ctx).Create(report).Error
}
