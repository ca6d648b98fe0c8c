package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salasbeats/marketplace/internal/payout/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Payout, error) {
	var payout domain.Payout
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&payout).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Create(payout).Error
}

func (r *repository) Merge(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "failure_reason", "arrival_date", "reconciled_at", "updated_at",
			}),
		}).
		Create(payout).Error
}

func (r *repository) ListForHost(ctx context.Context, db *gorm.DB, hostID string, limit int) ([]domain.Payout, error) {
	if limit <= 0 {
		limit = 50
	}
	var payouts []domain.Payout
	err := db.WithContext(ctx).
		Where("host_id = ?", hostID).
		Order("created_at DESC").
		Limit(limit).
		Find(&payouts).Error
	return payouts, err
}

func (r *repository) HasUnsettledForHost(ctx context.Context, db *gorm.DB, hostID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Payout{}).
		Where("host_id = ?", hostID).
		Where("status IN ?", []domain.PayoutStatus{domain.PayoutPending, domain.PayoutInTransit}).
		Count(&count).Error
	return count > 0, err
}

// SumForHost totals payouts that have not failed, so money in flight still
// counts against available earnings.
func (r *repository) SumForHost(ctx context.Context, db *gorm.DB, hostID string, from, to time.Time) (float64, error) {
	var sum float64
	err := db.WithContext(ctx).
		Model(&domain.Payout{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("host_id = ?", hostID).
		Where("status NOT IN ?", []domain.PayoutStatus{domain.PayoutFailed, domain.PayoutCanceled}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Scan(&sum).Error
	return sum, err
}
