package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/salasbeats/marketplace/internal/host/domain"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, host *domain.Host) error {
	return db.WithContext(ctx).Create(host).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id string) (*domain.Host, error) {
	var host domain.Host
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&host).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &host, nil
}

func (r *repository) FindByAccountRef(ctx context.Context, db *gorm.DB, accountRef string) (*domain.Host, error) {
	var host domain.Host
	err := db.WithContext(ctx).
		Where("account_ref = ?", accountRef).
		First(&host).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &host, nil
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, host *domain.Host) error {
	return db.WithContext(ctx).Save(host).Error
}

func (r *repository) AddPaidOut(ctx context.Context, db *gorm.DB, id string, amount float64, at time.Time) error {
	res := db.WithContext(ctx).Exec(`
		UPDATE hosts
		SET total_paid_out = total_paid_out + ?,
		    last_payout_at = ?,
		    updated_at = ?
		WHERE id = ?`,
		amount, at, at, id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
