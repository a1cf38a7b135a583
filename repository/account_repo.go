package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/crown_ledger/model"
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, a *model.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AccountRepository) Get(ctx context.Context, id uint64) (*model.Account, error) {
	var a model.Account
	if err := r.db.WithContext(ctx).Where("id=?", id).First(&a).Error; err != nil {
		return nil, wrapNotFound(err, "account %d", id)
	}
	return &a, nil
}

func (r *AccountRepository) SetActive(ctx context.Context, id uint64, active bool) error {
	res := r.db.WithContext(ctx).Model(&model.Account{}).Where("id=?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return wrapNotFound(gorm.ErrRecordNotFound, "account %d", id)
	}
	return nil
}

func (r *AccountRepository) CountDownline(ctx context.Context, id uint64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Account{}).Where("upline_id=?", id).Count(&n).Error
	return n, err
}
