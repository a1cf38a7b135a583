package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/crown_ledger/model"
)

type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

func (r *CommissionRepository) CreateBatch(ctx context.Context, records []*model.CommissionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return wrapDuplicate(r.db.WithContext(ctx).Create(&records).Error)
}

func (r *CommissionRepository) ListByOrder(ctx context.Context, orderID string) ([]*model.CommissionRecord, error) {
	var list []*model.CommissionRecord
	err := r.db.WithContext(ctx).Where("order_id=?", orderID).Order("depth asc").Find(&list).Error
	return list, err
}

func (r *CommissionRepository) CountByOrder(ctx context.Context, orderID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.CommissionRecord{}).Where("order_id=?", orderID).Count(&n).Error
	return n, err
}

func (r *CommissionRepository) ListByRecipient(ctx context.Context, accountID uint64, page model.Page) ([]*model.CommissionRecord, int64, error) {
	var list []*model.CommissionRecord
	var total int64
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&model.CommissionRecord{}).Where("recipient_id=?", accountID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("id desc").Offset(page.Offset()).Limit(page.Size).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

type RateRepository struct {
	db *gorm.DB
}

func NewRateRepository(db *gorm.DB) *RateRepository {
	return &RateRepository{db: db}
}

func (r *RateRepository) Get(ctx context.Context, version int64) (*model.RateTable, error) {
	var t model.RateTable
	if err := r.db.WithContext(ctx).Where("version=?", version).First(&t).Error; err != nil {
		return nil, wrapNotFound(err, "rate table v%d", version)
	}
	return &t, nil
}

func (r *RateRepository) Latest(ctx context.Context) (*model.RateTable, error) {
	var t model.RateTable
	if err := r.db.WithContext(ctx).Order("version desc").First(&t).Error; err != nil {
		return nil, wrapNotFound(err, "rate table")
	}
	return &t, nil
}

// Append stores t as the next version. A racing publisher hits the primary key.
func (r *RateRepository) Append(ctx context.Context, t *model.RateTable) error {
	var max int64
	if err := r.db.WithContext(ctx).Model(&model.RateTable{}).Select("COALESCE(MAX(version),0)").Scan(&max).Error; err != nil {
		return err
	}
	t.Version = max + 1
	return wrapDuplicate(r.db.WithContext(ctx).Create(t).Error)
}

func (r *RateRepository) List(ctx context.Context) ([]*model.RateTable, error) {
	var list []*model.RateTable
	err := r.db.WithContext(ctx).Order("version desc").Find(&list).Error
	return list, err
}
