package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/crown_ledger/model"
)

type WithdrawRepository struct {
	db *gorm.DB
}

func NewWithdrawRepository(db *gorm.DB) *WithdrawRepository {
	return &WithdrawRepository{db: db}
}

func (r *WithdrawRepository) Create(ctx context.Context, w *model.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WithdrawRepository) Get(ctx context.Context, id string) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	if err := r.db.WithContext(ctx).Where("id=?", id).First(&w).Error; err != nil {
		return nil, wrapNotFound(err, "withdrawal %s", id)
	}
	return &w, nil
}

func (r *WithdrawRepository) GetForUpdate(ctx context.Context, id string) (*model.WithdrawalRequest, error) {
	var w model.WithdrawalRequest
	if err := forUpdate(r.db.WithContext(ctx)).Where("id=?", id).First(&w).Error; err != nil {
		return nil, wrapNotFound(err, "withdrawal %s", id)
	}
	return &w, nil
}

func (r *WithdrawRepository) UpdateStatus(ctx context.Context, w *model.WithdrawalRequest, prev model.WithdrawalStatus) error {
	res := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).
		Where("id=? AND status=?", w.ID, prev).
		Updates(map[string]interface{}{
			"status":       w.Status,
			"reason":       w.Reason,
			"payout_ref":   w.PayoutRef,
			"processed_by": w.ProcessedBy,
			"process_time": w.ProcessedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: withdrawal %s left %s", model.ErrConcurrentModification, w.ID, prev)
	}
	return nil
}

func (r *WithdrawRepository) ListByAccount(ctx context.Context, accountID uint64, page model.Page) ([]*model.WithdrawalRequest, int64, error) {
	var list []*model.WithdrawalRequest
	var total int64
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).Where("account_id=?", accountID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("request_time desc").Offset(page.Offset()).Limit(page.Size).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ListByStatus returns the oldest requests in status first.
func (r *WithdrawRepository) ListByStatus(ctx context.Context, status model.WithdrawalStatus, limit int) ([]*model.WithdrawalRequest, error) {
	var list []*model.WithdrawalRequest
	err := r.db.WithContext(ctx).Where("status=?", status).Order("request_time asc").Limit(limit).Find(&list).Error
	return list, err
}
