package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/crown_ledger/model"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	if err := r.db.WithContext(ctx).Where("id=?", id).First(&o).Error; err != nil {
		return nil, wrapNotFound(err, "order %s", id)
	}
	return &o, nil
}

// GetForUpdate locks the order row. Callers lock the order before any wallet.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*model.Order, error) {
	var o model.Order
	if err := forUpdate(r.db.WithContext(ctx)).Where("id=?", id).First(&o).Error; err != nil {
		return nil, wrapNotFound(err, "order %s", id)
	}
	return &o, nil
}

// UpdateStatus moves the order out of prev. Zero rows means another writer got there first.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *model.Order, prev model.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id=? AND status=?", o.ID, prev).
		Updates(map[string]interface{}{
			"status":      o.Status,
			"settle_time": o.SettledAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s left %s", model.ErrConcurrentModification, o.ID, prev)
	}
	return nil
}

// ListByAccount returns orders where the account is buyer or seller, newest first.
func (r *OrderRepository) ListByAccount(ctx context.Context, accountID uint64, page model.Page) ([]*model.Order, int64, error) {
	var list []*model.Order
	var total int64
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("buyer_id=? OR seller_id=?", accountID, accountID).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("create_time desc").Offset(page.Offset()).Limit(page.Size).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}
