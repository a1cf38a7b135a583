package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/crown_ledger/model"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, w *model.Wallet) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *WalletRepository) Get(ctx context.Context, id uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.db.WithContext(ctx).Where("id=?", id).First(&w).Error; err != nil {
		return nil, wrapNotFound(err, "wallet %d", id)
	}
	return &w, nil
}

func (r *WalletRepository) GetByAccount(ctx context.Context, accountID uint64) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.db.WithContext(ctx).Where("account_id=?", accountID).First(&w).Error; err != nil {
		return nil, wrapNotFound(err, "wallet of account %d", accountID)
	}
	return &w, nil
}

func (r *WalletRepository) GetByAddress(ctx context.Context, address string) (*model.Wallet, error) {
	var w model.Wallet
	if err := r.db.WithContext(ctx).Where("address=?", address).First(&w).Error; err != nil {
		return nil, wrapNotFound(err, "wallet %s", address)
	}
	return &w, nil
}

// LockByAccounts loads the wallets of the given accounts in ascending wallet
// id order, taking row locks where the dialect supports them.
func (r *WalletRepository) LockByAccounts(ctx context.Context, accountIDs []uint64) ([]*model.Wallet, error) {
	var list []*model.Wallet
	if len(accountIDs) == 0 {
		return list, nil
	}
	err := forUpdate(r.db.WithContext(ctx)).
		Where("account_id IN ?", accountIDs).
		Order("id asc").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	if len(list) != len(accountIDs) {
		return nil, fmt.Errorf("%w: %d of %d wallets", model.ErrNotFound, len(list), len(accountIDs))
	}
	return list, nil
}

// UpdateBalances writes the buckets and version of w only if the stored row is
// still at prevVersion.
func (r *WalletRepository) UpdateBalances(ctx context.Context, w *model.Wallet, prevVersion int64) error {
	res := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("id=? AND version=?", w.ID, prevVersion).
		Updates(map[string]interface{}{
			"available": w.Available,
			"pending":   w.Pending,
			"locked":    w.Locked,
			"version":   w.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: wallet %d moved past version %d", model.ErrConcurrentModification, w.ID, prevVersion)
	}
	return nil
}

func (r *WalletRepository) AppendEntries(ctx context.Context, entries []*model.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return wrapDuplicate(r.db.WithContext(ctx).Create(&entries).Error)
}

func (r *WalletRepository) ListEntries(ctx context.Context, walletID uint64, page model.Page) ([]*model.LedgerEntry, int64, error) {
	var list []*model.LedgerEntry
	var total int64
	page = page.Normalize()
	q := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).Where("wallet_id=?", walletID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("seq desc").Offset(page.Offset()).Limit(page.Size).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// SumEntries folds the ledger of one wallet into per-bucket totals.
func (r *WalletRepository) SumEntries(ctx context.Context, walletID uint64) (map[model.Bucket]int64, int64, error) {
	var rows []struct {
		Bucket model.Bucket
		Total  int64
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.LedgerEntry{}).
		Select("bucket, COALESCE(SUM(amount),0) AS total, COUNT(*) AS count").
		Where("wallet_id=?", walletID).
		Group("bucket").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	sums := make(map[model.Bucket]int64, len(rows))
	var n int64
	for _, row := range rows {
		sums[row.Bucket] = row.Total
		n += row.Count
	}
	return sums, n, nil
}

func (r *WalletRepository) ListIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&model.Wallet{}).Order("id asc").Pluck("id", &ids).Error
	return ids, err
}
