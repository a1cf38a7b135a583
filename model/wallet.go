package model

import (
	"time"
)

// Bucket 钱包余额分桶
type Bucket string

const (
	BucketAvailable Bucket = "available"
	BucketPending   Bucket = "pending" // 托管中（订单已付款未结算）
	BucketLocked    Bucket = "locked"  // 提现处理中
)

func (b Bucket) Valid() bool {
	switch b {
	case BucketAvailable, BucketPending, BucketLocked:
		return true
	}
	return false
}

// EntryType 流水类型
type EntryType string

const (
	EntryDeposit       EntryType = "deposit"
	EntryWithdraw      EntryType = "withdraw"
	EntryPurchase      EntryType = "purchase"
	EntrySale          EntryType = "sale"
	EntryCommission    EntryType = "commission"
	EntryTransfer      EntryType = "transfer"
	EntryEscrowLock    EntryType = "escrow_lock"
	EntryEscrowRelease EntryType = "escrow_release"
)

// 钱包表（wallets）：余额是 ledger_entries 的物化视图
type Wallet struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"id"`
	AccountID uint64    `gorm:"column:account_id;not null;uniqueIndex" json:"account_id"`
	Address   string    `gorm:"column:address;type:varchar(32);not null;uniqueIndex" json:"address"`
	Available int64     `gorm:"column:available;not null;default:0" json:"available"`
	Pending   int64     `gorm:"column:pending;not null;default:0" json:"pending"`
	Locked    int64     `gorm:"column:locked;not null;default:0" json:"locked"`
	Version   int64     `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	UpdatedAt time.Time `gorm:"column:update_time;autoUpdateTime" json:"update_time"`
}

func (w *Wallet) Get(b Bucket) int64 {
	switch b {
	case BucketAvailable:
		return w.Available
	case BucketPending:
		return w.Pending
	case BucketLocked:
		return w.Locked
	}
	return 0
}

// Apply adds delta to bucket b. Callers check sufficiency first.
func (w *Wallet) Apply(b Bucket, delta int64) {
	switch b {
	case BucketAvailable:
		w.Available += delta
	case BucketPending:
		w.Pending += delta
	case BucketLocked:
		w.Locked += delta
	}
}

func (w *Wallet) Total() int64 { return w.Available + w.Pending + w.Locked }

func (w *Wallet) Balance() Balance {
	return Balance{
		AccountID: w.AccountID,
		Address:   w.Address,
		Available: w.Available,
		Pending:   w.Pending,
		Locked:    w.Locked,
		Total:     w.Total(),
		Version:   w.Version,
	}
}

// Balance is a read snapshot of a wallet as of its last committed entry.
type Balance struct {
	AccountID uint64 `json:"account_id"`
	Address   string `json:"address"`
	Available int64  `json:"available"`
	Pending   int64  `json:"pending"`
	Locked    int64  `json:"locked"`
	Total     int64  `json:"total"`
	Version   int64  `json:"version"`
}

// 钱包资金流水表（ledger_entries），只追加，不修改不删除
type LedgerEntry struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"id"`
	WalletID  uint64    `gorm:"column:wallet_id;not null;uniqueIndex:idx_entry_wallet_seq,priority:1" json:"wallet_id"`
	Seq       int64     `gorm:"column:seq;not null;uniqueIndex:idx_entry_wallet_seq,priority:2" json:"seq"`
	Bucket    Bucket    `gorm:"column:bucket;type:varchar(16);not null" json:"bucket"`
	Amount    int64     `gorm:"column:amount;not null" json:"amount"`
	Type      EntryType `gorm:"column:type;type:varchar(16);not null;index" json:"type"`
	RefID     *string   `gorm:"column:ref_id;type:varchar(64);index" json:"ref_id,omitempty"`
	CreatedAt time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
}
