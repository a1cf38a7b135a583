package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories over one handle, either the pool or a transaction.
type Store struct {
	db          *gorm.DB
	Accounts    *AccountRepository
	Wallets     *WalletRepository
	Orders      *OrderRepository
	Rates       *RateRepository
	Commissions *CommissionRepository
	Withdrawals *WithdrawRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Accounts:    NewAccountRepository(db),
		Wallets:     NewWalletRepository(db),
		Orders:      NewOrderRepository(db),
		Rates:       NewRateRepository(db),
		Commissions: NewCommissionRepository(db),
		Withdrawals: NewWithdrawRepository(db),
	}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn against a Store bound to a single database transaction.
// Every repository call inside fn must go through the Store it receives.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
