package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/crown_ledger/config"
	"github.com/crown_ledger/logging"
	"github.com/crown_ledger/metrics"
	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
)

// LedgerService 钱包账本：所有余额变动都经由这里写流水
type LedgerService struct {
	store       *repository.Store
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger
}

func NewLedgerService(store *repository.Store, cfg config.LedgerConfig, log zerolog.Logger) *LedgerService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &LedgerService{
		store:       store,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		log:         log,
	}
}

func (s *LedgerService) Store() *repository.Store { return s.store }

func (s *LedgerService) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.backoff
	if eb.InitialInterval <= 0 {
		eb.InitialInterval = time.Millisecond
	}
	eb.MaxInterval = 50 * eb.InitialInterval
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.maxAttempts-1)), ctx)
}

// Run executes fn in one database transaction. The whole transaction is
// replayed when a versioned write loses a race; any other error aborts.
// fn must not keep state across attempts.
func (s *LedgerService) Run(ctx context.Context, fn func(tx *LedgerTx) error) error {
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		var ltx *LedgerTx
		err := s.store.Transaction(ctx, func(st *repository.Store) error {
			ltx = newLedgerTx(ctx, st)
			return fn(ltx)
		})
		if err == nil {
			for _, e := range ltx.written {
				metrics.LedgerEntries.WithLabelValues(string(e.Type)).Inc()
			}
			return nil
		}
		if errors.Is(err, model.ErrConcurrentModification) {
			metrics.LedgerRetries.Inc()
			logging.For(ctx, s.log).Debug().Err(err).Int("attempt", attempt).Msg("ledger tx conflict, retrying")
			return err
		}
		return backoff.Permanent(err)
	}, s.newBackOff(ctx))
}

func (s *LedgerService) Credit(ctx context.Context, accountID uint64, bucket model.Bucket, amount int64, typ model.EntryType, ref string) error {
	return s.Run(ctx, func(tx *LedgerTx) error {
		if err := tx.LockAccounts(accountID); err != nil {
			return err
		}
		return tx.Credit(accountID, bucket, amount, typ, ref)
	})
}

func (s *LedgerService) Debit(ctx context.Context, accountID uint64, bucket model.Bucket, amount int64, typ model.EntryType, ref string) error {
	return s.Run(ctx, func(tx *LedgerTx) error {
		if err := tx.LockAccounts(accountID); err != nil {
			return err
		}
		return tx.Debit(accountID, bucket, amount, typ, ref)
	})
}

func (s *LedgerService) MoveBucket(ctx context.Context, accountID uint64, amount int64, from, to model.Bucket, typ model.EntryType, ref string) error {
	return s.Run(ctx, func(tx *LedgerTx) error {
		if err := tx.LockAccounts(accountID); err != nil {
			return err
		}
		return tx.MoveBucket(accountID, amount, from, to, typ, ref)
	})
}

func (s *LedgerService) GetBalance(ctx context.Context, accountID uint64) (model.Balance, error) {
	w, err := s.store.Wallets.GetByAccount(ctx, accountID)
	if err != nil {
		return model.Balance{}, err
	}
	return w.Balance(), nil
}

func (s *LedgerService) ListEntries(ctx context.Context, accountID uint64, page model.Page) ([]*model.LedgerEntry, int64, error) {
	w, err := s.store.Wallets.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return s.store.Wallets.ListEntries(ctx, w.ID, page)
}

// Deposit credits coin received outside the ledger. Only operators may mint.
func (s *LedgerService) Deposit(ctx context.Context, actor model.Actor, accountID uint64, amount int64, ref string) (model.Balance, error) {
	if !actor.IsOperator() {
		return model.Balance{}, fmt.Errorf("%w: deposit requires an operator", model.ErrForbidden)
	}
	var bal model.Balance
	err := s.Run(ctx, func(tx *LedgerTx) error {
		if err := tx.LockAccounts(accountID); err != nil {
			return err
		}
		if err := tx.Credit(accountID, model.BucketAvailable, amount, model.EntryDeposit, ref); err != nil {
			return err
		}
		bal = tx.mustWallet(accountID).Balance()
		return nil
	})
	if err != nil {
		return model.Balance{}, err
	}
	logging.For(ctx, s.log).Info().Uint64("account_id", accountID).Int64("amount", amount).Str("ref", ref).Msg("deposit credited")
	return bal, nil
}

// Transfer moves available coin from the actor to the wallet at toAddress.
func (s *LedgerService) Transfer(ctx context.Context, actor model.Actor, toAddress string, amount int64, memo string) (model.Balance, error) {
	toAddress, err := NormalizeAddress(toAddress)
	if err != nil {
		return model.Balance{}, err
	}
	to, err := s.store.Wallets.GetByAddress(ctx, toAddress)
	if err != nil {
		return model.Balance{}, err
	}
	if to.AccountID == actor.AccountID {
		return model.Balance{}, fmt.Errorf("%w: cannot transfer to own wallet", model.ErrInvalidArgument)
	}
	from, err := s.store.Accounts.Get(ctx, actor.AccountID)
	if err != nil {
		return model.Balance{}, err
	}
	if !from.Active {
		return model.Balance{}, fmt.Errorf("%w: account %d", model.ErrAccountInactive, from.ID)
	}
	ref := memo
	if ref == "" {
		ref = toAddress
	}
	var bal model.Balance
	err = s.Run(ctx, func(tx *LedgerTx) error {
		if err := tx.LockAccounts(actor.AccountID, to.AccountID); err != nil {
			return err
		}
		if err := tx.Debit(actor.AccountID, model.BucketAvailable, amount, model.EntryTransfer, ref); err != nil {
			return err
		}
		if err := tx.Credit(to.AccountID, model.BucketAvailable, amount, model.EntryTransfer, ref); err != nil {
			return err
		}
		bal = tx.mustWallet(actor.AccountID).Balance()
		return nil
	})
	if err != nil {
		return model.Balance{}, err
	}
	return bal, nil
}

// Reconcile replays the ledger of one wallet and compares it with the
// materialized balances.
func (s *LedgerService) Reconcile(ctx context.Context, walletID uint64) error {
	w, err := s.store.Wallets.Get(ctx, walletID)
	if err != nil {
		return err
	}
	sums, n, err := s.store.Wallets.SumEntries(ctx, walletID)
	if err != nil {
		return err
	}
	for _, b := range []model.Bucket{model.BucketAvailable, model.BucketPending, model.BucketLocked} {
		if sums[b] != w.Get(b) {
			return fmt.Errorf("%w: wallet %d %s=%d ledger=%d", model.ErrLedgerMismatch, walletID, b, w.Get(b), sums[b])
		}
	}
	if n != w.Version {
		return fmt.Errorf("%w: wallet %d version=%d entries=%d", model.ErrLedgerMismatch, walletID, w.Version, n)
	}
	return nil
}

// ReconcileAll checks every wallet and returns the ids that failed.
func (s *LedgerService) ReconcileAll(ctx context.Context) (checked int, mismatched []uint64, err error) {
	ids, err := s.store.Wallets.ListIDs(ctx)
	if err != nil {
		return 0, nil, err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return checked, mismatched, err
		}
		checked++
		if err := s.Reconcile(ctx, id); err != nil {
			if !errors.Is(err, model.ErrLedgerMismatch) {
				return checked, mismatched, err
			}
			logging.For(ctx, s.log).Error().Err(err).Bool("alert", true).Uint64("wallet_id", id).Msg("reconcile mismatch")
			mismatched = append(mismatched, id)
		}
	}
	return checked, mismatched, nil
}
