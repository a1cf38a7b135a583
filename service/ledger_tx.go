package service

import (
	"context"
	"fmt"

	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
)

// LedgerTx is the view of the ledger inside one database transaction. Wallets
// are locked once, up front, in ascending id order; every later mutation
// works on that locked set so the same wallet can be touched several times.
type LedgerTx struct {
	ctx       context.Context
	store     *repository.Store
	byAccount map[uint64]*model.Wallet
	written   []*model.LedgerEntry
}

func newLedgerTx(ctx context.Context, store *repository.Store) *LedgerTx {
	return &LedgerTx{ctx: ctx, store: store, byAccount: map[uint64]*model.Wallet{}}
}

func (t *LedgerTx) Context() context.Context { return t.ctx }

// Store is bound to the transaction.
func (t *LedgerTx) Store() *repository.Store { return t.store }

// LockAccounts locks the wallets of the given accounts. Accounts already
// locked are skipped; asking for new wallets after the first lock is an
// error since it would break the lock order.
func (t *LedgerTx) LockAccounts(accountIDs ...uint64) error {
	seen := map[uint64]bool{}
	var missing []uint64
	for _, id := range accountIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := t.byAccount[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if len(t.byAccount) > 0 {
		return fmt.Errorf("ledger: wallets %v requested after lock", missing)
	}
	list, err := t.store.Wallets.LockByAccounts(t.ctx, missing)
	if err != nil {
		return err
	}
	for _, w := range list {
		t.byAccount[w.AccountID] = w
	}
	return nil
}

// Wallet returns the locked wallet of an account.
func (t *LedgerTx) Wallet(accountID uint64) (*model.Wallet, error) {
	w, ok := t.byAccount[accountID]
	if !ok {
		return nil, fmt.Errorf("ledger: wallet of account %d not locked", accountID)
	}
	return w, nil
}

func (t *LedgerTx) mustWallet(accountID uint64) *model.Wallet {
	w, err := t.Wallet(accountID)
	if err != nil {
		panic(err)
	}
	return w
}

type leg struct {
	bucket model.Bucket
	delta  int64
}

func (t *LedgerTx) Credit(accountID uint64, bucket model.Bucket, amount int64, typ model.EntryType, ref string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return t.apply(accountID, typ, ref, leg{bucket, amount})
}

func (t *LedgerTx) Debit(accountID uint64, bucket model.Bucket, amount int64, typ model.EntryType, ref string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return t.apply(accountID, typ, ref, leg{bucket, -amount})
}

// MoveBucket shifts amount between two buckets of the same wallet as a pair
// of entries summing to zero.
func (t *LedgerTx) MoveBucket(accountID uint64, amount int64, from, to model.Bucket, typ model.EntryType, ref string) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: move within bucket %s", model.ErrInvalidArgument, from)
	}
	return t.apply(accountID, typ, ref, leg{from, -amount}, leg{to, amount})
}

func (t *LedgerTx) apply(accountID uint64, typ model.EntryType, ref string, legs ...leg) error {
	w, err := t.Wallet(accountID)
	if err != nil {
		return err
	}
	// check every leg before touching the wallet
	next := *w
	for _, l := range legs {
		if !l.bucket.Valid() {
			return fmt.Errorf("%w: bucket %q", model.ErrInvalidArgument, l.bucket)
		}
		next.Apply(l.bucket, l.delta)
		if next.Get(l.bucket) < 0 {
			return fmt.Errorf("%w: account %d %s has %d, needs %d",
				model.ErrInsufficientFunds, accountID, l.bucket, w.Get(l.bucket), -l.delta)
		}
	}

	prev := w.Version
	next.Version = prev + int64(len(legs))
	var refID *string
	if ref != "" {
		refID = &ref
	}
	entries := make([]*model.LedgerEntry, 0, len(legs))
	for i, l := range legs {
		entries = append(entries, &model.LedgerEntry{
			WalletID: w.ID,
			Seq:      prev + int64(i) + 1,
			Bucket:   l.bucket,
			Amount:   l.delta,
			Type:     typ,
			RefID:    refID,
		})
	}

	if err := t.store.Wallets.UpdateBalances(t.ctx, &next, prev); err != nil {
		return err
	}
	if err := t.store.Wallets.AppendEntries(t.ctx, entries); err != nil {
		return err
	}
	*w = next
	t.written = append(t.written, entries...)
	return nil
}

func checkAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", model.ErrInvalidArgument, amount)
	}
	return nil
}
