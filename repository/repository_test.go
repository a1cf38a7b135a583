package repository_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
	"github.com/crown_ledger/testutil"
)

func seedWallet(t *testing.T, store *repository.Store, addr string) *model.Wallet {
	t.Helper()
	ctx := context.Background()
	acc := &model.Account{Grade: model.GradeSuperAdmin, Country: "SG", Active: true}
	require.NoError(t, store.Accounts.Create(ctx, acc))
	w := &model.Wallet{AccountID: acc.ID, Address: addr}
	require.NoError(t, store.Wallets.Create(ctx, w))
	return w
}

func TestUpdateBalancesVersionCheck(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	w := seedWallet(t, store, "CRW-SG-00000001-0001")

	w.Available = 100
	w.Version = 1
	require.NoError(t, store.Wallets.UpdateBalances(ctx, w, 0))

	stale := *w
	stale.Available = 50
	stale.Version = 1
	err := store.Wallets.UpdateBalances(ctx, &stale, 0)
	assert.ErrorIs(t, err, model.ErrConcurrentModification)

	got, err := store.Wallets.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Available)
	assert.Equal(t, int64(1), got.Version)
}

func TestLockByAccountsOrderedAndComplete(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	a := seedWallet(t, store, "CRW-SG-00000001-0001")
	b := seedWallet(t, store, "CRW-SG-00000002-0002")

	list, err := store.Wallets.LockByAccounts(ctx, []uint64{b.AccountID, a.AccountID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Less(t, list[0].ID, list[1].ID)

	_, err = store.Wallets.LockByAccounts(ctx, []uint64{a.AccountID, 9999})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestDuplicateEntrySeqIsConflict(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	w := seedWallet(t, store, "CRW-SG-00000001-0001")

	e := &model.LedgerEntry{WalletID: w.ID, Seq: 1, Bucket: model.BucketAvailable, Amount: 10, Type: model.EntryDeposit}
	require.NoError(t, store.Wallets.AppendEntries(ctx, []*model.LedgerEntry{e}))

	dup := &model.LedgerEntry{WalletID: w.ID, Seq: 1, Bucket: model.BucketAvailable, Amount: 10, Type: model.EntryDeposit}
	err := store.Wallets.AppendEntries(ctx, []*model.LedgerEntry{dup})
	assert.ErrorIs(t, err, model.ErrConcurrentModification)
}

func TestSumEntries(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	w := seedWallet(t, store, "CRW-SG-00000001-0001")

	entries := []*model.LedgerEntry{
		{WalletID: w.ID, Seq: 1, Bucket: model.BucketAvailable, Amount: 1000, Type: model.EntryDeposit},
		{WalletID: w.ID, Seq: 2, Bucket: model.BucketAvailable, Amount: -300, Type: model.EntryEscrowLock},
		{WalletID: w.ID, Seq: 3, Bucket: model.BucketPending, Amount: 300, Type: model.EntryEscrowLock},
	}
	require.NoError(t, store.Wallets.AppendEntries(ctx, entries))

	sums, n, err := store.Wallets.SumEntries(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(700), sums[model.BucketAvailable])
	assert.Equal(t, int64(300), sums[model.BucketPending])
	assert.Zero(t, sums[model.BucketLocked])

	list, total, err := store.Wallets.ListEntries(ctx, w.ID, model.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.Equal(t, int64(3), list[0].Seq)
}

func TestRateAppendVersions(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))

	_, err := store.Rates.Latest(ctx)
	assert.ErrorIs(t, err, model.ErrNotFound)

	first := &model.RateTable{Rates: model.RateMap{model.GradeSuperAdmin: decimal.NewFromInt(1)}}
	require.NoError(t, store.Rates.Append(ctx, first))
	second := &model.RateTable{Rates: model.RateMap{model.GradeSuperAdmin: decimal.NewFromInt(2)}}
	require.NoError(t, store.Rates.Append(ctx, second))

	assert.Equal(t, int64(1), first.Version)
	assert.Equal(t, int64(2), second.Version)

	latest, err := store.Rates.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Version)
	assert.True(t, latest.Rate(model.GradeSuperAdmin).Equal(decimal.NewFromInt(2)))

	old, err := store.Rates.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, old.Rate(model.GradeSuperAdmin).Equal(decimal.NewFromInt(1)))
}

func TestOrderUpdateStatusConditional(t *testing.T) {
	ctx := context.Background()
	store := repository.NewStore(testutil.NewDB(t))
	o := &model.Order{ID: "o-1", BuyerID: 1, SellerID: 2, Amount: 100, FeeRate: decimal.NewFromInt(4), Status: model.OrderPending, RateVersion: 1}
	require.NoError(t, store.Orders.Create(ctx, o))

	o.Status = model.OrderPaid
	require.NoError(t, store.Orders.UpdateStatus(ctx, o, model.OrderPending))

	o.Status = model.OrderCancelled
	err := store.Orders.UpdateStatus(ctx, o, model.OrderPending)
	assert.ErrorIs(t, err, model.ErrConcurrentModification)

	got, err := store.Orders.Get(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderPaid, got.Status)
}
