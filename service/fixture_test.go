package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/crown_ledger/config"
	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
	"github.com/crown_ledger/testutil"
)

const defaultRates = "SUPER_ADMIN=0.5,CROWN=1.5,DIAMOND=1.0,GOLD=0.75,SILVER=0.25"

var admin = model.Actor{AccountID: 0, Role: model.RoleAdmin}

type fixture struct {
	ctx         context.Context
	store       *repository.Store
	ledger      *LedgerService
	members     *MembershipService
	commission  *CommissionService
	orders      *OrderService
	withdrawals *WithdrawService
}

func newFixture(t *testing.T) *fixture {
	return newFixtureDepth(t, 10)
}

func newFixtureDepth(t *testing.T, maxDepth int) *fixture {
	t.Helper()
	log := zerolog.Nop()
	store := repository.NewStore(testutil.NewDB(t))
	ledger := NewLedgerService(store, config.LedgerConfig{MaxAttempts: 5, RetryBackoff: time.Millisecond}, log)
	commission := NewCommissionService(ledger, maxDepth, log)
	f := &fixture{
		ctx:         context.Background(),
		store:       store,
		ledger:      ledger,
		members:     NewMembershipService(store, log),
		commission:  commission,
		orders:      NewOrderService(ledger, commission, log),
		withdrawals: NewWithdrawService(ledger, NewDestinationValidator([]string{"0x000000000000000000000000000000000000dEaD"}), log),
	}
	rates, err := model.ParseRates(defaultRates)
	require.NoError(t, err)
	_, err = commission.EnsureRates(f.ctx, rates)
	require.NoError(t, err)
	return f
}

func user(a *model.Account) model.Actor {
	return model.Actor{AccountID: a.ID, Role: model.RoleUser}
}

func (f *fixture) onboard(t *testing.T, grade model.Grade, upline *model.Account) *model.Account {
	t.Helper()
	in := OnboardInput{Grade: grade, Country: "SG"}
	if upline != nil {
		id := upline.ID
		in.UplineID = &id
	}
	acc, _, err := f.members.Onboard(f.ctx, admin, in)
	require.NoError(t, err)
	return acc
}

// hierarchy is a full SUPER_ADMIN -> SILVER chain.
type hierarchy struct {
	sa, crown, diamond, gold, silver *model.Account
}

func (h hierarchy) all() []*model.Account {
	return []*model.Account{h.sa, h.crown, h.diamond, h.gold, h.silver}
}

func (f *fixture) hierarchy(t *testing.T) hierarchy {
	t.Helper()
	var h hierarchy
	h.sa = f.onboard(t, model.GradeSuperAdmin, nil)
	h.crown = f.onboard(t, model.GradeCrown, h.sa)
	h.diamond = f.onboard(t, model.GradeDiamond, h.crown)
	h.gold = f.onboard(t, model.GradeGold, h.diamond)
	h.silver = f.onboard(t, model.GradeSilver, h.gold)
	return h
}

func (f *fixture) deposit(t *testing.T, a *model.Account, amount int64) {
	t.Helper()
	_, err := f.ledger.Deposit(f.ctx, admin, a.ID, amount, "seed")
	require.NoError(t, err)
}

func (f *fixture) balance(t *testing.T, a *model.Account) model.Balance {
	t.Helper()
	b, err := f.ledger.GetBalance(f.ctx, a.ID)
	require.NoError(t, err)
	return b
}

func (f *fixture) order(t *testing.T, o *model.Order) *model.Order {
	t.Helper()
	got, err := f.store.Orders.Get(f.ctx, o.ID)
	require.NoError(t, err)
	return got
}

// walk moves an order through the given statuses, each by the actor that may do it.
func (f *fixture) walk(t *testing.T, o *model.Order, steps ...model.OrderStatus) *model.Order {
	t.Helper()
	buyer := model.Actor{AccountID: o.BuyerID, Role: model.RoleUser}
	seller := model.Actor{AccountID: o.SellerID, Role: model.RoleUser}
	for _, s := range steps {
		actor := buyer
		if s == model.OrderShipping {
			actor = seller
		}
		var err error
		o, err = f.orders.TransitionOrder(f.ctx, o.ID, s, actor)
		require.NoError(t, err, "transition to %s", s)
	}
	return o
}

func (f *fixture) reconcileAll(t *testing.T) {
	t.Helper()
	checked, mismatched, err := f.ledger.ReconcileAll(f.ctx)
	require.NoError(t, err)
	require.Empty(t, mismatched)
	require.Positive(t, checked)
}
