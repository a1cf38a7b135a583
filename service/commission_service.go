package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/crown_ledger/logging"
	"github.com/crown_ledger/metrics"
	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
)

// CommissionService 分佣：订单结算时按上级链逐级分配手续费
type CommissionService struct {
	ledger   *LedgerService
	maxDepth int
	log      zerolog.Logger
}

func NewCommissionService(ledger *LedgerService, maxDepth int, log zerolog.Logger) *CommissionService {
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &CommissionService{ledger: ledger, maxDepth: maxDepth, log: log}
}

// Allocation is one recipient's share of an order fee. Amount is the grade
// share; Residual is the rounding and missing-tier remainder, which only the
// root receives.
type Allocation struct {
	Recipient *model.Account
	Depth     int
	Rate      decimal.Decimal
	Amount    int64
	Residual  int64
}

func (a Allocation) Total() int64 { return a.Amount + a.Residual }

type CommissionPlan struct {
	Order       *model.Order
	Table       *model.RateTable
	Allocations []Allocation
}

func (p *CommissionPlan) AccountIDs() []uint64 {
	ids := make([]uint64, 0, len(p.Allocations))
	for _, a := range p.Allocations {
		ids = append(ids, a.Recipient.ID)
	}
	return ids
}

// Plan computes the split of order's fee over the seller's upline using the
// rate table pinned on the order. It writes nothing.
func (s *CommissionService) Plan(ctx context.Context, st *repository.Store, order *model.Order) (*CommissionPlan, error) {
	n, err := st.Commissions.CountByOrder(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, fmt.Errorf("%w: order %s", model.ErrCommissionAlreadyDistributed, order.ID)
	}
	table, err := st.Rates.Get(ctx, order.RateVersion)
	if err != nil {
		return nil, err
	}
	seller, err := st.Accounts.Get(ctx, order.SellerID)
	if err != nil {
		return nil, err
	}
	chain, err := WalkUpline(ctx, st.Accounts, seller, s.maxDepth, logging.For(ctx, s.log).With().Str("order_id", order.ID).Logger())
	if err != nil {
		return nil, err
	}

	plan := &CommissionPlan{Order: order, Table: table}
	var allocated int64
	rootIdx := -1
	for _, anc := range chain.Ancestors {
		rate := table.Rate(anc.Account.Grade)
		amt := model.TierAmount(order.Amount, rate)
		allocated += amt
		if anc.Account.ID == chain.Root.ID {
			rootIdx = len(plan.Allocations)
		}
		plan.Allocations = append(plan.Allocations, Allocation{
			Recipient: anc.Account,
			Depth:     anc.Depth,
			Rate:      rate,
			Amount:    amt,
		})
	}
	residual := order.FeeAmount - allocated
	if residual < 0 {
		return nil, fmt.Errorf("commission: order %s tiers %d exceed fee %d", order.ID, allocated, order.FeeAmount)
	}
	if rootIdx < 0 {
		// root sits beyond maxDepth, or the seller is the root
		plan.Allocations = append(plan.Allocations, Allocation{
			Recipient: chain.Root,
			Depth:     chain.RootDepth,
			Rate:      decimal.Zero,
		})
		rootIdx = len(plan.Allocations) - 1
	}
	plan.Allocations[rootIdx].Residual = residual
	return plan, nil
}

// Apply credits every allocation and writes the commission records. The
// wallets of all recipients must already be locked in tx.
func (s *CommissionService) Apply(tx *LedgerTx, plan *CommissionPlan) ([]*model.CommissionRecord, error) {
	order := plan.Order
	records := make([]*model.CommissionRecord, 0, len(plan.Allocations))
	var paid int64
	for _, a := range plan.Allocations {
		total := a.Total()
		if total == 0 {
			continue
		}
		if err := tx.Credit(a.Recipient.ID, model.BucketAvailable, total, model.EntryCommission, order.ID); err != nil {
			return nil, err
		}
		records = append(records, &model.CommissionRecord{
			OrderID:     order.ID,
			RecipientID: a.Recipient.ID,
			Grade:       a.Recipient.Grade,
			Rate:        a.Rate,
			Amount:      total,
			Residual:    a.Residual,
			Depth:       a.Depth,
			RateVersion: plan.Table.Version,
		})
		paid += total
	}
	if paid != order.FeeAmount {
		return nil, fmt.Errorf("commission: order %s paid %d of fee %d", order.ID, paid, order.FeeAmount)
	}
	if err := tx.Store().Commissions.CreateBatch(tx.Context(), records); err != nil {
		return nil, err
	}
	return records, nil
}

// Distribute plans and applies commission for order inside tx. Wallets not
// yet locked are locked here, which is only allowed on a fresh tx.
func (s *CommissionService) Distribute(tx *LedgerTx, order *model.Order) ([]*model.CommissionRecord, error) {
	plan, err := s.Plan(tx.Context(), tx.Store(), order)
	if err != nil {
		return nil, err
	}
	if err := tx.LockAccounts(plan.AccountIDs()...); err != nil {
		return nil, err
	}
	return s.Apply(tx, plan)
}

// DistributeOrder re-runs distribution for a confirmed order. An order that
// already has records is left untouched and its records are returned.
func (s *CommissionService) DistributeOrder(ctx context.Context, actor model.Actor, orderID string) ([]*model.CommissionRecord, error) {
	if !actor.IsOperator() {
		return nil, fmt.Errorf("%w: distribution requires an operator", model.ErrForbidden)
	}
	store := s.ledger.Store()
	var records []*model.CommissionRecord
	err := s.ledger.Run(ctx, func(tx *LedgerTx) error {
		order, err := tx.Store().Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != model.OrderConfirmed {
			return fmt.Errorf("%w: order %s is %s", model.ErrInvalidStateTransition, order.ID, order.Status)
		}
		records, err = s.Distribute(tx, order)
		return err
	})
	if isAlreadyDistributed(err) {
		logging.For(ctx, s.log).Info().Str("order_id", orderID).Msg("commission already distributed")
		return store.Commissions.ListByOrder(ctx, orderID)
	}
	if err != nil {
		return nil, err
	}
	s.recordPaid(records)
	return records, nil
}

func (s *CommissionService) recordPaid(records []*model.CommissionRecord) {
	for _, r := range records {
		metrics.CommissionPaid.Add(float64(r.Amount))
	}
}

func (s *CommissionService) ForOrder(ctx context.Context, orderID string) ([]*model.CommissionRecord, error) {
	return s.ledger.Store().Commissions.ListByOrder(ctx, orderID)
}

func (s *CommissionService) History(ctx context.Context, accountID uint64, page model.Page) ([]*model.CommissionRecord, int64, error) {
	return s.ledger.Store().Commissions.ListByRecipient(ctx, accountID, page)
}

func (s *CommissionService) CurrentRates(ctx context.Context) (*model.RateTable, error) {
	return s.ledger.Store().Rates.Latest(ctx)
}

// RateHistory lists every published rate table, newest first.
func (s *CommissionService) RateHistory(ctx context.Context) ([]*model.RateTable, error) {
	return s.ledger.Store().Rates.List(ctx)
}

// PublishRates stores a new rate table version. Orders created earlier keep
// the version they were priced with.
func (s *CommissionService) PublishRates(ctx context.Context, actor model.Actor, rates model.RateMap) (*model.RateTable, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: publishing rates requires an admin", model.ErrForbidden)
	}
	t := &model.RateTable{Rates: rates}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.ledger.Store().Rates.Append(ctx, t); err != nil {
		return nil, err
	}
	logging.For(ctx, s.log).Info().Int64("version", t.Version).Str("rates", t.Rates.String()).Str("total", t.Total().String()).Msg("rate table published")
	return t, nil
}

// EnsureRates seeds the first rate table when none exists.
func (s *CommissionService) EnsureRates(ctx context.Context, rates model.RateMap) (*model.RateTable, error) {
	t, err := s.CurrentRates(ctx)
	if err == nil {
		return t, nil
	}
	if !isNotFound(err) {
		return nil, err
	}
	return s.PublishRates(ctx, model.Actor{Role: model.RoleAdmin}, rates)
}
