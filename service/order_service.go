package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/crown_ledger/logging"
	"github.com/crown_ledger/metrics"
	"github.com/crown_ledger/model"
)

// 订单状态机：允许的迁移
var orderTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderPending:   {model.OrderPaid, model.OrderCancelled, model.OrderRefunded},
	model.OrderPaid:      {model.OrderShipping, model.OrderCancelled, model.OrderDispute, model.OrderRefunded},
	model.OrderShipping:  {model.OrderDelivered, model.OrderCancelled, model.OrderDispute, model.OrderRefunded},
	model.OrderDelivered: {model.OrderConfirmed, model.OrderCancelled, model.OrderDispute, model.OrderRefunded},
	model.OrderDispute:   {model.OrderConfirmed, model.OrderRefunded},
}

func CanTransition(from, to model.OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// authorizeTransition decides who may move an order from one status to another.
func authorizeTransition(o *model.Order, from, to model.OrderStatus, actor model.Actor) error {
	buyer := actor.Role == model.RoleUser && actor.AccountID == o.BuyerID
	seller := actor.Role == model.RoleUser && actor.AccountID == o.SellerID
	admin := actor.IsAdmin()
	system := actor.Role == model.RoleSystem

	var ok bool
	switch to {
	case model.OrderPaid:
		ok = buyer
	case model.OrderShipping:
		ok = seller
	case model.OrderDelivered:
		ok = buyer || seller
	case model.OrderDispute:
		ok = buyer || seller
	case model.OrderConfirmed:
		if from == model.OrderDispute {
			ok = admin
		} else {
			ok = buyer || admin
		}
	case model.OrderRefunded:
		ok = admin || (system && from != model.OrderDispute)
	case model.OrderCancelled:
		if from == model.OrderPending || from == model.OrderPaid {
			ok = buyer || seller || admin || system
		} else {
			ok = seller || admin || system
		}
	}
	if !ok {
		return fmt.Errorf("%w: %s cannot move order %s from %s to %s", model.ErrForbidden, actor.Role, o.ID, from, to)
	}
	return nil
}

type OrderService struct {
	ledger     *LedgerService
	commission *CommissionService
	log        zerolog.Logger
}

func NewOrderService(ledger *LedgerService, commission *CommissionService, log zerolog.Logger) *OrderService {
	return &OrderService{ledger: ledger, commission: commission, log: log}
}

// CreateOrder prices an order with the current rate table. The fee and the
// rate version are fixed from here on.
func (s *OrderService) CreateOrder(ctx context.Context, actor model.Actor, sellerID uint64, amount int64) (*model.Order, error) {
	if actor.Role != model.RoleUser {
		return nil, fmt.Errorf("%w: orders are placed by users", model.ErrForbidden)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", model.ErrInvalidArgument)
	}
	if sellerID == actor.AccountID {
		return nil, fmt.Errorf("%w: buyer and seller are the same account", model.ErrInvalidArgument)
	}
	store := s.ledger.Store()
	for _, id := range []uint64{actor.AccountID, sellerID} {
		acc, err := store.Accounts.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !acc.Active {
			return nil, fmt.Errorf("%w: account %d", model.ErrAccountInactive, id)
		}
	}
	table, err := store.Rates.Latest(ctx)
	if err != nil {
		return nil, err
	}
	fee := table.FeeFor(amount)
	o := &model.Order{
		ID:           uuid.NewString(),
		BuyerID:      actor.AccountID,
		SellerID:     sellerID,
		Amount:       amount,
		FeeRate:      table.Total(),
		FeeAmount:    fee,
		SellerAmount: amount - fee,
		RateVersion:  table.Version,
		Status:       model.OrderPending,
	}
	if err := store.Orders.Create(ctx, o); err != nil {
		return nil, err
	}
	logging.For(ctx, s.log).Info().Str("order_id", o.ID).Uint64("buyer_id", o.BuyerID).Uint64("seller_id", o.SellerID).
		Int64("amount", amount).Int64("fee", fee).Int64("rate_version", table.Version).Msg("order created")
	return o, nil
}

// GetOrder is visible to the two parties and to operators.
func (s *OrderService) GetOrder(ctx context.Context, actor model.Actor, id string) (*model.Order, error) {
	o, err := s.ledger.Store().Orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsOperator() && actor.AccountID != o.BuyerID && actor.AccountID != o.SellerID {
		return nil, fmt.Errorf("%w: order %s", model.ErrForbidden, id)
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, accountID uint64, page model.Page) ([]*model.Order, int64, error) {
	return s.ledger.Store().Orders.ListByAccount(ctx, accountID, page)
}

// TransitionOrder moves an order to target and applies its ledger effect in
// the same transaction. On any failure the order keeps its old status and no
// balance changes.
func (s *OrderService) TransitionOrder(ctx context.Context, orderID string, target model.OrderStatus, actor model.Actor) (*model.Order, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: status %q", model.ErrInvalidArgument, target)
	}
	var (
		result  *model.Order
		from    model.OrderStatus
		records []*model.CommissionRecord
	)
	err := s.ledger.Run(ctx, func(tx *LedgerTx) error {
		records = nil
		o, err := tx.Store().Orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		if from.Terminal() || !CanTransition(from, target) {
			return fmt.Errorf("%w: order %s %s -> %s", model.ErrInvalidStateTransition, o.ID, from, target)
		}
		if err := authorizeTransition(o, from, target, actor); err != nil {
			return err
		}

		switch target {
		case model.OrderPaid:
			if err := tx.LockAccounts(o.BuyerID); err != nil {
				return err
			}
			if err := tx.MoveBucket(o.BuyerID, o.Amount, model.BucketAvailable, model.BucketPending, model.EntryEscrowLock, o.ID); err != nil {
				return err
			}
		case model.OrderCancelled, model.OrderRefunded:
			if from.Funded() {
				if err := tx.LockAccounts(o.BuyerID); err != nil {
					return err
				}
				if err := tx.MoveBucket(o.BuyerID, o.Amount, model.BucketPending, model.BucketAvailable, model.EntryEscrowRelease, o.ID); err != nil {
					return err
				}
			}
		case model.OrderConfirmed:
			if records, err = s.settle(tx, o); err != nil {
				return err
			}
			now := time.Now().UTC()
			o.SettledAt = &now
		case model.OrderShipping, model.OrderDelivered, model.OrderDispute:
			// status only
		}

		o.Status = target
		if err := tx.Store().Orders.UpdateStatus(ctx, o, from); err != nil {
			return err
		}
		result = o
		return nil
	})
	if err != nil {
		logging.For(ctx, s.log).Warn().Err(err).Str("order_id", orderID).Str("target", string(target)).
			Str("actor_role", string(actor.Role)).Uint64("actor_id", actor.AccountID).Msg("order transition rejected")
		return nil, err
	}
	metrics.OrderTransitions.WithLabelValues(string(target)).Inc()
	s.commission.recordPaid(records)
	logging.For(ctx, s.log).Info().Str("order_id", orderID).Str("from", string(from)).Str("to", string(target)).
		Uint64("actor_id", actor.AccountID).Msg("order transitioned")
	return result, nil
}

// settle releases escrow to the seller and distributes the fee. Every wallet
// involved is locked in one call before any write.
func (s *OrderService) settle(tx *LedgerTx, o *model.Order) ([]*model.CommissionRecord, error) {
	plan, err := s.commission.Plan(tx.Context(), tx.Store(), o)
	if err != nil {
		return nil, err
	}
	ids := append([]uint64{o.BuyerID, o.SellerID}, plan.AccountIDs()...)
	if err := tx.LockAccounts(ids...); err != nil {
		return nil, err
	}
	if err := tx.Debit(o.BuyerID, model.BucketPending, o.Amount, model.EntryPurchase, o.ID); err != nil {
		return nil, err
	}
	if o.SellerAmount > 0 {
		if err := tx.Credit(o.SellerID, model.BucketAvailable, o.SellerAmount, model.EntrySale, o.ID); err != nil {
			return nil, err
		}
	}
	return s.commission.Apply(tx, plan)
}
