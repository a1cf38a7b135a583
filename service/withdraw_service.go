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

// WithdrawService 提现流程：申请即冻结，审核通过后出款完成扣减，驳回则解冻
type WithdrawService struct {
	ledger      *LedgerService
	destination *DestinationValidator
	log         zerolog.Logger
}

func NewWithdrawService(ledger *LedgerService, destination *DestinationValidator, log zerolog.Logger) *WithdrawService {
	return &WithdrawService{ledger: ledger, destination: destination, log: log}
}

type WithdrawalInput struct {
	Amount          int64
	DestinationType model.DestinationType
	Destination     string
}

// RequestWithdrawal locks amount from the actor's available balance and
// records a pending request.
func (s *WithdrawService) RequestWithdrawal(ctx context.Context, actor model.Actor, in WithdrawalInput) (*model.WithdrawalRequest, error) {
	if actor.Role != model.RoleUser {
		return nil, fmt.Errorf("%w: withdrawals are requested by account holders", model.ErrForbidden)
	}
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", model.ErrInvalidArgument)
	}
	dest, err := s.destination.Validate(in.DestinationType, in.Destination)
	if err != nil {
		return nil, err
	}
	acc, err := s.ledger.Store().Accounts.Get(ctx, actor.AccountID)
	if err != nil {
		return nil, err
	}
	if !acc.Active {
		return nil, fmt.Errorf("%w: account %d", model.ErrAccountInactive, acc.ID)
	}

	req := &model.WithdrawalRequest{
		ID:              uuid.NewString(),
		AccountID:       actor.AccountID,
		Amount:          in.Amount,
		DestinationType: in.DestinationType,
		Destination:     dest,
		Status:          model.WithdrawalPending,
	}
	err = s.ledger.Run(ctx, func(tx *LedgerTx) error {
		if err := tx.LockAccounts(actor.AccountID); err != nil {
			return err
		}
		if err := tx.MoveBucket(actor.AccountID, in.Amount, model.BucketAvailable, model.BucketLocked, model.EntryWithdraw, req.ID); err != nil {
			return err
		}
		return tx.Store().Withdrawals.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	metrics.Withdrawals.WithLabelValues(string(req.Status)).Inc()
	logging.For(ctx, s.log).Info().Str("withdrawal_id", req.ID).Uint64("account_id", req.AccountID).Int64("amount", req.Amount).
		Str("destination_type", string(req.DestinationType)).Msg("withdrawal requested")
	return req, nil
}

type ProcessInput struct {
	Decision  model.Decision
	Reason    string
	PayoutRef string
}

func nextWithdrawalStatus(from model.WithdrawalStatus, d model.Decision) (model.WithdrawalStatus, bool) {
	if from.Terminal() {
		return "", false
	}
	switch {
	case from == model.WithdrawalPending && d == model.DecisionApprove:
		return model.WithdrawalApproved, true
	case from == model.WithdrawalPending && d == model.DecisionReject:
		return model.WithdrawalRejected, true
	case from == model.WithdrawalApproved && d == model.DecisionComplete:
		return model.WithdrawalCompleted, true
	}
	return "", false
}

func authorizeDecision(d model.Decision, actor model.Actor) error {
	switch d {
	case model.DecisionApprove, model.DecisionReject:
		if actor.IsAdmin() {
			return nil
		}
	case model.DecisionComplete:
		if actor.IsOperator() {
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot %s withdrawals", model.ErrForbidden, actor.Role, d)
}

// ProcessWithdrawal applies an operator decision. Reject returns the locked
// coin to available; complete removes it from the ledger for good.
func (s *WithdrawService) ProcessWithdrawal(ctx context.Context, id string, in ProcessInput, actor model.Actor) (*model.WithdrawalRequest, error) {
	if err := authorizeDecision(in.Decision, actor); err != nil {
		return nil, err
	}
	var result *model.WithdrawalRequest
	err := s.ledger.Run(ctx, func(tx *LedgerTx) error {
		req, err := tx.Store().Withdrawals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from := req.Status
		next, ok := nextWithdrawalStatus(from, in.Decision)
		if !ok {
			return fmt.Errorf("%w: withdrawal %s is %s, cannot %s", model.ErrInvalidStateTransition, id, from, in.Decision)
		}
		switch next {
		case model.WithdrawalRejected:
			if err := tx.LockAccounts(req.AccountID); err != nil {
				return err
			}
			if err := tx.MoveBucket(req.AccountID, req.Amount, model.BucketLocked, model.BucketAvailable, model.EntryWithdraw, req.ID); err != nil {
				return err
			}
			req.Reason = in.Reason
		case model.WithdrawalCompleted:
			if err := tx.LockAccounts(req.AccountID); err != nil {
				return err
			}
			if err := tx.Debit(req.AccountID, model.BucketLocked, req.Amount, model.EntryWithdraw, req.ID); err != nil {
				return err
			}
			req.PayoutRef = in.PayoutRef
		case model.WithdrawalApproved:
			req.Reason = in.Reason
		}
		now := time.Now().UTC()
		req.Status = next
		req.ProcessedAt = &now
		if actor.AccountID != 0 {
			by := actor.AccountID
			req.ProcessedBy = &by
		}
		if err := tx.Store().Withdrawals.UpdateStatus(ctx, req, from); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.Withdrawals.WithLabelValues(string(result.Status)).Inc()
	logging.For(ctx, s.log).Info().Str("withdrawal_id", id).Str("decision", string(in.Decision)).Str("status", string(result.Status)).
		Str("actor_role", string(actor.Role)).Msg("withdrawal processed")
	return result, nil
}

func (s *WithdrawService) Get(ctx context.Context, actor model.Actor, id string) (*model.WithdrawalRequest, error) {
	req, err := s.ledger.Store().Withdrawals.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsOperator() && actor.AccountID != req.AccountID {
		return nil, fmt.Errorf("%w: withdrawal %s", model.ErrForbidden, id)
	}
	return req, nil
}

func (s *WithdrawService) ListWithdrawals(ctx context.Context, accountID uint64, page model.Page) ([]*model.WithdrawalRequest, int64, error) {
	return s.ledger.Store().Withdrawals.ListByAccount(ctx, accountID, page)
}

// ListApproved feeds the payout processor, oldest first.
func (s *WithdrawService) ListApproved(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error) {
	return s.ledger.Store().Withdrawals.ListByStatus(ctx, model.WithdrawalApproved, limit)
}

