package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/crown_ledger/model"
)

// PayoutProcessor polls approved withdrawals, pays them out and marks them
// completed as the system actor.
type PayoutProcessor struct {
	withdrawals *WithdrawService
	payout      Payout
	interval    time.Duration
	batch       int
	log         zerolog.Logger
}

func NewPayoutProcessor(withdrawals *WithdrawService, payout Payout, interval time.Duration, batch int, log zerolog.Logger) *PayoutProcessor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &PayoutProcessor{withdrawals: withdrawals, payout: payout, interval: interval, batch: batch, log: log}
}

// ProcessBatch handles one poll and returns how many withdrawals completed.
func (p *PayoutProcessor) ProcessBatch(ctx context.Context) (int, error) {
	list, err := p.withdrawals.ListApproved(ctx, p.batch)
	if err != nil {
		return 0, err
	}
	done := 0
	for _, w := range list {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		ref, err := p.payout.Send(ctx, w)
		if err != nil {
			// stays approved; retried next poll under the same idempotency key
			p.log.Warn().Err(err).Str("withdrawal_id", w.ID).Msg("payout failed")
			continue
		}
		_, err = p.withdrawals.ProcessWithdrawal(ctx, w.ID, ProcessInput{
			Decision:  model.DecisionComplete,
			PayoutRef: ref,
		}, model.SystemActor())
		if err != nil {
			p.log.Error().Err(err).Bool("alert", true).Str("withdrawal_id", w.ID).Str("payout_ref", ref).
				Msg("payout sent but completion failed")
			continue
		}
		done++
	}
	return done, nil
}

func (p *PayoutProcessor) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	p.log.Info().Dur("interval", p.interval).Int("batch", p.batch).Msg("payout processor started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("payout processor stopped")
			return
		case <-t.C:
			n, err := p.ProcessBatch(ctx)
			if err != nil && ctx.Err() == nil {
				p.log.Error().Err(err).Msg("payout batch failed")
				continue
			}
			if n > 0 {
				p.log.Info().Int("completed", n).Msg("payout batch done")
			}
		}
	}
}
