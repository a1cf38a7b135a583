package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/crown_ledger/config"
	"github.com/crown_ledger/logging"
	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
	"github.com/crown_ledger/service"
)

// app holds the wired services shared by the subcommands.
type app struct {
	db          *gorm.DB
	store       *repository.Store
	ledger      *service.LedgerService
	members     *service.MembershipService
	commission  *service.CommissionService
	orders      *service.OrderService
	withdrawals *service.WithdrawService
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	db, err := repository.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	store := repository.NewStore(db)
	ledger := service.NewLedgerService(store, cfg.Ledger, logging.WithComponent(log, "ledger"))
	commission := service.NewCommissionService(ledger, cfg.Commission.MaxDepth, logging.WithComponent(log, "commission"))
	return &app{
		db:          db,
		store:       store,
		ledger:      ledger,
		members:     service.NewMembershipService(store, logging.WithComponent(log, "membership")),
		commission:  commission,
		orders:      service.NewOrderService(ledger, commission, logging.WithComponent(log, "orders")),
		withdrawals: service.NewWithdrawService(ledger, service.NewDestinationValidator(cfg.Withdraw.Denylist), logging.WithComponent(log, "withdrawals")),
	}, nil
}

// migrate creates the schema and seeds the first rate table.
func (a *app) migrate(ctx context.Context, defaultRates string) (*model.RateTable, error) {
	if err := repository.AutoMigrate(a.db); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	rates, err := model.ParseRates(defaultRates)
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_RATES: %w", err)
	}
	return a.commission.EnsureRates(ctx, rates)
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
