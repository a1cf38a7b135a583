package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/crown_ledger/controller"
	"github.com/crown_ledger/handler"
	"github.com/crown_ledger/logging"
	"github.com/crown_ledger/metrics"
	"github.com/crown_ledger/router"
	"github.com/crown_ledger/service"
)

var cmdServe = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when configured, the payout processor",
	RunE:  serve,
}

func init() {
	cmdRoot.AddCommand(cmdServe)
}

func serve(cmd *cobra.Command, args []string) error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required to serve")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, rootLog)
	if err != nil {
		return err
	}
	defer a.close()
	if _, err := a.migrate(ctx, cfg.Commission.DefaultRates); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(reg); err != nil {
		return err
	}

	if cfg.Withdraw.PayoutURL != "" {
		payout, err := service.NewWebhookPayout(cfg.Withdraw.PayoutURL, cfg.Withdraw.PayoutKey, cfg.Withdraw.PayoutTimeout)
		if err != nil {
			return err
		}
		plog := logging.WithComponent(rootLog, "payout")
		if addr := payout.SignerAddress(); addr != "" {
			plog.Info().Str("signer", addr).Msg("payout requests are signed")
		}
		proc := service.NewPayoutProcessor(a.withdrawals, payout, cfg.Withdraw.PayoutInterval, cfg.Withdraw.PayoutBatchSize, plog)
		go proc.Run(ctx)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := router.SetupRouter(router.Options{
		Log:         logging.WithComponent(rootLog, "http"),
		Tokens:      handler.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Gatherer:    reg,
		CORSOrigins: cfg.CORSOrigins,
	},
		handler.NewWalletHandler(a.ledger, a.orders, a.commission, a.withdrawals),
		&controller.AdminController{
			Members:     a.members,
			Ledger:      a.ledger,
			Orders:      a.orders,
			Commission:  a.commission,
			Withdrawals: a.withdrawals,
			MaxDepth:    cfg.Commission.MaxDepth,
		},
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		rootLog.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	rootLog.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
