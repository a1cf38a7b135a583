package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/crown_ledger/controller"
	"github.com/crown_ledger/handler"
	"github.com/crown_ledger/logging"
)

type Options struct {
	Log         zerolog.Logger
	Tokens      *handler.TokenManager
	Gatherer    prometheus.Gatherer
	CORSOrigins []string
}

func SetupRouter(opts Options, walletHandler *handler.WalletHandler, admin *controller.AdminController) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logging.Middleware(opts.Log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost},
			AllowHeaders:  []string{"Authorization", "Content-Type", logging.TraceHeader},
			ExposeHeaders: []string{logging.TraceHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if opts.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1", handler.Authenticate(opts.Tokens))
	{
		api.POST("/orders", walletHandler.CreateOrder)
		api.GET("/orders", walletHandler.ListOrders)
		api.GET("/orders/:id", walletHandler.GetOrder)
		api.POST("/orders/:id/transition", walletHandler.TransitionOrder)

		api.GET("/wallet", walletHandler.GetBalance)
		api.GET("/wallet/entries", walletHandler.ListEntries)
		api.GET("/wallet/commissions", walletHandler.ListCommissions)
		api.POST("/wallet/transfer", walletHandler.Transfer)

		api.POST("/withdrawals", walletHandler.RequestWithdrawal)
		api.GET("/withdrawals", walletHandler.ListWithdrawals)
		api.GET("/withdrawals/:id", walletHandler.GetWithdrawal)
	}

	ops := api.Group("/admin", handler.RequireOperator())
	{
		ops.POST("/accounts", admin.Onboard)
		ops.GET("/accounts/:id", admin.GetAccount)
		ops.GET("/accounts/:id/upline", admin.GetUpline)
		ops.POST("/accounts/:id/deactivate", admin.Deactivate)
		ops.GET("/wallets/:address", admin.ResolveWallet)
		ops.POST("/deposits", admin.Deposit)
		ops.POST("/withdrawals/:id/decision", admin.DecideWithdrawal)
		ops.POST("/orders/:id/resolve", admin.ResolveOrder)
		ops.POST("/orders/:id/distribute", admin.Distribute)
		ops.GET("/orders/:id/commissions", admin.OrderCommissions)
		ops.GET("/rates", admin.CurrentRates)
		ops.GET("/rates/history", admin.RateHistory)
		ops.POST("/rates", admin.PublishRates)
		ops.POST("/reconcile", admin.Reconcile)
	}

	return r
}
