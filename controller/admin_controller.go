package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/crown_ledger/handler"
	"github.com/crown_ledger/model"
	"github.com/crown_ledger/service"
)

// AdminController 运营后台接口，路由层要求 admin/system 角色
type AdminController struct {
	Members     *service.MembershipService
	Ledger      *service.LedgerService
	Orders      *service.OrderService
	Commission  *service.CommissionService
	Withdrawals *service.WithdrawService
	MaxDepth    int
}

func pathID(ctx *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		handler.WriteError(ctx, fmt.Errorf("%w: invalid id", model.ErrInvalidArgument))
		return 0, false
	}
	return id, true
}

type onboardReq struct {
	Grade    string  `json:"grade" binding:"required"`
	UplineID *uint64 `json:"upline_id"`
	Country  string  `json:"country" binding:"required,len=2"`
}

// POST /api/v1/admin/accounts
func (c *AdminController) Onboard(ctx *gin.Context) {
	var req onboardReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		handler.WriteError(ctx, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err))
		return
	}
	grade, err := model.ParseGrade(req.Grade)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	acc, wallet, err := c.Members.Onboard(ctx.Request.Context(), handler.ActorFrom(ctx), service.OnboardInput{
		Grade:    grade,
		UplineID: req.UplineID,
		Country:  req.Country,
	})
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"account": acc, "address": wallet.Address})
}

// GET /api/v1/admin/accounts/:id
func (c *AdminController) GetAccount(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	acc, err := c.Members.Get(ctx.Request.Context(), id)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	bal, err := c.Ledger.GetBalance(ctx.Request.Context(), id)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	downline, err := c.Members.DownlineCount(ctx.Request.Context(), id)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"account": acc, "balance": bal, "downline": downline})
}

// GET /api/v1/admin/wallets/:address
func (c *AdminController) ResolveWallet(ctx *gin.Context) {
	w, err := c.Members.ResolveAddress(ctx.Request.Context(), ctx.Param("address"))
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	bal, err := c.Ledger.GetBalance(ctx.Request.Context(), w.AccountID)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"wallet_id": w.ID, "account_id": w.AccountID, "address": w.Address, "balance": bal})
}

// GET /api/v1/admin/accounts/:id/upline
func (c *AdminController) GetUpline(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	chain, err := c.Members.UplineChain(ctx.Request.Context(), id, c.MaxDepth)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ancestors := make([]gin.H, 0, len(chain.Ancestors))
	for _, a := range chain.Ancestors {
		ancestors = append(ancestors, gin.H{"depth": a.Depth, "account": a.Account})
	}
	ctx.JSON(http.StatusOK, gin.H{"ancestors": ancestors, "root": chain.Root, "root_depth": chain.RootDepth})
}

// POST /api/v1/admin/accounts/:id/deactivate
func (c *AdminController) Deactivate(ctx *gin.Context) {
	id, ok := pathID(ctx)
	if !ok {
		return
	}
	if err := c.Members.Deactivate(ctx.Request.Context(), handler.ActorFrom(ctx), id); err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

type depositReq struct {
	AccountID uint64 `json:"account_id" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Ref       string `json:"ref" binding:"max=64"`
}

// POST /api/v1/admin/deposits
func (c *AdminController) Deposit(ctx *gin.Context) {
	var req depositReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		handler.WriteError(ctx, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err))
		return
	}
	bal, err := c.Ledger.Deposit(ctx.Request.Context(), handler.ActorFrom(ctx), req.AccountID, req.Amount, req.Ref)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, bal)
}

type decisionReq struct {
	Decision  model.Decision `json:"decision" binding:"required,oneof=approve reject complete"`
	Reason    string         `json:"reason" binding:"max=256"`
	PayoutRef string         `json:"payout_ref" binding:"max=128"`
}

// POST /api/v1/admin/withdrawals/:id/decision
func (c *AdminController) DecideWithdrawal(ctx *gin.Context) {
	var req decisionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		handler.WriteError(ctx, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err))
		return
	}
	w, err := c.Withdrawals.ProcessWithdrawal(ctx.Request.Context(), ctx.Param("id"), service.ProcessInput{
		Decision:  req.Decision,
		Reason:    req.Reason,
		PayoutRef: req.PayoutRef,
	}, handler.ActorFrom(ctx))
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, w)
}

type resolveReq struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// POST /api/v1/admin/orders/:id/resolve
func (c *AdminController) ResolveOrder(ctx *gin.Context) {
	var req resolveReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		handler.WriteError(ctx, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err))
		return
	}
	o, err := c.Orders.TransitionOrder(ctx.Request.Context(), ctx.Param("id"), req.Status, handler.ActorFrom(ctx))
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, o)
}

// POST /api/v1/admin/orders/:id/distribute
func (c *AdminController) Distribute(ctx *gin.Context) {
	records, err := c.Commission.DistributeOrder(ctx.Request.Context(), handler.ActorFrom(ctx), ctx.Param("id"))
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"records": records})
}

// GET /api/v1/admin/orders/:id/commissions
func (c *AdminController) OrderCommissions(ctx *gin.Context) {
	records, err := c.Commission.ForOrder(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"records": records})
}

// GET /api/v1/admin/rates
func (c *AdminController) CurrentRates(ctx *gin.Context) {
	t, err := c.Commission.CurrentRates(ctx.Request.Context())
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"version": t.Version, "rates": t.Rates, "total": t.Total()})
}

// GET /api/v1/admin/rates/history
func (c *AdminController) RateHistory(ctx *gin.Context) {
	tables, err := c.Commission.RateHistory(ctx.Request.Context())
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	out := make([]gin.H, 0, len(tables))
	for _, t := range tables {
		out = append(out, gin.H{"version": t.Version, "rates": t.Rates, "total": t.Total(), "created_at": t.CreatedAt})
	}
	ctx.JSON(http.StatusOK, gin.H{"tables": out})
}

type ratesReq struct {
	Rates model.RateMap `json:"rates" binding:"required"`
}

// POST /api/v1/admin/rates
func (c *AdminController) PublishRates(ctx *gin.Context) {
	var req ratesReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		handler.WriteError(ctx, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err))
		return
	}
	t, err := c.Commission.PublishRates(ctx.Request.Context(), handler.ActorFrom(ctx), req.Rates)
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"version": t.Version, "rates": t.Rates, "total": t.Total()})
}

type reconcileReq struct {
	WalletID uint64 `form:"wallet_id"`
}

// POST /api/v1/admin/reconcile[?wallet_id=]
func (c *AdminController) Reconcile(ctx *gin.Context) {
	var req reconcileReq
	if err := ctx.ShouldBindQuery(&req); err != nil {
		handler.WriteError(ctx, fmt.Errorf("%w: %v", model.ErrInvalidArgument, err))
		return
	}
	if req.WalletID != 0 {
		err := c.Ledger.Reconcile(ctx.Request.Context(), req.WalletID)
		switch {
		case err == nil:
			ctx.JSON(http.StatusOK, gin.H{"checked": 1, "mismatched": []uint64{}})
		case errors.Is(err, model.ErrLedgerMismatch):
			ctx.JSON(http.StatusOK, gin.H{"checked": 1, "mismatched": []uint64{req.WalletID}})
		default:
			handler.WriteError(ctx, err)
		}
		return
	}
	checked, mismatched, err := c.Ledger.ReconcileAll(ctx.Request.Context())
	if err != nil {
		handler.WriteError(ctx, err)
		return
	}
	if mismatched == nil {
		mismatched = []uint64{}
	}
	ctx.JSON(http.StatusOK, gin.H{"checked": checked, "mismatched": mismatched})
}
