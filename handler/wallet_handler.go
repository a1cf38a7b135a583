package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crown_ledger/model"
	"github.com/crown_ledger/service"
)

// WalletHandler 面向会员的接口：订单、钱包、提现
type WalletHandler struct {
	ledger      *service.LedgerService
	orders      *service.OrderService
	commission  *service.CommissionService
	withdrawals *service.WithdrawService
}

func NewWalletHandler(ledger *service.LedgerService, orders *service.OrderService, commission *service.CommissionService, withdrawals *service.WithdrawService) *WalletHandler {
	return &WalletHandler{ledger: ledger, orders: orders, commission: commission, withdrawals: withdrawals}
}

type createOrderReq struct {
	SellerID uint64 `json:"seller_id" binding:"required"`
	Amount   int64  `json:"amount" binding:"required,gt=0"`
}

// POST /api/v1/orders
func (h *WalletHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	o, err := h.orders.CreateOrder(c.Request.Context(), ActorFrom(c), req.SellerID, req.Amount)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// GET /api/v1/orders
func (h *WalletHandler) ListOrders(c *gin.Context) {
	actor := ActorFrom(c)
	list, total, err := h.orders.ListOrders(c.Request.Context(), actor.AccountID, page(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "records": list})
}

// GET /api/v1/orders/:id
func (h *WalletHandler) GetOrder(c *gin.Context) {
	o, err := h.orders.GetOrder(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type transitionReq struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// POST /api/v1/orders/:id/transition
func (h *WalletHandler) TransitionOrder(c *gin.Context) {
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	o, err := h.orders.TransitionOrder(c.Request.Context(), c.Param("id"), req.Status, ActorFrom(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /api/v1/wallet
func (h *WalletHandler) GetBalance(c *gin.Context) {
	bal, err := h.ledger.GetBalance(c.Request.Context(), ActorFrom(c).AccountID)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

// GET /api/v1/wallet/entries
func (h *WalletHandler) ListEntries(c *gin.Context) {
	list, total, err := h.ledger.ListEntries(c.Request.Context(), ActorFrom(c).AccountID, page(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "records": list})
}

// GET /api/v1/wallet/commissions
func (h *WalletHandler) ListCommissions(c *gin.Context) {
	list, total, err := h.commission.History(c.Request.Context(), ActorFrom(c).AccountID, page(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "records": list})
}

type transferReq struct {
	ToAddress string `json:"to_address" binding:"required"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Memo      string `json:"memo" binding:"max=64"`
}

// POST /api/v1/wallet/transfer
func (h *WalletHandler) Transfer(c *gin.Context) {
	var req transferReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	bal, err := h.ledger.Transfer(c.Request.Context(), ActorFrom(c), req.ToAddress, req.Amount, req.Memo)
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

type withdrawReq struct {
	Amount          int64                 `json:"amount" binding:"required,gt=0"`
	DestinationType model.DestinationType `json:"destination_type" binding:"required"`
	Destination     string                `json:"destination" binding:"required"`
}

// POST /api/v1/withdrawals
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	var req withdrawReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	w, err := h.withdrawals.RequestWithdrawal(c.Request.Context(), ActorFrom(c), service.WithdrawalInput{
		Amount:          req.Amount,
		DestinationType: req.DestinationType,
		Destination:     req.Destination,
	})
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// GET /api/v1/withdrawals
func (h *WalletHandler) ListWithdrawals(c *gin.Context) {
	list, total, err := h.withdrawals.ListWithdrawals(c.Request.Context(), ActorFrom(c).AccountID, page(c))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"total": total, "records": list})
}

// GET /api/v1/withdrawals/:id
func (h *WalletHandler) GetWithdrawal(c *gin.Context) {
	w, err := h.withdrawals.Get(c.Request.Context(), ActorFrom(c), c.Param("id"))
	if err != nil {
		WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}
