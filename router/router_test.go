package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crown_ledger/config"
	"github.com/crown_ledger/controller"
	"github.com/crown_ledger/handler"
	"github.com/crown_ledger/metrics"
	"github.com/crown_ledger/model"
	"github.com/crown_ledger/repository"
	"github.com/crown_ledger/service"
	"github.com/crown_ledger/testutil"
)

type api struct {
	t      *testing.T
	engine *gin.Engine
	tokens *handler.TokenManager
	store  *repository.Store
	admin  string
}

func newAPI(t *testing.T) *api {
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()
	store := repository.NewStore(testutil.NewDB(t))
	ledger := service.NewLedgerService(store, config.LedgerConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond}, log)
	commission := service.NewCommissionService(ledger, 10, log)
	rates, err := model.ParseRates("SUPER_ADMIN=0.5,CROWN=1.5,DIAMOND=1.0,GOLD=0.75,SILVER=0.25")
	require.NoError(t, err)
	_, err = commission.EnsureRates(context.Background(), rates)
	require.NoError(t, err)

	members := service.NewMembershipService(store, log)
	orders := service.NewOrderService(ledger, commission, log)
	withdrawals := service.NewWithdrawService(ledger, service.NewDestinationValidator(nil), log)

	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	tokens := handler.NewTokenManager("test-secret", time.Hour)
	engine := SetupRouter(Options{Log: log, Tokens: tokens, Gatherer: reg},
		handler.NewWalletHandler(ledger, orders, commission, withdrawals),
		&controller.AdminController{Members: members, Ledger: ledger, Orders: orders, Commission: commission, Withdrawals: withdrawals, MaxDepth: 10},
	)
	adminTok, err := tokens.Issue(model.Actor{Role: model.RoleAdmin})
	require.NoError(t, err)
	return &api{t: t, engine: engine, tokens: tokens, store: store, admin: adminTok}
}

func (a *api) userToken(id uint64) string {
	tok, err := a.tokens.Issue(model.Actor{AccountID: id, Role: model.RoleUser})
	require.NoError(a.t, err)
	return tok
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	out := map[string]any{}
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w.Code, out
}

func (a *api) onboard(grade string, upline uint64) uint64 {
	body := map[string]any{"grade": grade, "country": "SG"}
	if upline != 0 {
		body["upline_id"] = upline
	}
	code, out := a.do(http.MethodPost, "/api/v1/admin/accounts", a.admin, body)
	require.Equal(a.t, http.StatusCreated, code, out)
	acc := out["account"].(map[string]any)
	return uint64(acc["id"].(float64))
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)
	code, out := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crown_ledger_retries_total")
}

func TestOrderFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	sa := a.onboard("SUPER_ADMIN", 0)
	crown := a.onboard("CROWN", sa)
	diamond := a.onboard("DIAMOND", crown)
	gold := a.onboard("GOLD", diamond)
	silver := a.onboard("SILVER", gold)
	seller := a.onboard("BRONZE", silver)
	buyer := a.onboard("BRONZE", silver)

	code, _ := a.do(http.MethodPost, "/api/v1/admin/deposits", a.admin, map[string]any{"account_id": buyer, "amount": 500})
	require.Equal(t, http.StatusOK, code)

	bt := a.userToken(buyer)
	code, out := a.do(http.MethodPost, "/api/v1/orders", bt, map[string]any{"seller_id": seller, "amount": 1000})
	require.Equal(t, http.StatusCreated, code, out)
	orderID := out["id"].(string)

	code, out = a.do(http.MethodPost, "/api/v1/orders/"+orderID+"/transition", bt, map[string]any{"status": "PAID"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INSUFFICIENT_FUNDS", out["code"])

	code, out = a.do(http.MethodGet, "/api/v1/orders/"+orderID, bt, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "PENDING", out["status"])

	code, _ = a.do(http.MethodPost, "/api/v1/admin/deposits", a.admin, map[string]any{"account_id": buyer, "amount": 500})
	require.Equal(t, http.StatusOK, code)

	st := a.userToken(seller)
	steps := []struct {
		token, status string
	}{{bt, "PAID"}, {st, "SHIPPING"}, {bt, "DELIVERED"}, {bt, "CONFIRMED"}}
	for _, s := range steps {
		code, out = a.do(http.MethodPost, "/api/v1/orders/"+orderID+"/transition", s.token, map[string]any{"status": s.status})
		require.Equal(t, http.StatusOK, code, "%s: %v", s.status, out)
	}

	code, out = a.do(http.MethodGet, "/api/v1/wallet", st, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(960), out["available"])

	code, out = a.do(http.MethodGet, "/api/v1/wallet/commissions", a.userToken(crown), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["total"])

	code, out = a.do(http.MethodGet, "/api/v1/admin/orders/"+orderID+"/commissions", a.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["records"], 5)

	code, out = a.do(http.MethodPost, "/api/v1/admin/reconcile", a.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(7), out["checked"])
	assert.Empty(t, out["mismatched"])
}

func TestWithdrawalOverHTTP(t *testing.T) {
	a := newAPI(t)
	sa := a.onboard("SUPER_ADMIN", 0)
	a.do(http.MethodPost, "/api/v1/admin/deposits", a.admin, map[string]any{"account_id": sa, "amount": 1000})
	ut := a.userToken(sa)

	code, out := a.do(http.MethodPost, "/api/v1/withdrawals", ut, map[string]any{
		"amount": 400, "destination_type": "ethereum", "destination": "0x52908400098527886e0f7030069857d2e4169ee7",
	})
	require.Equal(t, http.StatusCreated, code, out)
	id := out["id"].(string)

	code, out = a.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/withdrawals/%s/decision", id), ut, map[string]any{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, code)

	code, out = a.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/withdrawals/%s/decision", id), a.admin, map[string]any{"decision": "reject", "reason": "limits"})
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "rejected", out["status"])

	code, out = a.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/withdrawals/%s/decision", id), a.admin, map[string]any{"decision": "complete"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "INVALID_STATE_TRANSITION", out["code"])

	code, out = a.do(http.MethodGet, "/api/v1/wallet", ut, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1000), out["available"])
	assert.Equal(t, float64(0), out["locked"])

	code, out = a.do(http.MethodPost, "/api/v1/withdrawals", ut, map[string]any{"amount": 1, "destination_type": "ethereum", "destination": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "INVALID_ARGUMENT", out["code"])
}

func TestAdminRoutesNeedOperator(t *testing.T) {
	a := newAPI(t)
	sa := a.onboard("SUPER_ADMIN", 0)

	code, _ := a.do(http.MethodPost, "/api/v1/admin/deposits", a.userToken(sa), map[string]any{"account_id": sa, "amount": 5})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = a.do(http.MethodGet, "/api/v1/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, out := a.do(http.MethodPost, "/api/v1/admin/rates", a.admin, map[string]any{"rates": map[string]string{"SUPER_ADMIN": "1", "CROWN": "2"}})
	require.Equal(t, http.StatusCreated, code, out)
	assert.Equal(t, float64(2), out["version"])

	code, out = a.do(http.MethodGet, "/api/v1/admin/accounts/abc", a.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, out = a.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/accounts/%d/upline", sa), a.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), out["root_depth"])
}

func TestWalletLookupAndReconcileOne(t *testing.T) {
	a := newAPI(t)
	code, out := a.do(http.MethodPost, "/api/v1/admin/accounts", a.admin, map[string]any{"grade": "SUPER_ADMIN", "country": "SG"})
	require.Equal(t, http.StatusCreated, code, out)
	sa := uint64(out["account"].(map[string]any)["id"].(float64))
	address := out["address"].(string)
	a.onboard("CROWN", sa)
	a.do(http.MethodPost, "/api/v1/admin/deposits", a.admin, map[string]any{"account_id": sa, "amount": 50})

	code, out = a.do(http.MethodGet, "/api/v1/admin/wallets/"+strings.ToLower(address), a.admin, nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, address, out["address"])
	assert.Equal(t, float64(sa), out["account_id"])
	walletID := uint64(out["wallet_id"].(float64))

	code, out = a.do(http.MethodGet, "/api/v1/admin/wallets/not-an-address", a.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = a.do(http.MethodGet, fmt.Sprintf("/api/v1/admin/accounts/%d", sa), a.admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), out["downline"])

	path := fmt.Sprintf("/api/v1/admin/reconcile?wallet_id=%d", walletID)
	code, out = a.do(http.MethodPost, path, a.admin, nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, float64(1), out["checked"])
	assert.Empty(t, out["mismatched"])

	require.NoError(t, a.store.DB().Model(&model.Wallet{}).Where("id=?", walletID).Update("available", 900).Error)
	code, out = a.do(http.MethodPost, path, a.admin, nil)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, []any{float64(walletID)}, out["mismatched"])

	code, out = a.do(http.MethodPost, "/api/v1/admin/reconcile?wallet_id=999", a.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", out["code"])
}

func TestRateHistory(t *testing.T) {
	a := newAPI(t)
	code, out := a.do(http.MethodPost, "/api/v1/admin/rates", a.admin, map[string]any{"rates": map[string]string{"SUPER_ADMIN": "1", "CROWN": "3"}})
	require.Equal(t, http.StatusCreated, code, out)

	code, out = a.do(http.MethodGet, "/api/v1/admin/rates/history", a.admin, nil)
	require.Equal(t, http.StatusOK, code)
	tables := out["tables"].([]any)
	require.Len(t, tables, 2)
	assert.Equal(t, float64(2), tables[0].(map[string]any)["version"])
	assert.Equal(t, float64(1), tables[1].(map[string]any)["version"])
}
