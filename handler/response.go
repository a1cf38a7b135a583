package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crown_ledger/logging"
	"github.com/crown_ledger/model"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFor(code string) int {
	switch code {
	case "INSUFFICIENT_FUNDS", "INVALID_STATE_TRANSITION", "CONCURRENT_MODIFICATION":
		return http.StatusConflict
	case "FORBIDDEN", "ACCOUNT_INACTIVE":
		return http.StatusForbidden
	case "NOT_FOUND":
		return http.StatusNotFound
	case "INVALID_ARGUMENT":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError maps a service error onto the response. Internal failures are
// logged in full and reported without detail.
func WriteError(c *gin.Context, err error) {
	if !model.IsUserError(err) {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Code: "INTERNAL", Message: "internal error"})
		return
	}
	code := model.ReasonCode(err)
	c.AbortWithStatusJSON(statusFor(code), errorBody{Code: code, Message: err.Error()})
}

func bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Code: "INVALID_ARGUMENT", Message: err.Error()})
}

func page(c *gin.Context) model.Page {
	var p model.Page
	_ = c.ShouldBindQuery(&p)
	return p.Normalize()
}
