package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crown_ledger/config"
)

func TestNewLevelFallback(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LogConfig{Level: "nonsense", Format: "json"}, &buf)
	l.Debug().Msg("hidden")
	l.Info().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := WithComponent(New(config.LogConfig{Level: "debug"}, &buf), "ledger")
	l.Info().Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ledger", line["component"])
	assert.Equal(t, "crown-ledger", line["service"])
}

func TestMiddlewareTraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	base := New(config.LogConfig{Level: "info"}, &buf)

	r := gin.New()
	r.Use(Middleware(base))
	r.GET("/ping", func(c *gin.Context) {
		Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(TraceHeader, "trace-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "trace-1", w.Header().Get(TraceHeader))
	assert.Contains(t, buf.String(), `"trace_id":"trace-1"`)
	assert.Contains(t, buf.String(), `"msg":"inside"`)
}

func TestForAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	base := WithComponent(New(config.LogConfig{Level: "info"}, &buf), "orders")

	For(context.Background(), base).Info().Msg("plain")
	For(WithTraceID(context.Background(), "trace-7"), base).Info().Msg("traced")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var plain, traced map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &plain))
	require.NoError(t, json.Unmarshal(lines[1], &traced))
	assert.NotContains(t, plain, "trace_id")
	assert.Equal(t, "trace-7", traced["trace_id"])
	assert.Equal(t, "orders", traced["component"])
}
