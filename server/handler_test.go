package server

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

	"trade-bridge-go/config"
	"trade-bridge-go/contract"
	"trade-bridge-go/engine"
	"trade-bridge-go/order"
)

type stubExecutor struct {
	req     engine.Request
	summary engine.Summary
	err     error
	calls   int
}

func (s *stubExecutor) Execute(ctx context.Context, req engine.Request) (engine.Summary, error) {
	s.req = req
	s.calls++
	return s.summary, s.err
}

type stubHealth struct{ healthy bool }

func (s stubHealth) Healthy() bool { return s.healthy }

type stubLogs struct{ lines []string }

func (s stubLogs) Lines() []string { return s.lines }

func newTestHandler(exec *stubExecutor, healthy bool) (*Handler, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	h := &Handler{
		Secret: "s3cret",
		Defaults: config.TradingConfig{
			DefaultSecType:  "CASH",
			DefaultExchange: "IDEALPRO",
			DefaultCurrency: "USD",
		},
		Engine:  exec,
		Session: stubHealth{healthy: healthy},
		Status:  engine.NewStatus(),
		Logs:    stubLogs{lines: []string{"line1", "line2"}},
	}
	return h, NewRouter(h)
}

func postWebhook(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookUnauthorized(t *testing.T) {
	exec := &stubExecutor{}
	_, r := newTestHandler(exec, true)

	w := postWebhook(r, `{"secret":"wrong","action":"BUY","symbol":"EURUSD"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, exec.calls)
}

func TestWebhookMalformedPayload(t *testing.T) {
	exec := &stubExecutor{}
	_, r := newTestHandler(exec, true)

	w := postWebhook(r, `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, exec.calls)
}

func TestWebhookUnknownAction(t *testing.T) {
	exec := &stubExecutor{}
	_, r := newTestHandler(exec, true)

	w := postWebhook(r, `{"secret":"s3cret","action":"HOLD","symbol":"EURUSD"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, exec.calls)
}

func TestWebhookSuccess(t *testing.T) {
	exec := &stubExecutor{summary: engine.Summary{Message: "order submitted", OrderID: 42, VenueStatus: "Submitted"}}
	_, r := newTestHandler(exec, true)

	w := postWebhook(r, `{"secret":"s3cret","action":"BUY","symbol":"EURUSD","volume":1000,"sl":"1.05","tp":1.20}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.Equal(t, float64(42), resp["order_id"])
	assert.Equal(t, "Submitted", resp["status_ib"])

	// 缺省字段用配置补齐；字符串价格被接受。
	assert.Equal(t, engine.ActionBuy, exec.req.Action)
	assert.Equal(t, contract.SecCash, exec.req.SecType)
	assert.Equal(t, "IDEALPRO", exec.req.Exchange)
	assert.Equal(t, 1000.0, exec.req.Quantity)
	assert.Equal(t, 1.05, exec.req.StopLoss)
	assert.Equal(t, 1.20, exec.req.TakeProfit)
	assert.Equal(t, order.TypeMarket, exec.req.OrderType)
}

func TestWebhookEngineErrorEnvelope(t *testing.T) {
	exec := &stubExecutor{err: &engine.ExecError{Msg: "resolution failure"}}
	_, r := newTestHandler(exec, true)

	w := postWebhook(r, `{"secret":"s3cret","action":"BUY","symbol":"MNQ","secType":"FUT"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "error", resp["status"])
	assert.Contains(t, resp["message"], "resolution failure")
}

func TestHealthEndpoint(t *testing.T) {
	_, r := newTestHandler(&stubExecutor{}, true)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	_, r = newTestHandler(&stubExecutor{}, false)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatusEndpoint(t *testing.T) {
	h, r := newTestHandler(&stubExecutor{}, true)
	h.Status.RecordTrade("BUY 1000.00 EURUSD @ 12:00:00")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		State engine.Snapshot `json:"state"`
		Logs  []string        `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.State.Connected)
	assert.Contains(t, resp.State.LastTrade, "EURUSD")
	assert.Len(t, resp.Logs, 2)
}
