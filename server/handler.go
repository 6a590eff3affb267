package server

import (
	"bytes"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trade-bridge-go/config"
	"trade-bridge-go/contract"
	"trade-bridge-go/engine"
	"trade-bridge-go/metrics"
	"trade-bridge-go/order"
)

// Executor 执行一条已认证的交易请求。
type Executor interface {
	Execute(ctx context.Context, req engine.Request) (engine.Summary, error)
}

// Health 报告网关会话活性。
type Health interface {
	Healthy() bool
}

// LogSource 提供最近的日志行。
type LogSource interface {
	Lines() []string
}

// Handler 是 webhook/health/status 三个端点的 HTTP 处理器。
// 鉴权（共享密钥）在这里完成，核心只见到强类型请求。
type Handler struct {
	Secret   string
	Defaults config.TradingConfig
	Engine   Executor
	Session  Health
	Status   *engine.Status
	Logs     LogSource
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// NewRouter 将处理器方法绑定到 Gin 路由引擎。
func NewRouter(h *Handler) *gin.Engine {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/webhook", h.Webhook)
	r.GET("/health", h.Health)
	r.GET("/status", h.StatusSnapshot)
	return r
}

// flexFloat 容忍信号平台把数字写成字符串。
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(bytes.TrimSpace(b), `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// webhookPayload 是松散的入站信号；未知字段忽略，缺省字段用配置补齐。
type webhookPayload struct {
	Secret   string    `json:"secret"`
	Action   string    `json:"action"`
	Symbol   string    `json:"symbol"`
	Volume   flexFloat `json:"volume"`
	Quantity flexFloat `json:"quantity"`
	SecType  string    `json:"secType"`
	Exchange string    `json:"exchange"`
	Currency string    `json:"currency"`
	Type     string    `json:"type"`
	Price    flexFloat `json:"price"`
	SL       flexFloat `json:"sl"`
	TP       flexFloat `json:"tp"`
}

type result struct {
	Status      string   `json:"status"`
	Message     string   `json:"message"`
	OrderID     int64    `json:"order_id,omitempty"`
	VenueStatus string   `json:"status_ib,omitempty"`
	Closed      []string `json:"closed,omitempty"`
}

// Webhook 校验密钥、把松散负载转成强类型请求并交给引擎。
// 引擎层失败以 200 + error 信封返回，调用方总能拿到结构化响应。
func (h *Handler) Webhook(c *gin.Context) {
	var p webhookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		h.count("bad_request")
		c.JSON(http.StatusBadRequest, result{Status: "error", Message: "invalid payload"})
		return
	}
	if h.Secret != "" && p.Secret != h.Secret {
		h.count("unauthorized")
		h.Log.Warn("unauthorized webhook", zap.String("remote", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, result{Status: "error", Message: "Unauthorized"})
		return
	}

	req, err := h.toRequest(p)
	if err != nil {
		h.count("bad_request")
		c.JSON(http.StatusBadRequest, result{Status: "error", Message: err.Error()})
		return
	}

	h.Log.Info("webhook received",
		zap.String("action", string(req.Action)),
		zap.String("symbol", req.Symbol))

	summary, err := h.Engine.Execute(c.Request.Context(), req)
	if err != nil {
		h.count("error")
		c.JSON(http.StatusOK, result{Status: "error", Message: err.Error()})
		return
	}
	h.count("success")
	c.JSON(http.StatusOK, result{
		Status:      "success",
		Message:     summary.Message,
		OrderID:     summary.OrderID,
		VenueStatus: summary.VenueStatus,
		Closed:      summary.Closed,
	})
}

func (h *Handler) toRequest(p webhookPayload) (engine.Request, error) {
	action, err := engine.ParseAction(p.Action)
	if err != nil {
		return engine.Request{}, err
	}
	secType := p.SecType
	if secType == "" {
		secType = h.Defaults.DefaultSecType
	}
	st, err := contract.ParseSecType(secType)
	if err != nil {
		return engine.Request{}, err
	}
	exchange := p.Exchange
	if exchange == "" {
		exchange = h.Defaults.DefaultExchange
	}
	currency := p.Currency
	if currency == "" {
		currency = h.Defaults.DefaultCurrency
	}
	qty := float64(p.Quantity)
	if qty <= 0 {
		qty = float64(p.Volume)
	}
	orderType := order.TypeMarket
	if p.Type == "limit" || p.Type == "LIMIT" {
		orderType = order.TypeLimit
	}
	return engine.Request{
		Action:     action,
		Symbol:     p.Symbol,
		Quantity:   qty,
		SecType:    st,
		Currency:   currency,
		Exchange:   exchange,
		OrderType:  orderType,
		LimitPrice: float64(p.Price),
		StopLoss:   float64(p.SL),
		TakeProfit: float64(p.TP),
	}, nil
}

// Health 简单健康检查。
func (h *Handler) Health(c *gin.Context) {
	if h.Session.Healthy() {
		c.JSON(http.StatusOK, gin.H{"status": "connected"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "disconnected"})
}

// StatusSnapshot 返回桥接器状态与最近日志，供监控端使用。
func (h *Handler) StatusSnapshot(c *gin.Context) {
	h.Status.SetConnected(h.Session.Healthy())
	var logs []string
	if h.Logs != nil {
		logs = h.Logs.Lines()
	}
	c.JSON(http.StatusOK, gin.H{
		"state": h.Status.Snapshot(),
		"logs":  logs,
	})
}

func (h *Handler) count(resultLabel string) {
	if h.Metrics != nil {
		h.Metrics.WebhookRequests.WithLabelValues(resultLabel).Inc()
	}
}
