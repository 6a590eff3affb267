// Package metrics provides Prometheus metrics for the bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 汇集桥接器的指标族。
type Metrics struct {
	WebhookRequests   *prometheus.CounterVec
	OrdersSubmitted   prometheus.Counter
	ExecutionErrors   *prometheus.CounterVec
	GatewayConnected  prometheus.Gauge
	GatewayReconnects prometheus.Counter
	ExecutionDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		WebhookRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_webhook_requests_total",
			Help: "Webhook requests by result.",
		}, []string{"result"}),
		OrdersSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_orders_submitted_total",
			Help: "Order legs handed to the gateway.",
		}),
		ExecutionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_execution_errors_total",
			Help: "Execution failures by kind.",
		}, []string{"kind"}),
		GatewayConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_gateway_connected",
			Help: "1 when the gateway session is live.",
		}),
		GatewayReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bridge_gateway_reconnects_total",
			Help: "Successful reconnects to the gateway.",
		}),
		ExecutionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_execution_duration_seconds",
			Help:    "Wall time of a full trade execution.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// StartServer 启动Prometheus指标服务器
func StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
