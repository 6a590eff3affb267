package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"trade-bridge-go/config"
	"trade-bridge-go/contract"
	"trade-bridge-go/engine"
	"trade-bridge-go/infrastructure/logger"
	"trade-bridge-go/infrastructure/logtail"
	"trade-bridge-go/inventory"
	"trade-bridge-go/metrics"
	"trade-bridge-go/order"
	"trade-bridge-go/server"
	"trade-bridge-go/session"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	dryRun := flag.Bool("dryRun", false, "仅日志输出，不真正下单")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Sync()

	m := metrics.New()
	addr := cfg.MetricsAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		metrics.StartServer(addr)
	}

	status := engine.NewStatus()
	client := session.NewClient(session.Config{
		Host:           cfg.Gateway.Host,
		Port:           cfg.Gateway.Port,
		BackupPort:     cfg.Gateway.BackupPort,
		ClientID:       cfg.Gateway.ClientID,
		ConnectTimeout: time.Duration(cfg.Gateway.ConnectTimeoutMs) * time.Millisecond,
		RequestTimeout: time.Duration(cfg.Gateway.RequestTimeoutMs) * time.Millisecond,
		SettleDelay:    time.Duration(cfg.Gateway.SettleDelayMs) * time.Millisecond,
		RetryWait:      time.Duration(cfg.Gateway.RetryWaitMs) * time.Millisecond,
	}, zlog.Named("session"))
	client.StateHook = gatewayStateHook(status, m)

	var venue venueFacade = client
	if *dryRun {
		zlog.Warn("dry-run 模式：不连接网关，不提交订单")
		venue = &dryRunVenue{log: zlog.Named("dryrun")}
	}

	resolver := contract.NewResolver(venue)
	closer := inventory.NewCloser(venue, zlog.Named("closer"))
	eng := engine.New(cfg.Trading, venue, resolver, closer, status, m, zlog.Named("engine"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tail *logtail.Tailer
	if cfg.Logging.OutputFile != "" {
		tail = logtail.New(cfg.Logging.OutputFile, 20)
		if err := tail.Start(ctx); err != nil {
			zlog.Warn("log tail disabled", zap.Error(err))
			tail = nil
		}
	}

	handler := &server.Handler{
		Secret:   cfg.Server.WebhookSecret,
		Defaults: cfg.Trading,
		Engine:   eng,
		Session:  venue,
		Status:   status,
		Metrics:  m,
		Log:      zlog.Named("webhook"),
	}
	if tail != nil {
		handler.Logs = tail
	}
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.NewRouter(handler),
	}

	// 后台连接监视：启动即尝试连接，掉线后周期性重连。
	// 支持“先启动、后登录”的网关使用方式。
	if !*dryRun {
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()
			for {
				if !client.Healthy() {
					if err := client.EnsureConnected(ctx); err != nil {
						zlog.Warn("gateway reconnect failed", zap.Error(err))
					}
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()
	}

	go func() {
		zlog.Info("bridge server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.Bool("dry_run", *dryRun))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	notifySystemd(ctx, zlog)

	<-ctx.Done()
	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	client.Disconnect()
}

// gatewayStateHook 把会话状态同步到 /status 与指标。
// 首次建连不算重连，只有掉线后的重建才计数。
func gatewayStateHook(status *engine.Status, m *metrics.Metrics) func(session.State) {
	var hadSession atomic.Bool
	return func(s session.State) {
		connected := s == session.StateConnected
		status.SetConnected(connected)
		if !connected {
			m.GatewayConnected.Set(0)
			return
		}
		m.GatewayConnected.Set(1)
		if hadSession.Swap(true) {
			m.GatewayReconnects.Inc()
		}
	}
}

// notifySystemd 上报就绪并按需维持看门狗心跳。
func notifySystemd(ctx context.Context, zlog *zap.Logger) {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		zlog.Warn("sd_notify failed", zap.Error(err))
	} else if ok {
		zlog.Info("systemd notified ready")
	}
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

// venueFacade 聚合引擎与平仓器对会话的要求。
type venueFacade interface {
	engine.Venue
	contract.Fetcher
	Healthy() bool
	Positions(ctx context.Context) ([]inventory.Position, error)
}

// dryRunVenue 伪造网关回执，用于本地演练 webhook 链路。
type dryRunVenue struct {
	log  *zap.Logger
	next atomic.Int64
}

func (v *dryRunVenue) EnsureConnected(ctx context.Context) error { return nil }

func (v *dryRunVenue) Healthy() bool { return true }

func (v *dryRunVenue) Positions(ctx context.Context) ([]inventory.Position, error) {
	return nil, nil
}

func (v *dryRunVenue) ContractDetails(ctx context.Context, f contract.Filter) ([]contract.Variant, error) {
	// 伪造一个下月到期的合约变体，让期货近月解析在演练中照常走通。
	expiry := time.Now().UTC().AddDate(0, 1, 0).Format("20060102")
	return []contract.Variant{{
		Symbol:      f.Symbol,
		LocalSymbol: f.Symbol + expiry[2:6],
		Expiry:      expiry,
		Exchange:    f.Exchange,
		Currency:    f.Currency,
	}}, nil
}

func (v *dryRunVenue) PlaceOrder(ctx context.Context, ct contract.Contract, leg order.Leg) (order.Ack, error) {
	id := v.next.Add(1)
	v.log.Info("dry-run order",
		zap.String("symbol", ct.Symbol),
		zap.String("side", string(leg.Side)),
		zap.Float64("qty", leg.Quantity),
		zap.Bool("transmit", leg.Transmit),
		zap.Int64("order_id", id))
	return order.Ack{OrderID: id, Status: "DryRun"}, nil
}
