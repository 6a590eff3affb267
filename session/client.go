package session

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"trade-bridge-go/contract"
	"trade-bridge-go/inventory"
	"trade-bridge-go/order"
)

// Config 描述网关会话端点与各类等待上限。
type Config struct {
	Host       string
	Port       int
	BackupPort int
	ClientID   int64

	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	// SettleDelay 是提交后读取回执前的固定等待；
	// 底层会话是异步的，状态不会立即可见。
	SettleDelay time.Duration
	RetryWait   time.Duration
}

const maxConnectAttempts = 3

// Client 持有到网关的唯一共享连接。连接序列由内部互斥锁串行化；
// 订单腿级别的串行化由执行引擎负责。
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	log    *zap.Logger

	// StateHook 在状态变化时回调（指标用）；必须在使用前设置。
	StateHook func(State)

	mu       sync.Mutex // 连接生命周期
	conn     *websocket.Conn
	clientID int64

	wmu sync.Mutex // 写帧

	state atomic.Int32
	alive atomic.Bool

	nextReq atomic.Int64
	pmu     sync.Mutex
	pending map[int64]chan frame
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		cfg:      cfg,
		dialer:   &websocket.Dialer{HandshakeTimeout: cfg.ConnectTimeout},
		log:      log,
		clientID: cfg.ClientID,
		pending:  make(map[int64]chan frame),
	}
}

// State 返回当前生命周期状态。
func (c *Client) State() State { return State(c.state.Load()) }

// Healthy 非阻塞地报告连接活性；由连接/读循环实时维护，而非缓存的判断。
func (c *Client) Healthy() bool {
	return c.State() == StateConnected && c.alive.Load()
}

// EnsureConnected 已连接时为空操作。否则最多尝试 3 次：
// 端点不可达时切换到备用端口重试一次；客户端标识被占用时换用随机
// 标识并等待 RetryWait 再试。每次失败都先清掉半开连接。
func (c *Client) EnsureConnected(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.alive.Load() {
		return nil
	}

	port := c.cfg.Port
	usedBackup := false
	var lastErr error

	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		c.setState(StateConnecting)
		err := c.connectOnce(ctx, port)
		if err == nil {
			c.setState(StateConnected)
			c.log.Info("gateway connected",
				zap.String("host", c.cfg.Host),
				zap.Int("port", port),
				zap.Int64("client_id", c.clientID),
				zap.Int("attempt", attempt))
			return nil
		}
		lastErr = err
		c.teardownLocked()
		c.log.Warn("gateway connect failed",
			zap.Int("attempt", attempt),
			zap.Int("port", port),
			zap.Error(err))

		if ctx.Err() != nil {
			break
		}
		if IsIdentityConflict(err) {
			c.clientID = randomClientID()
			if err := sleepCtx(ctx, c.cfg.RetryWait); err != nil {
				break
			}
			continue
		}
		// 端点不可达：切到备用端口（纸面/实盘对应端口）再试。
		if c.cfg.BackupPort > 0 && !usedBackup {
			port = c.cfg.BackupPort
			usedBackup = true
		}
	}

	c.setState(StateDisconnected)
	return &ConnError{Attempts: maxConnectAttempts, Last: lastErr}
}

// connectOnce 拨号并完成握手。调用方持有 c.mu。
func (c *Client) connectOnce(ctx context.Context, port int) error {
	u := fmt.Sprintf("ws://%s:%d/ws", c.cfg.Host, port)
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}

	deadline := time.Now().Add(c.cfg.ConnectTimeout)
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(frame{Op: opConnect, ClientID: c.clientID}); err != nil {
		conn.Close()
		return fmt.Errorf("handshake write: %w", err)
	}
	_ = conn.SetReadDeadline(deadline)
	var resp frame
	if err := conn.ReadJSON(&resp); err != nil {
		conn.Close()
		return fmt.Errorf("handshake read: %w", err)
	}
	switch resp.Op {
	case opConnected:
	case opError:
		conn.Close()
		return &GatewayError{Code: resp.Code, Message: resp.Message}
	default:
		conn.Close()
		return fmt.Errorf("unexpected handshake frame %q", resp.Op)
	}

	_ = conn.SetReadDeadline(time.Time{})
	_ = conn.SetWriteDeadline(time.Time{})
	c.conn = conn
	c.alive.Store(true)
	go c.readLoop(conn)
	return nil
}

// readLoop 将响应帧派发给等待者；读错误意味着会话掉线。
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.mu.Lock()
			if c.conn == conn {
				c.conn = nil
				c.alive.Store(false)
				c.setState(StateDisconnected)
				c.log.Warn("gateway session dropped", zap.Error(err))
			}
			c.mu.Unlock()
			c.failPending()
			return
		}
		if f.ReqID == 0 {
			continue // 非请求响应帧，忽略
		}
		c.pmu.Lock()
		ch, ok := c.pending[f.ReqID]
		c.pmu.Unlock()
		if ok {
			select {
			case ch <- f:
			default:
			}
		}
	}
}

// PlaceOrder 发送一条订单腿并返回网关回执。提交后先等待固定的
// 结算延迟再读取回执；不等待成交。
func (c *Client) PlaceOrder(ctx context.Context, ct contract.Contract, leg order.Leg) (order.Ack, error) {
	payload := &orderPayload{
		Contract: ct,
		Side:     leg.Side,
		Quantity: leg.Quantity,
		Type:     leg.Type,
		Price:    leg.Price,
		ParentID: leg.ParentID,
		Transmit: leg.Transmit,
	}
	resp, err := c.request(ctx, frame{Op: opPlaceOrder, Order: payload}, c.cfg.SettleDelay)
	if err != nil {
		return order.Ack{}, err
	}
	if resp.Op == opError {
		return order.Ack{}, &GatewayError{Code: resp.Code, Message: resp.Message}
	}
	return order.Ack{OrderID: resp.OrderID, Status: resp.Status}, nil
}

// ContractDetails 查询符号匹配的全部合约变体。
func (c *Client) ContractDetails(ctx context.Context, f contract.Filter) ([]contract.Variant, error) {
	resp, err := c.request(ctx, frame{Op: opContractDetails, Filter: &f}, 0)
	if err != nil {
		return nil, err
	}
	if resp.Op == opError {
		return nil, &GatewayError{Code: resp.Code, Message: resp.Message}
	}
	return resp.Contracts, nil
}

// Positions 拉取实时持仓快照。
func (c *Client) Positions(ctx context.Context) ([]inventory.Position, error) {
	resp, err := c.request(ctx, frame{Op: opPositions}, 0)
	if err != nil {
		return nil, err
	}
	if resp.Op == opError {
		return nil, &GatewayError{Code: resp.Code, Message: resp.Message}
	}
	return resp.Positions, nil
}

// request 注册等待者、写出请求帧，可选等待 settle 后收响应。
// 所有等待都有上限，超时作为错误返回而不是悬挂。
func (c *Client) request(ctx context.Context, f frame, settle time.Duration) (frame, error) {
	if !c.Healthy() {
		return frame{}, ErrNotConnected
	}
	id := c.nextReq.Add(1)
	f.ReqID = id
	ch := make(chan frame, 1)
	c.pmu.Lock()
	c.pending[id] = ch
	c.pmu.Unlock()
	defer func() {
		c.pmu.Lock()
		delete(c.pending, id)
		c.pmu.Unlock()
	}()

	c.wmu.Lock()
	conn := c.currentConn()
	if conn == nil {
		c.wmu.Unlock()
		return frame{}, ErrNotConnected
	}
	err := conn.WriteJSON(f)
	c.wmu.Unlock()
	if err != nil {
		return frame{}, fmt.Errorf("write %s: %w", f.Op, err)
	}

	if settle > 0 {
		if err := sleepCtx(ctx, settle); err != nil {
			return frame{}, err
		}
	}

	timer := time.NewTimer(c.cfg.RequestTimeout)
	defer timer.Stop()
	select {
	case resp, ok := <-ch:
		if !ok {
			return frame{}, ErrNotConnected
		}
		return resp, nil
	case <-timer.C:
		return frame{}, fmt.Errorf("%s: no response within %s", f.Op, c.cfg.RequestTimeout)
	case <-ctx.Done():
		return frame{}, ctx.Err()
	}
}

// Disconnect 拆除会话；可重复调用。
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.teardownLocked()
	c.setState(StateDisconnected)
	c.mu.Unlock()
	c.failPending()
}

// teardownLocked 强制清除半开连接状态。调用方持有 c.mu。
func (c *Client) teardownLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.alive.Store(false)
}

func (c *Client) failPending() {
	c.pmu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pmu.Unlock()
}

func (c *Client) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) setState(s State) {
	old := State(c.state.Swap(int32(s)))
	if old != s && c.StateHook != nil {
		c.StateHook(s)
	}
}

func randomClientID() int64 {
	return 100 + rand.Int64N(9900)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
