package session

import (
	"errors"
	"fmt"
)

// State 是会话生命周期状态。
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// 网关握手拒绝码。
const CodeClientIDInUse = "client_id_in_use"

// GatewayError 是网关以 error 帧返回的结构化失败。
type GatewayError struct {
	Code    string
	Message string
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway error %s", e.Code)
	}
	return fmt.Sprintf("gateway error %s: %s", e.Code, e.Message)
}

// IsIdentityConflict 判断失败是否因客户端标识被占用。
func IsIdentityConflict(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Code == CodeClientIDInUse
}

// ConnError 表示重试耗尽后的连接失败。
type ConnError struct {
	Attempts int
	Last     error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("gateway unreachable after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ConnError) Unwrap() error { return e.Last }

// ErrNotConnected 表示在断开状态下调用了需要会话的操作。
var ErrNotConnected = errors.New("session not connected")
