package engine

import (
	"sync"
	"time"
)

// Status 是桥接器的进程级状态；每次执行后由引擎更新，
// /status 端点只读快照。单行摘要允许后写覆盖。
type Status struct {
	mu        sync.RWMutex
	connected bool
	lastTrade string
	upSince   time.Time
}

func NewStatus() *Status {
	return &Status{lastTrade: "None", upSince: time.Now().UTC()}
}

func (s *Status) SetConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}

// RecordTrade 记录一行人类可读的交易摘要。
func (s *Status) RecordTrade(summary string) {
	s.mu.Lock()
	s.lastTrade = summary
	s.mu.Unlock()
}

// Snapshot 是 /status 序列化用的只读视图。
type Snapshot struct {
	Connected bool      `json:"connected"`
	LastTrade string    `json:"last_trade"`
	UpSince   time.Time `json:"up_since"`
}

func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Connected: s.connected, LastTrade: s.lastTrade, UpSince: s.upSince}
}
