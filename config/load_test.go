package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

const baseConfig = `
env: paper
server:
  port: 5001
  webhookSecret: s3cret
gateway:
  host: 127.0.0.1
  port: 7496
  backupPort: 7497
  clientId: 1
trading:
  defaultVolume: 10000
  symbolMap:
    NAS100: MNQ
    XAUUSD:
      name: GC
      multiplier: 0.1
  symbols:
    EURUSD:
      minVolume: 1000
      volumeStep: 1000
`

func TestLoad(t *testing.T) {
	path := writeTempConfig(t, baseConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Env != "paper" || cfg.Gateway.Port != 7496 {
		t.Fatalf("unexpected cfg values: %+v", cfg)
	}
	if cfg.Gateway.SettleDelayMs != 500 || cfg.Gateway.RetryWaitMs != 1000 {
		t.Fatalf("defaults not applied: %+v", cfg.Gateway)
	}
	if cfg.Trading.DefaultSecType != "CASH" || cfg.Trading.DefaultExchange != "IDEALPRO" {
		t.Fatalf("trading defaults not applied: %+v", cfg.Trading)
	}
}

func TestSymbolMapScalarAndMapping(t *testing.T) {
	path := writeTempConfig(t, baseConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m := cfg.Trading.SymbolMap["NAS100"]
	if m.Name != "MNQ" || m.Multiplier != 1.0 {
		t.Fatalf("scalar mapping wrong: %+v", m)
	}
	m = cfg.Trading.SymbolMap["XAUUSD"]
	if m.Name != "GC" || m.Multiplier != 0.1 {
		t.Fatalf("mapping entry wrong: %+v", m)
	}
}

func TestMapSymbol(t *testing.T) {
	path := writeTempConfig(t, baseConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, mult := cfg.Trading.MapSymbol("nas100")
	if name != "MNQ" || mult != 1.0 {
		t.Fatalf("mapped symbol wrong: %s x%f", name, mult)
	}
	// 未映射的符号原样通过，乘数为 1。
	name, mult = cfg.Trading.MapSymbol("EURUSD")
	if name != "EURUSD" || mult != 1.0 {
		t.Fatalf("identity mapping wrong: %s x%f", name, mult)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, baseConfig)
	t.Setenv("BRIDGE_WEBHOOK_SECRET", "env-secret")
	cfg, err := LoadWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.WebhookSecret != "env-secret" {
		t.Fatalf("env override not applied: %q", cfg.Server.WebhookSecret)
	}
}

func TestValidateRejectsBadMultiplier(t *testing.T) {
	path := writeTempConfig(t, `
env: paper
server:
  port: 5001
  webhookSecret: s
gateway:
  host: 127.0.0.1
  port: 7496
  clientId: 1
trading:
  symbolMap:
    NAS100:
      name: MNQ
      multiplier: -1
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected multiplier error")
	}
}

func TestValidateRequiresGateway(t *testing.T) {
	path := writeTempConfig(t, `
env: paper
server:
  port: 5001
  webhookSecret: s
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected gateway.host error")
	}
}
