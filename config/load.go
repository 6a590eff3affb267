package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string        `yaml:"env"`
	Server      ServerConfig  `yaml:"server"`
	Gateway     GatewayConfig `yaml:"gateway"`
	Trading     TradingConfig `yaml:"trading"`
	Logging     LoggingConfig `yaml:"logging"`
	MetricsAddr string        `yaml:"metricsAddr"`
}

type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	WebhookSecret string `yaml:"webhookSecret"`
}

// GatewayConfig describes the venue gateway session endpoint.
// BackupPort is the paper/live counterpart tried when the primary
// port is unreachable.
type GatewayConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	BackupPort       int    `yaml:"backupPort"`
	ClientID         int64  `yaml:"clientId"`
	ConnectTimeoutMs int    `yaml:"connectTimeoutMs"`
	RequestTimeoutMs int    `yaml:"requestTimeoutMs"`
	SettleDelayMs    int    `yaml:"settleDelayMs"`
	RetryWaitMs      int    `yaml:"retryWaitMs"`
}

type TradingConfig struct {
	DefaultVolume   float64                  `yaml:"defaultVolume"`
	DefaultSecType  string                   `yaml:"defaultSecType"`
	DefaultExchange string                   `yaml:"defaultExchange"`
	DefaultCurrency string                   `yaml:"defaultCurrency"`
	SymbolMap       map[string]SymbolMapping `yaml:"symbolMap"`
	Symbols         map[string]SymbolConfig  `yaml:"symbols"`
}

// SymbolMapping 将信号里的逻辑符号映射为券商符号；multiplier 作用于数量。
type SymbolMapping struct {
	Name       string  `yaml:"name"`
	Multiplier float64 `yaml:"multiplier"`
}

// UnmarshalYAML accepts either a bare string ("MNQ") or a mapping
// ({name: MNQ, multiplier: 0.1}).
func (m *SymbolMapping) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var name string
		if err := value.Decode(&name); err != nil {
			return err
		}
		m.Name = name
		m.Multiplier = 1.0
		return nil
	case yaml.MappingNode:
		type raw struct {
			Name       string  `yaml:"name"`
			Multiplier float64 `yaml:"multiplier"`
		}
		var r raw
		if err := value.Decode(&r); err != nil {
			return err
		}
		if r.Multiplier == 0 {
			r.Multiplier = 1.0
		}
		m.Name = r.Name
		m.Multiplier = r.Multiplier
		return nil
	default:
		return fmt.Errorf("symbolMap entry must be string or mapping (line %d)", value.Line)
	}
}

// SymbolConfig 保存交易符号的最小手数/步长约束。
type SymbolConfig struct {
	MinVolume  float64 `yaml:"minVolume"`
	VolumeStep float64 `yaml:"volumeStep"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	OutputFile string `yaml:"outputFile"`
}

// MapSymbol resolves a logical signal symbol through the symbol map.
// Unmapped symbols pass through unchanged with multiplier 1.0.
func (t TradingConfig) MapSymbol(symbol string) (string, float64) {
	m, ok := t.SymbolMap[strings.ToUpper(symbol)]
	if !ok || m.Name == "" {
		return strings.ToUpper(symbol), 1.0
	}
	return m.Name, m.Multiplier
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides sensitive fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("BRIDGE_WEBHOOK_SECRET"); v != "" {
		cfg.Server.WebhookSecret = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Gateway.ConnectTimeoutMs <= 0 {
		cfg.Gateway.ConnectTimeoutMs = 5000
	}
	if cfg.Gateway.RequestTimeoutMs <= 0 {
		cfg.Gateway.RequestTimeoutMs = 10000
	}
	if cfg.Gateway.SettleDelayMs <= 0 {
		cfg.Gateway.SettleDelayMs = 500
	}
	if cfg.Gateway.RetryWaitMs <= 0 {
		cfg.Gateway.RetryWaitMs = 1000
	}
	if cfg.Trading.DefaultSecType == "" {
		cfg.Trading.DefaultSecType = "CASH"
	}
	if cfg.Trading.DefaultExchange == "" {
		cfg.Trading.DefaultExchange = "IDEALPRO"
	}
	if cfg.Trading.DefaultCurrency == "" {
		cfg.Trading.DefaultCurrency = "USD"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Server.Port <= 0 {
		return errors.New("server.port must be > 0")
	}
	if cfg.Server.WebhookSecret == "" {
		return errors.New("server.webhookSecret is required (or BRIDGE_WEBHOOK_SECRET)")
	}
	if cfg.Gateway.Host == "" {
		return errors.New("gateway.host is required")
	}
	if cfg.Gateway.Port <= 0 {
		return errors.New("gateway.port must be > 0")
	}
	if cfg.Gateway.ClientID <= 0 {
		return errors.New("gateway.clientId must be > 0")
	}
	if cfg.Trading.DefaultVolume < 0 {
		return errors.New("trading.defaultVolume must be >= 0")
	}
	for sym, m := range cfg.Trading.SymbolMap {
		if m.Multiplier <= 0 {
			return fmt.Errorf("symbolMap %s multiplier must be > 0", sym)
		}
	}
	for sym, sc := range cfg.Trading.Symbols {
		if sc.MinVolume < 0 {
			return fmt.Errorf("symbol %s minVolume must be >= 0", sym)
		}
		if sc.VolumeStep < 0 {
			return fmt.Errorf("symbol %s volumeStep must be >= 0", sym)
		}
	}
	return nil
}
