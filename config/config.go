package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration. Secrets (broker keys, the
// Telegram token) are never stored in the file; they come from the
// environment via ApplyEnv.
type Config struct {
	Broker  BrokerConfig `json:"broker" yaml:"broker"`
	Symbols []string     `json:"symbols" yaml:"symbols"`
	// Weights allocates a fraction of equity per symbol. Symbols missing from
	// the map share the remainder equally.
	Weights map[string]float64 `json:"weights,omitempty" yaml:"weights,omitempty"`
	Risk    RiskConfig         `json:"risk" yaml:"risk"`
	Signal  SignalConfig       `json:"signal" yaml:"signal"`
	Engine  EngineConfig       `json:"engine" yaml:"engine"`
	Journal JournalConfig      `json:"journal" yaml:"journal"`
	Notify  NotifyConfig       `json:"notify" yaml:"notify"`
}

// BrokerConfig selects the trading endpoint.
type BrokerConfig struct {
	Kind    string `json:"kind" yaml:"kind"` // "alpaca" or "paper"
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	DataURL string `json:"data_url,omitempty" yaml:"data_url,omitempty"`
	// Filled from ALPACA_API_KEY / ALPACA_SECRET_KEY.
	APIKey    string `json:"-" yaml:"-"`
	SecretKey string `json:"-" yaml:"-"`
}

// RiskConfig holds the initial risk budget. The auto-tuner moves
// risk_per_trade and max_gross_exposure inside the clamp bounds between
// cycles; everything else is static.
type RiskConfig struct {
	RiskPerTrade      float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	MinRiskPerTrade   float64 `json:"min_risk_per_trade" yaml:"min_risk_per_trade"`
	MaxRiskPerTrade   float64 `json:"max_risk_per_trade" yaml:"max_risk_per_trade"`
	MaxGrossExposure  float64 `json:"max_gross_exposure" yaml:"max_gross_exposure"`
	MinGrossExposure  float64 `json:"min_gross_exposure" yaml:"min_gross_exposure"`
	MaxExposureClamp  float64 `json:"max_exposure_clamp" yaml:"max_exposure_clamp"`
	MaxDailyLossPct   float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`
	TakeProfitPct     float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	StopLossPct       float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	MinNotionalEquity float64 `json:"min_notional_equity" yaml:"min_notional_equity"`
	MinNotionalCrypto float64 `json:"min_notional_crypto" yaml:"min_notional_crypto"`
	CashCapFraction   float64 `json:"cash_cap_fraction" yaml:"cash_cap_fraction"`
	InitialEquity     float64 `json:"initial_equity" yaml:"initial_equity"`
}

// SignalConfig tunes the rule/model blend.
type SignalConfig struct {
	Hysteresis          float64 `json:"hysteresis" yaml:"hysteresis"`
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`
	ATRPeriod           int     `json:"atr_period" yaml:"atr_period"`
}

// EngineConfig controls the control loop itself.
type EngineConfig struct {
	CycleDelay   string `json:"cycle_delay" yaml:"cycle_delay"`
	MaxRetries   int    `json:"max_retries" yaml:"max_retries"`
	TuneCooldown string `json:"tune_cooldown" yaml:"tune_cooldown"`
	StatePath    string `json:"state_path" yaml:"state_path"`
	TunePath     string `json:"tune_path" yaml:"tune_path"`
	MetricsAddr  string `json:"metrics_addr,omitempty" yaml:"metrics_addr,omitempty"`
}

func (e EngineConfig) CycleDelayDuration() time.Duration {
	d, err := time.ParseDuration(e.CycleDelay)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

func (e EngineConfig) TuneCooldownDuration() time.Duration {
	d, err := time.ParseDuration(e.TuneCooldown)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// JournalConfig selects the trade ledger backend.
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// NotifyConfig enables the Telegram channel. Token and chat ID come from
// TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID.
type NotifyConfig struct {
	Telegram bool   `json:"telegram" yaml:"telegram"`
	Token    string `json:"-" yaml:"-"`
	ChatID   string `json:"-" yaml:"-"`
}

// LoadFromFile loads configuration from a file (YAML or JSON), applies
// environment secrets and validates.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays secrets and overrides from the process environment.
func (c *Config) ApplyEnv() {
	c.Broker.APIKey = os.Getenv("ALPACA_API_KEY")
	c.Broker.SecretKey = os.Getenv("ALPACA_SECRET_KEY")
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		c.Broker.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		c.Broker.DataURL = v
	}
	c.Notify.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.Notify.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	if v := os.Getenv("SYMBOLS"); v != "" {
		var syms []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				syms = append(syms, s)
			}
		}
		if len(syms) > 0 {
			c.Symbols = syms
		}
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Broker.Kind != "alpaca" && c.Broker.Kind != "paper" {
		return fmt.Errorf("broker.kind must be 'alpaca' or 'paper'")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if c.Risk.RiskPerTrade <= 0 || c.Risk.RiskPerTrade > 1 {
		return fmt.Errorf("risk.risk_per_trade must be between 0 and 1")
	}
	if c.Risk.MinRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade < c.Risk.MinRiskPerTrade {
		return fmt.Errorf("risk clamp bounds invalid: [%v, %v]", c.Risk.MinRiskPerTrade, c.Risk.MaxRiskPerTrade)
	}
	if c.Risk.MaxGrossExposure <= 0 {
		return fmt.Errorf("risk.max_gross_exposure must be positive")
	}
	if c.Risk.MaxDailyLossPct <= 0 || c.Risk.MaxDailyLossPct >= 1 {
		return fmt.Errorf("risk.max_daily_loss_pct must be a fraction between 0 and 1")
	}
	if c.Risk.TakeProfitPct <= 0 || c.Risk.StopLossPct <= 0 {
		return fmt.Errorf("risk.take_profit_pct and risk.stop_loss_pct must be positive")
	}
	if c.Risk.CashCapFraction <= 0 || c.Risk.CashCapFraction >= 1 {
		return fmt.Errorf("risk.cash_cap_fraction must be a fraction below 1.0")
	}
	var total float64
	for sym, w := range c.Weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("weight for %s must be between 0 and 1", sym)
		}
		total += w
	}
	if total > 1.0+1e-9 {
		return fmt.Errorf("symbol weights sum to %.2f, must not exceed 1.0", total)
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && c.Journal.TradesFile == "" {
		return fmt.Errorf("journal.trades_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path required for SQLite type")
	}
	if c.Engine.StatePath == "" || c.Engine.TunePath == "" {
		return fmt.Errorf("engine.state_path and engine.tune_path are required")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Broker: BrokerConfig{
			Kind:    "paper",
			BaseURL: "https://paper-api.alpaca.markets",
			DataURL: "https://data.alpaca.markets",
		},
		Symbols: []string{"BTC/USD", "SPY"},
		Weights: map[string]float64{"BTC/USD": 0.40},
		Risk: RiskConfig{
			RiskPerTrade:      0.004,
			MinRiskPerTrade:   0.005,
			MaxRiskPerTrade:   0.05,
			MaxGrossExposure:  1.5,
			MinGrossExposure:  0.2,
			MaxExposureClamp:  2.0,
			MaxDailyLossPct:   0.03,
			TakeProfitPct:     0.025,
			StopLossPct:       0.02,
			MinNotionalEquity: 1.0,
			MinNotionalCrypto: 10.0,
			CashCapFraction:   0.90,
			InitialEquity:     30000,
		},
		Signal: SignalConfig{
			Hysteresis:          0.2,
			ConfidenceThreshold: 0.1,
			ATRPeriod:           14,
		},
		Engine: EngineConfig{
			CycleDelay:   "60s",
			MaxRetries:   5,
			TuneCooldown: "30m",
			StatePath:    "./state.json",
			TunePath:     "./autotune.json",
			MetricsAddr:  ":9090",
		},
		Journal: JournalConfig{
			Type:       "sqlite",
			DBPath:     "./trades.sqlite",
			TradesFile: "./trades.csv",
		},
		Notify: NotifyConfig{Telegram: false},
	}
}
