package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	t.Parallel()

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
broker:
  kind: paper
symbols: ["BTC/USD", "ETH/USD", "SPY"]
weights:
  BTC/USD: 0.40
risk:
  risk_per_trade: 0.01
  min_risk_per_trade: 0.005
  max_risk_per_trade: 0.05
  max_gross_exposure: 1.0
  min_gross_exposure: 0.2
  max_exposure_clamp: 2.0
  max_daily_loss_pct: 0.03
  take_profit_pct: 0.025
  stop_loss_pct: 0.02
  min_notional_equity: 1.0
  min_notional_crypto: 10.0
  cash_cap_fraction: 0.9
  initial_equity: 30000
engine:
  cycle_delay: 30s
  max_retries: 3
  tune_cooldown: 30m
  state_path: ./state.json
  tune_path: ./autotune.json
journal:
  type: sqlite
  db_path: ./trades.sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTC/USD", "ETH/USD", "SPY"}, cfg.Symbols)
	assert.InDelta(t, 0.01, cfg.Risk.RiskPerTrade, 1e-12)
	assert.InDelta(t, 0.40, cfg.Weights["BTC/USD"], 1e-12)
	assert.Equal(t, "30s", cfg.Engine.CycleDelay)
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad broker kind", func(c *Config) { c.Broker.Kind = "ibkr" }},
		{"no symbols", func(c *Config) { c.Symbols = nil }},
		{"risk over one", func(c *Config) { c.Risk.RiskPerTrade = 1.5 }},
		{"cash cap at one", func(c *Config) { c.Risk.CashCapFraction = 1.0 }},
		{"daily loss as multiplier", func(c *Config) { c.Risk.MaxDailyLossPct = 2.0 }},
		{"weights over one", func(c *Config) { c.Weights = map[string]float64{"BTC/USD": 0.7, "SPY": 0.6} }},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }},
		{"missing state path", func(c *Config) { c.Engine.StatePath = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	t.Parallel()

	e := EngineConfig{CycleDelay: "garbage", TuneCooldown: ""}
	assert.Equal(t, "1m0s", e.CycleDelayDuration().String())
	assert.Equal(t, "30m0s", e.TuneCooldownDuration().String())
}
