package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "autotrader",
	Short: "A risk-controlled automated trading engine for crypto and equities",
	Long: `Autotrader runs a signal-driven execution engine against the Alpaca API
(or an in-memory paper broker) with volatility-targeted position sizing.

It provides:
  - Hybrid rule/model signals with hysteresis smoothing
  - ATR-based position sizing with a per-trade risk budget
  - Daily loss limits and gross exposure caps
  - Self-tuning risk parameters from trailing realized P&L
  - SQLite or CSV trade journaling
  - Telegram trade notifications and Prometheus metrics

Complete documentation is available at https://github.com/rustyeddy/autotrader`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
