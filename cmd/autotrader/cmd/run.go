package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/engine"
	sig "github.com/rustyeddy/autotrader/signal"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading engine from a config file",
	Long: `Run the trading engine using settings from a configuration file.

The engine loops until interrupted: it refreshes the account, enforces the
daily loss and exposure limits, evaluates signals for every configured
symbol, and sizes and places orders through the broker.

Broker credentials come from ALPACA_API_KEY / ALPACA_SECRET_KEY; Telegram
credentials (if enabled) from TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID.

Example:
  autotrader run -f configs/live.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("Starting engine with config: %s\n", runConfigPath)
	fmt.Printf("  Broker: %s\n", cfg.Broker.Kind)
	fmt.Printf("  Symbols: %v\n", cfg.Symbols)
	fmt.Printf("  Risk: %.2f%% per trade, daily stop at -%.1f%%\n",
		cfg.Risk.RiskPerTrade*100, cfg.Risk.MaxDailyLossPct*100)
	fmt.Println()

	b, data, err := buildBroker(cfg)
	if err != nil {
		return err
	}

	j, err := buildJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	n := buildNotifier(cfg)
	provider := sig.NewHybrid(data, nil, cfg.Signal.ATRPeriod, cfg.Signal.Hysteresis)
	eng := engine.New(cfg, b, data, provider, j, n)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Engine.MetricsAddr != "" {
		go serveMetrics(cfg.Engine.MetricsAddr)
	}

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	fmt.Println("Engine stopped.")
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	log.Printf("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("metrics server: %v", err)
	}
}
