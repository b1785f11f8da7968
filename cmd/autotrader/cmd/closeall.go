package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/engine"
)

var closeAllCmd = &cobra.Command{
	Use:   "close-all",
	Short: "Flatten every open position",
	Long: `Close every open position at the broker with market orders and journal
the exits. Use this to go flat manually, for example before a weekend or
after a bad day.

Example:
  autotrader close-all -f configs/live.yaml`,
	RunE: runCloseAll,
}

var closeAllConfigPath string

func init() {
	rootCmd.AddCommand(closeAllCmd)

	closeAllCmd.Flags().StringVarP(&closeAllConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	closeAllCmd.MarkFlagRequired("config")
}

func runCloseAll(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(closeAllConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	b, data, err := buildBroker(cfg)
	if err != nil {
		return err
	}
	j, err := buildJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	eng := engine.New(cfg, b, data, nil, j, buildNotifier(cfg))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.CloseAllPositions(ctx, "manual close"); err != nil {
		return err
	}
	fmt.Println("All positions closed.")
	return nil
}
