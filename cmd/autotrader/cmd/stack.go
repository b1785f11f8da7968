package cmd

import (
	"fmt"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/broker/alpaca"
	"github.com/rustyeddy/autotrader/broker/paper"
	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/notify"
)

// buildBroker wires the trading endpoint selected by the config. The paper
// broker needs quotes seeded before it will fill anything, so it is mainly
// useful for dry runs and tests.
func buildBroker(cfg *config.Config) (broker.Broker, broker.MarketData, error) {
	switch cfg.Broker.Kind {
	case "alpaca":
		if cfg.Broker.APIKey == "" || cfg.Broker.SecretKey == "" {
			return nil, nil, fmt.Errorf("ALPACA_API_KEY and ALPACA_SECRET_KEY are required for the alpaca broker")
		}
		c := alpaca.NewClient(cfg.Broker.APIKey, cfg.Broker.SecretKey, cfg.Broker.BaseURL, cfg.Broker.DataURL)
		return c, c, nil
	case "paper":
		b := paper.New(cfg.Risk.InitialEquity)
		return b, b, nil
	default:
		return nil, nil, fmt.Errorf("unknown broker kind %q", cfg.Broker.Kind)
	}
}

func buildJournal(cfg *config.Config) (journal.Journal, error) {
	if cfg.Journal.Type == "csv" {
		return journal.NewCSV(cfg.Journal.TradesFile)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

func buildNotifier(cfg *config.Config) notify.Notifier {
	if cfg.Notify.Telegram {
		return notify.NewTelegram(cfg.Notify.Token, cfg.Notify.ChatID)
	}
	return notify.LogNotifier{}
}
