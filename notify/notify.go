// Package notify delivers trade and risk alerts. Delivery is
// fire-and-forget: a failed notification is logged and never fails the
// operation that produced it.
package notify

import (
	"log"

	"github.com/rustyeddy/autotrader/market"
)

// Notifier receives engine events.
type Notifier interface {
	TradeEntry(symbol string, side market.Side, qty, price float64, tp, sl *float64)
	TradeExit(symbol string, side market.Side, qty, price, pnl, pnlPct float64)
	RiskStop(msg string)
	Error(title, msg string)
}

// LogNotifier writes events to the process log. It is the default channel
// and the fallback when Telegram is disabled.
type LogNotifier struct{}

func (LogNotifier) TradeEntry(symbol string, side market.Side, qty, price float64, tp, sl *float64) {
	log.Printf("notify: ENTRY %s %s qty=%.6f price=%.2f", side, symbol, qty, price)
}

func (LogNotifier) TradeExit(symbol string, side market.Side, qty, price, pnl, pnlPct float64) {
	log.Printf("notify: EXIT %s %s qty=%.6f price=%.2f pnl=%.2f (%+.2f%%)", side, symbol, qty, price, pnl, pnlPct*100)
}

func (LogNotifier) RiskStop(msg string) {
	log.Printf("notify: RISK STOP: %s", msg)
}

func (LogNotifier) Error(title, msg string) {
	log.Printf("notify: ERROR %s: %s", title, msg)
}
