package journal

import (
	"time"

	"github.com/rustyeddy/autotrader/market"
)

// Status of a journaled trade.
const (
	StatusOpen            = "open"
	StatusPartiallyClosed = "partially_closed"
	StatusClosed          = "closed"
)

// TradeRecord is one row of the append-only trade ledger.
type TradeRecord struct {
	TradeID        string
	Symbol         string
	Side           market.Side
	Qty            float64
	EntryPrice     float64
	ExitPrice      float64
	RealizedPnL    float64
	RealizedPnLPct float64
	Status         string
	OpenTime       time.Time
	CloseTime      time.Time
	Reason         string
}

// Entry is emitted when an order fills.
type Entry struct {
	TradeID    string
	Symbol     string
	Side       market.Side
	Qty        float64
	EntryPrice float64
	OpenTime   time.Time
}

// Exit is emitted when a position is closed, fully or partially.
type Exit struct {
	Symbol         string
	Qty            float64
	ExitPrice      float64
	RealizedPnL    float64
	RealizedPnLPct float64
	CloseTime      time.Time
	Reason         string
}

// Journal is the append-only trade ledger. The execution engine emits
// entry/exit events; it does not own the storage.
type Journal interface {
	RecordEntry(Entry) error
	RecordExit(Exit) error
	// TrailingPnL sums realized P&L of trades closed since the given time.
	// It feeds the auto-tuner.
	TrailingPnL(since time.Time) (pnl float64, trades int, err error)
	Close() error
}
