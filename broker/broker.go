package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/autotrader/market"
)

// Broker is the trading endpoint the engine places orders against.
type Broker interface {
	Account(ctx context.Context) (Account, error)
	Positions(ctx context.Context) ([]market.Position, error)
	// Position returns ErrNoPosition when the symbol has no open holding.
	Position(ctx context.Context, symbol string) (market.Position, error)
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderFill, error)
	// ClosePosition issues a broker-native full close. Returns ErrNoPosition
	// when there is nothing to close.
	ClosePosition(ctx context.Context, symbol string) (OrderFill, error)
}

// MarketData provides price quotes and candles.
type MarketData interface {
	// LatestQuote returns ErrDataUnavailable when no price exists.
	LatestQuote(ctx context.Context, symbol string, class market.AssetClass) (market.Quote, error)
	Candles(ctx context.Context, symbol string, class market.AssetClass, limit int) ([]market.Candle, error)
}

// Account is a fresh snapshot of broker-reported balances. Never cached
// across cycles.
type Account struct {
	Cash       float64
	Equity     float64
	LastEquity float64
}

// OrderSide is the broker-facing buy/sell direction.
type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// SideFor maps a position side to the order side that opens it.
func SideFor(s market.Side) OrderSide {
	if s == market.Short {
		return Sell
	}
	return Buy
}

// OrderRequest is a market order in one of the broker's accepted shapes:
// either Notional > 0 (dollar-sized) or Qty > 0 (unit-sized), never both.
type OrderRequest struct {
	Symbol      string
	Side        OrderSide
	Qty         float64
	Notional    float64
	TimeInForce market.TimeInForce
	Class       market.AssetClass
}

// OrderFill is the broker's acknowledgement of a filled market order.
type OrderFill struct {
	OrderID string
	Symbol  string
	Side    OrderSide
	Qty     float64
	Price   float64
	Time    time.Time
}

var (
	// ErrNoPosition is returned when a position lookup or close finds nothing.
	ErrNoPosition = errors.New("no open position")
	// ErrDataUnavailable is returned when no price or bars exist for a symbol.
	ErrDataUnavailable = errors.New("market data unavailable")
)
