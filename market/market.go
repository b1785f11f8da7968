package market

import (
	"strings"
	"time"
)

// Side is the direction of a position or order intent.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Opposite returns the reversing side, or "" for an unknown side.
func (s Side) Opposite() Side {
	switch s {
	case Long:
		return Short
	case Short:
		return Long
	}
	return ""
}

// AssetClass groups symbols by the order shapes the broker accepts for them.
type AssetClass string

const (
	Crypto AssetClass = "crypto"
	Equity AssetClass = "equity"
	ETF    AssetClass = "etf"
)

// TimeInForce mirrors the broker's order lifetime values.
type TimeInForce string

const (
	GTC TimeInForce = "gtc"
	Day TimeInForce = "day"
)

// Capabilities declares what order shapes the broker supports for an asset
// class. Validation consults this table instead of special-casing symbols.
type Capabilities struct {
	Fractional      bool // dollar-sized (notional) orders allowed
	FractionalShort bool // short sales of fractional quantities allowed
	EntryTIF        TimeInForce
}

// Capability lookup by asset class. ETFs trade like equities.
var capabilities = map[AssetClass]Capabilities{
	Crypto: {Fractional: true, FractionalShort: false, EntryTIF: GTC},
	Equity: {Fractional: true, FractionalShort: false, EntryTIF: Day},
	ETF:    {Fractional: true, FractionalShort: false, EntryTIF: Day},
}

func CapabilitiesFor(class AssetClass) Capabilities {
	if c, ok := capabilities[class]; ok {
		return c
	}
	// Unknown classes get the most restrictive shape.
	return Capabilities{Fractional: false, FractionalShort: false, EntryTIF: GTC}
}

// Classify infers the asset class from symbol shape: pair notation
// ("BTC/USD") or an all-caps XXXUSD ticker longer than three letters is
// crypto, anything else an equity.
func Classify(symbol string) AssetClass {
	if strings.Contains(symbol, "/") {
		return Crypto
	}
	if len(symbol) > 3 && strings.HasSuffix(symbol, "USD") && symbol == strings.ToUpper(symbol) {
		return Crypto
	}
	return Equity
}

// BaseSymbol strips the pair separator for broker endpoints that want
// "BTCUSD" rather than "BTC/USD".
func BaseSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

// NormalizeSymbol restores pair notation for crypto tickers so positions
// reported as "BTCUSD" match the configured "BTC/USD".
func NormalizeSymbol(symbol string) string {
	if strings.Contains(symbol, "/") {
		return symbol
	}
	if len(symbol) > 3 && strings.HasSuffix(symbol, "USD") && symbol == strings.ToUpper(symbol) {
		return symbol[:len(symbol)-3] + "/USD"
	}
	return symbol
}

// Candle represents OHLC candlestick data.
type Candle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Time   time.Time
}

// Quote is the latest known price for a symbol.
type Quote struct {
	Symbol string
	Price  float64
	Time   time.Time
}

// Position is an open holding as reported by the broker. Qty is signed:
// negative for shorts.
type Position struct {
	Symbol     string
	Qty        float64
	EntryPrice float64
	MarketValue float64
}

func (p Position) Side() Side {
	if p.Qty < 0 {
		return Short
	}
	return Long
}

// Notional returns the absolute dollar value of the position, preferring the
// broker-reported market value when present.
func (p Position) Notional() float64 {
	v := p.MarketValue
	if v == 0 {
		v = p.Qty * p.EntryPrice
	}
	if v < 0 {
		return -v
	}
	return v
}
