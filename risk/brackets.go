package risk

import "github.com/rustyeddy/autotrader/market"

// Brackets computes the take-profit and stop-loss levels for an entry.
// Unknown sides return (nil, nil); callers must treat nil brackets as
// "do not open". Pure function: it runs once per candidate order and must
// stay deterministic for backtesting reuse.
func Brackets(entry float64, side market.Side, tpPct, slPct float64) (tp, sl *float64) {
	switch side {
	case market.Long:
		t := entry * (1 + tpPct)
		s := entry * (1 - slPct)
		return &t, &s
	case market.Short:
		t := entry * (1 - tpPct)
		s := entry * (1 + slPct)
		return &t, &s
	}
	return nil, nil
}
