package risk

import (
	"github.com/samber/lo"

	"github.com/rustyeddy/autotrader/market"
)

// GrossExposure computes the gross exposure ratio: the sum of absolute
// position notionals over equity. Equity <= 0 is an error state; the ratio
// is forced to 0 so callers never size against garbage.
func GrossExposure(positions []market.Position, equity float64) (float64, error) {
	if equity <= 0 {
		return 0, ErrBadEquity
	}
	gross := lo.SumBy(positions, func(p market.Position) float64 {
		return p.Notional()
	})
	return gross / equity, nil
}

// SmallestPosition picks the position to shed when exposure breaches: the
// smallest by notional, to reduce exposure with minimal market impact.
func SmallestPosition(positions []market.Position) (market.Position, bool) {
	if len(positions) == 0 {
		return market.Position{}, false
	}
	return lo.MinBy(positions, func(a, b market.Position) bool {
		return a.Notional() < b.Notional()
	}), true
}
