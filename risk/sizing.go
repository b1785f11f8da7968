package risk

import "math"

// Confidence multiplier clamp range. The multiplier scales the raw
// volatility-target size and may never push it above 1.5x.
const (
	minConfidence = 0.1
	maxConfidence = 1.5
)

// Size converts equity, price and volatility into a target quantity.
// Volatility is an absolute price-range proxy (ATR in price units), so the
// result ties position size to dollar risk per unit of price movement:
// higher-volatility instruments get smaller sizes for equal dollar risk.
// Fails closed (returns 0) when volatility or price is non-positive.
func Size(equity, price, volatility, riskPerTrade float64) float64 {
	if volatility <= 0 || price <= 0 {
		return 0
	}
	units := (equity * riskPerTrade) / volatility
	return math.Max(units, 0)
}

// KellyCap returns the bounded Kelly fraction for an estimated win
// probability. The cap keeps a confident signal from betting big.
func KellyCap(prob, winLoss, cap float64) float64 {
	edge := prob*(1+winLoss) - 1
	frac := edge / math.Max(winLoss, 1e-6)
	return clamp(frac, 0, cap)
}

// ConfidenceMultiplier derives the size multiplier from signal strength,
// clamped to [0.1, 1.5]. kellyCap bounds the Kelly contribution, typically
// riskPerTrade*4.
func ConfidenceMultiplier(signal, kellyCap float64) float64 {
	s := math.Abs(signal)
	k := KellyCap(0.5+s/2, 1.0, kellyCap)
	return clamp(s+k, minConfidence, maxConfidence)
}
