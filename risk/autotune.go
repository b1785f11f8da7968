package risk

import "time"

// Tune step multipliers. Multiplicative steps keep adjustments proportional
// and the clamp bounds absorb runaway streaks.
const (
	tuneStepUp   = 1.10
	tuneStepDown = 0.90
	exposureMult = 10.0
)

// TuneState is the persisted auto-tuner output. Restarts resume from the
// last tuned values.
type TuneState struct {
	RiskPerTrade     float64   `json:"risk_per_trade"`
	MaxGrossExposure float64   `json:"max_gross_exposure"`
	LastTuneTime     time.Time `json:"last_tune_time"`
}

// Tuner adjusts risk-per-trade and the exposure cap from trailing realized
// P&L, at most once per cooldown window.
type Tuner struct {
	Cooldown  time.Duration
	MinTrades int
	Bounds    Bounds
}

// Tune returns the adjusted state, or the current state untouched when the
// cooldown has not elapsed. Outside the window the inputs are irrelevant;
// this is what prevents oscillation on noisy short-term P&L.
func (t Tuner) Tune(now time.Time, trailingPnl float64, tradeCount int, cur TuneState) TuneState {
	if !cur.LastTuneTime.IsZero() && now.Sub(cur.LastTuneTime) < t.Cooldown {
		return cur
	}

	next := cur
	switch {
	case tradeCount >= t.MinTrades && trailingPnl > 0:
		next.RiskPerTrade = cur.RiskPerTrade * tuneStepUp
	case trailingPnl < 0:
		next.RiskPerTrade = cur.RiskPerTrade * tuneStepDown
	}

	next.RiskPerTrade = clamp(next.RiskPerTrade, t.Bounds.MinRiskPerTrade, t.Bounds.MaxRiskPerTrade)
	next.MaxGrossExposure = clamp(next.RiskPerTrade*exposureMult, t.Bounds.MinGrossExposure, t.Bounds.MaxGrossExposure)
	next.LastTuneTime = now
	return next
}
