package risk

import "errors"

// Config is the risk budget for one cycle. It is an immutable snapshot:
// the engine reads it once per cycle and only the auto-tuner produces new
// values between cycles.
type Config struct {
	RiskPerTrade      float64 // fraction of equity risked per position
	MaxGrossExposure  float64 // multiple of equity
	TakeProfitPct     float64
	StopLossPct       float64
	MinNotionalEquity float64
	MinNotionalCrypto float64
}

// Bounds clamp the tunable parameters.
type Bounds struct {
	MinRiskPerTrade  float64
	MaxRiskPerTrade  float64
	MinGrossExposure float64
	MaxGrossExposure float64
}

var (
	// ErrDailyStop signals the daily loss limit was breached. Callers must
	// stop the loop for the rest of the day, not retry.
	ErrDailyStop = errors.New("daily loss limit breached")
	// ErrExposureBreach signals gross exposure at or above the cap; no new
	// risk may be taken until a position is shed.
	ErrExposureBreach = errors.New("gross exposure limit breached")
	// ErrBadEquity signals a non-positive equity snapshot, which makes every
	// percentage undefined. Treated as a hard stop for the cycle.
	ErrBadEquity = errors.New("equity must be positive")
)

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
