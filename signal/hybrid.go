package signal

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/market"
)

// candleLimit is how much history each evaluation fetches.
const candleLimit = 100

// Hybrid blends model predictions with rule scores (0.7/0.3) and smooths
// the output through a hysteresis band so the engine does not flip-flop on
// noise. The per-symbol smoothing state is owned here explicitly, not
// hidden in a global.
type Hybrid struct {
	data       broker.MarketData
	model      Model // nil means rules only
	atrPeriod  int
	hysteresis float64

	mu   sync.Mutex
	last map[string]float64
}

// NewHybrid builds the provider. model may be nil; the rule score then
// stands alone, which is also the fallback when a prediction fails.
func NewHybrid(data broker.MarketData, model Model, atrPeriod int, hysteresis float64) *Hybrid {
	if atrPeriod <= 0 {
		atrPeriod = 14
	}
	return &Hybrid{
		data:       data,
		model:      model,
		atrPeriod:  atrPeriod,
		hysteresis: hysteresis,
		last:       make(map[string]float64),
	}
}

func (h *Hybrid) Evaluate(ctx context.Context, symbol string) (Result, error) {
	class := market.Classify(symbol)
	candles, err := h.data.Candles(ctx, symbol, class, candleLimit)
	if err != nil {
		return Result{}, fmt.Errorf("candles for %s: %w", symbol, err)
	}

	f, err := Compute(candles, h.atrPeriod)
	if err != nil {
		return Result{}, fmt.Errorf("features for %s: %w", symbol, err)
	}

	rule := Rule(f)
	score := rule
	if h.model != nil {
		pred, err := h.model.Predict(f)
		if err != nil {
			log.Printf("signal: model prediction failed for %s, using rules: %v", symbol, err)
		} else {
			score = 0.7*clip(pred) + 0.3*rule
		}
	}

	// Heavy volatility halves confidence in the blend as well.
	if f.Close > 0 && f.ATR/f.Close > 0.05 {
		score *= 0.5
	}
	score = h.smooth(symbol, clip(score))

	return Result{Symbol: symbol, Score: score, Price: f.Close, ATR: f.ATR}, nil
}

// smooth applies a single hysteresis band: the stored score only moves when
// the new one differs by at least the configured threshold.
func (h *Hybrid) smooth(symbol string, score float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	last, ok := h.last[symbol]
	if ok && abs(score-last) < h.hysteresis {
		return last
	}
	h.last[symbol] = score
	return score
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
