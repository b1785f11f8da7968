// Package signal produces the directional score the engine sizes against.
// Scores live in [-1, 1]; 0 means "no opinion".
package signal

import (
	"context"
	"fmt"

	"github.com/cinar/indicator"

	"github.com/rustyeddy/autotrader/market"
)

// minBars is the history needed for the slow EMA and RSI to settle.
const minBars = 30

// Result is one symbol's evaluation: the blended score plus the price and
// volatility the engine needs to size the trade from the same data fetch.
type Result struct {
	Symbol string
	Score  float64
	Price  float64
	ATR    float64
}

// Provider produces a directional signal for a symbol.
type Provider interface {
	Evaluate(ctx context.Context, symbol string) (Result, error)
}

// Model is the optional predictive collaborator. Predictions are expected
// in [-1, 1] like rule scores.
type Model interface {
	Predict(f Features) (float64, error)
}

// Features are the indicator values the rule signal and model consume.
type Features struct {
	Close  float64
	EMA12  float64
	EMA26  float64
	RSI14  float64
	ATR    float64
}

// Compute derives features from candle history. Needs at least minBars
// candles and an extra bar beyond the ATR period.
func Compute(candles []market.Candle, atrPeriod int) (Features, error) {
	if len(candles) < minBars || len(candles) <= atrPeriod {
		return Features{}, fmt.Errorf("need at least %d candles, got %d", max(minBars, atrPeriod+1), len(candles))
	}

	high := make([]float64, len(candles))
	low := make([]float64, len(candles))
	closing := make([]float64, len(candles))
	for i, c := range candles {
		high[i] = c.High
		low[i] = c.Low
		closing[i] = c.Close
	}

	ema12 := indicator.Ema(12, closing)
	ema26 := indicator.Ema(26, closing)
	_, rsi := indicator.RsiPeriod(14, closing)
	_, atr := indicator.Atr(atrPeriod, high, low, closing)

	last := len(candles) - 1
	return Features{
		Close: closing[last],
		EMA12: ema12[last],
		EMA26: ema26[last],
		RSI14: rsi[last],
		ATR:   atr[last],
	}, nil
}

// Rule scores a feature row from EMA trend, RSI band and price momentum,
// weighted 0.5/0.3/0.2, with confidence halved when volatility runs above
// 3% of price.
func Rule(f Features) float64 {
	trend := -1.0
	if f.EMA12 > f.EMA26 {
		trend = 1.0
	}

	var rsi float64
	switch {
	case f.RSI14 > 70:
		rsi = -1.0
	case f.RSI14 < 30:
		rsi = 1.0
	}

	momentum := -1.0
	if f.Close > f.EMA26 {
		momentum = 1.0
	}

	score := 0.5*trend + 0.3*rsi + 0.2*momentum

	if f.Close > 0 && f.ATR/f.Close > 0.03 {
		score *= 0.5
	}
	return clip(score)
}

func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
