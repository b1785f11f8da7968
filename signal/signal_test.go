package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/autotrader/market"
)

func TestRuleScores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		f    Features
		want float64
	}{
		{
			"uptrend neutral rsi",
			Features{Close: 105, EMA12: 104, EMA26: 100, RSI14: 50, ATR: 1},
			0.7, // +0.5 trend, 0 rsi, +0.2 momentum
		},
		{
			"downtrend neutral rsi",
			Features{Close: 95, EMA12: 96, EMA26: 100, RSI14: 50, ATR: 1},
			-0.7,
		},
		{
			"uptrend overbought",
			Features{Close: 105, EMA12: 104, EMA26: 100, RSI14: 75, ATR: 1},
			0.4, // rsi pulls -0.3
		},
		{
			"downtrend oversold",
			Features{Close: 95, EMA12: 96, EMA26: 100, RSI14: 25, ATR: 1},
			-0.4,
		},
		{
			"high volatility halves confidence",
			Features{Close: 100, EMA12: 101, EMA26: 99, RSI14: 50, ATR: 4},
			0.35,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Rule(tt.f), 1e-9)
		})
	}
}

func risingCandles(n int) []market.Candle {
	candles := make([]market.Candle, n)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	price := 100.0
	for i := range candles {
		price += 0.5
		candles[i] = market.Candle{
			Open:  price - 0.3,
			High:  price + 0.4,
			Low:   price - 0.6,
			Close: price,
			Time:  base.Add(time.Duration(i) * time.Minute),
		}
	}
	return candles
}

func TestComputeNeedsHistory(t *testing.T) {
	t.Parallel()

	_, err := Compute(risingCandles(10), 14)
	assert.Error(t, err)

	_, err = Compute(risingCandles(40), 45)
	assert.Error(t, err)
}

func TestComputeRisingMarket(t *testing.T) {
	t.Parallel()

	f, err := Compute(risingCandles(60), 14)
	require.NoError(t, err)

	assert.Greater(t, f.EMA12, f.EMA26, "fast EMA leads in an uptrend")
	assert.Greater(t, f.RSI14, 50.0)
	assert.Greater(t, f.ATR, 0.0)
	assert.InDelta(t, 130.0, f.Close, 1e-9)
}

func TestSmoothHysteresis(t *testing.T) {
	t.Parallel()

	h := NewHybrid(nil, nil, 14, 0.2)

	assert.InDelta(t, 0.5, h.smooth("BTC/USD", 0.5), 1e-12)
	// Inside the band: hold the previous score.
	assert.InDelta(t, 0.5, h.smooth("BTC/USD", 0.4), 1e-12)
	assert.InDelta(t, 0.5, h.smooth("BTC/USD", 0.35), 1e-12)
	// Outside the band: move.
	assert.InDelta(t, 0.1, h.smooth("BTC/USD", 0.1), 1e-12)
	// Symbols smooth independently.
	assert.InDelta(t, -0.3, h.smooth("ETH/USD", -0.3), 1e-12)
}

type fakeData struct {
	candles []market.Candle
}

func (f *fakeData) LatestQuote(ctx context.Context, symbol string, class market.AssetClass) (market.Quote, error) {
	last := f.candles[len(f.candles)-1]
	return market.Quote{Symbol: symbol, Price: last.Close, Time: last.Time}, nil
}

func (f *fakeData) Candles(ctx context.Context, symbol string, class market.AssetClass, limit int) ([]market.Candle, error) {
	return f.candles, nil
}

type fakeModel struct {
	pred float64
	err  error
}

func (m *fakeModel) Predict(Features) (float64, error) { return m.pred, m.err }

func TestHybridBlendsModelAndRules(t *testing.T) {
	t.Parallel()

	candles := risingCandles(60)
	feats, err := Compute(candles, 14)
	require.NoError(t, err)
	rule := Rule(feats)

	model := &fakeModel{pred: -1.0}
	h := NewHybrid(&fakeData{candles: candles}, model, 14, 0.0)

	res, err := h.Evaluate(context.Background(), "SPY")
	require.NoError(t, err)
	assert.InDelta(t, 0.7*(-1.0)+0.3*rule, res.Score, 1e-9)
	assert.InDelta(t, feats.Close, res.Price, 1e-9)
	assert.InDelta(t, feats.ATR, res.ATR, 1e-9)
}

func TestHybridFallsBackToRulesOnModelError(t *testing.T) {
	t.Parallel()

	candles := risingCandles(60)
	feats, err := Compute(candles, 14)
	require.NoError(t, err)

	h := NewHybrid(&fakeData{candles: candles}, &fakeModel{err: errors.New("model offline")}, 14, 0.0)

	res, err := h.Evaluate(context.Background(), "SPY")
	require.NoError(t, err)
	assert.InDelta(t, Rule(feats), res.Score, 1e-9)
}
