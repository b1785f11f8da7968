package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/market"
)

type apiBar struct {
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	Time   string  `json:"t"`
}

type cryptoBarsResponse struct {
	Bars map[string][]apiBar `json:"bars"`
}

type stockBarsResponse struct {
	Bars []apiBar `json:"bars"`
}

// Candles fetches the most recent 1-minute bars for a symbol.
func (c *Client) Candles(ctx context.Context, symbol string, class market.AssetClass, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("timeframe", "1Min")
	params.Set("limit", fmt.Sprintf("%d", limit))

	var raw []apiBar
	if class == market.Crypto {
		params.Set("symbols", symbol)
		u := fmt.Sprintf("%s/v1beta3/crypto/us/bars?%s", c.dataURL, params.Encode())
		var resp cryptoBarsResponse
		if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
			return nil, fmt.Errorf("get crypto bars: %w", err)
		}
		raw = resp.Bars[symbol]
	} else {
		u := fmt.Sprintf("%s/v2/stocks/%s/bars?%s", c.dataURL, url.PathEscape(symbol), params.Encode())
		var resp stockBarsResponse
		if err := c.do(ctx, http.MethodGet, u, nil, &resp); err != nil {
			return nil, fmt.Errorf("get stock bars: %w", err)
		}
		raw = resp.Bars
	}

	if len(raw) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, broker.ErrDataUnavailable)
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, b := range raw {
		t, err := time.Parse(time.RFC3339, b.Time)
		if err != nil {
			return nil, fmt.Errorf("parse bar time %s: %w", b.Time, err)
		}
		candles = append(candles, market.Candle{
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Time:   t,
		})
	}
	return candles, nil
}

// LatestQuote derives the latest price from the most recent bar close.
func (c *Client) LatestQuote(ctx context.Context, symbol string, class market.AssetClass) (market.Quote, error) {
	candles, err := c.Candles(ctx, symbol, class, 1)
	if err != nil {
		return market.Quote{}, err
	}
	last := candles[len(candles)-1]
	return market.Quote{Symbol: symbol, Price: last.Close, Time: last.Time}, nil
}
