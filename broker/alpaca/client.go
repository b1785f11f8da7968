package alpaca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/market"
)

const (
	// PaperURL is the paper-trading environment.
	PaperURL = "https://paper-api.alpaca.markets"
	// LiveURL is the live trading environment.
	LiveURL = "https://api.alpaca.markets"
	// DataURL serves market data for both environments.
	DataURL = "https://data.alpaca.markets"
)

// Client talks to the Alpaca trading and data APIs. It implements both
// broker.Broker and broker.MarketData.
type Client struct {
	baseURL    string
	dataURL    string
	key        string
	secret     string
	httpClient *http.Client
}

// NewClient creates an Alpaca API client.
func NewClient(key, secret, baseURL, dataURL string) *Client {
	if baseURL == "" {
		baseURL = PaperURL
	}
	if dataURL == "" {
		dataURL = DataURL
	}
	return &Client{
		baseURL: baseURL,
		dataURL: dataURL,
		key:     key,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type apiAccount struct {
	Cash       string `json:"cash"`
	Equity     string `json:"equity"`
	LastEquity string `json:"last_equity"`
}

type apiPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	AvgEntryPrice string `json:"avg_entry_price"`
	MarketValue   string `json:"market_value"`
}

type apiOrder struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	Side           string `json:"side"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
	FilledAt       string `json:"filled_at"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, rawURL string, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, rdr)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("APCA-API-KEY-ID", c.key)
	req.Header.Set("APCA-API-SECRET-KEY", c.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return broker.ErrNoPosition
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		var ae apiError
		if err := json.Unmarshal(data, &ae); err == nil && ae.Message != "" {
			return broker.NewError(ae.Message)
		}
		return broker.NewError(fmt.Sprintf("status %d: %s", resp.StatusCode, string(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) Account(ctx context.Context) (broker.Account, error) {
	var a apiAccount
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/account", nil, &a); err != nil {
		return broker.Account{}, fmt.Errorf("get account: %w", err)
	}
	return broker.Account{
		Cash:       parseFloat(a.Cash),
		Equity:     parseFloat(a.Equity),
		LastEquity: parseFloat(a.LastEquity),
	}, nil
}

func (c *Client) Positions(ctx context.Context) ([]market.Position, error) {
	var raw []apiPosition
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v2/positions", nil, &raw); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	out := make([]market.Position, 0, len(raw))
	for _, p := range raw {
		out = append(out, market.Position{
			Symbol:      market.NormalizeSymbol(p.Symbol),
			Qty:         parseFloat(p.Qty),
			EntryPrice:  parseFloat(p.AvgEntryPrice),
			MarketValue: parseFloat(p.MarketValue),
		})
	}
	return out, nil
}

func (c *Client) Position(ctx context.Context, symbol string) (market.Position, error) {
	var p apiPosition
	u := c.baseURL + "/v2/positions/" + url.PathEscape(market.BaseSymbol(symbol))
	if err := c.do(ctx, http.MethodGet, u, nil, &p); err != nil {
		return market.Position{}, err
	}
	return market.Position{
		Symbol:      market.NormalizeSymbol(p.Symbol),
		Qty:         parseFloat(p.Qty),
		EntryPrice:  parseFloat(p.AvgEntryPrice),
		MarketValue: parseFloat(p.MarketValue),
	}, nil
}

func (c *Client) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderFill, error) {
	body := map[string]any{
		"symbol":        market.BaseSymbol(req.Symbol),
		"side":          string(req.Side),
		"type":          "market",
		"time_in_force": string(req.TimeInForce),
	}
	if req.Notional > 0 {
		body["notional"] = strconv.FormatFloat(req.Notional, 'f', 2, 64)
	} else {
		body["qty"] = strconv.FormatFloat(req.Qty, 'f', -1, 64)
	}

	var o apiOrder
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v2/orders", body, &o); err != nil {
		return broker.OrderFill{}, err
	}
	return fillFromOrder(o), nil
}

func (c *Client) ClosePosition(ctx context.Context, symbol string) (broker.OrderFill, error) {
	var o apiOrder
	u := c.baseURL + "/v2/positions/" + url.PathEscape(market.BaseSymbol(symbol))
	if err := c.do(ctx, http.MethodDelete, u, nil, &o); err != nil {
		return broker.OrderFill{}, err
	}
	return fillFromOrder(o), nil
}

func fillFromOrder(o apiOrder) broker.OrderFill {
	fill := broker.OrderFill{
		OrderID: o.ID,
		Symbol:  market.NormalizeSymbol(o.Symbol),
		Side:    broker.OrderSide(o.Side),
		Qty:     parseFloat(o.FilledQty),
		Price:   parseFloat(o.FilledAvgPrice),
	}
	if t, err := time.Parse(time.RFC3339, o.FilledAt); err == nil {
		fill.Time = t
	} else {
		fill.Time = time.Now().UTC()
	}
	return fill
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
