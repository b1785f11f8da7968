// Package paper is an in-memory broker used by tests and by paper runs
// without live credentials. It honors the same order shapes as the live
// endpoint and fills every order at the latest quote.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/id"
	"github.com/rustyeddy/autotrader/market"
)

type Broker struct {
	mu        sync.Mutex
	cash      float64
	positions map[string]*market.Position
	quotes    map[string]market.Quote

	// FailWith, when set, makes the next SubmitOrder return this error and
	// clears itself. Used to exercise rejection paths in tests.
	FailWith error
}

func New(cash float64) *Broker {
	return &Broker{
		cash:      cash,
		positions: make(map[string]*market.Position),
		quotes:    make(map[string]market.Quote),
	}
}

// SetQuote installs the current price for a symbol.
func (b *Broker) SetQuote(symbol string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.quotes[symbol] = market.Quote{Symbol: symbol, Price: price, Time: time.Now().UTC()}
}

func (b *Broker) Account(ctx context.Context) (broker.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	equity := b.cash
	for _, p := range b.positions {
		if q, ok := b.quotes[p.Symbol]; ok {
			equity += p.Qty * q.Price
		} else {
			equity += p.Qty * p.EntryPrice
		}
	}
	return broker.Account{Cash: b.cash, Equity: equity, LastEquity: equity}, nil
}

func (b *Broker) Positions(ctx context.Context) ([]market.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]market.Position, 0, len(b.positions))
	for _, p := range b.positions {
		out = append(out, b.valued(*p))
	}
	return out, nil
}

func (b *Broker) Position(ctx context.Context, symbol string) (market.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.positions[market.NormalizeSymbol(symbol)]
	if !ok {
		return market.Position{}, broker.ErrNoPosition
	}
	return b.valued(*p), nil
}

func (b *Broker) valued(p market.Position) market.Position {
	if q, ok := b.quotes[p.Symbol]; ok {
		p.MarketValue = p.Qty * q.Price
	}
	return p
}

func (b *Broker) SubmitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderFill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.FailWith != nil {
		err := b.FailWith
		b.FailWith = nil
		return broker.OrderFill{}, err
	}

	symbol := market.NormalizeSymbol(req.Symbol)
	q, ok := b.quotes[symbol]
	if !ok {
		return broker.OrderFill{}, fmt.Errorf("%s: %w", symbol, broker.ErrDataUnavailable)
	}

	qty := req.Qty
	if req.Notional > 0 {
		qty = req.Notional / q.Price
	}
	if qty <= 0 {
		return broker.OrderFill{}, broker.NewError("qty must be positive")
	}

	signed := qty
	if req.Side == broker.Sell {
		signed = -qty
	}
	cost := signed * q.Price
	if req.Side == broker.Buy && cost > b.cash {
		return broker.OrderFill{}, broker.NewError("insufficient balance")
	}

	if p, ok := b.positions[symbol]; ok {
		total := p.Qty + signed
		if total == 0 {
			delete(b.positions, symbol)
		} else {
			// Weighted entry only when adding in the same direction.
			if (p.Qty > 0) == (signed > 0) {
				p.EntryPrice = (p.EntryPrice*p.Qty + q.Price*signed) / total
			}
			p.Qty = total
		}
	} else {
		b.positions[symbol] = &market.Position{Symbol: symbol, Qty: signed, EntryPrice: q.Price}
	}
	b.cash -= cost

	return broker.OrderFill{
		OrderID: id.New(),
		Symbol:  symbol,
		Side:    req.Side,
		Qty:     qty,
		Price:   q.Price,
		Time:    time.Now().UTC(),
	}, nil
}

func (b *Broker) ClosePosition(ctx context.Context, symbol string) (broker.OrderFill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	symbol = market.NormalizeSymbol(symbol)
	p, ok := b.positions[symbol]
	if !ok {
		return broker.OrderFill{}, broker.ErrNoPosition
	}

	price := p.EntryPrice
	if q, ok := b.quotes[symbol]; ok {
		price = q.Price
	}

	side := broker.Sell
	if p.Qty < 0 {
		side = broker.Buy
	}
	qty := p.Qty
	if qty < 0 {
		qty = -qty
	}

	b.cash += p.Qty * price
	delete(b.positions, symbol)

	return broker.OrderFill{
		OrderID: id.New(),
		Symbol:  symbol,
		Side:    side,
		Qty:     qty,
		Price:   price,
		Time:    time.Now().UTC(),
	}, nil
}

func (b *Broker) LatestQuote(ctx context.Context, symbol string, class market.AssetClass) (market.Quote, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.quotes[market.NormalizeSymbol(symbol)]
	if !ok {
		return market.Quote{}, fmt.Errorf("%s: %w", symbol, broker.ErrDataUnavailable)
	}
	return q, nil
}

// Candles synthesizes flat candles from the current quote so signal providers
// can run against the paper broker.
func (b *Broker) Candles(ctx context.Context, symbol string, class market.AssetClass, limit int) ([]market.Candle, error) {
	q, err := b.LatestQuote(ctx, symbol, class)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 1
	}
	candles := make([]market.Candle, limit)
	for i := range candles {
		candles[i] = market.Candle{
			Open: q.Price, High: q.Price, Low: q.Price, Close: q.Price,
			Time: q.Time.Add(-time.Duration(limit-1-i) * time.Minute),
		}
	}
	return candles, nil
}
