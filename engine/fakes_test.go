package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/signal"
)

// memJournal records journal events in memory.
type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
	exits   []journal.Exit
	pnl     float64
	trades  int
}

func (m *memJournal) RecordEntry(e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) RecordExit(e journal.Exit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exits = append(m.exits, e)
	return nil
}

func (m *memJournal) TrailingPnL(time.Time) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pnl, m.trades, nil
}

func (m *memJournal) Close() error { return nil }

// memNotifier records notifications instead of delivering them.
type memNotifier struct {
	mu        sync.Mutex
	entries   []string
	exits     []string
	riskStops []string
	errors    []string
}

func (m *memNotifier) TradeEntry(symbol string, side market.Side, qty, price float64, tp, sl *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, symbol)
}

func (m *memNotifier) TradeExit(symbol string, side market.Side, qty, price, pnl, pnlPct float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exits = append(m.exits, symbol)
}

func (m *memNotifier) RiskStop(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riskStops = append(m.riskStops, msg)
}

func (m *memNotifier) Error(title, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, title)
}

// scriptedProvider returns a fixed result (or error) per symbol.
type scriptedProvider struct {
	results map[string]signal.Result
	errs    map[string]error
}

func (s *scriptedProvider) Evaluate(_ context.Context, symbol string) (signal.Result, error) {
	if err, ok := s.errs[symbol]; ok {
		return signal.Result{}, err
	}
	return s.results[symbol], nil
}
