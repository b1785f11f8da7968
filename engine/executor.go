package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/notify"
	"github.com/rustyeddy/autotrader/risk"
)

// qtyEpsilon is the smallest quantity worth sending to the broker.
const qtyEpsilon = 1e-6

// ErrNoTrade signals that a sizing decision rounded away to nothing. It is
// "no trade", not a failure: callers skip the symbol without logging a
// warning.
var ErrNoTrade = errors.New("quantity too small to trade")

// ValidationError is a local policy rejection: the order never reaches the
// broker and is never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "order rejected: " + e.Reason
}

// PositionIntent is a fully-formed order candidate from the sizer and
// bracket calculator. Consumed exactly once by Submit; never persisted
// (only the resulting fill is journaled).
type PositionIntent struct {
	Symbol     string
	Side       market.Side
	Qty        float64
	EntryPrice float64
	TakeProfit *float64
	StopLoss   *float64
	Class      market.AssetClass
}

// Executor validates intents against broker constraints and the cash
// ledger, then submits them. It owns no state beyond its collaborators.
type Executor struct {
	broker   broker.Broker
	data     broker.MarketData
	ledger   *CashLedger
	journal  journal.Journal
	notifier notify.Notifier

	cashCapFraction float64
}

func NewExecutor(b broker.Broker, data broker.MarketData, ledger *CashLedger, j journal.Journal, n notify.Notifier, cashCapFraction float64) *Executor {
	return &Executor{
		broker:          b,
		data:            data,
		ledger:          ledger,
		journal:         j,
		notifier:        n,
		cashCapFraction: cashCapFraction,
	}
}

// Submit runs the validation pipeline and places the order. availableCash
// is the broker-reported cash read fresh this cycle. The pipeline steps are
// ordered so that every rejection happens before money is committed, and
// the one step that commits money (the reservation) is atomic.
func (e *Executor) Submit(ctx context.Context, intent PositionIntent, cfg risk.Config, availableCash float64) (broker.OrderFill, error) {
	var zero broker.OrderFill

	// 1. Dust quantities are "no trade", not an error.
	if intent.Qty < qtyEpsilon {
		return zero, ErrNoTrade
	}
	if intent.EntryPrice <= 0 {
		return zero, &ValidationError{Reason: fmt.Sprintf("%s: non-positive entry price", intent.Symbol)}
	}
	if intent.Side != market.Long && intent.Side != market.Short {
		return zero, &ValidationError{Reason: fmt.Sprintf("%s: unknown side %q", intent.Symbol, intent.Side)}
	}

	// 2. Cap notional below available cash to keep a margin buffer. The same
	// capped pool bounds the reservation check below.
	pool := availableCash * e.cashCapFraction
	qty := intent.Qty
	notional := qty * intent.EntryPrice
	if notional > pool {
		notional = pool
		qty = notional / intent.EntryPrice
		if qty < qtyEpsilon {
			return zero, ErrNoTrade
		}
	}

	// 3. Asset-class minimum notional.
	minNotional := cfg.MinNotionalEquity
	if intent.Class == market.Crypto {
		minNotional = cfg.MinNotionalCrypto
	}
	if notional < minNotional {
		return zero, &ValidationError{Reason: fmt.Sprintf(
			"%s: notional $%.2f below minimum $%.2f", intent.Symbol, notional, minNotional)}
	}

	// 4. Fractional short sales only where the broker supports them.
	caps := market.CapabilitiesFor(intent.Class)
	fractional := qty != math.Trunc(qty)
	if intent.Side == market.Short && fractional && !caps.FractionalShort {
		return zero, &ValidationError{Reason: fmt.Sprintf(
			"%s: fractional short of %.6f not supported for %s", intent.Symbol, qty, intent.Class)}
	}

	// 5. Non-fractional classes trade whole units.
	if !caps.Fractional {
		qty = math.Floor(qty)
		if qty < 1 {
			return zero, &ValidationError{Reason: fmt.Sprintf(
				"%s: quantity rounds below one share", intent.Symbol)}
		}
		notional = qty * intent.EntryPrice
	}

	// 6. Atomically reserve the cash before submission so a concurrent order
	// for another symbol cannot commit the same dollars.
	if !e.ledger.Reserve(notional, pool) {
		mtxOrderFailures.WithLabelValues("reservation").Inc()
		return zero, &ValidationError{Reason: fmt.Sprintf(
			"%s: notional $%.2f does not fit (reserved $%.2f of $%.2f)",
			intent.Symbol, notional, e.ledger.Reserved(), pool)}
	}

	// A cancelled cycle must not leave the reservation dangling.
	if err := ctx.Err(); err != nil {
		e.ledger.Release(notional)
		return zero, err
	}

	// 7. Submit in the shape the broker accepts for the asset class.
	req := e.routeOrder(intent, qty, notional, caps)
	fill, err := e.broker.SubmitOrder(ctx, req)
	if err != nil {
		e.ledger.Release(notional)
		mtxOrderFailures.WithLabelValues(string(broker.KindOf(err))).Inc()
		return zero, fmt.Errorf("submit %s %s: %w", intent.Side, intent.Symbol, err)
	}

	// 8. Success: the reservation stays; the next account refresh absorbs it.
	if fill.Qty == 0 {
		fill.Qty = qty
	}
	if fill.Price == 0 {
		fill.Price = intent.EntryPrice
	}
	if fill.Time.IsZero() {
		fill.Time = time.Now().UTC()
	}

	if err := e.journal.RecordEntry(journal.Entry{
		TradeID:    fill.OrderID,
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		Qty:        fill.Qty,
		EntryPrice: fill.Price,
		OpenTime:   fill.Time,
	}); err != nil {
		log.Printf("executor: journal entry for %s: %v", intent.Symbol, err)
	}
	e.notifier.TradeEntry(intent.Symbol, intent.Side, fill.Qty, fill.Price, intent.TakeProfit, intent.StopLoss)
	mtxOrders.WithLabelValues(string(intent.Side), string(intent.Class)).Inc()
	mtxReserved.Set(e.ledger.Reserved())

	return fill, nil
}

// routeOrder picks the order shape per asset class: crypto is
// notional-sized GTC, fractional equity is notional-sized day-only, and
// whole-unit orders go out as integer quantity GTC.
func (e *Executor) routeOrder(intent PositionIntent, qty, notional float64, caps market.Capabilities) broker.OrderRequest {
	req := broker.OrderRequest{
		Symbol: intent.Symbol,
		Side:   broker.SideFor(intent.Side),
		Class:  intent.Class,
	}

	switch {
	case intent.Class == market.Crypto:
		req.Notional = round2(notional)
		req.TimeInForce = market.GTC
	case caps.Fractional:
		req.Notional = round2(notional)
		req.TimeInForce = market.Day
	default:
		req.Qty = qty
		req.TimeInForce = market.GTC
	}
	return req
}

// CloseAll flattens the full position for a symbol with a broker-native
// close. Closing a symbol with no open position is a no-op, not an error.
func (e *Executor) CloseAll(ctx context.Context, symbol, reason string) (bool, error) {
	pos, err := e.broker.Position(ctx, symbol)
	if errors.Is(err, broker.ErrNoPosition) {
		log.Printf("executor: no open position for %s", symbol)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup position %s: %w", symbol, err)
	}

	fill, err := e.broker.ClosePosition(ctx, symbol)
	if errors.Is(err, broker.ErrNoPosition) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("close %s: %w", symbol, err)
	}

	exitPrice := fill.Price
	if exitPrice == 0 {
		// Broker gave no fill price; estimate from the latest bar.
		if q, qerr := e.data.LatestQuote(ctx, symbol, market.Classify(symbol)); qerr == nil {
			exitPrice = q.Price
		} else {
			log.Printf("executor: no exit price estimate for %s: %v", symbol, qerr)
		}
	}

	absQty := math.Abs(pos.Qty)
	var pnl float64
	if pos.Qty > 0 {
		pnl = (exitPrice - pos.EntryPrice) * pos.Qty
	} else {
		pnl = (pos.EntryPrice - exitPrice) * absQty
	}
	var pnlPct float64
	if basis := pos.EntryPrice * absQty; basis != 0 {
		pnlPct = pnl / basis
	}

	closeTime := fill.Time
	if closeTime.IsZero() {
		closeTime = time.Now().UTC()
	}
	if err := e.journal.RecordExit(journal.Exit{
		Symbol:         symbol,
		Qty:            absQty,
		ExitPrice:      exitPrice,
		RealizedPnL:    pnl,
		RealizedPnLPct: pnlPct,
		CloseTime:      closeTime,
		Reason:         reason,
	}); err != nil {
		log.Printf("executor: journal exit for %s: %v", symbol, err)
	}
	e.notifier.TradeExit(symbol, pos.Side(), absQty, exitPrice, pnl, pnlPct)
	mtxExits.WithLabelValues(reason).Inc()

	return true, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
