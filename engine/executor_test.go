package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/broker/paper"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/risk"
)

func testRiskCfg() risk.Config {
	return risk.Config{
		RiskPerTrade:      0.004,
		MaxGrossExposure:  1.5,
		TakeProfitPct:     0.025,
		StopLossPct:       0.02,
		MinNotionalEquity: 1.0,
		MinNotionalCrypto: 10.0,
	}
}

type executorFixture struct {
	exec     *Executor
	broker   *paper.Broker
	journal  *memJournal
	notifier *memNotifier
	ledger   *CashLedger
}

func newExecutorFixture(cash float64) *executorFixture {
	b := paper.New(cash)
	j := &memJournal{}
	n := &memNotifier{}
	l := NewCashLedger()
	return &executorFixture{
		exec:     NewExecutor(b, b, l, j, n, 0.90),
		broker:   b,
		journal:  j,
		notifier: n,
		ledger:   l,
	}
}

func TestSubmitSkipsDustQuantities(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	_, err := f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "BTC/USD", Side: market.Long, Qty: 1e-9, EntryPrice: 30000, Class: market.Crypto,
	}, testRiskCfg(), 100000)

	assert.ErrorIs(t, err, ErrNoTrade)
	assert.Equal(t, 0.0, f.ledger.Reserved())
	assert.Empty(t, f.journal.entries)
}

func TestSubmitCapsNotionalAtCashFraction(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("BTC/USD", 30000)

	// 0.667 BTC at 30k would cost $20,010 but only $5,000 cash is available:
	// the order shrinks to 90% of it, $4,500, which is 0.15 BTC.
	fill, err := f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "BTC/USD", Side: market.Long, Qty: 0.667, EntryPrice: 30000, Class: market.Crypto,
	}, testRiskCfg(), 5000)

	require.NoError(t, err)
	assert.InDelta(t, 0.15, fill.Qty, 1e-6)
	assert.InDelta(t, 4500, f.ledger.Reserved(), 1e-6, "successful submission keeps its reservation")
	require.Len(t, f.journal.entries, 1)
	assert.Equal(t, "BTC/USD", f.journal.entries[0].Symbol)
	assert.Equal(t, []string{"BTC/USD"}, f.notifier.entries)
}

func TestSubmitRejectsBelowMinimumNotional(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("BTC/USD", 30000)

	_, err := f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "BTC/USD", Side: market.Long, Qty: 0.0001, EntryPrice: 30000, Class: market.Crypto,
	}, testRiskCfg(), 100000)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "below minimum")
	assert.Equal(t, 0.0, f.ledger.Reserved())
}

func TestSubmitRejectsFractionalShorts(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("SPY", 500)

	_, err := f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "SPY", Side: market.Short, Qty: 0.5, EntryPrice: 500, Class: market.Equity,
	}, testRiskCfg(), 100000)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "fractional short")
}

func TestSubmitFloorsWholeUnitClasses(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("XYZ", 10)

	// An unrecognized class gets the most restrictive capabilities: whole
	// units only.
	fill, err := f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "XYZ", Side: market.Long, Qty: 2.7, EntryPrice: 10, Class: market.AssetClass("future"),
	}, testRiskCfg(), 100000)

	require.NoError(t, err)
	assert.Equal(t, 2.0, fill.Qty)

	_, err = f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "XYZ", Side: market.Long, Qty: 0.8, EntryPrice: 10, Class: market.AssetClass("future"),
	}, testRiskCfg(), 100000)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "below one share")
}

func TestSubmitRejectsWhenReservationsExhausted(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("BTC/USD", 30000)
	f.ledger.Reserve(900, 1000)

	_, err := f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "BTC/USD", Side: market.Long, Qty: 1, EntryPrice: 30000, Class: market.Crypto,
	}, testRiskCfg(), 1000)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Reason, "does not fit")
	assert.Equal(t, 900.0, f.ledger.Reserved(), "failed reservation must not change the ledger")
}

func TestSubmitReleasesReservationOnBrokerFailure(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("BTC/USD", 30000)
	f.broker.FailWith = broker.NewError("insufficient balance for order")

	_, err := f.exec.Submit(context.Background(), PositionIntent{
		Symbol: "BTC/USD", Side: market.Long, Qty: 0.5, EntryPrice: 30000, Class: market.Crypto,
	}, testRiskCfg(), 100000)

	require.Error(t, err)
	assert.Equal(t, broker.KindInsufficientBalance, broker.KindOf(err))
	assert.Equal(t, 0.0, f.ledger.Reserved(), "failed submission must release its reservation")
	assert.Empty(t, f.journal.entries)
}

func TestSubmitReleasesReservationOnCancelledContext(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("BTC/USD", 30000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.exec.Submit(ctx, PositionIntent{
		Symbol: "BTC/USD", Side: market.Long, Qty: 0.5, EntryPrice: 30000, Class: market.Crypto,
	}, testRiskCfg(), 100000)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0.0, f.ledger.Reserved())
}

func TestCloseAllNoPositionIsNoop(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)

	closed, err := f.exec.CloseAll(context.Background(), "BTC/USD", "anything")
	require.NoError(t, err)
	assert.False(t, closed)
	assert.Empty(t, f.journal.exits)
}

func TestCloseAllRealizesLongProfit(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("SPY", 100)
	_, err := f.broker.SubmitOrder(context.Background(), broker.OrderRequest{
		Symbol: "SPY", Side: broker.Buy, Qty: 2, TimeInForce: market.Day,
	})
	require.NoError(t, err)

	f.broker.SetQuote("SPY", 110)
	closed, err := f.exec.CloseAll(context.Background(), "SPY", "signal reversal")

	require.NoError(t, err)
	assert.True(t, closed)
	require.Len(t, f.journal.exits, 1)
	exit := f.journal.exits[0]
	assert.InDelta(t, 20.0, exit.RealizedPnL, 1e-9)
	assert.InDelta(t, 0.10, exit.RealizedPnLPct, 1e-9)
	assert.Equal(t, "signal reversal", exit.Reason)
	assert.Equal(t, []string{"SPY"}, f.notifier.exits)
}

func TestCloseAllRealizesShortProfit(t *testing.T) {
	t.Parallel()

	f := newExecutorFixture(100000)
	f.broker.SetQuote("SPY", 100)
	_, err := f.broker.SubmitOrder(context.Background(), broker.OrderRequest{
		Symbol: "SPY", Side: broker.Sell, Qty: 1, TimeInForce: market.Day,
	})
	require.NoError(t, err)

	f.broker.SetQuote("SPY", 90)
	closed, err := f.exec.CloseAll(context.Background(), "SPY", "take profit")

	require.NoError(t, err)
	assert.True(t, closed)
	require.Len(t, f.journal.exits, 1)
	assert.InDelta(t, 10.0, f.journal.exits[0].RealizedPnL, 1e-9)
	assert.InDelta(t, 0.10, f.journal.exits[0].RealizedPnLPct, 1e-9)
}
