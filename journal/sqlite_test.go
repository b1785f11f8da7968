package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/autotrader/market"
)

func newTestSQLite(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "trades.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteEntryExitRoundTrip(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	open := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, j.RecordEntry(Entry{
		TradeID:    "T1",
		Symbol:     "BTC/USD",
		Side:       market.Long,
		Qty:        0.5,
		EntryPrice: 30000,
		OpenTime:   open,
	}))

	rec, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, rec.Status)
	assert.Equal(t, market.Long, rec.Side)

	require.NoError(t, j.RecordExit(Exit{
		Symbol:         "BTC/USD",
		Qty:            0.5,
		ExitPrice:      31000,
		RealizedPnL:    500,
		RealizedPnLPct: 0.0333,
		CloseTime:      open.Add(time.Hour),
		Reason:         "model predicts reversal",
	}))

	rec, err = j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, rec.Status)
	assert.InDelta(t, 500.0, rec.RealizedPnL, 1e-9)
	assert.Equal(t, "model predicts reversal", rec.Reason)
}

func TestSQLitePartialExit(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	open := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, j.RecordEntry(Entry{
		TradeID: "T1", Symbol: "ETH/USD", Side: market.Long,
		Qty: 2.0, EntryPrice: 2000, OpenTime: open,
	}))
	require.NoError(t, j.RecordExit(Exit{
		Symbol: "ETH/USD", Qty: 0.5, ExitPrice: 2100,
		RealizedPnL: 50, CloseTime: open.Add(time.Minute),
	}))

	rec, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyClosed, rec.Status)
	assert.InDelta(t, 1.5, rec.Qty, 1e-9)

	closed, err := j.ListTradesClosedBetween(open, open.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.InDelta(t, 0.5, closed[0].Qty, 1e-9)
}

func TestSQLiteExitWithoutEntry(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	now := time.Now().UTC().Truncate(time.Second)

	// An exit with no matching open trade is still journaled.
	require.NoError(t, j.RecordExit(Exit{
		Symbol: "SPY", Qty: 10, ExitPrice: 400,
		RealizedPnL: -25, CloseTime: now,
	}))

	pnl, n, err := j.TrailingPnL(now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, -25.0, pnl, 1e-9)
}

func TestSQLiteTrailingPnLWindow(t *testing.T) {
	t.Parallel()

	j := newTestSQLite(t)
	now := time.Now().UTC().Truncate(time.Second)

	for i, exit := range []Exit{
		{Symbol: "SPY", Qty: 1, ExitPrice: 400, RealizedPnL: 100, CloseTime: now.Add(-48 * time.Hour)},
		{Symbol: "SPY", Qty: 1, ExitPrice: 400, RealizedPnL: 40, CloseTime: now.Add(-2 * time.Hour)},
		{Symbol: "SPY", Qty: 1, ExitPrice: 400, RealizedPnL: -15, CloseTime: now.Add(-time.Hour)},
	} {
		require.NoError(t, j.RecordExit(exit), "exit %d", i)
	}

	pnl, n, err := j.TrailingPnL(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 25.0, pnl, 1e-9)
}
