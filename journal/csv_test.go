package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/autotrader/market"
)

func TestCSVAppendAndTrailingPnL(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	j, err := NewCSV(path)
	require.NoError(t, err)
	defer j.Close()

	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, j.RecordEntry(Entry{
		Symbol: "BTC/USD", Side: market.Long, Qty: 0.5,
		EntryPrice: 30000, OpenTime: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, j.RecordExit(Exit{
		Symbol: "BTC/USD", Qty: 0.5, ExitPrice: 31000,
		RealizedPnL: 500, CloseTime: now.Add(-time.Hour), Reason: "reversal",
	}))
	require.NoError(t, j.RecordExit(Exit{
		Symbol: "BTC/USD", Qty: 0.2, ExitPrice: 29000,
		RealizedPnL: -200, CloseTime: now.Add(-30 * time.Hour),
	}))

	pnl, n, err := j.TrailingPnL(now.Add(-24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.InDelta(t, 500.0, pnl, 1e-9)
}

func TestCSVReopenAppends(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "trades.csv")
	now := time.Now().UTC().Truncate(time.Second)

	j, err := NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordExit(Exit{Symbol: "SPY", Qty: 1, ExitPrice: 400, RealizedPnL: 10, CloseTime: now}))
	require.NoError(t, j.Close())

	// Reopening must not truncate or re-write the header.
	j, err = NewCSV(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordExit(Exit{Symbol: "SPY", Qty: 1, ExitPrice: 401, RealizedPnL: 11, CloseTime: now}))

	pnl, n, err := j.TrailingPnL(now.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.InDelta(t, 21.0, pnl, 1e-9)
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "event,trade_id"))
}
