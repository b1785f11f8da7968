package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/autotrader/risk"
)

func TestDailyRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	now := time.Now().UTC().Truncate(time.Second)

	s := DailyState{Equity: 31000, DailyStartEquity: 30000, LastResetDate: now}
	require.NoError(t, SaveDaily(path, s))

	got := LoadDaily(path, 99999)
	assert.InDelta(t, 31000.0, got.Equity, 1e-9)
	assert.InDelta(t, 30000.0, got.DailyStartEquity, 1e-9)
	assert.True(t, got.LastResetDate.Equal(now))
}

func TestDailyMissingFile(t *testing.T) {
	t.Parallel()

	got := LoadDaily(filepath.Join(t.TempDir(), "nope.json"), 30000)
	assert.InDelta(t, 30000.0, got.DailyStartEquity, 1e-9)
	assert.True(t, got.LastResetDate.IsZero(), "missing anchor must read as new day")
}

func TestDailyCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	got := LoadDaily(path, 30000)
	assert.InDelta(t, 30000.0, got.DailyStartEquity, 1e-9)
	assert.True(t, got.LastResetDate.IsZero())
}

func TestTuneRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "autotune.json")
	now := time.Now().UTC().Truncate(time.Second)
	defaults := risk.TuneState{RiskPerTrade: 0.004, MaxGrossExposure: 1.5}

	s := risk.TuneState{RiskPerTrade: 0.02, MaxGrossExposure: 0.5, LastTuneTime: now}
	require.NoError(t, SaveTune(path, s))

	got := LoadTune(path, defaults)
	assert.InDelta(t, 0.02, got.RiskPerTrade, 1e-12)
	assert.True(t, got.LastTuneTime.Equal(now))
}

func TestTuneFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	defaults := risk.TuneState{RiskPerTrade: 0.004, MaxGrossExposure: 1.5}

	got := LoadTune(filepath.Join(dir, "missing.json"), defaults)
	assert.Equal(t, defaults, got)

	// A document with a non-positive risk value is unusable.
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"risk_per_trade": 0}`), 0644))
	got = LoadTune(bad, defaults)
	assert.Equal(t, defaults, got)
}
