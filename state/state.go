// Package state persists the small engine-owned documents that survive
// restarts: the daily P&L anchor and the auto-tuner output. Both follow a
// read-at-cycle-start, write-at-cycle-end pattern, last-writer-wins.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rustyeddy/autotrader/risk"
)

// DailyState anchors the daily loss calculation.
type DailyState struct {
	Equity           float64   `json:"equity"`
	DailyStartEquity float64   `json:"daily_start_equity"`
	LastResetDate    time.Time `json:"last_reset_date"`
}

// LoadDaily reads the daily state document. A missing or unparsable file
// yields a fresh state with a zero LastResetDate, which the caller treats
// as "new day" (fail-safe reset, not fail-silent).
func LoadDaily(path string, initialEquity float64) DailyState {
	fresh := DailyState{Equity: initialEquity, DailyStartEquity: initialEquity}

	data, err := os.ReadFile(path)
	if err != nil {
		return fresh
	}
	var s DailyState
	if err := json.Unmarshal(data, &s); err != nil {
		return fresh
	}
	if s.DailyStartEquity <= 0 {
		s.DailyStartEquity = initialEquity
	}
	return s
}

// SaveDaily writes the daily state document atomically.
func SaveDaily(path string, s DailyState) error {
	return writeJSON(path, s)
}

// LoadTune reads the persisted auto-tuner state. Missing or corrupt files
// fall back to the provided defaults with a zero LastTuneTime so the next
// cycle tunes immediately.
func LoadTune(path string, defaults risk.TuneState) risk.TuneState {
	data, err := os.ReadFile(path)
	if err != nil {
		return defaults
	}
	var s risk.TuneState
	if err := json.Unmarshal(data, &s); err != nil {
		return defaults
	}
	if s.RiskPerTrade <= 0 {
		return defaults
	}
	return s
}

// SaveTune writes the auto-tuner state atomically.
func SaveTune(path string, s risk.TuneState) error {
	return writeJSON(path, s)
}

// writeJSON writes via a temp file and rename so a crash mid-write never
// leaves a truncated document.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
