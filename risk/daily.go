package risk

import "time"

// DailyStatus is the daily circuit breaker state.
type DailyStatus string

const (
	Normal  DailyStatus = "NORMAL"
	Stopped DailyStatus = "STOPPED"
)

// DailyRisk is the NORMAL -> STOPPED state machine, terminal for the
// calendar day once tripped.
type DailyRisk struct {
	MaxLossPct float64
	status     DailyStatus
}

func NewDailyRisk(maxLossPct float64) *DailyRisk {
	return &DailyRisk{MaxLossPct: maxLossPct, status: Normal}
}

func (d *DailyRisk) Status() DailyStatus {
	if d.status == "" {
		return Normal
	}
	return d.status
}

// Evaluate computes the daily P&L fraction against the day anchor and trips
// the breaker when the loss exceeds the limit. Once STOPPED it stays
// STOPPED until Reset; callers must treat that as "stop the loop".
func (d *DailyRisk) Evaluate(dailyStartEquity, currentEquity float64) (pnlPct float64, err error) {
	if dailyStartEquity <= 0 || currentEquity <= 0 {
		return 0, ErrBadEquity
	}
	pnlPct = (currentEquity - dailyStartEquity) / dailyStartEquity

	if d.status == Stopped {
		return pnlPct, ErrDailyStop
	}
	if pnlPct < -d.MaxLossPct {
		d.status = Stopped
		return pnlPct, ErrDailyStop
	}
	return pnlPct, nil
}

// Reset re-arms the breaker at day rollover.
func (d *DailyRisk) Reset() {
	d.status = Normal
}

// NewDay reports whether now has advanced past the local calendar date of
// the stored anchor. A zero anchor means the state was missing or
// unparsable, which resets fail-safe rather than fail-silent.
func NewDay(anchor, now time.Time) bool {
	if anchor.IsZero() {
		return true
	}
	ay, am, ad := anchor.Local().Date()
	ny, nm, nd := now.Local().Date()
	if ny != ay {
		return ny > ay
	}
	if nm != am {
		return nm > am
	}
	return nd > ad
}
