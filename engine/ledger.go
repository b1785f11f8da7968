package engine

import "sync"

// CashLedger tracks cash provisionally committed to in-flight orders before
// the broker confirms them. It is the one shared-mutable-state hazard in the
// engine: the check-then-add in Reserve must be atomic against all other
// reservation attempts, so every access funnels through the mutex.
//
// A reservation is added before submission and released only when the
// submission fails; successful spends are absorbed by the broker's own cash
// figure on the next account refresh.
type CashLedger struct {
	mu       sync.Mutex
	reserved float64
}

func NewCashLedger() *CashLedger {
	return &CashLedger{}
}

// Reserve atomically checks that the notional fits inside the available
// cash next to existing reservations and, if so, commits it. Returns false
// without reserving when it does not fit.
func (l *CashLedger) Reserve(notional, available float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if notional <= 0 {
		return false
	}
	if l.reserved+notional > available {
		return false
	}
	l.reserved += notional
	return true
}

// Release returns a failed order's notional to the pool. Floors at zero so
// a double release can never drive the ledger negative.
func (l *CashLedger) Release(notional float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.reserved -= notional
	if l.reserved < 0 {
		l.reserved = 0
	}
}

// Reserved reads the current running total.
func (l *CashLedger) Reserved() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserved
}
