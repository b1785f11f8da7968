package engine

import (
	"context"
	"log"

	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/signal"
)

// reversalReason is the journaled exit reason for model-driven closes.
const reversalReason = "model predicts reversal"

// Reconciler compares each open position against a fresh signal and closes
// holdings the model no longer agrees with. One symbol's failure never
// blocks the rest.
type Reconciler struct {
	provider  signal.Provider
	executor  *Executor
	threshold float64
}

func NewReconciler(p signal.Provider, e *Executor, threshold float64) *Reconciler {
	return &Reconciler{provider: p, executor: e, threshold: threshold}
}

// Run walks the open positions sequentially. Closes are rare and placing
// them one at a time keeps the broker interaction simple to reason about.
func (r *Reconciler) Run(ctx context.Context, positions []market.Position) {
	for _, pos := range positions {
		if err := ctx.Err(); err != nil {
			return
		}
		res, err := r.provider.Evaluate(ctx, pos.Symbol)
		if err != nil {
			log.Printf("reconciler: signal for %s: %v", pos.Symbol, err)
			continue
		}
		if !r.disagrees(pos.Side(), res.Score) {
			continue
		}

		log.Printf("reconciler: %s held %s but score %.3f, closing", pos.Symbol, pos.Side(), res.Score)
		if _, err := r.executor.CloseAll(ctx, pos.Symbol, reversalReason); err != nil {
			log.Printf("reconciler: close %s: %v", pos.Symbol, err)
		}
	}
}

// disagrees reports whether the fresh score points meaningfully against the
// held side. Scores inside the threshold are noise, not a reversal.
func (r *Reconciler) disagrees(held market.Side, score float64) bool {
	switch held {
	case market.Long:
		return score < -r.threshold
	case market.Short:
		return score > r.threshold
	default:
		return false
	}
}
