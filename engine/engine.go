// Package engine runs the trading control loop: refresh account state,
// enforce the daily and exposure limits, score symbols, size and place
// orders, and reconcile open positions against fresh signals.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/autotrader/broker"
	"github.com/rustyeddy/autotrader/config"
	"github.com/rustyeddy/autotrader/journal"
	"github.com/rustyeddy/autotrader/market"
	"github.com/rustyeddy/autotrader/notify"
	"github.com/rustyeddy/autotrader/risk"
	"github.com/rustyeddy/autotrader/signal"
	"github.com/rustyeddy/autotrader/state"
)

// trailingWindow is how far back the auto-tuner looks for realized P&L.
const trailingWindow = 24 * time.Hour

// Engine wires the collaborators and owns the cycle loop. All mutable
// cross-cycle state lives in the state files and the daily breaker; the
// Engine itself can be rebuilt from config at any restart.
type Engine struct {
	cfg      *config.Config
	broker   broker.Broker
	data     broker.MarketData
	provider signal.Provider
	executor *Executor
	journal  journal.Journal
	notifier notify.Notifier
	ledger   *CashLedger

	daily   *risk.DailyRisk
	tuner   risk.Tuner
	recon   *Reconciler
	retrier Retrier

	now func() time.Time
}

func New(cfg *config.Config, b broker.Broker, data broker.MarketData, p signal.Provider, j journal.Journal, n notify.Notifier) *Engine {
	ledger := NewCashLedger()
	exec := NewExecutor(b, data, ledger, j, n, cfg.Risk.CashCapFraction)

	return &Engine{
		cfg:      cfg,
		broker:   b,
		data:     data,
		provider: p,
		executor: exec,
		journal:  j,
		notifier: n,
		ledger:   ledger,
		daily:    risk.NewDailyRisk(cfg.Risk.MaxDailyLossPct),
		tuner: risk.Tuner{
			Cooldown:  cfg.Engine.TuneCooldownDuration(),
			MinTrades: 1,
			Bounds: risk.Bounds{
				MinRiskPerTrade:  cfg.Risk.MinRiskPerTrade,
				MaxRiskPerTrade:  cfg.Risk.MaxRiskPerTrade,
				MinGrossExposure: cfg.Risk.MinGrossExposure,
				MaxGrossExposure: cfg.Risk.MaxExposureClamp,
			},
		},
		recon:   NewReconciler(p, exec, cfg.Signal.ConfidenceThreshold),
		retrier: Retrier{MaxAttempts: cfg.Engine.MaxRetries},
		now:     time.Now,
	}
}

// Run loops RunCycle until the context ends. A tripped daily stop does not
// exit the loop: the breaker keeps every later cycle short until the day
// rolls over and the anchor resets.
func (e *Engine) Run(ctx context.Context) error {
	delay := e.cfg.Engine.CycleDelayDuration()
	log.Printf("engine: starting loop, cycle delay %s, symbols %v", delay, e.cfg.Symbols)

	for {
		err := e.retrier.Do(ctx, e.RunCycle)
		switch {
		case err == nil:
			mtxCycles.WithLabelValues("ok").Inc()
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			log.Printf("engine: shutting down: %v", err)
			return ctx.Err()
		case errors.Is(err, risk.ErrDailyStop):
			mtxCycles.WithLabelValues("risk_stop").Inc()
		default:
			mtxCycles.WithLabelValues("error").Inc()
			log.Printf("engine: cycle failed: %v", err)
			e.notifier.Error("cycle failed", err.Error())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// RunCycle executes one pass of the control loop. The ordering is load-
// bearing: tuning and account refresh come first, the daily breaker gates
// everything, the exposure check gates new risk, and reconciliation runs
// last against the same cycle's positions.
func (e *Engine) RunCycle(ctx context.Context) error {
	now := e.now()

	riskCfg, tune := e.tunedConfig(now)
	mtxRiskPerTrade.Set(riskCfg.RiskPerTrade)

	account, err := e.broker.Account(ctx)
	if err != nil {
		return fmt.Errorf("account refresh: %w", err)
	}
	if account.Equity <= 0 {
		return fmt.Errorf("account equity %.2f: %w", account.Equity, risk.ErrBadEquity)
	}
	mtxEquity.Set(account.Equity)

	daily := state.LoadDaily(e.cfg.Engine.StatePath, e.cfg.Risk.InitialEquity)
	if risk.NewDay(daily.LastResetDate, now) {
		log.Printf("engine: new trading day, anchoring equity at %.2f", account.Equity)
		daily.DailyStartEquity = account.Equity
		daily.LastResetDate = now
		e.daily.Reset()
	}
	daily.Equity = account.Equity

	pnlPct, derr := e.daily.Evaluate(daily.DailyStartEquity, account.Equity)
	if errors.Is(derr, risk.ErrDailyStop) {
		msg := fmt.Sprintf("daily P&L %.2f%% breached limit -%.2f%%, trading halted until tomorrow",
			pnlPct*100, e.cfg.Risk.MaxDailyLossPct*100)
		log.Printf("engine: %s", msg)
		e.notifier.RiskStop(msg)
		e.saveDaily(daily)
		return derr
	}
	if derr != nil {
		return fmt.Errorf("daily check: %w", derr)
	}

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	ratio, err := risk.GrossExposure(positions, account.Equity)
	if err != nil {
		return fmt.Errorf("exposure: %w", err)
	}
	mtxExposure.Set(ratio)
	if ratio >= riskCfg.MaxGrossExposure {
		e.shedExposure(ctx, positions, ratio, riskCfg.MaxGrossExposure)
		e.saveDaily(daily)
		return nil
	}

	results := e.scanSignals(ctx, e.cfg.Symbols)
	e.placeOrders(ctx, results, positions, account, riskCfg)

	e.recon.Run(ctx, positions)

	e.saveDaily(daily)
	e.saveTune(tune)
	return ctx.Err()
}

// tunedConfig loads the persisted tuner state, applies one tune step from
// trailing realized P&L, and folds the result into this cycle's risk
// budget.
func (e *Engine) tunedConfig(now time.Time) (risk.Config, risk.TuneState) {
	defaults := risk.TuneState{
		RiskPerTrade:     e.cfg.Risk.RiskPerTrade,
		MaxGrossExposure: e.cfg.Risk.MaxGrossExposure,
	}
	cur := state.LoadTune(e.cfg.Engine.TunePath, defaults)

	pnl, trades, err := e.journal.TrailingPnL(now.Add(-trailingWindow))
	if err != nil {
		log.Printf("engine: trailing pnl unavailable, skipping tune: %v", err)
	} else {
		cur = e.tuner.Tune(now, pnl, trades, cur)
	}

	return risk.Config{
		RiskPerTrade:      cur.RiskPerTrade,
		MaxGrossExposure:  cur.MaxGrossExposure,
		TakeProfitPct:     e.cfg.Risk.TakeProfitPct,
		StopLossPct:       e.cfg.Risk.StopLossPct,
		MinNotionalEquity: e.cfg.Risk.MinNotionalEquity,
		MinNotionalCrypto: e.cfg.Risk.MinNotionalCrypto,
	}, cur
}

// shedExposure closes the smallest position, reducing exposure with the
// least market impact, and takes no new risk this cycle.
func (e *Engine) shedExposure(ctx context.Context, positions []market.Position, ratio, limit float64) {
	log.Printf("engine: gross exposure %.2fx at limit %.2fx, shedding", ratio, limit)

	smallest, ok := risk.SmallestPosition(positions)
	if !ok {
		return
	}
	if _, err := e.executor.CloseAll(ctx, smallest.Symbol, "reduce exposure"); err != nil {
		log.Printf("engine: shed %s: %v", smallest.Symbol, err)
		e.notifier.Error("exposure reduction failed", err.Error())
		return
	}
	e.notifier.RiskStop(fmt.Sprintf("gross exposure %.2fx >= %.2fx, closed %s", ratio, limit, smallest.Symbol))
}

// scanSignals evaluates every symbol concurrently and returns the usable
// results ordered by conviction, strongest first. Evaluation failures are
// logged and dropped; a dead feed for one symbol must not stall the rest.
func (e *Engine) scanSignals(ctx context.Context, symbols []string) []signal.Result {
	results := make([]signal.Result, len(symbols))
	ok := make([]bool, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			res, err := e.provider.Evaluate(gctx, sym)
			if err != nil {
				log.Printf("engine: signal for %s: %v", sym, err)
				return nil
			}
			results[i] = res
			ok[i] = true
			return nil
		})
	}
	g.Wait()

	usable := make([]signal.Result, 0, len(symbols))
	for i := range results {
		if ok[i] {
			usable = append(usable, results[i])
		}
	}
	sort.Slice(usable, func(i, j int) bool {
		return math.Abs(usable[i].Score) > math.Abs(usable[j].Score)
	})
	return usable
}

// placeOrders sizes and submits one order per conviction-ordered result.
// Placement is sequential so each reservation sees the previous ones.
func (e *Engine) placeOrders(ctx context.Context, results []signal.Result, positions []market.Position, account broker.Account, riskCfg risk.Config) {
	held := make(map[string]market.Position, len(positions))
	for _, p := range positions {
		held[p.Symbol] = p
	}

	for _, res := range results {
		if err := ctx.Err(); err != nil {
			return
		}
		if math.Abs(res.Score) < e.cfg.Signal.ConfidenceThreshold {
			continue
		}

		side := market.Long
		if res.Score < 0 {
			side = market.Short
		}

		if pos, ok := held[res.Symbol]; ok && pos.Side() != side {
			if _, err := e.executor.CloseAll(ctx, res.Symbol, "signal reversal"); err != nil {
				log.Printf("engine: reverse %s: %v", res.Symbol, err)
				continue
			}
			delete(held, res.Symbol)
		}

		slice := account.Equity * e.weightFor(res.Symbol)
		qty := risk.Size(slice, res.Price, res.ATR, riskCfg.RiskPerTrade)
		qty *= risk.ConfidenceMultiplier(res.Score, riskCfg.RiskPerTrade*4)

		tp, sl := risk.Brackets(res.Price, side, riskCfg.TakeProfitPct, riskCfg.StopLossPct)
		intent := PositionIntent{
			Symbol:     res.Symbol,
			Side:       side,
			Qty:        qty,
			EntryPrice: res.Price,
			TakeProfit: tp,
			StopLoss:   sl,
			Class:      market.Classify(res.Symbol),
		}

		fill, err := e.executor.Submit(ctx, intent, riskCfg, account.Cash)
		var verr *ValidationError
		switch {
		case err == nil:
			log.Printf("engine: opened %s %s qty=%.6f @ %.2f (score %.3f)",
				side, res.Symbol, fill.Qty, fill.Price, res.Score)
		case errors.Is(err, ErrNoTrade):
			// Sized away to dust; nothing to do.
		case errors.As(err, &verr):
			log.Printf("engine: %v", verr)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			return
		default:
			log.Printf("engine: submit %s: %v", res.Symbol, err)
			e.notifier.Error("order failed", err.Error())
		}
	}
}

// weightFor returns the equity fraction allocated to a symbol. Symbols
// without an explicit weight split the unallocated remainder equally.
func (e *Engine) weightFor(symbol string) float64 {
	if w, ok := e.cfg.Weights[symbol]; ok {
		return w
	}

	var allocated float64
	unweighted := 0
	for _, sym := range e.cfg.Symbols {
		if w, ok := e.cfg.Weights[sym]; ok {
			allocated += w
		} else {
			unweighted++
		}
	}
	if unweighted == 0 {
		return 0
	}
	remainder := 1 - allocated
	if remainder < 0 {
		remainder = 0
	}
	return remainder / float64(unweighted)
}

func (e *Engine) saveDaily(s state.DailyState) {
	if err := state.SaveDaily(e.cfg.Engine.StatePath, s); err != nil {
		log.Printf("engine: save daily state: %v", err)
	}
}

func (e *Engine) saveTune(s risk.TuneState) {
	if err := state.SaveTune(e.cfg.Engine.TunePath, s); err != nil {
		log.Printf("engine: save tune state: %v", err)
	}
}

// CloseAllPositions flattens every open position. Used by the close-all
// command and final shutdown paths, not by the cycle loop.
func (e *Engine) CloseAllPositions(ctx context.Context, reason string) error {
	positions, err := e.broker.Positions(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}
	for _, pos := range positions {
		if _, err := e.executor.CloseAll(ctx, pos.Symbol, reason); err != nil {
			log.Printf("engine: close %s: %v", pos.Symbol, err)
		}
	}
	return nil
}
