package backtest

import (
	"context"
	"math"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
	"github.com/newthinker/quantlab/internal/strategy/factory"
	"go.uber.org/zap"
)

// TradingDaysPerYear is the annualization base for return figures.
const TradingDaysPerYear = 252

// Config holds the capital settings of one simulation run.
type Config struct {
	InitialCapital float64
	Commission     float64
}

// Engine drives one simulation run of a strategy across the unified
// date axis of the supplied price data. Signaler strategies are
// evaluated per bar per instrument; Selector strategies trade on a
// calendar-day rebalance cadence with full liquidation and equal-weight
// re-entry.
//
// An Engine owns all of its mutable state; independent runs with
// separate engines may execute in parallel.
type Engine struct {
	strat  strategy.Strategy
	cfg    Config
	logger *zap.Logger
}

// NewEngine creates an engine for the given strategy.
func NewEngine(strat strategy.Strategy, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{strat: strat, cfg: cfg, logger: logger}
}

// Run executes the simulation over the caller's price data. The input
// map is read-only to the engine; series are copied before sorting.
//
// Input problems (no usable data, no date with sufficient history)
// surface in the result's Error field, not in the returned error, which
// is reserved for context cancellation. Callers must check Result.Error
// before consuming other fields.
func (e *Engine) Run(ctx context.Context, data map[string][]core.Bar) (*Result, error) {
	if len(data) == 0 {
		return &Result{Error: core.ErrNoData.Message}, nil
	}

	norm := make(map[string][]core.Bar, len(data))
	for code, bars := range data {
		cp := make([]core.Bar, len(bars))
		copy(cp, bars)
		core.SortBars(cp)
		norm[code] = cp
	}

	axis := core.DateAxis(norm)
	if len(axis) == 0 {
		return &Result{Error: core.ErrNoData.Message}, nil
	}

	e.logger.Info("backtest starting",
		zap.String("strategy", e.strat.Name()),
		zap.Int("instruments", len(norm)),
		zap.Int("dates", len(axis)),
	)

	led := NewLedger(e.cfg.InitialCapital, e.cfg.Commission)
	res := &Result{
		InitialCapital: e.cfg.InitialCapital,
		EquityCurve:    []EquityPoint{},
		Positions:      []Snapshot{},
		Transactions:   []Transaction{},
	}

	var err error
	switch s := e.strat.(type) {
	case strategy.Signaler:
		err = e.runSignals(ctx, s, norm, axis, led, res)
	case strategy.Selector:
		err = e.runRebalances(ctx, s, norm, axis, led, res)
	default:
		return &Result{Error: core.ErrUnknownStrategy.Message}, nil
	}
	if err != nil {
		return nil, err
	}
	if res.Error != "" {
		return &Result{Error: res.Error}, nil
	}

	e.finalize(res, led)

	e.logger.Info("backtest finished",
		zap.String("strategy", e.strat.Name()),
		zap.Float64("final_capital", res.FinalCapital),
		zap.Int("transactions", len(res.Transactions)),
	)
	return res, nil
}

// runSignals walks every date and asks the signaler for a decision per
// instrument with a bar that day, executing at the same bar's close.
// The signal and the fill sharing one bar reproduces the legacy
// backtester's look-ahead; see the ma_cross strategy notes.
func (e *Engine) runSignals(ctx context.Context, sig strategy.Signaler, data map[string][]core.Bar, axis []string, led *Ledger, res *Result) error {
	codes := core.SortedCodes(data)
	for _, date := range axis {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		for _, code := range codes {
			bars := data[code]
			bar, ok := core.BarAt(bars, date)
			if !ok {
				continue
			}
			switch sig.Signal(core.BarsUpTo(bars, date)) {
			case core.ActionBuy:
				if led.Cash() > 0 {
					led.Buy(date, code, bar.Close, led.Cash(), singleSignalSafety)
				}
			case core.ActionSell:
				led.Sell(date, code, bar.Close)
			}
		}
		recordDay(res, led, data, date)
	}
	return nil
}

// runRebalances waits for every instrument to accrue the selector's
// minimum history, then trades on the selector's calendar-day cadence:
// liquidate everything, re-select, split cash evenly and re-enter.
func (e *Engine) runRebalances(ctx context.Context, sel strategy.Selector, data map[string][]core.Bar, axis []string, led *Ledger, res *Result) error {
	start := axis[0]
	if min := sel.MinHistory(); min > 0 {
		start = firstSufficientDate(data, axis, min)
		if start == "" {
			res.Error = core.ErrInsufficientHistory.Message
			return nil
		}
	}

	lastRebalance := ""
	for _, date := range axis {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if date < start {
			continue
		}

		if rebalanceDue(lastRebalance, date, sel.RebalanceDays()) {
			for _, code := range led.HeldCodes() {
				if bar, ok := core.BarAt(data[code], date); ok {
					led.Sell(date, code, bar.Close)
				}
			}

			selected := sel.Select(data, date)
			if len(selected) > 0 {
				perInstrument := led.Cash() / float64(len(selected))
				for _, code := range selected {
					if bar, ok := core.BarAt(data[code], date); ok {
						led.Buy(date, code, bar.Close, perInstrument, equalWeightSafety)
					}
				}
			}
			lastRebalance = date

			e.logger.Debug("rebalanced",
				zap.String("date", date),
				zap.Int("selected", len(selected)),
				zap.Float64("cash", led.Cash()),
			)
		}
		recordDay(res, led, data, date)
	}
	return nil
}

// firstSufficientDate returns the earliest axis date on which every
// instrument has at least min bars, or "" when no date qualifies.
func firstSufficientDate(data map[string][]core.Bar, axis []string, min int) string {
	for _, date := range axis {
		sufficient := true
		for _, bars := range data {
			if len(core.BarsUpTo(bars, date)) < min {
				sufficient = false
				break
			}
		}
		if sufficient {
			return date
		}
	}
	return ""
}

// rebalanceDue reports whether enough calendar days have elapsed since
// the last rebalance. The cadence is calendar days measured against a
// trading-date axis, matching the legacy behavior.
func rebalanceDue(last, current string, cadence int) bool {
	if last == "" {
		return true
	}
	lastT, err1 := core.ParseDate(last)
	curT, err2 := core.ParseDate(current)
	if err1 != nil || err2 != nil {
		return false
	}
	return int(curT.Sub(lastT).Hours()/24) >= cadence
}

// recordDay appends the equity point and position snapshot for one
// processed date. Held instruments without a bar that day are skipped
// for both valuation and the snapshot.
func recordDay(res *Result, led *Ledger, data map[string][]core.Bar, date string) {
	held := led.HeldCodes()
	closes := make(map[string]float64, len(held))
	for _, code := range held {
		if bar, ok := core.BarAt(data[code], date); ok {
			closes[code] = bar.Close
		}
	}

	res.EquityCurve = append(res.EquityCurve, EquityPoint{Date: date, Value: led.MarkToMarket(closes)})

	snap := Snapshot{Date: date, Cash: led.Cash(), Positions: []SnapshotPosition{}}
	for _, code := range held {
		close, ok := closes[code]
		if !ok {
			continue
		}
		shares := led.Shares(code)
		snap.Positions = append(snap.Positions, SnapshotPosition{
			Code:   code,
			Shares: shares,
			Price:  close,
			Value:  float64(shares) * close,
		})
	}
	res.Positions = append(res.Positions, snap)
}

// finalize fills the derived result fields from the equity curve.
func (e *Engine) finalize(res *Result, led *Ledger) {
	res.Transactions = led.Transactions()

	res.FinalCapital = res.InitialCapital
	if n := len(res.EquityCurve); n > 0 {
		res.FinalCapital = res.EquityCurve[n-1].Value
	}
	res.TotalReturn = (res.FinalCapital - res.InitialCapital) / res.InitialCapital * 100

	days := len(res.EquityCurve)
	if days > 1 {
		res.AnnualizedReturn = (math.Pow(1+res.TotalReturn/100, TradingDaysPerYear/float64(days)) - 1) * 100
	} else {
		res.AnnualizedReturn = res.TotalReturn
	}
}

// Run builds a strategy from its wire code and simulates it over the
// price data. It is the package entrypoint matching the legacy API:
// unknown strategy codes come back as an error result, not a Go error.
func Run(ctx context.Context, code string, params strategy.Params, data map[string][]core.Bar, cfg Config, logger *zap.Logger) (*Result, error) {
	strat, err := factory.New(code, params)
	if err != nil {
		return &Result{Error: err.Error()}, nil
	}
	return NewEngine(strat, cfg, logger).Run(ctx, data)
}
