package macross

import (
	"fmt"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/indicator"
	"github.com/newthinker/quantlab/internal/strategy"
)

// Code is the wire name of the strategy.
const Code = "ma_cross"

// MACross signals on simple moving average crossovers: BUY when the
// fast MA crosses above the slow MA, SELL when it crosses below.
//
// Legacy-compatible mode: the signal fires on the same bar whose close
// is used as the execution price, so the crossing bar's close leaks into
// the fill. This reproduces the original backtester and is a known
// look-ahead simplification, not something to fix silently.
type MACross struct {
	fastPeriod int
	slowPeriod int
}

// New creates the strategy with fast_period/slow_period params
// (defaults 5/20).
func New(params strategy.Params) *MACross {
	return &MACross{
		fastPeriod: params.Int("fast_period", 5),
		slowPeriod: params.Int("slow_period", 20),
	}
}

func (m *MACross) Name() string { return Code }

func (m *MACross) Description() string {
	return fmt.Sprintf("MA Crossover (%d/%d)", m.fastPeriod, m.slowPeriod)
}

// Signal returns the crossover signal at the last bar of the history.
// Histories shorter than the slow period yield HOLD.
func (m *MACross) Signal(history []core.Bar) core.Action {
	n := len(history)
	if n < m.slowPeriod {
		return core.ActionHold
	}

	prices := make([]float64, n)
	for i, bar := range history {
		prices[i] = bar.Close
	}

	currFast, _ := indicator.SMAAt(prices, n-1, m.fastPeriod)
	currSlow, _ := indicator.SMAAt(prices, n-1, m.slowPeriod)

	prevSlow, ok := indicator.SMAAt(prices, n-2, m.slowPeriod)
	if !ok {
		// First bar with a defined slow MA. The previous relation is
		// treated as flat, so an already-diverged fast MA crosses here.
		switch {
		case currFast > currSlow:
			return core.ActionBuy
		case currFast < currSlow:
			return core.ActionSell
		}
		return core.ActionHold
	}
	prevFast, _ := indicator.SMAAt(prices, n-2, m.fastPeriod)

	// Golden cross: fast moves from at-or-below to above.
	if prevFast <= prevSlow && currFast > currSlow {
		return core.ActionBuy
	}
	// Death cross: fast moves from at-or-above to below.
	if prevFast >= prevSlow && currFast < currSlow {
		return core.ActionSell
	}
	return core.ActionHold
}
