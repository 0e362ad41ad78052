package strategy

import (
	"math"

	"github.com/newthinker/quantlab/internal/core"
)

// Params holds numeric strategy parameters keyed by wire name
// (e.g. "fast_period", "top_n"). Missing keys fall back to the
// variant's defaults.
type Params map[string]float64

// Float returns the parameter value or def when absent.
func (p Params) Float(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns the parameter value truncated to int, or def when absent
// or not representable.
func (p Params) Int(key string, def int) int {
	v, ok := p[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return int(v)
}

// Strategy is the common surface of all strategy variants.
// A variant additionally implements either Signaler or Selector.
type Strategy interface {
	Name() string
	Description() string
}

// Signaler produces a per-bar directional signal from a single
// instrument's price history up to and including the current bar.
type Signaler interface {
	Strategy

	// Signal inspects the history and returns BUY, SELL or HOLD.
	// Empty or too-short histories yield HOLD.
	Signal(history []core.Bar) core.Action
}

// Selector produces a basket of instruments to hold until the next
// rebalance.
type Selector interface {
	Strategy

	// Select returns the codes to hold, using only bars dated <= date.
	// An empty universe yields an empty selection.
	Select(universe map[string][]core.Bar, date string) []string

	// RebalanceDays is the calendar-day cadence between rebalances.
	RebalanceDays() int

	// MinHistory is the number of bars every instrument must have
	// before trading may begin. 0 means no warm-up gate.
	MinHistory() int
}
