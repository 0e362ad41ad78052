package valuescreen

import (
	"fmt"
	"math/rand"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
)

// Code is the wire name of the strategy.
const Code = "value"

// ValueScreen selects every instrument whose valuation ratios at the
// rebalance date are at or below the configured thresholds.
//
// Legacy-compatible mode: when a bar carries no PE/PB, a placeholder is
// derived from the instrument code instead of failing. The placeholder
// is stable across runs but carries no fundamental information; a
// production deployment must source real fundamentals.
type ValueScreen struct {
	maxPE         float64
	maxPB         float64
	rebalanceDays int
}

// New creates the strategy with max_pe/max_pb/rebalance_period params
// (defaults 15/1.5/20).
func New(params strategy.Params) *ValueScreen {
	return &ValueScreen{
		maxPE:         params.Float("max_pe", 15),
		maxPB:         params.Float("max_pb", 1.5),
		rebalanceDays: params.Int("rebalance_period", 20),
	}
}

func (v *ValueScreen) Name() string { return Code }

func (v *ValueScreen) Description() string {
	return fmt.Sprintf("Value Screen (PE <= %.1f, PB <= %.1f, rebalance %dd)", v.maxPE, v.maxPB, v.rebalanceDays)
}

// RebalanceDays returns the calendar-day rebalance cadence.
func (v *ValueScreen) RebalanceDays() int { return v.rebalanceDays }

// MinHistory is zero: the screen only needs the rebalance-day bar.
func (v *ValueScreen) MinHistory() int { return 0 }

// Select returns every instrument trading on the given date whose PE
// and PB both pass the thresholds, in code order.
func (v *ValueScreen) Select(universe map[string][]core.Bar, date string) []string {
	var selected []string
	for _, code := range core.SortedCodes(universe) {
		bar, ok := core.BarAt(universe[code], date)
		if !ok {
			continue
		}
		pe := bar.PE
		if pe <= 0 {
			pe = placeholderPE(code)
		}
		pb := bar.PB
		if pb <= 0 {
			pb = placeholderPB(code)
		}
		if pe <= v.maxPE && pb <= v.maxPB {
			selected = append(selected, code)
		}
	}
	return selected
}

// codeSeed derives a stable per-instrument seed from the code bytes.
func codeSeed(code string) int64 {
	var sum int64
	for _, c := range []byte(code) {
		sum += int64(c)
	}
	return sum
}

// placeholderPE returns a stable stand-in PE in [5, 30).
func placeholderPE(code string) float64 {
	rng := rand.New(rand.NewSource(codeSeed(code)))
	return 5 + rng.Float64()*25
}

// placeholderPB returns a stable stand-in PB in [0.5, 5).
func placeholderPB(code string) float64 {
	rng := rand.New(rand.NewSource(codeSeed(code) + 1))
	return 0.5 + rng.Float64()*4.5
}
