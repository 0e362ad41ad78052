package momentum

import (
	"fmt"
	"sort"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/indicator"
	"github.com/newthinker/quantlab/internal/strategy"
)

// Code is the wire name of the strategy.
const Code = "momentum"

// Momentum ranks instruments by trailing percent return and holds the
// strongest performers for a fixed holding window.
type Momentum struct {
	lookback    int
	topN        int
	holdingDays int
}

// New creates the strategy with lookback_period/top_n/holding_period
// params (defaults 20/5/10).
func New(params strategy.Params) *Momentum {
	return &Momentum{
		lookback:    params.Int("lookback_period", 20),
		topN:        params.Int("top_n", 5),
		holdingDays: params.Int("holding_period", 10),
	}
}

func (m *Momentum) Name() string { return Code }

func (m *Momentum) Description() string {
	return fmt.Sprintf("Momentum (lookback %d, top %d, hold %dd)", m.lookback, m.topN, m.holdingDays)
}

// RebalanceDays returns the calendar-day holding window.
func (m *Momentum) RebalanceDays() int { return m.holdingDays }

// MinHistory returns the bars needed before the first selection.
func (m *Momentum) MinHistory() int { return m.lookback }

// Select ranks every instrument with at least lookback bars by its
// trailing return and returns the top N codes, strongest first.
func (m *Momentum) Select(universe map[string][]core.Bar, date string) []string {
	type scored struct {
		code  string
		score float64
	}
	var ranked []scored

	for _, code := range core.SortedCodes(universe) {
		history := core.BarsUpTo(universe[code], date)
		if len(history) < m.lookback {
			continue
		}
		prices := make([]float64, len(history))
		for i, bar := range history {
			prices[i] = bar.Close
		}
		score, ok := indicator.ROC(prices, m.lookback)
		if !ok {
			continue
		}
		ranked = append(ranked, scored{code: code, score: score})
	}

	// Stable sort keeps code order on ties, so selection is deterministic.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	n := m.topN
	if n > len(ranked) {
		n = len(ranked)
	}
	selected := make([]string, 0, n)
	for _, s := range ranked[:n] {
		selected = append(selected, s.code)
	}
	return selected
}
