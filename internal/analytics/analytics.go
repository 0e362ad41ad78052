// Package analytics post-processes equity curves into return series,
// drawdowns and risk-adjusted performance metrics.
package analytics

import (
	"math"
)

// TradingDaysPerYear is the annualization base.
const TradingDaysPerYear = 252

// Metrics holds the performance figures derived from a returns series.
// The four benchmark fields are only set when a benchmark of equal
// length was supplied.
type Metrics struct {
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	MaxDrawdown      float64 `json:"max_drawdown"`

	ExcessReturn           *float64 `json:"excess_return,omitempty"`
	AnnualizedExcessReturn *float64 `json:"annualized_excess_return,omitempty"`
	InformationRatio       *float64 `json:"information_ratio,omitempty"`
	WinRate                *float64 `json:"win_rate,omitempty"`
}

// Returns converts a value series into percent changes relative to the
// first value (not day over day). The first element is always 0. Fewer
// than two points yield nil.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	base := values[0]
	returns := make([]float64, len(values))
	for i, v := range values {
		returns[i] = (v - base) / base * 100
	}
	return returns
}

// Drawdowns returns, for each point, the percent distance from the
// running maximum observed so far. Every element is <= 0. Fewer than
// two points yield nil.
func Drawdowns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	drawdowns := make([]float64, len(values))
	peak := values[0]
	for i, v := range values {
		if v > peak {
			peak = v
		}
		drawdowns[i] = (v - peak) / peak * 100
	}
	return drawdowns
}

// Compute derives performance metrics from a cumulative returns series
// (as produced by Returns). A benchmark, when given, must already be
// aligned to the same length; see AlignBenchmark. Fewer than two return
// points yield zero metrics.
func Compute(returns, benchmark []float64) Metrics {
	var m Metrics
	if len(returns) < 2 {
		return m
	}
	days := len(returns)

	m.TotalReturn = returns[days-1]
	m.AnnualizedReturn = annualize(returns[days-1], days)

	// Volatility of the day-over-day delta of the cumulative series,
	// not of raw price returns. Population standard deviation, matching
	// the legacy computation.
	daily := make([]float64, 0, days-1)
	for i := 1; i < days; i++ {
		daily = append(daily, (returns[i]-returns[i-1])/(1+returns[i-1]/100))
	}
	m.Volatility = stddev(daily) * math.Sqrt(TradingDaysPerYear) * 100

	if m.Volatility > 0 {
		m.SharpeRatio = m.AnnualizedReturn / m.Volatility
	}

	maxDD := 0.0
	runningMax := returns[0]
	for _, r := range returns {
		if r > runningMax {
			runningMax = r
		}
		dd := (r - runningMax) / (1 + runningMax/100) * 100
		if dd < maxDD {
			maxDD = dd
		}
	}
	m.MaxDrawdown = maxDD

	if len(benchmark) == days {
		excess := returns[days-1] - benchmark[days-1]
		annExcess := m.AnnualizedReturn - annualize(benchmark[days-1], days)

		ir := 0.0
		if m.Volatility > 0 {
			ir = annExcess / m.Volatility
		}

		wins := 0
		for i := range returns {
			if returns[i] > benchmark[i] {
				wins++
			}
		}
		winRate := float64(wins) / float64(days) * 100

		m.ExcessReturn = &excess
		m.AnnualizedExcessReturn = &annExcess
		m.InformationRatio = &ir
		m.WinRate = &winRate
	}

	return m
}

// AlignBenchmark fits a benchmark returns series to length n by
// truncating, or by repeating the last value (0 when empty). It returns
// a copy; Compute requires equal lengths and this is the caller-side
// helper that guarantees it.
func AlignBenchmark(benchmark []float64, n int) []float64 {
	aligned := make([]float64, 0, n)
	aligned = append(aligned, benchmark...)
	if len(aligned) > n {
		return aligned[:n]
	}
	last := 0.0
	if len(aligned) > 0 {
		last = aligned[len(aligned)-1]
	}
	for len(aligned) < n {
		aligned = append(aligned, last)
	}
	return aligned
}

// annualize converts a cumulative percent return over `days` trading
// days to an annualized percent return.
func annualize(totalReturn float64, days int) float64 {
	if days <= 1 {
		return totalReturn
	}
	return (math.Pow(1+totalReturn/100, TradingDaysPerYear/float64(days)) - 1) * 100
}

// stddev is the population standard deviation.
func stddev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}
