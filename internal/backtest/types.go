package backtest

import (
	"encoding/json"

	"github.com/newthinker/quantlab/internal/core"
)

// Transaction is one executed order. Entries are append-only and
// immutable once recorded.
type Transaction struct {
	Date       string      `json:"date"`
	Code       string      `json:"code"`
	Action     core.Action `json:"action"`
	Price      float64     `json:"price"`
	Shares     int64       `json:"volume"`
	Amount     float64     `json:"amount"`     // price * shares, commission excluded
	Commission float64     `json:"commission"` // amount * commission rate
}

// EquityPoint is the total portfolio value (cash + holdings at close)
// on one simulated date.
type EquityPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// SnapshotPosition is one holding inside a daily snapshot, valued at
// that day's close.
type SnapshotPosition struct {
	Code   string  `json:"code"`
	Shares int64   `json:"shares"`
	Price  float64 `json:"price"`
	Value  float64 `json:"value"`
}

// Snapshot captures cash and holdings after processing one date.
// Held instruments without a bar on the date are omitted.
type Snapshot struct {
	Date      string             `json:"date"`
	Cash      float64            `json:"cash"`
	Positions []SnapshotPosition `json:"positions"`
}

// Result is the complete output of one simulation run. The JSON keys
// are fixed by the downstream reporting pipeline: the equity curve is
// serialized under "returns" and share counts under "volume".
//
// Error is set for input failures (no usable data, unknown strategy,
// no date with sufficient history); callers must check it before
// reading any other field.
type Result struct {
	Error            string        `json:"error,omitempty"`
	InitialCapital   float64       `json:"initial_capital"`
	FinalCapital     float64       `json:"final_capital"`
	EquityCurve      []EquityPoint `json:"returns"`
	Positions        []Snapshot    `json:"positions"`
	Transactions     []Transaction `json:"transactions"`
	TotalReturn      float64       `json:"total_return"`
	AnnualizedReturn float64       `json:"annualized_return"`
}

// OK reports whether the run produced a usable result.
func (r *Result) OK() bool { return r.Error == "" }

// EquityValues returns the equity curve values in date order, ready for
// the analytics routines.
func (r *Result) EquityValues() []float64 {
	values := make([]float64, len(r.EquityCurve))
	for i, p := range r.EquityCurve {
		values[i] = p.Value
	}
	return values
}

// MarshalJSON emits a bare {"error": ...} object for failed runs so
// callers never see half-populated result fields.
func (r *Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	type plain Result
	return json.Marshal((*plain)(r))
}
