package backtest

import (
	"sort"

	"github.com/newthinker/quantlab/internal/core"
)

// LotSize is the share block all position sizing rounds down to.
const LotSize = 100

// Safety fractions applied to the cash budget before sizing a buy, so
// the commission never pushes cash negative.
const (
	// singleSignalSafety is used when one signal spends the whole balance.
	singleSignalSafety = 0.95
	// equalWeightSafety is used when cash is split across a basket.
	equalWeightSafety = 0.99
)

// Ledger tracks cash and per-instrument share counts for one simulation
// run and records every executed transaction. Cash cannot go negative
// and share counts stay non-negative whole lots by construction.
//
// A Ledger is owned by exactly one run and is not safe for concurrent use.
type Ledger struct {
	cash       float64
	commission float64
	positions  map[string]int64
	log        []Transaction
}

// NewLedger creates a ledger with the given starting cash and flat
// commission rate.
func NewLedger(cash, commission float64) *Ledger {
	return &Ledger{
		cash:       cash,
		commission: commission,
		positions:  make(map[string]int64),
		log:        []Transaction{},
	}
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Shares returns the current share count for an instrument.
func (l *Ledger) Shares(code string) int64 { return l.positions[code] }

// HeldCodes returns the codes with a nonzero position, in code order.
func (l *Ledger) HeldCodes() []string {
	codes := make([]string, 0, len(l.positions))
	for code, shares := range l.positions {
		if shares > 0 {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}

// Transactions returns the append-only transaction log.
func (l *Ledger) Transactions() []Transaction { return l.log }

// Buy purchases the largest whole-lot share count affordable within
// budget*safety, commission included. Returns false without recording
// anything when not even one lot is affordable; that is not an error.
func (l *Ledger) Buy(date, code string, price, budget, safety float64) bool {
	if price <= 0 || budget <= 0 {
		return false
	}
	shares := int64(budget*safety/(price*(1+l.commission))/LotSize) * LotSize
	if shares <= 0 {
		return false
	}

	amount := float64(shares) * price
	l.cash -= amount * (1 + l.commission)
	l.positions[code] += shares
	l.log = append(l.log, Transaction{
		Date:       date,
		Code:       code,
		Action:     core.ActionBuy,
		Price:      price,
		Shares:     shares,
		Amount:     amount,
		Commission: amount * l.commission,
	})
	return true
}

// Sell liquidates the entire position at price, crediting the proceeds
// net of commission. Selling with no position is a no-op.
func (l *Ledger) Sell(date, code string, price float64) bool {
	shares := l.positions[code]
	if shares <= 0 {
		return false
	}

	amount := float64(shares) * price
	l.cash += amount * (1 - l.commission)
	l.positions[code] = 0
	l.log = append(l.log, Transaction{
		Date:       date,
		Code:       code,
		Action:     core.ActionSell,
		Price:      price,
		Shares:     shares,
		Amount:     amount,
		Commission: amount * l.commission,
	})
	return true
}

// MarkToMarket values the portfolio as cash plus holdings at the given
// closes. Held instruments with no close that day contribute nothing.
func (l *Ledger) MarkToMarket(closes map[string]float64) float64 {
	value := l.cash
	for code, shares := range l.positions {
		if shares <= 0 {
			continue
		}
		if close, ok := closes[code]; ok {
			value += float64(shares) * close
		}
	}
	return value
}
