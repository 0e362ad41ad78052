package core

import (
	"sort"
	"time"
)

// DateLayout is the wire format for trading dates ("20240131").
// Dates in this layout sort correctly as plain strings.
const DateLayout = "20060102"

// Bar represents one daily price bar for a single instrument.
// Close is mandatory; the remaining fields are optional and zero
// when the data source does not provide them.
type Bar struct {
	Code   string
	Date   string // trading day, DateLayout
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	Amount float64
	PctChg float64
	PE     float64 // trailing price/earnings, 0 when unknown
	PB     float64 // price/book, 0 when unknown
}

// ParseDate parses a trading-date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// Action represents a trading signal action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// SortBars orders bars ascending by date in place.
func SortBars(bars []Bar) {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })
}

// BarsUpTo returns the prefix of a date-ascending bar slice with dates <= date.
// The returned slice shares the backing array and must be treated as read-only.
func BarsUpTo(bars []Bar, date string) []Bar {
	n := sort.Search(len(bars), func(i int) bool { return bars[i].Date > date })
	return bars[:n]
}

// BarAt returns the bar on the given date, or false when the instrument
// did not trade that day.
func BarAt(bars []Bar, date string) (Bar, bool) {
	i := sort.Search(len(bars), func(i int) bool { return bars[i].Date >= date })
	if i < len(bars) && bars[i].Date == date {
		return bars[i], true
	}
	return Bar{}, false
}

// SortedCodes returns the instrument codes of a data set in ascending order.
// Every walk over the data map goes through this so that simulation runs
// are deterministic regardless of map iteration order.
func SortedCodes(data map[string][]Bar) []string {
	codes := make([]string, 0, len(data))
	for code := range data {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// DateAxis returns the sorted union of every instrument's trading dates.
func DateAxis(data map[string][]Bar) []string {
	seen := make(map[string]struct{})
	for _, bars := range data {
		for _, b := range bars {
			seen[b.Date] = struct{}{}
		}
	}
	axis := make([]string, 0, len(seen))
	for d := range seen {
		axis = append(axis, d)
	}
	sort.Strings(axis)
	return axis
}
