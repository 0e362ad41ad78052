package backtest

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/strategy"
)

func tradingDates(start string, n int) []string {
	t, err := core.ParseDate(start)
	if err != nil {
		panic(err)
	}
	dates := make([]string, n)
	for i := range dates {
		dates[i] = t.AddDate(0, 0, i).Format(core.DateLayout)
	}
	return dates
}

func seriesFromCloses(code, start string, closes []float64) []core.Bar {
	dates := tradingDates(start, len(closes))
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{Code: code, Date: dates[i], Close: c}
	}
	return bars
}

func testConfig() Config {
	return Config{InitialCapital: 100000, Commission: 0.0003}
}

func TestRunNoData(t *testing.T) {
	res, err := Run(context.Background(), "ma_cross", nil, map[string][]core.Bar{}, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.OK() {
		t.Fatal("empty data should produce an error result")
	}
	if res.Error != core.ErrNoData.Message {
		t.Errorf("Error = %q, want %q", res.Error, core.ErrNoData.Message)
	}
}

func TestRunUnknownStrategy(t *testing.T) {
	data := map[string][]core.Bar{
		"AAA": seriesFromCloses("AAA", "20240101", []float64{10, 11, 12}),
	}
	res, err := Run(context.Background(), "nope", nil, data, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.OK() {
		t.Fatal("unknown strategy should produce an error result")
	}
}

func TestRunMACrossMonotonicSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	data := map[string][]core.Bar{
		"AAA": seriesFromCloses("AAA", "20240101", closes),
	}

	res, err := Run(context.Background(), "ma_cross", nil, data, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected error result: %s", res.Error)
	}

	// On a strictly rising series the fast MA is already above the slow
	// MA on the first bar where the slow MA is defined, so exactly one
	// BUY fires there and no SELL ever follows.
	if len(res.Transactions) != 1 {
		t.Fatalf("Transactions = %d, want 1", len(res.Transactions))
	}
	tx := res.Transactions[0]
	if tx.Action != core.ActionBuy {
		t.Errorf("Action = %s, want BUY", tx.Action)
	}
	wantDate := tradingDates("20240101", 30)[19]
	if tx.Date != wantDate {
		t.Errorf("BUY date = %s, want %s", tx.Date, wantDate)
	}

	if len(res.EquityCurve) != 30 {
		t.Errorf("EquityCurve length = %d, want 30", len(res.EquityCurve))
	}
	if res.TotalReturn <= 0 {
		t.Errorf("TotalReturn = %f, want positive on a rising series", res.TotalReturn)
	}
	if res.FinalCapital <= res.InitialCapital {
		t.Errorf("FinalCapital = %f, want above %f", res.FinalCapital, res.InitialCapital)
	}
}

func TestRunMomentumSelectsStrongest(t *testing.T) {
	params := strategy.Params{"lookback_period": 3, "top_n": 1, "holding_period": 10000}
	data := map[string][]core.Bar{
		"AAA": seriesFromCloses("AAA", "20240101", []float64{10, 20, 40, 80, 160}),
		"BBB": seriesFromCloses("BBB", "20240101", []float64{160, 80, 40, 20, 10}),
	}

	res, err := Run(context.Background(), "momentum", params, data, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected error result: %s", res.Error)
	}

	if len(res.Transactions) != 1 {
		t.Fatalf("Transactions = %d, want 1", len(res.Transactions))
	}
	tx := res.Transactions[0]
	if tx.Code != "AAA" || tx.Action != core.ActionBuy {
		t.Errorf("transaction = %+v, want BUY of AAA", tx)
	}
	if tx.Shares%LotSize != 0 {
		t.Errorf("Shares = %d, want a whole-lot multiple", tx.Shares)
	}

	// The curve only starts once every instrument has lookback bars.
	if len(res.EquityCurve) != 3 {
		t.Errorf("EquityCurve length = %d, want 3", len(res.EquityCurve))
	}
}

func TestRunMomentumInsufficientHistory(t *testing.T) {
	params := strategy.Params{"lookback_period": 100}
	data := map[string][]core.Bar{
		"AAA": seriesFromCloses("AAA", "20240101", []float64{10, 11, 12, 13, 14}),
	}

	res, err := Run(context.Background(), "momentum", params, data, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if res.Error != core.ErrInsufficientHistory.Message {
		t.Errorf("Error = %q, want %q", res.Error, core.ErrInsufficientHistory.Message)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := map[string][]core.Bar{
		"AAA": seriesFromCloses("AAA", "20240101", []float64{10, 11, 12}),
	}
	_, err := Run(ctx, "ma_cross", nil, data, testConfig(), nil)
	if err != context.Canceled {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	params := strategy.Params{"lookback_period": 3, "top_n": 2, "holding_period": 2}
	data := map[string][]core.Bar{
		"AAA": seriesFromCloses("AAA", "20240101", []float64{10, 20, 40, 35, 50, 60, 55, 70}),
		"BBB": seriesFromCloses("BBB", "20240101", []float64{30, 28, 26, 29, 31, 27, 25, 24}),
		"CCC": seriesFromCloses("CCC", "20240101", []float64{15, 16, 14, 18, 17, 19, 21, 20}),
	}

	first, err := Run(context.Background(), "momentum", params, data, testConfig(), nil)
	if err != nil {
		t.Fatalf("first Run error: %v", err)
	}
	second, err := Run(context.Background(), "momentum", params, data, testConfig(), nil)
	if err != nil {
		t.Fatalf("second Run error: %v", err)
	}

	firstJSON, err := json.Marshal(first)
	if err != nil {
		t.Fatal(err)
	}
	secondJSON, err := json.Marshal(second)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(firstJSON, secondJSON) {
		t.Error("identical inputs produced different result documents")
	}
}

func TestRunValueScreen(t *testing.T) {
	cheap := seriesFromCloses("CHEAP", "20240101", []float64{10, 11, 12})
	dear := seriesFromCloses("DEAR", "20240101", []float64{50, 51, 52})
	for i := range cheap {
		cheap[i].PE, cheap[i].PB = 8, 1.0
		dear[i].PE, dear[i].PB = 40, 4.0
	}
	data := map[string][]core.Bar{"CHEAP": cheap, "DEAR": dear}

	res, err := Run(context.Background(), "value", nil, data, testConfig(), nil)
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !res.OK() {
		t.Fatalf("unexpected error result: %s", res.Error)
	}

	for _, tx := range res.Transactions {
		if tx.Code != "CHEAP" {
			t.Errorf("traded %s, only CHEAP passes the screen", tx.Code)
		}
	}
	if len(res.Transactions) == 0 {
		t.Error("expected at least one transaction for CHEAP")
	}
}
