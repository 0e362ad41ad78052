package backtest

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResultErrorMarshalsBare(t *testing.T) {
	res := &Result{Error: "no price data provided", InitialCapital: 100000}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != `{"error":"no price data provided"}` {
		t.Errorf("marshaled error result = %s", got)
	}
}

func TestResultMarshalsLegacyKeys(t *testing.T) {
	res := &Result{
		InitialCapital: 100000,
		FinalCapital:   101000,
		EquityCurve:    []EquityPoint{{Date: "20240101", Value: 100000}},
		Positions:      []Snapshot{{Date: "20240101", Cash: 100, Positions: []SnapshotPosition{}}},
		Transactions: []Transaction{
			{Date: "20240101", Code: "AAA", Action: "BUY", Price: 10, Shares: 900},
		},
		TotalReturn: 1,
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)

	// The equity curve lives under "returns" and share counts under
	// "volume"; both are fixed by the downstream consumers.
	if !strings.Contains(doc, `"returns":[`) {
		t.Errorf("missing returns key in %s", doc)
	}
	if !strings.Contains(doc, `"volume":900`) {
		t.Errorf("missing volume key in %s", doc)
	}
	if strings.Contains(doc, `"error"`) {
		t.Errorf("error key present on a successful result: %s", doc)
	}
}

func TestResultEmptyCollectionsMarshalAsArrays(t *testing.T) {
	res := &Result{
		InitialCapital: 100000,
		FinalCapital:   100000,
		EquityCurve:    []EquityPoint{},
		Positions:      []Snapshot{},
		Transactions:   []Transaction{},
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	doc := string(data)
	for _, key := range []string{`"returns":[]`, `"positions":[]`, `"transactions":[]`} {
		if !strings.Contains(doc, key) {
			t.Errorf("missing %s in %s", key, doc)
		}
	}
}

func TestEquityValues(t *testing.T) {
	res := &Result{EquityCurve: []EquityPoint{
		{Date: "20240101", Value: 100},
		{Date: "20240102", Value: 110},
	}}
	got := res.EquityValues()
	if len(got) != 2 || got[0] != 100 || got[1] != 110 {
		t.Errorf("EquityValues = %v", got)
	}
}
