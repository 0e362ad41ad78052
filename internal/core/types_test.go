package core

import (
	"reflect"
	"testing"
)

func sampleBars() []Bar {
	return []Bar{
		{Code: "AAA", Date: "20240101", Close: 10},
		{Code: "AAA", Date: "20240103", Close: 11},
		{Code: "AAA", Date: "20240105", Close: 12},
	}
}

func TestBarsUpTo(t *testing.T) {
	bars := sampleBars()

	if got := BarsUpTo(bars, "20240103"); len(got) != 2 {
		t.Errorf("BarsUpTo inclusive = %d bars, want 2", len(got))
	}
	if got := BarsUpTo(bars, "20240104"); len(got) != 2 {
		t.Errorf("BarsUpTo between dates = %d bars, want 2", len(got))
	}
	if got := BarsUpTo(bars, "20231231"); len(got) != 0 {
		t.Errorf("BarsUpTo before start = %d bars, want 0", len(got))
	}
	if got := BarsUpTo(bars, "20241231"); len(got) != 3 {
		t.Errorf("BarsUpTo after end = %d bars, want 3", len(got))
	}
}

func TestBarAt(t *testing.T) {
	bars := sampleBars()

	bar, ok := BarAt(bars, "20240103")
	if !ok || bar.Close != 11 {
		t.Errorf("BarAt = %+v, %v", bar, ok)
	}
	if _, ok := BarAt(bars, "20240104"); ok {
		t.Error("BarAt on a non-trading day should not be ok")
	}
}

func TestSortBars(t *testing.T) {
	bars := []Bar{
		{Date: "20240105"},
		{Date: "20240101"},
		{Date: "20240103"},
	}
	SortBars(bars)
	for i := 1; i < len(bars); i++ {
		if bars[i-1].Date > bars[i].Date {
			t.Fatalf("bars not sorted: %v", bars)
		}
	}
}

func TestDateAxisUnion(t *testing.T) {
	data := map[string][]Bar{
		"AAA": {{Date: "20240101"}, {Date: "20240103"}},
		"BBB": {{Date: "20240102"}, {Date: "20240103"}},
	}
	got := DateAxis(data)
	want := []string{"20240101", "20240102", "20240103"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DateAxis = %v, want %v", got, want)
	}
}

func TestSortedCodes(t *testing.T) {
	data := map[string][]Bar{"BBB": nil, "AAA": nil, "CCC": nil}
	got := SortedCodes(data)
	want := []string{"AAA", "BBB", "CCC"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedCodes = %v, want %v", got, want)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("20240131")
	if err != nil {
		t.Fatal(err)
	}
	if d.Year() != 2024 || int(d.Month()) != 1 || d.Day() != 31 {
		t.Errorf("ParseDate = %v", d)
	}
	if _, err := ParseDate("2024-01-31"); err == nil {
		t.Error("ParseDate should reject dashed dates")
	}
}
