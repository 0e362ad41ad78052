// Package dataset loads per-instrument daily bar files into the
// in-memory map the backtest engine consumes. The engine itself never
// touches the filesystem; these loaders are the caller's side of that
// boundary.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/newthinker/quantlab/internal/core"
)

// LoadDir loads every bar file of the given format ("csv" or "parquet")
// under dir, keyed by instrument code taken from the file name.
func LoadDir(dir, format string) (map[string][]core.Bar, error) {
	switch format {
	case "", "csv":
		return LoadCSVDir(dir)
	case "parquet":
		return LoadParquetDir(dir)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
}

// LoadCSVDir reads every <CODE>.csv file under dir. Columns are matched
// by header name: trade_date and close are required; open, high, low,
// vol, amount, pct_chg, pe and pb are optional.
func LoadCSVDir(dir string) (map[string][]core.Bar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir: %w", err)
	}

	data := make(map[string][]core.Bar)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		code := strings.TrimSuffix(entry.Name(), ".csv")
		bars, err := loadCSVFile(filepath.Join(dir, entry.Name()), code)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}
		data[code] = bars
	}
	return data, nil
}

func loadCSVFile(path, code string) ([]core.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := col["trade_date"]; !ok {
		return nil, fmt.Errorf("missing trade_date column")
	}
	if _, ok := col["close"]; !ok {
		return nil, fmt.Errorf("missing close column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	floatField := func(record []string, name string) float64 {
		s := field(record, name)
		if s == "" {
			return 0
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return v
	}

	var bars []core.Bar
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		date := field(record, "trade_date")
		if date == "" {
			continue
		}
		close, err := strconv.ParseFloat(field(record, "close"), 64)
		if err != nil {
			return nil, fmt.Errorf("bad close on %s: %w", date, err)
		}
		bars = append(bars, core.Bar{
			Code:   code,
			Date:   date,
			Open:   floatField(record, "open"),
			High:   floatField(record, "high"),
			Low:    floatField(record, "low"),
			Close:  close,
			Volume: floatField(record, "vol"),
			Amount: floatField(record, "amount"),
			PctChg: floatField(record, "pct_chg"),
			PE:     floatField(record, "pe"),
			PB:     floatField(record, "pb"),
		})
	}
	core.SortBars(bars)
	return bars, nil
}
