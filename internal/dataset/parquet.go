package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"github.com/newthinker/quantlab/internal/core"
)

// barRecord is the on-disk Parquet schema for daily bar data. Field
// names mirror the CSV header so both formats describe the same table.
type barRecord struct {
	TradeDate string  `parquet:"trade_date"`
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    float64 `parquet:"vol"`
	Amount    float64 `parquet:"amount"`
	PctChg    float64 `parquet:"pct_chg"`
	PE        float64 `parquet:"pe"`
	PB        float64 `parquet:"pb"`
}

// LoadParquetDir reads every <CODE>.parquet file under dir.
func LoadParquetDir(dir string) (map[string][]core.Bar, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset dir: %w", err)
	}

	data := make(map[string][]core.Bar)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".parquet") {
			continue
		}
		code := strings.TrimSuffix(entry.Name(), ".parquet")
		records, err := parquet.ReadFile[barRecord](filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", entry.Name(), err)
		}

		bars := make([]core.Bar, 0, len(records))
		for _, r := range records {
			bars = append(bars, core.Bar{
				Code:   code,
				Date:   r.TradeDate,
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
				Amount: r.Amount,
				PctChg: r.PctChg,
				PE:     r.PE,
				PB:     r.PB,
			})
		}
		core.SortBars(bars)
		data[code] = bars
	}
	return data, nil
}

// WriteParquet writes one instrument's bars to a Parquet file, creating
// parent directories as needed.
func WriteParquet(path string, bars []core.Bar) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	records := make([]barRecord, 0, len(bars))
	for _, b := range bars {
		records = append(records, barRecord{
			TradeDate: b.Date,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			Amount:    b.Amount,
			PctChg:    b.PctChg,
			PE:        b.PE,
			PB:        b.PB,
		})
	}
	return parquet.WriteFile(path, records)
}
