package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newthinker/quantlab/internal/analytics"
	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/dataset"
	"github.com/newthinker/quantlab/internal/logger"
	"github.com/newthinker/quantlab/internal/strategy"
)

var (
	backtestDataDir    string
	backtestFormat     string
	backtestCapital    float64
	backtestCommission float64
	backtestParams     []string
	backtestBenchmark  string
	backtestJSON       bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run a single strategy backtest",
	Long:  "Simulate a strategy against the historical bars in the data directory and show performance statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestDataDir, "data", "./data", "directory of per-instrument bar files")
	backtestCmd.Flags().StringVar(&backtestFormat, "format", "csv", "dataset format: csv or parquet")
	backtestCmd.Flags().Float64Var(&backtestCapital, "capital", 100000, "initial capital")
	backtestCmd.Flags().Float64Var(&backtestCommission, "commission", 0.0003, "flat commission rate")
	backtestCmd.Flags().StringArrayVar(&backtestParams, "param", nil, "strategy parameter key=value (repeatable)")
	backtestCmd.Flags().StringVar(&backtestBenchmark, "benchmark", "", "benchmark instrument code (excluded from the trading universe)")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "print the raw result document as JSON")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	strategyCode := args[0]

	params, err := parseParams(backtestParams)
	if err != nil {
		return err
	}

	log := logger.Must(debug)
	defer log.Sync()

	data, err := dataset.LoadDir(backtestDataDir, backtestFormat)
	if err != nil {
		return err
	}

	var benchmarkCloses []float64
	if backtestBenchmark != "" {
		bars, ok := data[backtestBenchmark]
		if !ok {
			return fmt.Errorf("benchmark %q not found in dataset", backtestBenchmark)
		}
		benchmarkCloses = make([]float64, len(bars))
		for i, b := range bars {
			benchmarkCloses[i] = b.Close
		}
		delete(data, backtestBenchmark)
	}

	cfg := backtest.Config{InitialCapital: backtestCapital, Commission: backtestCommission}
	res, err := backtest.Run(cmd.Context(), strategyCode, params, data, cfg, log)
	if err != nil {
		return err
	}
	if !res.OK() {
		return fmt.Errorf("backtest failed: %s", res.Error)
	}

	if backtestJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	printReport(strategyCode, res, benchmarkCloses)
	return nil
}

// parseParams converts repeated key=value flags to strategy parameters.
func parseParams(kvs []string) (strategy.Params, error) {
	if len(kvs) == 0 {
		return nil, nil
	}
	params := make(strategy.Params, len(kvs))
	for _, kv := range kvs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid param %q (expected key=value)", kv)
		}
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid param value %q: %w", kv, err)
		}
		params[key] = v
	}
	return params, nil
}

func printReport(strategyCode string, res *backtest.Result, benchmarkCloses []float64) {
	returns := analytics.Returns(res.EquityValues())
	var benchmark []float64
	if len(benchmarkCloses) > 0 {
		benchmark = analytics.AlignBenchmark(analytics.Returns(benchmarkCloses), len(returns))
	}
	m := analytics.Compute(returns, benchmark)

	fmt.Println("=== QUANTLAB Backtest ===")
	fmt.Printf("Strategy:          %s\n", strategyCode)
	if n := len(res.EquityCurve); n > 0 {
		fmt.Printf("Period:            %s to %s (%d trading days)\n",
			res.EquityCurve[0].Date, res.EquityCurve[n-1].Date, n)
	}
	fmt.Printf("Initial capital:   %.2f\n", res.InitialCapital)
	fmt.Printf("Final capital:     %.2f\n", res.FinalCapital)
	fmt.Printf("Total return:      %.2f%%\n", res.TotalReturn)
	fmt.Printf("Annualized return: %.2f%%\n", res.AnnualizedReturn)
	fmt.Printf("Volatility:        %.2f%%\n", m.Volatility)
	fmt.Printf("Sharpe ratio:      %.2f\n", m.SharpeRatio)
	fmt.Printf("Max drawdown:      %.2f%%\n", m.MaxDrawdown)
	fmt.Printf("Transactions:      %d\n", len(res.Transactions))

	if m.ExcessReturn != nil {
		fmt.Println()
		fmt.Println("--- vs benchmark ---")
		fmt.Printf("Excess return:     %.2f%%\n", *m.ExcessReturn)
		fmt.Printf("Annualized excess: %.2f%%\n", *m.AnnualizedExcessReturn)
		fmt.Printf("Information ratio: %.2f\n", *m.InformationRatio)
		fmt.Printf("Win rate:          %.2f%%\n", *m.WinRate)
	}

	if n := len(res.Positions); n > 0 {
		last := res.Positions[n-1]
		if len(last.Positions) > 0 {
			fmt.Println()
			fmt.Println("--- final holdings ---")
			for _, p := range last.Positions {
				fmt.Printf("%-12s %8d shares @ %.2f = %.2f\n", p.Code, p.Shares, p.Price, p.Value)
			}
		}
	}
}
