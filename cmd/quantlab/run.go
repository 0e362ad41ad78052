package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quantlab/internal/analytics"
	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/config"
	"github.com/newthinker/quantlab/internal/dataset"
	"github.com/newthinker/quantlab/internal/logger"
	"github.com/newthinker/quantlab/internal/metrics"
	"github.com/newthinker/quantlab/internal/runner"
	"github.com/newthinker/quantlab/internal/storage/archive"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all enabled strategies from the config file",
	Long:  "Load the dataset once, fan every enabled strategy out over the worker pool and print a summary per strategy",
	RunE:  runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := config.Defaults()
	if cfgFile != "" {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.Must(debug)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	data, err := dataset.LoadDir(cfg.Data.Dir, cfg.Data.Format)
	if err != nil {
		return err
	}
	log.Info("dataset loaded",
		zap.String("dir", cfg.Data.Dir),
		zap.Int("instruments", len(data)),
	)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
		reg.SetDatasetSize(len(data))
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: reg.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
	}

	store, err := newArchive(cfg.Archive)
	if err != nil {
		return err
	}

	var benchmarkCloses []float64
	if code := cfg.Backtest.Benchmark; code != "" {
		bars, ok := data[code]
		if !ok {
			return fmt.Errorf("benchmark %q not found in dataset", code)
		}
		benchmarkCloses = make([]float64, len(bars))
		for i, b := range bars {
			benchmarkCloses[i] = b.Close
		}
		delete(data, code)
	}

	jobs := buildJobs(cfg.Strategies)
	if len(jobs) == 0 {
		return fmt.Errorf("no strategies enabled in config")
	}

	r := runner.New(
		backtest.Config{
			InitialCapital: cfg.Backtest.InitialCapital,
			Commission:     cfg.Backtest.Commission,
		},
		runner.Options{
			Workers: cfg.Runner.Workers,
			Logger:  log,
			Metrics: reg,
			Archive: store,
		},
	)

	results := r.Run(ctx, jobs, data)
	printSummary(results, benchmarkCloses)

	for _, jr := range results {
		if jr.Err != nil {
			return jr.Err
		}
	}
	return nil
}

// buildJobs turns the enabled strategy sections into runnable jobs, in
// a stable name order so batch output is reproducible.
func buildJobs(strategies map[string]config.StrategyConfig) []runner.Job {
	names := make([]string, 0, len(strategies))
	for name, sc := range strategies {
		if sc.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	jobs := make([]runner.Job, 0, len(names))
	for _, name := range names {
		jobs = append(jobs, runner.NewJob(name, strategies[name].Params))
	}
	return jobs
}

func newArchive(cfg config.ArchiveConfig) (archive.Storage, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "localfs":
		return archive.NewLocalFS(cfg.Path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown archive type %q", cfg.Type)
	}
}

func printSummary(results []runner.JobResult, benchmarkCloses []float64) {
	fmt.Println("=== QUANTLAB Batch Summary ===")
	for _, jr := range results {
		switch {
		case jr.Err != nil:
			fmt.Printf("%-12s aborted: %v\n", jr.Job.Strategy, jr.Err)
		case !jr.Result.OK():
			fmt.Printf("%-12s error: %s\n", jr.Job.Strategy, jr.Result.Error)
		default:
			returns := analytics.Returns(jr.Result.EquityValues())
			var benchmark []float64
			if len(benchmarkCloses) > 0 {
				benchmark = analytics.AlignBenchmark(analytics.Returns(benchmarkCloses), len(returns))
			}
			m := analytics.Compute(returns, benchmark)
			fmt.Printf("%-12s return %7.2f%%  ann %7.2f%%  sharpe %6.2f  maxdd %7.2f%%  trades %3d  (%s)\n",
				jr.Job.Strategy,
				jr.Result.TotalReturn,
				jr.Result.AnnualizedReturn,
				m.SharpeRatio,
				m.MaxDrawdown,
				len(jr.Result.Transactions),
				jr.Duration.Round(time.Millisecond),
			)
		}
	}
}
