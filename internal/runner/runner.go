// Package runner executes batches of independent backtest jobs in
// parallel. Each job owns its engine and portfolio state, so the only
// shared input is the read-only price data map.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/metrics"
	"github.com/newthinker/quantlab/internal/storage/archive"
	"github.com/newthinker/quantlab/internal/strategy"
)

// Job is one backtest to run: a strategy code with its parameters.
type Job struct {
	ID       string
	Strategy string
	Params   strategy.Params
}

// NewJob creates a job with a fresh run ID.
func NewJob(strategyCode string, params strategy.Params) Job {
	return Job{
		ID:       uuid.NewString(),
		Strategy: strategyCode,
		Params:   params,
	}
}

// JobResult pairs a job with its outcome. Err is only set for
// cancellation; input failures land in Result.Error as usual.
type JobResult struct {
	Job      Job
	Result   *backtest.Result
	Duration time.Duration
	Err      error
}

// Options configures a Runner. Metrics and Archive are optional.
type Options struct {
	Workers int
	Logger  *zap.Logger
	Metrics *metrics.Registry
	Archive archive.Storage
}

// Runner fans backtest jobs out over a bounded worker pool.
type Runner struct {
	cfg     backtest.Config
	workers int
	logger  *zap.Logger
	metrics *metrics.Registry
	archive archive.Storage
}

// New creates a runner with the given capital settings.
func New(cfg backtest.Config, opts Options) *Runner {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		workers: workers,
		logger:  logger,
		metrics: opts.Metrics,
		archive: opts.Archive,
	}
}

// Run executes all jobs against the shared price data and returns one
// result per job, in job order. Cancelling the context stops the pool;
// jobs already in flight report the cancellation in their Err.
func (r *Runner) Run(ctx context.Context, jobs []Job, data map[string][]core.Bar) []JobResult {
	results := make([]JobResult, len(jobs))

	sem := make(chan struct{}, r.workers)
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job Job) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = r.runJob(ctx, job, data)
		}(i, job)
	}
	wg.Wait()

	return results
}

func (r *Runner) runJob(ctx context.Context, job Job, data map[string][]core.Bar) JobResult {
	if r.metrics != nil {
		r.metrics.JobStarted()
		defer r.metrics.JobFinished()
	}

	start := time.Now()
	res, err := backtest.Run(ctx, job.Strategy, job.Params, data, r.cfg, r.logger)
	elapsed := time.Since(start)

	status := "ok"
	switch {
	case err != nil:
		status = "cancelled"
	case !res.OK():
		status = "error"
	}
	if r.metrics != nil {
		r.metrics.RecordBacktest(job.Strategy, status, elapsed.Seconds())
	}

	jr := JobResult{Job: job, Result: res, Duration: elapsed, Err: err}
	if err != nil {
		r.logger.Warn("backtest job aborted",
			zap.String("job", job.ID),
			zap.String("strategy", job.Strategy),
			zap.Error(err),
		)
		return jr
	}

	r.logger.Info("backtest job finished",
		zap.String("job", job.ID),
		zap.String("strategy", job.Strategy),
		zap.String("status", status),
		zap.Duration("elapsed", elapsed),
	)

	if r.archive != nil && res.OK() {
		if aerr := r.archiveResult(ctx, job, res); aerr != nil {
			r.logger.Warn("archiving result failed",
				zap.String("job", job.ID),
				zap.Error(core.WrapError(core.ErrArchiveFailed, aerr)),
			)
		}
	}
	return jr
}

// archiveResult stores the result document under a per-strategy key.
func (r *Runner) archiveResult(ctx context.Context, job Job, res *backtest.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("results/%s/%s.json", job.Strategy, job.ID)
	return r.archive.Write(ctx, key, data)
}
