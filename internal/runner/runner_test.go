package runner

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/quantlab/internal/backtest"
	"github.com/newthinker/quantlab/internal/core"
	"github.com/newthinker/quantlab/internal/storage/archive"
)

func testData() map[string][]core.Bar {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	dates, _ := core.ParseDate("20240101")
	bars := make([]core.Bar, len(closes))
	for i, c := range closes {
		bars[i] = core.Bar{
			Code:  "AAA",
			Date:  dates.AddDate(0, 0, i).Format(core.DateLayout),
			Close: c,
		}
	}
	return map[string][]core.Bar{"AAA": bars}
}

func testBacktestConfig() backtest.Config {
	return backtest.Config{InitialCapital: 100000, Commission: 0.0003}
}

func TestRunnerPreservesJobOrder(t *testing.T) {
	r := New(testBacktestConfig(), Options{Workers: 2})
	jobs := []Job{
		NewJob("ma_cross", nil),
		NewJob("nope", nil),
		NewJob("ma_cross", nil),
	}

	results := r.Run(context.Background(), jobs, testData())
	require.Len(t, results, 3)

	for i, jr := range results {
		assert.Equal(t, jobs[i].ID, jr.Job.ID, "result %d out of order", i)
	}

	assert.True(t, results[0].Result.OK())
	assert.False(t, results[1].Result.OK(), "unknown strategy must come back as an error result")
	assert.NoError(t, results[1].Err, "input failures are not runner errors")
	assert.True(t, results[2].Result.OK())
}

func TestRunnerArchivesResults(t *testing.T) {
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	r := New(testBacktestConfig(), Options{Workers: 1, Archive: store})
	job := NewJob("ma_cross", nil)

	results := r.Run(context.Background(), []Job{job}, testData())
	require.Len(t, results, 1)
	require.True(t, results[0].Result.OK())

	key := "results/ma_cross/" + job.ID + ".json"
	exists, err := store.Exists(context.Background(), key)
	require.NoError(t, err)
	require.True(t, exists, "archived result missing")

	raw, err := store.Read(context.Background(), key)
	require.NoError(t, err)

	var doc backtest.Result
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, results[0].Result.FinalCapital, doc.FinalCapital)
}

func TestRunnerDoesNotArchiveErrorResults(t *testing.T) {
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	r := New(testBacktestConfig(), Options{Workers: 1, Archive: store})
	job := NewJob("nope", nil)

	results := r.Run(context.Background(), []Job{job}, testData())
	require.False(t, results[0].Result.OK())

	exists, err := store.Exists(context.Background(), "results/nope/"+job.ID+".json")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunnerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(testBacktestConfig(), Options{Workers: 2})
	results := r.Run(ctx, []Job{NewJob("ma_cross", nil)}, testData())

	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestNewJobAssignsUniqueIDs(t *testing.T) {
	a := NewJob("ma_cross", nil)
	b := NewJob("ma_cross", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
