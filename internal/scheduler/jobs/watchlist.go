package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/pipeline"
	"github.com/wonny/compounder/pkg/logger"
)

// WatchlistRevaluationJob re-runs the pipeline over the latest run's BUY
// and WATCH names. Fundamentals come from the durable cache, so the run
// mostly refreshes quotes and re-prices; records land in a fresh run so
// the original run's lineage stays untouched.
// ⭐ SSOT: 워치리스트 재평가 스케줄은 이 Job에서만
type WatchlistRevaluationJob struct {
	checkpoint contracts.CheckpointStore
	valuations contracts.ValuationReader
	runner     *pipeline.Orchestrator
	schedule   string
	logger     *logger.Logger
}

// NewWatchlistRevaluationJob creates a watchlist revaluation job.
func NewWatchlistRevaluationJob(
	checkpoint contracts.CheckpointStore,
	valuations contracts.ValuationReader,
	runner *pipeline.Orchestrator,
	schedule string,
	log *logger.Logger,
) *WatchlistRevaluationJob {
	return &WatchlistRevaluationJob{
		checkpoint: checkpoint,
		valuations: valuations,
		runner:     runner,
		schedule:   schedule,
		logger:     log,
	}
}

// Name returns the job name
func (j *WatchlistRevaluationJob) Name() string {
	return "watchlist_revaluation"
}

// Schedule returns the cron schedule from config
func (j *WatchlistRevaluationJob) Schedule() string {
	return j.schedule
}

// Run executes the watchlist revaluation
func (j *WatchlistRevaluationJob) Run(ctx context.Context) error {
	latest, err := j.checkpoint.LatestRun(ctx)
	if err != nil {
		return fmt.Errorf("load latest run: %w", err)
	}
	if latest == nil {
		j.logger.Info("No runs recorded yet, skipping watchlist revaluation")
		return nil
	}

	var tickers []string
	for _, verdict := range []contracts.Verdict{contracts.VerdictBuy, contracts.VerdictWatch} {
		results, err := j.valuations.ValuationsByRun(ctx, latest.RunID, verdict)
		if err != nil {
			return fmt.Errorf("load %s names: %w", verdict, err)
		}
		for _, v := range results {
			tickers = append(tickers, v.Ticker)
		}
	}
	if len(tickers) == 0 {
		j.logger.WithField("run_id", latest.RunID).Info("Watchlist is empty, nothing to revalue")
		return nil
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":  latest.RunID,
		"tickers": len(tickers),
	}).Info("Starting watchlist revaluation")

	result, err := j.runner.Run(ctx, pipeline.RunConfig{Tickers: tickers})
	if err != nil {
		return fmt.Errorf("revaluation run: %w", err)
	}

	fields := map[string]interface{}{
		"run_id":   result.RunID,
		"duration": result.Duration,
	}
	if result.Summary != nil {
		fields["valued"] = result.Summary.Valued
		fields["buys"] = result.Summary.Buys
	}
	j.logger.WithFields(fields).Info("Watchlist revaluation completed")

	return nil
}
