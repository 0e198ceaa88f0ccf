package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/compounder/internal/acquire"
	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/logger"
)

// refreshFetcher adapts the gateway's forced re-pull to the collector's
// Fetcher shape, so the sweep bypasses the freshness TTL.
type refreshFetcher struct {
	gateway *acquire.Gateway
}

func (f refreshFetcher) Fetch(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	return f.gateway.Refresh(ctx, ticker)
}

// FundamentalsRefreshJob force-refreshes every cached ticker whose
// snapshot is older than MinAge, bypassing the freshness TTL. Scheduled
// quarterly so new fiscal years land without waiting for the next full
// screen to notice. The sweep fans out through the collector pool; the
// provider's shared token bucket is what actually paces it.
// ⭐ SSOT: 펀더멘털 강제 갱신 스케줄은 이 Job에서만
type FundamentalsRefreshJob struct {
	store     contracts.CacheStore
	collector *acquire.Collector
	workers   int
	minAge    time.Duration
	schedule  string
	logger    *logger.Logger
}

// NewFundamentalsRefreshJob creates a fundamentals refresh job. minAge
// keeps tickers refreshed within that window out of the sweep, so a
// manually refreshed name is not pulled twice.
func NewFundamentalsRefreshJob(
	store contracts.CacheStore,
	gateway *acquire.Gateway,
	workers int,
	minAge time.Duration,
	schedule string,
	log *logger.Logger,
) *FundamentalsRefreshJob {
	if minAge <= 0 {
		minAge = 24 * time.Hour
	}
	return &FundamentalsRefreshJob{
		store:     store,
		collector: acquire.NewCollector(refreshFetcher{gateway}, log),
		workers:   workers,
		minAge:    minAge,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *FundamentalsRefreshJob) Name() string {
	return "fundamentals_refresh"
}

// Schedule returns the cron schedule from config
func (j *FundamentalsRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the forced refresh sweep
func (j *FundamentalsRefreshJob) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-j.minAge)
	tickers, err := j.store.StaleTickers(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale tickers: %w", err)
	}
	if len(tickers) == 0 {
		j.logger.Info("Cache is fresh, nothing to refresh")
		return nil
	}

	j.logger.WithField("tickers", len(tickers)).Info("Starting fundamentals refresh sweep")

	results := j.collector.Collect(ctx, tickers, acquire.CollectorConfig{Workers: j.workers})

	refreshed, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			// 한 종목의 실패가 스윕을 멈추지 않는다
			failed++
			j.logger.WithField("ticker", r.Ticker).WithError(r.Err).Warn("Refresh failed")
			continue
		}
		refreshed++
	}

	j.logger.WithFields(map[string]interface{}{
		"refreshed": refreshed,
		"failed":    failed,
	}).Info("Fundamentals refresh sweep completed")

	if err := ctx.Err(); err != nil {
		return err
	}
	if refreshed == 0 {
		return fmt.Errorf("all %d refresh attempts failed", failed)
	}
	return nil
}
