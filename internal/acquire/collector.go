package acquire

import (
	"context"
	"sync"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/logger"
)

// Fetcher is the single-ticker acquisition dependency. *Gateway
// satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string) (*contracts.Fundamentals, error)
}

// CollectorConfig holds collector configuration
type CollectorConfig struct {
	Workers int // Number of concurrent workers
}

// FetchResult represents the result of a fetch operation
type FetchResult struct {
	Ticker       string
	Fundamentals *contracts.Fundamentals
	Err          error
}

// Collector fans a ticker list across gateway workers. The provider's
// shared token bucket is what actually paces the fan-out.
// ⭐ SSOT: 배치 수집은 여기서만
type Collector struct {
	fetcher Fetcher
	logger  *logger.Logger
}

// NewCollector creates a new Collector instance
func NewCollector(fetcher Fetcher, log *logger.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		logger:  log.Module("collector"),
	}
}

// Collect fetches fundamentals for every ticker through a worker pool
// and returns one result per ticker, order unspecified. Per-ticker
// failures land in their FetchResult; only a canceled context stops the
// pool early.
func (c *Collector) Collect(ctx context.Context, tickers []string, cfg CollectorConfig) []FetchResult {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker_count": len(tickers),
		"workers":      workers,
	}).Info("Starting fundamentals collection")

	results := make([]FetchResult, 0, len(tickers))
	resultCh := make(chan FetchResult, len(tickers))

	var wg sync.WaitGroup
	tickerCh := make(chan string, len(tickers))

	// Start workers
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			c.fetchWorker(ctx, workerID, tickerCh, resultCh)
		}(i)
	}

	// Send tickers to workers
	for _, t := range tickers {
		tickerCh <- t
	}
	close(tickerCh)

	// Wait for all workers to complete
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Collect results
	successCount := 0
	failCount := 0
	staleCount := 0
	for result := range resultCh {
		results = append(results, result)
		switch {
		case result.Err != nil:
			failCount++
		case result.Fundamentals != nil && result.Fundamentals.Stale:
			staleCount++
			successCount++
		default:
			successCount++
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"success": successCount,
		"failed":  failCount,
		"stale":   staleCount,
		"total":   len(results),
	}).Info("Fundamentals collection completed")

	return results
}

// fetchWorker processes fundamentals fetching for tickers
func (c *Collector) fetchWorker(ctx context.Context, workerID int, tickerCh <-chan string, resultCh chan<- FetchResult) {
	for ticker := range tickerCh {
		select {
		case <-ctx.Done():
			resultCh <- FetchResult{
				Ticker: ticker,
				Err:    ctx.Err(),
			}
			return
		default:
		}

		f, err := c.fetcher.Fetch(ctx, ticker)
		if err != nil {
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"worker": workerID,
				"ticker": ticker,
			}).Error("Failed to fetch fundamentals")
			resultCh <- FetchResult{
				Ticker: ticker,
				Err:    err,
			}
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"worker":  workerID,
			"ticker":  ticker,
			"periods": len(f.Periods),
		}).Debug("Fetched fundamentals")

		resultCh <- FetchResult{
			Ticker:       f.Ticker,
			Fundamentals: f,
		}
	}
}
