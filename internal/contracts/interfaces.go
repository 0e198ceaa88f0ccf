package contracts

import (
	"context"
	"time"
)

// FundamentalsProvider is the external market-data boundary. Implementors
// classify their failures as transient or permanent via AcquireError.
// ⭐ SSOT: 외부 데이터 공급자 인터페이스는 여기서만 정의
type FundamentalsProvider interface {
	// Profile returns the company identity record.
	Profile(ctx context.Context, ticker string) (*CompanyProfile, error)
	// Statements returns up to years trailing annual periods, newest
	// first.
	Statements(ctx context.Context, ticker string, years int) ([]FundamentalPeriod, error)
	// Quote returns the current price snapshot.
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

// QuoteProvider serves price snapshots only. Fallback sources implement
// just this.
type QuoteProvider interface {
	Quote(ctx context.Context, ticker string) (*Quote, error)
}

// UniverseProvider lists candidate tickers above a market-cap floor, at
// most limit of them.
type UniverseProvider interface {
	Universe(ctx context.Context, minMarketCap float64, limit int) ([]CompanyProfile, error)
}

// CacheStore is the durable fundamentals cache keyed by (ticker,
// period-end). Reads report their snapshot time so callers can judge
// staleness; a miss is (nil, nil), not an error.
// ⭐ SSOT: 펀더멘털 캐시 인터페이스는 여기서만 정의
type CacheStore interface {
	// GetFundamentals returns the cached bundle for a ticker, or nil
	// when nothing is cached.
	GetFundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
	// SaveFundamentals upserts the bundle. Re-writing a period that is
	// already cached with an equal-or-newer snapshot changes nothing.
	SaveFundamentals(ctx context.Context, f *Fundamentals) error
	// Invalidate drops every cached record for a ticker.
	Invalidate(ctx context.Context, ticker string) error
	// StaleTickers lists cached tickers whose snapshot is older than
	// cutoff.
	StaleTickers(ctx context.Context, cutoff time.Time) ([]string, error)
	// Stats counts cached tickers and periods, with stale judged
	// against cutoff.
	Stats(ctx context.Context, cutoff time.Time) (*CacheStats, error)
}

// CacheStats describes cache contents and the session's hit economics.
type CacheStats struct {
	Tickers    int   `json:"tickers"`
	Periods    int   `json:"periods"`
	Stale      int   `json:"stale"`
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	CallsSaved int64 `json:"calls_saved"`
}

// CheckpointStore persists run manifests and per-ticker progress.
// Failures here are fatal to a run; everything else degrades per ticker.
// ⭐ SSOT: 체크포인트 저장 인터페이스는 여기서만 정의
type CheckpointStore interface {
	CreateRun(ctx context.Context, m *RunManifest) error
	FinishRun(ctx context.Context, runID string, status RunStatus) error
	GetRun(ctx context.Context, runID string) (*RunManifest, error)
	// LatestRun returns the most recently started run, or nil when no
	// run exists.
	LatestRun(ctx context.Context) (*RunManifest, error)
	// ListRuns returns up to limit runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunManifest, error)
	// InitProgress seeds a PENDING row per ticker, keeping rows that
	// already exist so a resumed run sees its prior work.
	InitProgress(ctx context.Context, runID string, tickers []string) error
	// Progress returns every ticker's checkpoint row for a run.
	Progress(ctx context.Context, runID string) (map[string]*TickerProgress, error)
	// ProgressFor returns one ticker's checkpoint row, or nil when the
	// run never tracked that ticker.
	ProgressFor(ctx context.Context, runID, ticker string) (*TickerProgress, error)
	// SaveOutcome commits one ticker's stage outputs and its advanced
	// checkpoint row in a single transaction.
	SaveOutcome(ctx context.Context, o *TickerOutcome) error
	// Summary aggregates run progress for reporting.
	Summary(ctx context.Context, runID string) (*RunSummary, error)
}

// TickerOutcome is everything one ticker produced before its checkpoint
// advanced. Nil sections were never reached.
type TickerOutcome struct {
	Progress  TickerProgress
	Screening *ScreeningResult
	Score     *QualityScore
	Valuation *ValuationResult
}

// ScreeningReader serves stored Tier-1 results.
type ScreeningReader interface {
	ScreeningByRun(ctx context.Context, runID string, passedOnly bool) ([]ScreeningResult, error)
	Screening(ctx context.Context, runID, ticker string) (*ScreeningResult, error)
}

// ScoreReader serves stored Tier-2 results.
type ScoreReader interface {
	ScoresByRun(ctx context.Context, runID string) ([]QualityScore, error)
	Score(ctx context.Context, runID, ticker string) (*QualityScore, error)
}

// ValuationReader serves stored Tier-3 results. An empty verdict lists
// every result.
type ValuationReader interface {
	ValuationsByRun(ctx context.Context, runID string, verdict Verdict) ([]ValuationResult, error)
	Valuation(ctx context.Context, runID, ticker string) (*ValuationResult, error)
}
