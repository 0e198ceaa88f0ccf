package acquire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/compounder/internal/contracts"
)

// callsPerFetch is what one full provider fetch costs: a profile call
// plus the three statement endpoints. Each cache hit saves that many.
const callsPerFetch = 4

// Repository is the durable fundamentals cache on Postgres, keyed by
// (ticker, period_end) with the profile alongside.
// ⭐ SSOT: 펀더멘털 영구 캐시는 여기서만
type Repository struct {
	pool *pgxpool.Pool

	hits       atomic.Int64
	misses     atomic.Int64
	callsSaved atomic.Int64
}

// NewRepository creates a fundamentals cache over the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetFundamentals loads the cached bundle for a ticker. A miss returns
// (nil, nil). The bundle's FetchedAt is the oldest period snapshot, so
// a partially refreshed ticker still reads as old.
func (r *Repository) GetFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	query := `
		SELECT payload, fetched_at
		FROM fundamental_periods
		WHERE ticker = $1
		ORDER BY period_end DESC
	`

	rows, err := r.pool.Query(ctx, query, ticker)
	if err != nil {
		return nil, fmt.Errorf("query periods for %s: %w", ticker, err)
	}
	defer rows.Close()

	var periods []contracts.FundamentalPeriod
	var oldest time.Time
	for rows.Next() {
		var payload []byte
		var fetchedAt time.Time
		if err := rows.Scan(&payload, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan period for %s: %w", ticker, err)
		}
		var p contracts.FundamentalPeriod
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("decode period for %s: %w", ticker, err)
		}
		periods = append(periods, p)
		if oldest.IsZero() || fetchedAt.Before(oldest) {
			oldest = fetchedAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read periods for %s: %w", ticker, err)
	}

	if len(periods) == 0 {
		r.misses.Add(1)
		return nil, nil
	}

	profile, err := r.getProfile(ctx, ticker)
	if err != nil {
		return nil, err
	}

	f := &contracts.Fundamentals{
		Ticker:    ticker,
		Periods:   periods,
		FetchedAt: oldest,
	}
	if profile != nil {
		f.Profile = *profile
	}

	r.hits.Add(1)
	r.callsSaved.Add(callsPerFetch)
	return f, nil
}

func (r *Repository) getProfile(ctx context.Context, ticker string) (*contracts.CompanyProfile, error) {
	query := `
		SELECT ticker, name, sector, industry, exchange, currency,
		       market_cap, price, beta, fetched_at
		FROM company_profiles
		WHERE ticker = $1
	`

	var p contracts.CompanyProfile
	err := r.pool.QueryRow(ctx, query, ticker).Scan(
		&p.Ticker, &p.Name, &p.Sector, &p.Industry, &p.Exchange, &p.Currency,
		&p.MarketCap, &p.Price, &p.Beta, &p.FetchedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile for %s: %w", ticker, err)
	}
	return &p, nil
}

// SaveFundamentals upserts the bundle in one transaction. A period row
// already holding an equal-or-newer snapshot is left untouched, so
// replaying a fetch is a no-op.
func (r *Repository) SaveFundamentals(ctx context.Context, f *contracts.Fundamentals) error {
	fetchedAt := f.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	profileQuery := `
		INSERT INTO company_profiles (
			ticker, name, sector, industry, exchange, currency,
			market_cap, price, beta, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (ticker) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			exchange = EXCLUDED.exchange,
			currency = EXCLUDED.currency,
			market_cap = EXCLUDED.market_cap,
			price = EXCLUDED.price,
			beta = EXCLUDED.beta,
			fetched_at = EXCLUDED.fetched_at
		WHERE company_profiles.fetched_at < EXCLUDED.fetched_at
	`

	periodQuery := `
		INSERT INTO fundamental_periods (
			ticker, period_end, fiscal_year, payload, fetched_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (ticker, period_end) DO UPDATE SET
			fiscal_year = EXCLUDED.fiscal_year,
			payload = EXCLUDED.payload,
			fetched_at = EXCLUDED.fetched_at
		WHERE fundamental_periods.fetched_at < EXCLUDED.fetched_at
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	profileFetched := f.Profile.FetchedAt
	if profileFetched.IsZero() {
		profileFetched = fetchedAt
	}
	_, err = tx.Exec(ctx, profileQuery,
		f.Ticker, f.Profile.Name, f.Profile.Sector, f.Profile.Industry,
		f.Profile.Exchange, f.Profile.Currency, f.Profile.MarketCap,
		f.Profile.Price, f.Profile.Beta, profileFetched,
	)
	if err != nil {
		return fmt.Errorf("upsert profile for %s: %w", f.Ticker, err)
	}

	for _, p := range f.Periods {
		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode period for %s: %w", f.Ticker, err)
		}
		_, err = tx.Exec(ctx, periodQuery,
			f.Ticker, p.PeriodEnd, p.FiscalYear, payload, fetchedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert period %s for %s: %w",
				p.PeriodEnd.Format("2006-01-02"), f.Ticker, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Invalidate drops every cached record for a ticker.
func (r *Repository) Invalidate(ctx context.Context, ticker string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM fundamental_periods WHERE ticker = $1`, ticker); err != nil {
		return fmt.Errorf("delete periods for %s: %w", ticker, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM company_profiles WHERE ticker = $1`, ticker); err != nil {
		return fmt.Errorf("delete profile for %s: %w", ticker, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// StaleTickers lists cached tickers whose oldest snapshot predates
// cutoff.
func (r *Repository) StaleTickers(ctx context.Context, cutoff time.Time) ([]string, error) {
	query := `
		SELECT ticker
		FROM fundamental_periods
		GROUP BY ticker
		HAVING MIN(fetched_at) < $1
		ORDER BY ticker
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stale tickers: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan stale ticker: %w", err)
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}

// Stats counts cached tickers and periods, with stale judged against
// cutoff. Hit counters are per-process, not persisted.
func (r *Repository) Stats(ctx context.Context, cutoff time.Time) (*contracts.CacheStats, error) {
	query := `
		SELECT COUNT(DISTINCT ticker),
		       COUNT(*),
		       (SELECT COUNT(*) FROM (
		            SELECT ticker FROM fundamental_periods
		            GROUP BY ticker HAVING MIN(fetched_at) < $1
		        ) s)
		FROM fundamental_periods
	`

	stats := &contracts.CacheStats{}
	err := r.pool.QueryRow(ctx, query, cutoff).Scan(&stats.Tickers, &stats.Periods, &stats.Stale)
	if err != nil {
		return nil, fmt.Errorf("query cache stats: %w", err)
	}

	stats.Hits = r.hits.Load()
	stats.Misses = r.misses.Load()
	stats.CallsSaved = r.callsSaved.Load()
	return stats, nil
}
