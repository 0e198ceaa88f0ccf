package acquire

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/compounder/internal/contracts"
)

type memPeriod struct {
	period    contracts.FundamentalPeriod
	fetchedAt time.Time
}

type memEntry struct {
	profile        contracts.CompanyProfile
	profileFetched time.Time
	periods        map[time.Time]memPeriod
}

// MemStore is an in-memory CacheStore for tests and database-less
// one-off runs. Same merge rules as the Postgres store: a period row
// holding an equal-or-newer snapshot is never overwritten.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*memEntry

	hits       int64
	misses     int64
	callsSaved int64
}

// NewMemStore creates an empty in-memory cache.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*memEntry)}
}

// GetFundamentals returns the cached bundle, or (nil, nil) on a miss.
func (s *MemStore) GetFundamentals(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[ticker]
	if !ok || len(e.periods) == 0 {
		s.misses++
		return nil, nil
	}

	periods := make([]contracts.FundamentalPeriod, 0, len(e.periods))
	var oldest time.Time
	for _, row := range e.periods {
		periods = append(periods, row.period)
		if oldest.IsZero() || row.fetchedAt.Before(oldest) {
			oldest = row.fetchedAt
		}
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].PeriodEnd.After(periods[j].PeriodEnd)
	})

	s.hits++
	s.callsSaved += callsPerFetch
	return &contracts.Fundamentals{
		Ticker:    ticker,
		Profile:   e.profile,
		Periods:   periods,
		FetchedAt: oldest,
	}, nil
}

// SaveFundamentals merges the bundle into the store.
func (s *MemStore) SaveFundamentals(ctx context.Context, f *contracts.Fundamentals) error {
	fetchedAt := f.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[f.Ticker]
	if !ok {
		e = &memEntry{periods: make(map[time.Time]memPeriod)}
		s.entries[f.Ticker] = e
	}

	if e.profileFetched.Before(fetchedAt) {
		e.profile = f.Profile
		e.profileFetched = fetchedAt
	}
	for _, p := range f.Periods {
		existing, ok := e.periods[p.PeriodEnd]
		if ok && !existing.fetchedAt.Before(fetchedAt) {
			continue
		}
		e.periods[p.PeriodEnd] = memPeriod{period: p, fetchedAt: fetchedAt}
	}
	return nil
}

// Invalidate drops every cached record for a ticker.
func (s *MemStore) Invalidate(ctx context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ticker)
	return nil
}

// StaleTickers lists tickers whose oldest snapshot predates cutoff.
func (s *MemStore) StaleTickers(ctx context.Context, cutoff time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for ticker, e := range s.entries {
		if oldestSnapshot(e).Before(cutoff) {
			out = append(out, ticker)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Stats counts cached tickers and periods, with stale judged against
// cutoff.
func (s *MemStore) Stats(ctx context.Context, cutoff time.Time) (*contracts.CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &contracts.CacheStats{
		Hits:       s.hits,
		Misses:     s.misses,
		CallsSaved: s.callsSaved,
	}
	for _, e := range s.entries {
		stats.Tickers++
		stats.Periods += len(e.periods)
		if oldestSnapshot(e).Before(cutoff) {
			stats.Stale++
		}
	}
	return stats, nil
}

func oldestSnapshot(e *memEntry) time.Time {
	var oldest time.Time
	for _, row := range e.periods {
		if oldest.IsZero() || row.fetchedAt.Before(oldest) {
			oldest = row.fetchedAt
		}
	}
	return oldest
}
