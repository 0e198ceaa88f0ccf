package acquire

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/wonny/compounder/internal/contracts"
)

func bundleAt(ticker string, fetchedAt time.Time, revenue float64) *contracts.Fundamentals {
	return &contracts.Fundamentals{
		Ticker: ticker,
		Periods: []contracts.FundamentalPeriod{
			{Ticker: ticker, PeriodEnd: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), FiscalYear: 2025, Revenue: revenue, DilutedShares: 100},
		},
		FetchedAt: fetchedAt,
	}
}

func TestMemStoreEqualOrNewerSnapshotWins(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	t1 := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	if err := store.SaveFundamentals(ctx, bundleAt("CHTR", t1, 1000)); err != nil {
		t.Fatalf("save: %v", err)
	}

	// 더 오래된 스냅샷으로 다시 쓰면 아무것도 바뀌지 않는다
	if err := store.SaveFundamentals(ctx, bundleAt("CHTR", t1.Add(-time.Hour), 999)); err != nil {
		t.Fatalf("save older: %v", err)
	}
	f, err := store.GetFundamentals(ctx, "CHTR")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := f.Latest().Revenue; got != 1000 {
		t.Errorf("revenue after older rewrite = %.0f, want 1000", got)
	}

	// 같은 시각의 스냅샷도 덮어쓰지 않는다
	if err := store.SaveFundamentals(ctx, bundleAt("CHTR", t1, 998)); err != nil {
		t.Fatalf("save equal: %v", err)
	}
	f, _ = store.GetFundamentals(ctx, "CHTR")
	if got := f.Latest().Revenue; got != 1000 {
		t.Errorf("revenue after equal rewrite = %.0f, want 1000", got)
	}

	// 더 새로운 스냅샷만 이긴다
	if err := store.SaveFundamentals(ctx, bundleAt("CHTR", t1.Add(time.Hour), 1200)); err != nil {
		t.Fatalf("save newer: %v", err)
	}
	f, _ = store.GetFundamentals(ctx, "CHTR")
	if got := f.Latest().Revenue; got != 1200 {
		t.Errorf("revenue after newer rewrite = %.0f, want 1200", got)
	}
}

func TestMemStoreMissIsNotAnError(t *testing.T) {
	store := NewMemStore()

	f, err := store.GetFundamentals(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("miss returned error: %v", err)
	}
	if f != nil {
		t.Errorf("miss returned bundle: %+v", f)
	}
}

func TestMemStoreStaleTickersAndStats(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	now := time.Now().UTC()

	old := bundleAt("OLD", now.Add(-10*24*time.Hour), 500)
	old.Periods = append(old.Periods, contracts.FundamentalPeriod{
		Ticker: "OLD", PeriodEnd: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), FiscalYear: 2024, Revenue: 450, DilutedShares: 100,
	})
	if err := store.SaveFundamentals(ctx, old); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := store.SaveFundamentals(ctx, bundleAt("NEW", now, 1000)); err != nil {
		t.Fatalf("save new: %v", err)
	}

	stale, err := store.StaleTickers(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("StaleTickers: %v", err)
	}
	if !reflect.DeepEqual(stale, []string{"OLD"}) {
		t.Errorf("stale tickers = %v, want [OLD]", stale)
	}

	// 적중 1회 + 실패 1회를 만들고 통계를 확인한다
	if _, err := store.GetFundamentals(ctx, "OLD"); err != nil {
		t.Fatalf("get OLD: %v", err)
	}
	if _, err := store.GetFundamentals(ctx, "MISSING"); err != nil {
		t.Fatalf("get MISSING: %v", err)
	}

	stats, err := store.Stats(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Tickers != 2 || stats.Periods != 3 || stats.Stale != 1 {
		t.Errorf("stats = %d tickers / %d periods / %d stale, want 2 / 3 / 1",
			stats.Tickers, stats.Periods, stats.Stale)
	}
	if stats.Hits != 1 || stats.Misses != 1 || stats.CallsSaved != callsPerFetch {
		t.Errorf("stats = %d hits / %d misses / %d saved, want 1 / 1 / %d",
			stats.Hits, stats.Misses, stats.CallsSaved, callsPerFetch)
	}
}

func TestMemStoreInvalidate(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()

	if err := store.SaveFundamentals(ctx, bundleAt("CHTR", time.Now().UTC(), 1000)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Invalidate(ctx, "CHTR"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}

	f, err := store.GetFundamentals(ctx, "CHTR")
	if err != nil || f != nil {
		t.Errorf("after invalidate: bundle=%v err=%v, want nil/nil", f, err)
	}
}
