package pipeline

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/universe"
	"github.com/wonny/compounder/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// compounderBundle은 세 단계를 전부 통과하는 6년치 스냅샷.
// 수치는 screen 패키지의 통과 픽스처와 같은 검산 값이다.
func compounderBundle(ticker string) *contracts.Fundamentals {
	type yr struct {
		revenue, gross, opInc, ebitda, netInc float64
		pretax, tax, eps                      float64
		ocf, capex, fcf, da, div, acq, sbc    float64
		debt, cash, sti, equity, gw, ta, tcl  float64
		shares                                float64
	}
	years := []yr{
		{1000, 650, 320, 370, 237, 300, 63, 2.37, 275, 45, 230, 50, 40, 110, 25, 100, 150, 50, 600, 60, 1200, 200, 100},
		{870, 561, 272, 318, 205, 259, 54, 2.00, 240, 40, 200, 46, 35, 0, 22, 100, 130, 45, 540, 60, 1080, 185, 102.5},
		{760, 486, 232, 274, 180, 228, 48, 1.72, 210, 35, 175, 42, 30, 0, 20, 100, 115, 40, 485, 60, 980, 172, 104.5},
		{655, 413, 200, 238, 155, 196, 41, 1.46, 182, 32, 150, 38, 26, 0, 18, 100, 100, 35, 430, 60, 900, 160, 106},
		{570, 353, 172, 206, 133, 168, 35, 1.21, 158, 28, 130, 35, 22, 0, 16, 100, 88, 30, 380, 60, 820, 150, 110},
		{500, 305, 148, 178, 114, 144, 30, 1.02, 138, 25, 113, 32, 19, 0, 14, 100, 78, 26, 335, 60, 750, 140, 112},
	}

	var periods []contracts.FundamentalPeriod
	for i, y := range years {
		periods = append(periods, contracts.FundamentalPeriod{
			Ticker:               ticker,
			PeriodEnd:            time.Date(2025-i, 12, 31, 0, 0, 0, 0, time.UTC),
			FiscalYear:           2025 - i,
			Currency:             "USD",
			Revenue:              y.revenue,
			GrossProfit:          y.gross,
			OperatingIncome:      y.opInc,
			EBITDA:               y.ebitda,
			NetIncome:            y.netInc,
			IncomeBeforeTax:      y.pretax,
			IncomeTaxExpense:     y.tax,
			EPSDiluted:           y.eps,
			OperatingCashFlow:    y.ocf,
			CapEx:                y.capex,
			FreeCashFlow:         y.fcf,
			DepreciationAmort:    y.da,
			DividendsPaid:        y.div,
			AcquisitionsNet:      y.acq,
			StockComp:            y.sbc,
			TotalDebt:            y.debt,
			CashAndEquivalents:   y.cash,
			ShortTermInvestments: y.sti,
			ShareholdersEquity:   y.equity,
			Goodwill:             y.gw,
			TotalAssets:          y.ta,
			TotalCurrentLiab:     y.tcl,
			DilutedShares:        y.shares,
		})
	}

	return &contracts.Fundamentals{
		Ticker: ticker,
		Profile: contracts.CompanyProfile{
			Ticker: ticker, Name: "Compound Industries",
			Sector: "Technology", Industry: "Software - Application",
			MarketCap: 50e9, Price: 85, Beta: 1.1,
		},
		Quote: contracts.Quote{
			Ticker: ticker, Price: 85, MarketCap: 50e9,
			SharesOutstanding: 100, Source: "fmp",
		},
		Periods:   periods,
		FetchedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

// thinBundle은 핵심 항목이 빠진 한 해짜리 스냅샷. 지표 계산에서 탈락한다.
func thinBundle(ticker string) *contracts.Fundamentals {
	f := compounderBundle(ticker)
	f.Periods = f.Periods[:1]
	f.Periods[0].Revenue = 0
	return f
}

// lowQualityBundle은 자본만 스무 배 불려 ROIC를 무너뜨린 스냅샷.
// 하드 필터에서 탈락한다.
func lowQualityBundle(ticker string) *contracts.Fundamentals {
	f := compounderBundle(ticker)
	for i := range f.Periods {
		f.Periods[i].ShareholdersEquity *= 20
		f.Periods[i].TotalAssets *= 20
	}
	return f
}

type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[string]int
	failWith map[string]error
	bundles  map[string]*contracts.Fundamentals
	onFetch  func(ticker string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:    make(map[string]int),
		failWith: make(map[string]error),
		bundles:  make(map[string]*contracts.Fundamentals),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	f.mu.Lock()
	f.calls[ticker]++
	hook := f.onFetch
	f.mu.Unlock()
	if hook != nil {
		hook(ticker)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.failWith[ticker]; ok {
		return nil, err
	}
	if b, ok := f.bundles[ticker]; ok {
		return b, nil
	}
	return compounderBundle(ticker), nil
}

func (f *fakeFetcher) fetchCount(ticker string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ticker]
}

func newTestOrchestrator(t *testing.T, fetcher *fakeFetcher, store contracts.CheckpointStore, doc *criteria.Document) *Orchestrator {
	t.Helper()
	ub := universe.NewBuilder(nil, doc.Universe, logger.NewNop())
	o, err := NewOrchestrator(ub, fetcher, doc, store, Config{Workers: 2, BatchSize: 2}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	return o
}

func TestNewRunIDFormat(t *testing.T) {
	at := time.Date(2026, 8, 25, 14, 30, 0, 0, time.UTC)
	if got := NewRunID(at); got != "run_20260825_143000" {
		t.Errorf("NewRunID = %q", got)
	}
}

func TestRunRecordsEveryDisposition(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.failWith["DEAD"] = contracts.NewPermanentError("DEAD", "profile", errors.New("unknown symbol"))
	fetcher.bundles["THIN"] = thinBundle("THIN")
	fetcher.bundles["BLOAT"] = lowQualityBundle("BLOAT")

	store := NewMemCheckpoint()
	o := newTestOrchestrator(t, fetcher, store, criteria.Default())

	result, err := o.Run(context.Background(), RunConfig{Tickers: []string{"GOOD", "DEAD", "THIN", "BLOAT"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	m, err := store.GetRun(context.Background(), result.RunID)
	if err != nil || m == nil {
		t.Fatalf("GetRun: %v, %v", m, err)
	}
	if m.Status != contracts.RunCompleted {
		t.Errorf("run status = %s, want COMPLETED", m.Status)
	}
	if m.UniverseSize != 4 {
		t.Errorf("universe size = %d, want 4", m.UniverseSize)
	}

	progress, err := store.Progress(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	check := func(ticker string, status contracts.ProgressStatus, stage contracts.Stage) {
		t.Helper()
		p, ok := progress[ticker]
		if !ok {
			t.Fatalf("no progress row for %s", ticker)
		}
		if p.Status != status || p.Stage != stage {
			t.Errorf("%s = %s at %q, want %s at %q", ticker, p.Status, p.Stage, status, stage)
		}
	}
	check("GOOD", contracts.ProgressCompleted, contracts.StageValue)
	check("DEAD", contracts.ProgressFailed, contracts.Stage(""))
	check("THIN", contracts.ProgressExcluded, contracts.StageAcquire)
	check("BLOAT", contracts.ProgressExcluded, contracts.StageScreen)

	if !strings.Contains(progress["DEAD"].Reason, "unknown symbol") {
		t.Errorf("DEAD reason = %q", progress["DEAD"].Reason)
	}
	if !strings.HasPrefix(progress["BLOAT"].Reason, "hard filter: ") {
		t.Errorf("BLOAT reason = %q", progress["BLOAT"].Reason)
	}

	// 분석 레코드는 도달한 단계까지만 남는다
	if store.screenings[result.RunID]["GOOD"] == nil ||
		store.scores[result.RunID]["GOOD"] == nil ||
		store.valuations[result.RunID]["GOOD"] == nil {
		t.Error("GOOD should carry records for all three tiers")
	}
	if store.screenings[result.RunID]["GOOD"].RunID != result.RunID {
		t.Error("screening record missing the run id")
	}
	if store.screenings[result.RunID]["BLOAT"] == nil {
		t.Error("BLOAT's failed screening should still be recorded")
	}
	if store.scores[result.RunID]["BLOAT"] != nil {
		t.Error("BLOAT must not reach the scorer")
	}
	if store.screenings[result.RunID]["DEAD"] != nil {
		t.Error("DEAD never reached the screener")
	}

	s := result.Summary
	if s == nil {
		t.Fatal("run result carries no summary")
	}
	if s.Acquired != 3 || s.Screened != 2 || s.Passed != 1 || s.Valued != 1 {
		t.Errorf("summary funnel = acquired %d screened %d passed %d valued %d",
			s.Acquired, s.Screened, s.Passed, s.Valued)
	}
	if s.Failed != 1 || s.Excluded != 2 || s.Remaining != 0 {
		t.Errorf("summary tail = failed %d excluded %d remaining %d",
			s.Failed, s.Excluded, s.Remaining)
	}
}

// 같은 캐시, 같은 기준이면 몇 번을 돌려도 분석 레코드는 같아야 한다.
func TestRunTwiceProducesIdenticalRecords(t *testing.T) {
	fetcher := newFakeFetcher()
	store := NewMemCheckpoint()
	o := newTestOrchestrator(t, fetcher, store, criteria.Default())

	tickers := []string{"GOOD", "ALSO"}
	if _, err := o.Run(context.Background(), RunConfig{RunID: "run_a", Tickers: tickers}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := o.Run(context.Background(), RunConfig{RunID: "run_b", Tickers: tickers}); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	for _, ticker := range tickers {
		sa, sb := store.screenings["run_a"][ticker], store.screenings["run_b"][ticker]
		if sa == nil || sb == nil {
			t.Fatalf("missing screening for %s", ticker)
		}
		ca, cb := *sa, *sb
		ca.RunID, cb.RunID = "", ""
		ca.CreatedAt, cb.CreatedAt = time.Time{}, time.Time{}
		if !reflect.DeepEqual(ca, cb) {
			t.Errorf("screening for %s differs between runs", ticker)
		}

		qa, qb := *store.scores["run_a"][ticker], *store.scores["run_b"][ticker]
		qa.RunID, qb.RunID = "", ""
		qa.CreatedAt, qb.CreatedAt = time.Time{}, time.Time{}
		if !reflect.DeepEqual(qa, qb) {
			t.Errorf("score for %s differs between runs", ticker)
		}

		va, vb := *store.valuations["run_a"][ticker], *store.valuations["run_b"][ticker]
		va.RunID, vb.RunID = "", ""
		va.CreatedAt, vb.CreatedAt = time.Time{}, time.Time{}
		if !reflect.DeepEqual(va, vb) {
			t.Errorf("valuation for %s differs between runs", ticker)
		}
	}
}

func TestInterruptAndResume(t *testing.T) {
	fetcher := newFakeFetcher()
	store := NewMemCheckpoint()
	doc := criteria.Default()

	ub := universe.NewBuilder(nil, doc.Universe, logger.NewNop())
	o, err := NewOrchestrator(ub, fetcher, doc, store, Config{Workers: 1, BatchSize: 1}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher.onFetch = func(ticker string) {
		if ticker == "TRIP" {
			cancel()
		}
	}

	result, err := o.Run(ctx, RunConfig{Tickers: []string{"AAA", "TRIP", "ZZZ"}})
	if err != nil {
		t.Fatalf("interrupted run must not error: %v", err)
	}
	if !result.Interrupted {
		t.Fatal("expected an interrupted result")
	}

	m, _ := store.GetRun(context.Background(), result.RunID)
	if m.Status != contracts.RunInterrupted {
		t.Errorf("run status = %s, want INTERRUPTED", m.Status)
	}

	progress, _ := store.Progress(context.Background(), result.RunID)
	if progress["AAA"].Status != contracts.ProgressCompleted {
		t.Errorf("AAA = %s, want COMPLETED", progress["AAA"].Status)
	}
	// 취소에 걸린 티커와 시작 못한 티커는 PENDING으로 남아야 한다
	for _, ticker := range []string{"TRIP", "ZZZ"} {
		if progress[ticker].Status != contracts.ProgressPending {
			t.Errorf("%s = %s, want PENDING", ticker, progress[ticker].Status)
		}
	}

	// 재개는 끝난 티커를 다시 건드리지 않는다
	resumeFetcher := newFakeFetcher()
	o2, err := NewOrchestrator(ub, resumeFetcher, doc, store, Config{Workers: 1, BatchSize: 1}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	resumed, err := o2.Resume(context.Background(), result.RunID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.Interrupted {
		t.Error("resumed run should have completed")
	}
	if n := resumeFetcher.fetchCount("AAA"); n != 0 {
		t.Errorf("finished ticker re-fetched %d times", n)
	}
	if resumeFetcher.fetchCount("TRIP") != 1 || resumeFetcher.fetchCount("ZZZ") != 1 {
		t.Error("pending tickers should be fetched exactly once on resume")
	}

	m2, _ := store.GetRun(context.Background(), result.RunID)
	if m2.Status != contracts.RunCompleted {
		t.Errorf("resumed run status = %s, want COMPLETED", m2.Status)
	}
	if resumed.Summary.Valued != 3 {
		t.Errorf("valued = %d, want 3", resumed.Summary.Valued)
	}
}

func TestResumeRefusesChangedCriteria(t *testing.T) {
	store := NewMemCheckpoint()
	o := newTestOrchestrator(t, newFakeFetcher(), store, criteria.Default())
	result, err := o.Run(context.Background(), RunConfig{Tickers: []string{"GOOD"}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	changed := criteria.Default()
	changed.Quality.AdvanceMin = 80
	o2 := newTestOrchestrator(t, newFakeFetcher(), store, changed)
	_, err = o2.Resume(context.Background(), result.RunID)
	if err == nil || !strings.Contains(err.Error(), "criteria changed") {
		t.Fatalf("resume under different thresholds must refuse, got %v", err)
	}
}

func TestResumeUnknownRun(t *testing.T) {
	o := newTestOrchestrator(t, newFakeFetcher(), NewMemCheckpoint(), criteria.Default())
	if _, err := o.Resume(context.Background(), "run_19990101_000000"); err == nil {
		t.Fatal("resuming a run that never happened should fail")
	}
}

type brokenCheckpoint struct {
	*MemCheckpoint
}

func (b *brokenCheckpoint) SaveOutcome(ctx context.Context, o *contracts.TickerOutcome) error {
	return errors.New("connection refused")
}

func TestRunAbortsWhenCheckpointWriteFails(t *testing.T) {
	store := &brokenCheckpoint{NewMemCheckpoint()}
	o := newTestOrchestrator(t, newFakeFetcher(), store, criteria.Default())

	_, err := o.Run(context.Background(), RunConfig{Tickers: []string{"GOOD", "ALSO"}})
	if err == nil || !strings.Contains(err.Error(), "checkpoint") {
		t.Fatalf("checkpoint failure must abort the run, got %v", err)
	}

	m, _ := store.LatestRun(context.Background())
	if m == nil || m.Status != contracts.RunFailed {
		t.Errorf("aborted run should be marked FAILED, got %+v", m)
	}
}

func TestRunRejectsEmptyUniverse(t *testing.T) {
	o := newTestOrchestrator(t, newFakeFetcher(), NewMemCheckpoint(), criteria.Default())
	_, err := o.Run(context.Background(), RunConfig{Tickers: []string{"not a ticker!"}})
	if err == nil || !strings.Contains(err.Error(), "empty universe") {
		t.Fatalf("want empty universe error, got %v", err)
	}
}

type fakeUniverseProvider struct {
	gotMinCap float64
	profiles  []contracts.CompanyProfile
}

func (f *fakeUniverseProvider) Universe(ctx context.Context, minMarketCap float64, limit int) ([]contracts.CompanyProfile, error) {
	f.gotMinCap = minMarketCap
	return f.profiles, nil
}

func TestRunPullsUniverseFromScreener(t *testing.T) {
	provider := &fakeUniverseProvider{profiles: []contracts.CompanyProfile{
		{Ticker: "GOOD", Name: "Good Compounders", Sector: "Technology",
			Industry: "Software - Application", MarketCap: 60e9},
	}}
	doc := criteria.Default()
	ub := universe.NewBuilder(provider, doc.Universe, logger.NewNop())
	fetcher := newFakeFetcher()
	store := NewMemCheckpoint()

	o, err := NewOrchestrator(ub, fetcher, doc, store, Config{Workers: 1}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewOrchestrator failed: %v", err)
	}
	result, err := o.Run(context.Background(), RunConfig{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if provider.gotMinCap != 10e9 {
		t.Errorf("screener floor = %v, want 10e9", provider.gotMinCap)
	}
	if fetcher.fetchCount("GOOD") != 1 {
		t.Errorf("GOOD fetched %d times", fetcher.fetchCount("GOOD"))
	}
	if result.Summary.Manifest.UniverseSize != 1 {
		t.Errorf("universe size = %d, want 1", result.Summary.Manifest.UniverseSize)
	}
}
