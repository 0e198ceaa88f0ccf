package contracts

import (
	"testing"
	"time"
)

func periodAt(year int, revenue float64) FundamentalPeriod {
	return FundamentalPeriod{
		Ticker:        "TEST",
		PeriodEnd:     time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
		FiscalYear:    year,
		Revenue:       revenue,
		DilutedShares: 100,
	}
}

func TestNetDebt(t *testing.T) {
	tests := []struct {
		name   string
		period FundamentalPeriod
		want   float64
	}{
		{
			name:   "levered",
			period: FundamentalPeriod{TotalDebt: 500, CashAndEquivalents: 100, ShortTermInvestments: 50},
			want:   350,
		},
		{
			name:   "net cash",
			period: FundamentalPeriod{TotalDebt: 100, CashAndEquivalents: 300, ShortTermInvestments: 200},
			want:   -400,
		},
		{
			name:   "no debt no cash",
			period: FundamentalPeriod{},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.period.NetDebt(); got != tt.want {
				t.Errorf("NetDebt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGrossMargin(t *testing.T) {
	p := FundamentalPeriod{Revenue: 1000, GrossProfit: 650}
	if got := p.GrossMargin(); got != 0.65 {
		t.Errorf("GrossMargin() = %v, want 0.65", got)
	}

	zero := FundamentalPeriod{GrossProfit: 650}
	if got := zero.GrossMargin(); got != 0 {
		t.Errorf("GrossMargin() with no revenue = %v, want 0", got)
	}
}

func TestHasCoreFields(t *testing.T) {
	good := periodAt(2025, 1000)
	if !good.HasCoreFields() {
		t.Error("complete period should have core fields")
	}

	noRevenue := periodAt(2025, 0)
	if noRevenue.HasCoreFields() {
		t.Error("zero revenue must mark the period unusable")
	}

	noShares := periodAt(2025, 1000)
	noShares.DilutedShares = 0
	if noShares.HasCoreFields() {
		t.Error("zero share count must mark the period unusable")
	}

	noDate := periodAt(2025, 1000)
	noDate.PeriodEnd = time.Time{}
	if noDate.HasCoreFields() {
		t.Error("missing period end must mark the period unusable")
	}
}

func TestFundamentalsLatest(t *testing.T) {
	f := &Fundamentals{
		Ticker:  "TEST",
		Periods: []FundamentalPeriod{periodAt(2025, 1200), periodAt(2024, 1000), periodAt(2023, 900)},
	}

	latest := f.Latest()
	if latest == nil {
		t.Fatal("Latest() returned nil for populated bundle")
	}
	if latest.FiscalYear != 2025 {
		t.Errorf("Latest().FiscalYear = %d, want 2025", latest.FiscalYear)
	}

	empty := &Fundamentals{Ticker: "TEST"}
	if empty.Latest() != nil {
		t.Error("Latest() on empty bundle should be nil")
	}
}

func TestFundamentalsHasHistory(t *testing.T) {
	f := &Fundamentals{
		Periods: []FundamentalPeriod{periodAt(2025, 1), periodAt(2024, 1), periodAt(2023, 1)},
	}

	if !f.HasHistory(3) {
		t.Error("HasHistory(3) = false with 3 periods")
	}
	if f.HasHistory(4) {
		t.Error("HasHistory(4) = true with 3 periods")
	}
}

func TestFundamentalsLineage(t *testing.T) {
	fetched := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	f := &Fundamentals{
		Ticker:    "ASML",
		Periods:   []FundamentalPeriod{periodAt(2025, 1), periodAt(2024, 1)},
		FetchedAt: fetched,
		Stale:     true,
	}

	lin := f.Lineage()
	if lin.Ticker != "ASML" {
		t.Errorf("Lineage().Ticker = %q, want ASML", lin.Ticker)
	}
	if len(lin.PeriodEnds) != 2 {
		t.Fatalf("Lineage().PeriodEnds has %d entries, want 2", len(lin.PeriodEnds))
	}
	if !lin.PeriodEnds[0].Equal(f.Periods[0].PeriodEnd) {
		t.Error("lineage must preserve period order")
	}
	if !lin.FetchedAt.Equal(fetched) {
		t.Errorf("Lineage().FetchedAt = %v, want %v", lin.FetchedAt, fetched)
	}
	if !lin.Stale {
		t.Error("lineage must inherit the stale flag")
	}
}
