package valuation

import (
	"math"
	"testing"
	"time"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
)

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

func waccFixture(beta, debt, cash, interest, mcap float64) (*contracts.Fundamentals, *metrics.Derived) {
	f := &contracts.Fundamentals{
		Ticker:  "WACC",
		Profile: contracts.CompanyProfile{Ticker: "WACC", Beta: beta},
		Periods: []contracts.FundamentalPeriod{{
			Ticker:             "WACC",
			PeriodEnd:          time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			Revenue:            1000,
			TotalDebt:          debt,
			CashAndEquivalents: cash,
			InterestExpense:    interest,
			DilutedShares:      100,
		}},
	}
	d := &metrics.Derived{Ticker: "WACC", TaxRate: 0.21, MarketCap: mcap}
	return f, d
}

func TestWACCBlumeAdjustment(t *testing.T) {
	v := criteria.Default().Valuation

	f, d := waccFixture(1.1, 100, 150, 4, 8500)
	w := ComputeWACC(v, f, d)

	// Blume: ⅔×1.1 + ⅓ = 1.0667
	approx(t, "BetaAdjusted", w.BetaAdjusted, 1.1*2.0/3.0+1.0/3.0, 1e-9)
	approx(t, "CostOfEquity", w.CostOfEquity, v.RiskFreeRate+w.BetaAdjusted*v.EquityRiskPremium, 1e-9)
	// 세후 부채비용: (4/100 capped at .15) × .79
	approx(t, "CostOfDebt", w.CostOfDebt, 0.04*0.79, 1e-9)

	if w.BetaDefaulted {
		t.Error("plausible beta should not be defaulted")
	}
	if w.Clamped {
		t.Errorf("WACC %v inside band should not clamp", w.Value)
	}
	if w.Value < v.WACCFloor || w.Value > v.WACCCeiling {
		t.Errorf("WACC %v outside configured band", w.Value)
	}
}

func TestWACCBetaDefaulted(t *testing.T) {
	v := criteria.Default().Valuation

	for _, beta := range []float64{0, -1.5} {
		f, d := waccFixture(beta, 0, 0, 0, 1000)
		w := ComputeWACC(v, f, d)
		if !w.BetaDefaulted {
			t.Errorf("beta %v should fall back to default", beta)
		}
		// 기본 베타 1.0 → Blume 1.0
		approx(t, "BetaAdjusted", w.BetaAdjusted, 1.0, 1e-9)
	}
}

func TestWACCBetaBandClamp(t *testing.T) {
	v := criteria.Default().Valuation

	hot, d := waccFixture(2.5, 0, 0, 0, 1000)
	w := ComputeWACC(v, hot, d)
	approx(t, "BetaAdjusted(hot)", w.BetaAdjusted, v.BetaCeiling, 1e-9)

	cold, d2 := waccFixture(0.2, 0, 0, 0, 1000)
	w = ComputeWACC(v, cold, d2)
	approx(t, "BetaAdjusted(cold)", w.BetaAdjusted, v.BetaFloor, 1e-9)
}

func TestWACCWeights(t *testing.T) {
	v := criteria.Default().Valuation

	// 순현금이 커서 EV < 시총: 자본 비중 상한 후 재정규화로 합은 1
	f, d := waccFixture(1.0, 0, 900, 0, 1000)
	w := ComputeWACC(v, f, d)
	approx(t, "weights sum", w.EquityWeight+w.DebtWeight, 1.0, 1e-9)
	approx(t, "EquityWeight", w.EquityWeight, 1.0, 1e-9)

	// EV ≤ 0: 전액 자본으로 간주
	f2, d2 := waccFixture(1.0, 0, 1500, 0, 1000)
	w = ComputeWACC(v, f2, d2)
	approx(t, "EquityWeight(ev<=0)", w.EquityWeight, 1.0, 1e-9)
	approx(t, "DebtWeight(ev<=0)", w.DebtWeight, 0.0, 1e-9)
}

func TestWACCNoDebtCost(t *testing.T) {
	v := criteria.Default().Valuation

	// 이자 없는 부채(리스 등)는 비용 0
	f, d := waccFixture(1.0, 100, 0, 0, 1000)
	w := ComputeWACC(v, f, d)
	if w.CostOfDebt != 0 {
		t.Errorf("CostOfDebt without interest = %v, want 0", w.CostOfDebt)
	}
}

func TestWACCClampedFlag(t *testing.T) {
	v := criteria.Default().Valuation
	v.RiskFreeRate = 0.12
	v.EquityRiskPremium = 0.08

	f, d := waccFixture(1.4, 0, 0, 0, 1000)
	w := ComputeWACC(v, f, d)
	if !w.Clamped {
		t.Error("WACC above ceiling must be flagged as clamped")
	}
	approx(t, "WACC", w.Value, v.WACCCeiling, 1e-9)
}
