package valuation

import (
	"math"
	"testing"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
)

func TestGrowthRateCapitalReturner(t *testing.T) {
	v := criteria.Default().Valuation

	// 재투자율이 문턱 미만이면 매출 성장률을 그대로 쓴다
	d := &metrics.Derived{RevenueCAGR: 0.12, ROIIC: 0.40, ReinvestmentRate: 0.10}
	g, basis := growthRate(v, d)
	approx(t, "g", g, 0.12, 1e-9)
	if basis != GrowthBasisRevenue {
		t.Errorf("basis = %s, want %s", basis, GrowthBasisRevenue)
	}
}

func TestGrowthRateSustainable(t *testing.T) {
	v := criteria.Default().Valuation

	// 고재투자 기업: min(매출 성장, ROIIC×재투자율)
	d := &metrics.Derived{RevenueCAGR: 0.18, ROIIC: 0.30, ReinvestmentRate: 0.50}
	g, basis := growthRate(v, d)
	approx(t, "g", g, 0.15, 1e-9)
	if basis != GrowthBasisSustainable {
		t.Errorf("basis = %s, want %s", basis, GrowthBasisSustainable)
	}

	// ROIIC가 0이면 지속가능 성장을 만들 수 없다 → 매출 성장
	d = &metrics.Derived{RevenueCAGR: 0.18, ROIIC: 0, ReinvestmentRate: 0.50}
	g, basis = growthRate(v, d)
	approx(t, "g", g, 0.18, 1e-9)
	if basis != GrowthBasisRevenue {
		t.Errorf("basis = %s, want %s", basis, GrowthBasisRevenue)
	}
}

func TestGrowthRateClamped(t *testing.T) {
	v := criteria.Default().Valuation

	fast := &metrics.Derived{RevenueCAGR: 0.45, ReinvestmentRate: 0.10}
	g, _ := growthRate(v, fast)
	approx(t, "g(ceiling)", g, v.GrowthCeiling, 1e-9)

	slow := &metrics.Derived{RevenueCAGR: 0.01, ReinvestmentRate: 0.10}
	g, _ = growthRate(v, slow)
	approx(t, "g(floor)", g, v.GrowthFloor, 1e-9)
}

func TestProjectionSchedule(t *testing.T) {
	v := criteria.Default().Valuation

	p, err := project("PROJ", v, 100, 0.12, 0.10)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if len(p.FCFF) != v.ProjectionYears {
		t.Fatalf("path length = %d, want %d", len(p.FCFF), v.ProjectionYears)
	}

	// 1~5년차: g 그대로
	approx(t, "FCFF[0]", p.FCFF[0], 112, 1e-9)
	approx(t, "FCFF[4]", p.FCFF[4], 100*math.Pow(1.12, 5), 1e-9)

	// 6년차: 선형 감속 첫 해 g − (g−성숙)×1/10
	g6 := 0.12 - (0.12-v.MatureGrowth)*0.1
	approx(t, "FCFF[5]", p.FCFF[5], p.FCFF[4]*(1+g6), 1e-9)

	// 마지막 해 성장률은 성숙 성장률로 수렴
	lastGrowth := p.FCFF[14]/p.FCFF[13] - 1
	approx(t, "year15 growth", lastGrowth, v.MatureGrowth, 1e-9)
}

func TestTerminalValueClosedForm(t *testing.T) {
	v := criteria.Default().Valuation

	// r=10%, g_terminal=3% ⇒ TV = FCF₁₅×1.03/0.07
	p, err := project("TV", v, 100, 0.12, 0.10)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	want := p.FCFF[14] * 1.03 / 0.07
	approx(t, "TerminalValue", p.TerminalValue, want, 1e-6)

	wantPV := want / math.Pow(1.10, 15)
	approx(t, "PVTerminal", p.PVTerminal, wantPV, 1e-6)
}

func TestProjectionDivergentPerpetuity(t *testing.T) {
	v := criteria.Default().Valuation

	// 할인율이 영구성장률 이하이면 명시적으로 실패한다
	_, err := project("DIV", v, 100, 0.12, v.TerminalGrowth)
	if !contracts.IsComputation(err) {
		t.Errorf("terminal >= discount error = %v, want computation error", err)
	}

	_, err = project("DIV", v, 100, 0.12, v.TerminalGrowth-0.01)
	if !contracts.IsComputation(err) {
		t.Errorf("terminal > discount error = %v, want computation error", err)
	}
}

func TestEquityValueFloorsAtZero(t *testing.T) {
	v := criteria.Default().Valuation

	p, err := project("EQ", v, 10, 0.08, 0.12)
	if err != nil {
		t.Fatalf("project failed: %v", err)
	}
	if got := p.equityValue(p.EnterpriseValue + 500); got != 0 {
		t.Errorf("equity with crushing net debt = %v, want 0", got)
	}
}

func TestEntryPriceLadder(t *testing.T) {
	v := criteria.Default().Valuation

	ep := entryPrices(v, 230, 0.15, -100, 100)

	// 요구 수익률이 높을수록 진입가는 낮아야 한다
	if !(ep.Excellent < ep.Good && ep.Good < ep.Fair) {
		t.Errorf("ladder not ordered: %+v", ep)
	}

	// 15% 목표: 요구수익률 = .15 − .15×.6 = .06 → EV = 230/.06
	wantEV := 230 / (0.15 - 0.15*0.6)
	approx(t, "Excellent", ep.Excellent, (wantEV+100)/100, 1e-6)
}

func TestEntryPriceYieldFloor(t *testing.T) {
	// 목표 수익률을 성장만으로 다 채우는 초고성장주: 수익률 바닥 적용
	got := entryPrice(100, 0.20, 0, 10, 0.10)
	want := (100 / 0.02) / 10
	approx(t, "entryPrice", got, want, 1e-9)
}
