package valuation

import (
	"math"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
)

const (
	// betaPlausibleFloor marks the raw beta below which the value is a
	// data artifact rather than a measurement; zero means missing.
	betaPlausibleFloor = -1.0

	// equityWeightCap bounds mcap/EV for net-cash names whose
	// enterprise value collapses below market cap.
	equityWeightCap = 1.5
)

// ComputeWACC prices each company's own capital: Blume-adjusted beta
// for equity, effective interest for debt, weighted by enterprise
// value and bounded to the configured band. A universe-wide constant
// discount rate is exactly the error this replaces.
// ⭐ SSOT: 할인율 계산은 여기서만
func ComputeWACC(v criteria.ValuationCriteria, f *contracts.Fundamentals, d *metrics.Derived) contracts.WACC {
	w := contracts.WACC{BetaRaw: f.Profile.Beta}

	beta := f.Profile.Beta
	if beta == 0 || beta <= betaPlausibleFloor {
		beta = v.BetaDefault
		w.BetaDefaulted = true
	}

	// Blume 회귀: 베타는 장기적으로 1.0으로 수렴
	blume := beta*2.0/3.0 + 1.0/3.0
	w.BetaAdjusted = math.Max(v.BetaFloor, math.Min(blume, v.BetaCeiling))
	w.CostOfEquity = v.RiskFreeRate + w.BetaAdjusted*v.EquityRiskPremium

	latest := f.Latest()
	var debt, cash, interest float64
	if latest != nil {
		debt = latest.TotalDebt
		cash = latest.CashAndEquivalents
		interest = latest.InterestExpense
	}

	if debt > 0 && interest > 0 {
		pretax := math.Min(interest/debt, v.CostOfDebtCap)
		w.CostOfDebt = pretax * (1 - d.TaxRate)
	}

	ev := d.MarketCap + debt - cash
	if ev > 0 && d.MarketCap > 0 {
		eq := math.Min(d.MarketCap/ev, equityWeightCap)
		db := math.Max(debt/ev, 0)
		total := eq + db
		w.EquityWeight = eq / total
		w.DebtWeight = db / total
	} else {
		w.EquityWeight = 1.0
		w.DebtWeight = 0.0
	}

	raw := w.EquityWeight*w.CostOfEquity + w.DebtWeight*w.CostOfDebt
	w.Clamped = raw < v.WACCFloor || raw > v.WACCCeiling
	w.Value = math.Max(v.WACCFloor, math.Min(raw, v.WACCCeiling))
	return w
}
