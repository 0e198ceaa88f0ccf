package valuation

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
)

const (
	// irrSearchCeiling bounds the bisection; an implied return above
	// 100%/yr is a data problem, not an opportunity.
	irrSearchCeiling = 1.0
	irrTolerance     = 1e-6
	irrMaxIterations = 200
)

// dcfIRR inverts the projection: the discount rate at which the same
// 15-year path plus terminal, net of debt, reprices today's market cap.
// Equity value is monotone decreasing in the rate above terminal
// growth, so bisection is exact; failure to bracket is reported on the
// estimate, never as a hard error.
func dcfIRR(v criteria.ValuationCriteria, p *projection, netDebt, shares, price float64) contracts.ModelEstimate {
	est := contracts.ModelEstimate{Tag: ModelDCF, Name: "역산 DCF (15년 경로)"}
	if shares <= 0 || price <= 0 {
		est.Error = "price or share count unusable"
		return est
	}

	// 시장이 치르는 기업가치 전체를 맞춘다
	target := price*shares + netDebt
	if target <= 0 {
		est.Error = "market prices the enterprise below zero"
		return est
	}

	n := len(p.FCFF)
	value := func(r float64) float64 {
		var pv float64
		for i, fcf := range p.FCFF {
			pv += fcf / math.Pow(1+r, float64(i+1))
		}
		terminal := p.FCFF[n-1] * (1 + v.TerminalGrowth) / (r - v.TerminalGrowth)
		return pv + terminal/math.Pow(1+r, float64(n))
	}

	lo := v.TerminalGrowth + 1e-4
	hi := irrSearchCeiling
	if value(hi) > target {
		est.Error = "implied return above search ceiling"
		return est
	}

	for i := 0; i < irrMaxIterations; i++ {
		mid := (lo + hi) / 2
		if value(mid) > target {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < irrTolerance {
			est.IRR = (lo + hi) / 2
			est.Converged = true
			est.Detail = fmt.Sprintf("%d회 이분 수렴", i+1)
			return est
		}
	}

	est.Error = "bisection exhausted its iteration budget"
	return est
}

// runEnsemble evaluates every model uniformly: the DCF inversion plus
// each closed-form decomposition. Closed forms always produce a value;
// only the root-finder can fail to converge.
func runEnsemble(v criteria.ValuationCriteria, d *metrics.Derived, p *projection, netDebt float64) []contracts.ModelEstimate {
	estimates := make([]contracts.ModelEstimate, 0, len(closedForms)+1)
	estimates = append(estimates, dcfIRR(v, p, netDebt, d.Shares, d.Price))

	for _, m := range closedForms {
		irr, detail := m.eval(v.Ensemble, d)
		estimates = append(estimates, contracts.ModelEstimate{
			Tag:       m.tag,
			Name:      m.name,
			IRR:       irr,
			Converged: true,
			Detail:    detail,
		})
	}
	return estimates
}

// consensus reduces the ensemble to its median, spread and converged
// count. The median over an even count is the mean of the middle two.
// 중앙값 채택: 극단 모델 하나가 합의를 끌고 가지 못하게
func consensus(estimates []contracts.ModelEstimate) (median, spread float64, converged int) {
	var irrs []float64
	for _, e := range estimates {
		if e.Converged {
			irrs = append(irrs, e.IRR)
		}
	}
	if len(irrs) == 0 {
		return 0, 0, 0
	}

	sort.Float64s(irrs)
	n := len(irrs)
	median = irrs[n/2]
	if n%2 == 0 {
		median = (irrs[n/2-1] + irrs[n/2]) / 2
	}
	return median, irrs[n-1] - irrs[0], n
}

// ensembleInputsUsable reports whether the closed forms have any base
// to stand on; without a positive price the yields are all undefined.
func ensembleInputsUsable(d *metrics.Derived) bool {
	return d.Price > 0 && d.Shares > 0
}
