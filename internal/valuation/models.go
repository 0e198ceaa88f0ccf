package valuation

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
)

// Closed-form model tags. Every model decomposes the expected return as
// FCF yield + growth + buyback yield + dividend yield ± multiple drift;
// they differ in how growth is estimated and which exit multiple the
// quality tier justifies.
const (
	ModelDCF           = "dcf"
	ModelConservative  = "conservative"
	ModelReinvestment  = "reinvestment"
	ModelMultipleDrift = "multiple_drift"
	ModelImpliedRR     = "implied_rr"
	ModelMarginTier    = "margin_tier"
	ModelROICTier      = "roic_tier"
	ModelHybrid        = "hybrid"
)

type closedForm struct {
	tag  string
	name string
	eval func(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string)
}

// closedForms is the fixed model set, iterated uniformly. Order is the
// reporting order, not a ranking.
var closedForms = []closedForm{
	{ModelConservative, "보수적 성장 + 현 멀티플 방어", modelConservative},
	{ModelReinvestment, "재투자 성장 + ROIC 단층", modelReinvestment},
	{ModelMultipleDrift, "재투자 성장 + 로그 드리프트", modelMultipleDrift},
	{ModelImpliedRR, "내재 재투자율 + PEG 드리프트", modelImpliedRR},
	{ModelMarginTier, "3중 마진 단층 + PE 바닥", modelMarginTier},
	{ModelROICTier, "ROIC 사다리 단층", modelROICTier},
	{ModelHybrid, "하이브리드 합의", modelHybrid},
}

// pickTier walks the ladder top-down and returns the first tier whose
// non-zero minimums the profile clears. Validation guarantees the last
// tier is the unconditional fallback.
func pickTier(tiers []criteria.ExitTier, d *metrics.Derived) criteria.ExitTier {
	for _, t := range tiers {
		if t.Matches(d.ROIC, d.GrossMargin, d.OperatingMargin) {
			return t
		}
	}
	return tiers[len(tiers)-1]
}

// multipleDrift annualizes the move from the current to the exit
// multiple over the holding period.
func multipleDrift(peNow, peExit float64, years int) float64 {
	if peNow <= 0 || peExit <= 0 {
		return 0
	}
	return math.Pow(peExit/peNow, 1/float64(years)) - 1
}

// multipleDriftLog is the continuous-compounding variant; it penalizes
// rich multiples more symmetrically.
func multipleDriftLog(peNow, peExit float64, years int) float64 {
	if peNow <= 0 || peExit <= 0 {
		return 0
	}
	return math.Log(peExit/peNow) / float64(years)
}

func baseReturn(d *metrics.Derived) float64 {
	return d.FCFYieldAdjusted() + d.BuybackYield + d.DividendYield
}

// reinvestmentGrowth is the shared growth engine: roic times the
// reinvestment rate, zero floored, clamped to the configured ceiling.
// 재투자율은 의도적으로 무제한이라 여기서 반드시 막는다; 한 번의
// 초고성장 수치가 앙상블 중앙값을 끌고 가면 안 된다.
func reinvestmentGrowth(e criteria.EnsembleCriteria, roic float64, d *metrics.Derived) float64 {
	return math.Min(roic*math.Max(d.ReinvestmentRate, 0), e.ReinvestmentGrowthCap)
}

// modelConservative caps ROIC-driven growth hard and lets proven EPS
// compounding override only when the accounting path understates an
// asset-light business. The exit multiple never expands above today's.
func modelConservative(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string) {
	roicCapped := math.Min(d.ROIC, e.ROICCap)
	rr := d.ReinvestmentRate
	acct := roicCapped * math.Max(rr, 0)

	var growth float64
	var basis string
	switch {
	case d.EPSCAGR5y > 0 && acct < d.EPSCAGR5y*0.5:
		// 비용처리된 R&D로 크는 기업: 회계상 재투자로는 성장이 안 잡힘
		growth = math.Min(d.EPSCAGR5y, e.ConservativeGrowthCap)
		basis = "eps"
	case rr > 0:
		growth = math.Min(acct, e.ConservativeGrowthCap)
		basis = "acct"
	default:
		growth = math.Min(d.HistoricalGrowth, e.ConservativeHistoricalCap)
		basis = "hist"
	}

	tier := pickTier(e.TwoFactorTiers, d)
	exitPE := tier.ExitPE
	if d.PE > 0 && d.PE > tier.ExitPE*e.HighPERatio {
		exitPE = math.Max(tier.ExitPE, d.PE*e.HighCompression)
	} else if d.PE > 0 {
		exitPE = math.Min(d.PE, tier.ExitPE)
	}

	irr := baseReturn(d) + growth + multipleDrift(d.PE, exitPE, e.HoldingYears)
	return irr, fmt.Sprintf("g=%.1f%%(%s) tier=%s exit_pe=%.1f", growth*100, basis, tier.Label, exitPE)
}

// modelReinvestment is the clean algebra variant: growth is ROIC times
// the reinvestment rate up to the ceiling, zero when nothing is
// reinvested, and the exit multiple is the straight tier assignment.
func modelReinvestment(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string) {
	growth := reinvestmentGrowth(e, d.ROIC, d)
	tier := pickTier(e.ROICOnlyTiers, d)

	irr := baseReturn(d) + growth + multipleDrift(d.PE, tier.ExitPE, e.HoldingYears)
	return irr, fmt.Sprintf("g=%.1f%% tier=%s exit_pe=%.1f", growth*100, tier.Label, tier.ExitPE)
}

// modelMultipleDrift shares the reinvestment growth engine but drifts
// the multiple on a log basis.
func modelMultipleDrift(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string) {
	growth := reinvestmentGrowth(e, d.ROIC, d)
	tier := pickTier(e.ROICOnlyTiers, d)

	irr := baseReturn(d) + growth + multipleDriftLog(d.PE, tier.ExitPE, e.HoldingYears)
	return irr, fmt.Sprintf("g=%.1f%% tier=%s exit_pe=%.1f ln", growth*100, tier.Label, tier.ExitPE)
}

// modelImpliedRR backs the reinvestment rate out of realized EPS
// growth, drifts the multiple by PEG band, and caps the total to keep
// one euphoric print from polluting the median.
func modelImpliedRR(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string) {
	var growth float64
	if d.ROIC > 0 && d.EPSCAGR5y > 0 {
		implied := math.Min(d.EPSCAGR5y/d.ROIC, 1.0)
		growth = d.ROIC * implied
	} else {
		growth = math.Max(d.HistoricalGrowth, 0)
	}

	drift := e.DefaultPEGDrift
	for _, band := range e.PEGBands {
		if d.PEG < band.Below {
			drift = band.Drift
			break
		}
	}

	irr := math.Min(baseReturn(d)+growth+drift, e.ImpliedIRRCap)
	return irr, fmt.Sprintf("g=%.1f%% peg=%.2f drift=%+.0fbps", growth*100, d.PEG, drift*10000)
}

// modelMarginTier grades on ROIC, gross and operating margin together,
// floors the exit at the tier for cheap names and concedes partial
// compression for expensive ones.
func modelMarginTier(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string) {
	growth := reinvestmentGrowth(e, d.ROIC, d)
	tier := pickTier(e.ThreeFactorTiers, d)

	exitPE := tier.ExitPE
	switch {
	case d.PE > 0 && d.PE < tier.ExitPE:
		exitPE = tier.ExitPE
	case d.PE > tier.ExitPE*e.HighPERatio:
		exitPE = math.Max(tier.ExitPE, d.PE*e.EliteCompression)
	}

	irr := baseReturn(d) + growth + multipleDrift(d.PE, exitPE, e.HoldingYears)
	return irr, fmt.Sprintf("g=%.1f%% tier=%s exit_pe=%.1f", growth*100, tier.Label, exitPE)
}

// modelROICTier caps the growth input and reads the exit multiple off
// a pure ROIC ladder.
func modelROICTier(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string) {
	growth := reinvestmentGrowth(e, math.Min(d.ROIC, e.ROICCap), d)
	tier := pickTier(e.ROICLadderTiers, d)

	irr := baseReturn(d) + growth + multipleDrift(d.PE, tier.ExitPE, e.HoldingYears)
	return irr, fmt.Sprintf("g=%.1f%% tier=%s exit_pe=%.1f", growth*100, tier.Label, tier.ExitPE)
}

// modelHybrid folds the pieces that survived comparison into one
// estimate: the conservative asset-light override, the reinvestment
// algebra, a three-factor tier with PE floor, and label-dependent
// compression for expensive top tiers.
func modelHybrid(e criteria.EnsembleCriteria, d *metrics.Derived) (float64, string) {
	roicCapped := math.Min(d.ROIC, e.ROICCap)
	rr := d.ReinvestmentRate
	acct := roicCapped * math.Max(rr, 0)

	var growth float64
	var basis string
	switch {
	case d.EPSCAGR5y > 0 && acct < d.EPSCAGR5y*0.5:
		growth = math.Min(d.EPSCAGR5y, e.HybridGrowthCap)
		basis = "eps"
	case rr > 0:
		growth = acct
		basis = "acct"
	case d.EPSCAGR5y > 0:
		growth = math.Min(d.EPSCAGR5y, e.HybridGrowthCap)
		basis = "eps"
	default:
		growth = math.Min(d.HistoricalGrowth, e.HybridHistoricalCap)
		basis = "hist"
	}
	growth = math.Min(growth, e.HybridGrowthCap)

	tier := pickTier(e.ConsensusTiers, d)
	exitPE := tier.ExitPE
	switch {
	case d.PE > 0 && d.PE < tier.ExitPE:
		exitPE = tier.ExitPE
	case strings.EqualFold(tier.Label, "elite") && d.PE > tier.ExitPE*e.HighPERatio:
		exitPE = math.Max(tier.ExitPE, d.PE*e.EliteCompression)
	case strings.EqualFold(tier.Label, "high") && d.PE > tier.ExitPE*e.HighPERatio:
		exitPE = math.Max(tier.ExitPE, d.PE*e.HighCompression)
	}

	irr := baseReturn(d) + growth + multipleDrift(d.PE, exitPE, e.HoldingYears)
	return irr, fmt.Sprintf("g=%.1f%%(%s) tier=%s exit_pe=%.1f", growth*100, basis, tier.Label, exitPE)
}
