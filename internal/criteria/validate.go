package criteria

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(doc *Document) error {
	if err := structValidator.Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return ValidationError{f.Namespace(), fmt.Sprintf("violates %q", f.Tag())}
		}
		return err
	}

	if err := validateHardFilter(&doc.HardFilter); err != nil {
		return err
	}
	if err := validateQuality(&doc.Quality); err != nil {
		return err
	}
	return validateValuation(&doc.Valuation)
}

func validateHardFilter(hf *HardFilterCriteria) error {
	if hf.ROIICOverrideFloor > hf.ROIICMin {
		return ValidationError{"hard_filter.roiic_override_floor", "must be <= roiic_min"}
	}
	if hf.FCFConversionOverride > hf.FCFConversionMin {
		return ValidationError{"hard_filter.fcf_conversion_override_min", "must be <= fcf_conversion_min"}
	}
	if hf.ROICCappedIndustryCap > hf.ROICPlausibilityCap {
		return ValidationError{"hard_filter.roic_capped_industry_cap", "must be <= roic_plausibility_cap"}
	}

	// CAGR over N years needs N+1 period-ends; the 3y ROIC average
	// needs 3.
	if hf.MinHistoryYears < hf.RevenueGrowthYears+1 {
		return ValidationError{"hard_filter.min_history_years", fmt.Sprintf("must be >= revenue_growth_years+1=%d", hf.RevenueGrowthYears+1)}
	}
	if hf.MinHistoryYears < hf.HistoricalROICYears {
		return ValidationError{"hard_filter.min_history_years", "must be >= historical_roic_years"}
	}
	return nil
}

func validateQuality(q *QualityCriteria) error {
	if err := validateStepsDescending("quality.roiic_steps", q.ROIICSteps); err != nil {
		return err
	}
	if err := validateStepsDescending("quality.runway_cap_steps", q.RunwayCapSteps); err != nil {
		return err
	}
	if err := validateStepsDescending("quality.growth_steps", q.GrowthSteps); err != nil {
		return err
	}
	if err := validateStepsDescending("quality.fcf_conversion_steps", q.FCFConversionSteps); err != nil {
		return err
	}

	for i := 1; i < len(q.RunwayGrowthMultipliers); i++ {
		prev, cur := q.RunwayGrowthMultipliers[i-1], q.RunwayGrowthMultipliers[i]
		if cur.Above >= prev.Above || cur.Multiplier >= prev.Multiplier {
			return ValidationError{
				Field:   fmt.Sprintf("quality.runway_growth_multipliers[%d]", i),
				Message: "must be ordered best-first",
			}
		}
	}

	for i := 1; i < len(q.CapexSteps); i++ {
		prev, cur := q.CapexSteps[i-1], q.CapexSteps[i]
		if cur.Below <= prev.Below || cur.Points >= prev.Points {
			return ValidationError{
				Field:   fmt.Sprintf("quality.capex_steps[%d]", i),
				Message: "bounds must increase while points decrease",
			}
		}
	}

	// 구성요소 만점 합계는 반드시 100
	if total := q.MaxTotal(); math.Abs(total-100) > 1e-9 {
		return ValidationError{"quality", fmt.Sprintf("component maxima must sum to 100, got %.1f", total)}
	}

	if !(q.ExceptionalMin > q.EliteMin && q.EliteMin > q.QualityMin) {
		return ValidationError{"quality", "tier cuts must satisfy exceptional > elite > quality"}
	}
	return nil
}

func validateValuation(v *ValuationCriteria) error {
	if v.BetaFloor >= v.BetaCeiling {
		return ValidationError{"valuation.beta_floor", "must be < beta_ceiling"}
	}
	if v.BetaDefault < v.BetaFloor || v.BetaDefault > v.BetaCeiling {
		return ValidationError{"valuation.beta_default", "must be within [beta_floor, beta_ceiling]"}
	}
	if v.WACCFloor >= v.WACCCeiling {
		return ValidationError{"valuation.wacc_floor", "must be < wacc_ceiling"}
	}
	if v.GrowthFloor >= v.GrowthCeiling {
		return ValidationError{"valuation.growth_floor", "must be < growth_ceiling"}
	}
	if v.MatureGrowth < v.TerminalGrowth {
		return ValidationError{"valuation.mature_growth", "must be >= terminal_growth"}
	}
	if v.HighGrowthYears >= v.ProjectionYears {
		return ValidationError{"valuation.high_growth_years", "must be < projection_years"}
	}

	// ROIIC over a W-year window reads period-ends W apart, so the
	// sufficiency floor must cover the window plus the base year.
	if v.MinPeriods < v.ROIICWindow+1 {
		return ValidationError{"valuation.min_periods", fmt.Sprintf("must be >= roiic_window+1=%d", v.ROIICWindow+1)}
	}

	for i, t := range v.EntryTargets {
		// Entry inversion divides by (target - terminal growth).
		if t <= v.TerminalGrowth {
			return ValidationError{
				Field:   fmt.Sprintf("valuation.entry_targets[%d]", i),
				Message: fmt.Sprintf("target %.3f must exceed terminal_growth %.3f", t, v.TerminalGrowth),
			}
		}
		if i > 0 && t >= v.EntryTargets[i-1] {
			return ValidationError{
				Field:   fmt.Sprintf("valuation.entry_targets[%d]", i),
				Message: "targets must be strictly decreasing",
			}
		}
	}

	if !(v.VerdictBuyMin > v.VerdictWatchMin && v.VerdictWatchMin > v.VerdictHoldMin) {
		return ValidationError{"valuation", "verdict cuts must satisfy buy > watch > hold"}
	}

	return validateEnsemble(&v.Ensemble)
}

func validateEnsemble(e *EnsembleCriteria) error {
	if e.ConservativeHistoricalCap > e.ConservativeGrowthCap {
		return ValidationError{"valuation.ensemble.conservative_historical_cap", "must be <= conservative_growth_cap"}
	}
	if e.HybridHistoricalCap > e.HybridGrowthCap {
		return ValidationError{"valuation.ensemble.hybrid_historical_cap", "must be <= hybrid_growth_cap"}
	}

	for i := 1; i < len(e.PEGBands); i++ {
		if e.PEGBands[i].Below <= e.PEGBands[i-1].Below || e.PEGBands[i].Drift >= e.PEGBands[i-1].Drift {
			return ValidationError{
				Field:   fmt.Sprintf("valuation.ensemble.peg_bands[%d]", i),
				Message: "bounds must increase while drift decreases",
			}
		}
	}

	if err := validateExitTiers("valuation.ensemble.two_factor_tiers", e.TwoFactorTiers); err != nil {
		return err
	}
	if err := validateExitTiers("valuation.ensemble.roic_only_tiers", e.ROICOnlyTiers); err != nil {
		return err
	}
	if err := validateExitTiers("valuation.ensemble.three_factor_tiers", e.ThreeFactorTiers); err != nil {
		return err
	}
	if err := validateExitTiers("valuation.ensemble.roic_ladder_tiers", e.ROICLadderTiers); err != nil {
		return err
	}
	return validateExitTiers("valuation.ensemble.consensus_tiers", e.ConsensusTiers)
}

// === Helper Functions ===

func validateStepsDescending(field string, steps []Step) error {
	for i := 1; i < len(steps); i++ {
		if steps[i].Above >= steps[i-1].Above {
			return ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "bounds must be ordered best-first",
			}
		}
		if steps[i].Points >= steps[i-1].Points {
			return ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "points must decrease with the bound",
			}
		}
	}
	return nil
}

// validateExitTiers는 first-match 순회를 전제로 테이블 순서를 검증
func validateExitTiers(field string, tiers []ExitTier) error {
	last := tiers[len(tiers)-1]
	if last.ROICMin != 0 || last.GrossMarginMin != 0 || last.OperatingMarginMin != 0 {
		return ValidationError{field, "last tier must be the unconditional fallback"}
	}
	for i := 1; i < len(tiers); i++ {
		if tiers[i].ROICMin > tiers[i-1].ROICMin {
			return ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "roic_min must not increase down the table",
			}
		}
		if tiers[i].ExitPE >= tiers[i-1].ExitPE {
			return ValidationError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: "exit_pe must decrease down the table",
			}
		}
	}
	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(doc *Document) []Warning {
	var warnings []Warning

	// terminal growth가 WACC floor에 근접하면 일부 종목 평가 실패
	if doc.Valuation.TerminalGrowth >= doc.Valuation.WACCFloor {
		warnings = append(warnings, Warning{
			Code:    "TERMINAL_NEAR_DISCOUNT",
			Message: "terminal_growth >= wacc_floor: names clamped to the floor will fail the projection guard",
		})
	}

	if doc.Universe.MinMarketCap < 1_000_000_000 {
		warnings = append(warnings, Warning{
			Code:    "SMALL_CAP_UNIVERSE",
			Message: "universe.min_market_cap < $1B: fundamentals coverage degrades below large-cap",
		})
	}

	if doc.Valuation.GrowthCeiling > 0.25 {
		warnings = append(warnings, Warning{
			Code:    "OPTIMISTIC_GROWTH_CAP",
			Message: "growth_ceiling > 25%: projections may assume unsustainable compounding",
		})
	}

	if doc.Valuation.EquityRiskPremium < 0.03 || doc.Valuation.EquityRiskPremium > 0.08 {
		warnings = append(warnings, Warning{
			Code:    "UNUSUAL_ERP",
			Message: "equity_risk_premium outside [3%, 8%]: discount rates may drift from market practice",
		})
	}

	if doc.Quality.AdvanceMin != doc.Quality.EliteMin && doc.Quality.AdvanceMin != doc.Quality.ExceptionalMin && doc.Quality.AdvanceMin != doc.Quality.QualityMin {
		warnings = append(warnings, Warning{
			Code:    "ADVANCE_OFF_TIER",
			Message: "quality.advance_min does not align with a tier boundary",
		})
	}

	return warnings
}
