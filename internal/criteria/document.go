package criteria

import "github.com/wonny/compounder/internal/contracts"

// Document는 파이프라인이 적용하는 모든 수치 기준의 단일 소스
// Every threshold, weight, cap and target the tiers apply lives here;
// code never hardcodes a screening number. Runs pin the document by
// SHA-256 so a resumed run cannot silently change its bar.
type Document struct {
	Version    string             `yaml:"version" json:"version" validate:"required"`
	Universe   UniverseCriteria   `yaml:"universe" json:"universe"`
	HardFilter HardFilterCriteria `yaml:"hard_filter" json:"hard_filter"`
	Quality    QualityCriteria    `yaml:"quality" json:"quality"`
	Valuation  ValuationCriteria  `yaml:"valuation" json:"valuation"`
}

// UniverseCriteria bounds the candidate pull before any fundamentals are
// fetched.
type UniverseCriteria struct {
	MinMarketCap       float64  `yaml:"min_market_cap" json:"min_market_cap" validate:"gt=0"`
	ScreenerLimit      int      `yaml:"screener_limit" json:"screener_limit" validate:"gt=0"`
	ExcludedNameTokens []string `yaml:"excluded_name_tokens" json:"excluded_name_tokens"`
	ExcludedSectors    []string `yaml:"excluded_sectors" json:"excluded_sectors"`
	ExcludedIndustries []string `yaml:"excluded_industries" json:"excluded_industries"`
	// Whitelist keeps named tickers even when their sector or industry
	// is excluded.
	Whitelist []string `yaml:"whitelist" json:"whitelist"`
}

// HardFilterCriteria holds the Tier-1 bars. Overrides are the documented
// relaxations: a criterion whose primary test fails may still pass when
// its override condition holds, and the pass is recorded by name.
type HardFilterCriteria struct {
	MinHistoryYears int `yaml:"min_history_years" json:"min_history_years" validate:"gte=2"`

	// Incremental ROIC: the anchor criterion. The override floor is the
	// lower bar that arms the FCF-conversion and capex relaxations.
	ROIICMin           float64 `yaml:"roiic_min" json:"roiic_min" validate:"gt=0,lte=1"`
	ROIICOverrideFloor float64 `yaml:"roiic_override_floor" json:"roiic_override_floor" validate:"gte=0,lte=1"`

	// Historical ROIC: 3y average, with an ex-goodwill alternative so
	// serial acquirers are judged on operating capital.
	HistoricalROICMin   float64 `yaml:"historical_roic_min" json:"historical_roic_min" validate:"gt=0,lte=1"`
	HistoricalROICYears int     `yaml:"historical_roic_years" json:"historical_roic_years" validate:"gte=1"`

	SpreadMin float64 `yaml:"roic_wacc_spread_min" json:"roic_wacc_spread_min" validate:"gte=0"`

	RevenueGrowthMin   float64 `yaml:"revenue_growth_min" json:"revenue_growth_min" validate:"gte=0"`
	RevenueGrowthYears int     `yaml:"revenue_growth_years" json:"revenue_growth_years" validate:"gte=1"`

	FCFConversionMin      float64 `yaml:"fcf_conversion_min" json:"fcf_conversion_min" validate:"gt=0"`
	FCFConversionOverride float64 `yaml:"fcf_conversion_override_min" json:"fcf_conversion_override_min" validate:"gte=0"`

	GrossMarginMin         float64 `yaml:"gross_margin_min" json:"gross_margin_min" validate:"gt=0,lte=1"`
	MarginDeclineTolerance float64 `yaml:"margin_decline_tolerance" json:"margin_decline_tolerance" validate:"gte=0"`

	CapexToRevenueMax float64 `yaml:"capex_to_revenue_max" json:"capex_to_revenue_max" validate:"gt=0"`

	NetDebtEBITDAMax float64 `yaml:"net_debt_ebitda_max" json:"net_debt_ebitda_max" validate:"gt=0"`

	MinMarketCap float64 `yaml:"min_market_cap" json:"min_market_cap" validate:"gt=0"`

	// Reinvestment below this is flagged "mature compounder" but never
	// fails the screen.
	ReinvestmentFlagBelow float64 `yaml:"reinvestment_flag_below" json:"reinvestment_flag_below" validate:"gte=0"`

	// ROIC above the plausibility cap is treated as a data error rather
	// than excellence. Fee-based industries report thin invested capital,
	// so they get a tighter cap.
	ROICPlausibilityCap   float64  `yaml:"roic_plausibility_cap" json:"roic_plausibility_cap" validate:"gt=0"`
	ROICCappedIndustryCap float64  `yaml:"roic_capped_industry_cap" json:"roic_capped_industry_cap" validate:"gt=0"`
	ROICCappedIndustries  []string `yaml:"roic_capped_industries" json:"roic_capped_industries"`
}

// Step awards Points when the measured value is at or above Above.
// Tables are ordered best-first; the first matching step wins.
type Step struct {
	Above  float64 `yaml:"above" json:"above"`
	Points float64 `yaml:"points" json:"points" validate:"gte=0"`
}

// StepDown awards Points when the measured value is strictly below
// Below. Used where smaller is better (capex intensity).
type StepDown struct {
	Below  float64 `yaml:"below" json:"below" validate:"gt=0"`
	Points float64 `yaml:"points" json:"points" validate:"gte=0"`
}

// GrowthMultiplier scales market cap into an effective runway proxy:
// proven growth above the bar implies the addressable market is bigger
// than the cap alone suggests.
type GrowthMultiplier struct {
	Above      float64 `yaml:"above" json:"above"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier" validate:"gte=1"`
}

// QualityCriteria holds the Tier-2 component tables. The top step of
// each table is that component's maximum; the maxima must sum to 100.
type QualityCriteria struct {
	ROIICSteps []Step `yaml:"roiic_steps" json:"roiic_steps" validate:"min=1,dive"`

	RunwayGrowthMultipliers []GrowthMultiplier `yaml:"runway_growth_multipliers" json:"runway_growth_multipliers" validate:"dive"`
	RunwayCapSteps          []Step             `yaml:"runway_cap_steps" json:"runway_cap_steps" validate:"min=1,dive"`
	RunwayBasePoints        float64            `yaml:"runway_base_points" json:"runway_base_points" validate:"gte=0"`

	GrowthSteps []Step `yaml:"growth_steps" json:"growth_steps" validate:"min=1,dive"`

	FCFConversionSteps []Step `yaml:"fcf_conversion_steps" json:"fcf_conversion_steps" validate:"min=1,dive"`

	MarginExpandingPoints float64 `yaml:"margin_expanding_points" json:"margin_expanding_points" validate:"gte=0"`
	MarginStablePoints    float64 `yaml:"margin_stable_points" json:"margin_stable_points" validate:"gte=0"`
	MarginDecliningPoints float64 `yaml:"margin_declining_points" json:"margin_declining_points" validate:"gte=0"`

	CapexSteps         []StepDown `yaml:"capex_steps" json:"capex_steps" validate:"min=1,dive"`
	CapexMissingPoints float64    `yaml:"capex_missing_points" json:"capex_missing_points" validate:"gte=0"`

	ExceptionalMin float64 `yaml:"exceptional_min" json:"exceptional_min" validate:"gt=0,lte=100"`
	EliteMin       float64 `yaml:"elite_min" json:"elite_min" validate:"gt=0,lte=100"`
	QualityMin     float64 `yaml:"quality_min" json:"quality_min" validate:"gt=0,lte=100"`

	// AdvanceMin is the score a name needs to reach Tier-3.
	AdvanceMin float64 `yaml:"advance_min" json:"advance_min" validate:"gte=0,lte=100"`
}

// TierFor maps a composite score onto its tier label.
func (q QualityCriteria) TierFor(score float64) contracts.Tier {
	switch {
	case score >= q.ExceptionalMin:
		return contracts.TierExceptional
	case score >= q.EliteMin:
		return contracts.TierElite
	case score >= q.QualityMin:
		return contracts.TierQuality
	default:
		return contracts.TierReview
	}
}

// MaxTotal sums the component maxima.
func (q QualityCriteria) MaxTotal() float64 {
	total := q.MarginExpandingPoints
	for _, steps := range [][]Step{q.ROIICSteps, q.RunwayCapSteps, q.GrowthSteps, q.FCFConversionSteps} {
		best := 0.0
		for _, s := range steps {
			if s.Points > best {
				best = s.Points
			}
		}
		total += best
	}
	best := 0.0
	for _, s := range q.CapexSteps {
		if s.Points > best {
			best = s.Points
		}
	}
	return total + best
}

// ExitTier maps a quality profile onto a justified exit multiple. Zero
// minimums are unused conditions; a tier with all-zero minimums is the
// fallback and must come last.
type ExitTier struct {
	ROICMin            float64 `yaml:"roic_min" json:"roic_min" validate:"gte=0"`
	GrossMarginMin     float64 `yaml:"gross_margin_min" json:"gross_margin_min" validate:"gte=0"`
	OperatingMarginMin float64 `yaml:"operating_margin_min" json:"operating_margin_min" validate:"gte=0"`
	Label              string  `yaml:"label" json:"label" validate:"required"`
	ExitPE             float64 `yaml:"exit_pe" json:"exit_pe" validate:"gt=0"`
}

// Matches reports whether the measured profile clears every non-zero
// minimum of the tier.
func (t ExitTier) Matches(roic, grossMargin, operatingMargin float64) bool {
	if t.ROICMin > 0 && roic < t.ROICMin {
		return false
	}
	if t.GrossMarginMin > 0 && grossMargin < t.GrossMarginMin {
		return false
	}
	if t.OperatingMarginMin > 0 && operatingMargin < t.OperatingMarginMin {
		return false
	}
	return true
}

// PEGBand maps a PEG ratio below the bound onto an annual multiple
// drift.
type PEGBand struct {
	Below float64 `yaml:"below" json:"below" validate:"gt=0"`
	Drift float64 `yaml:"drift" json:"drift"`
}

// EnsembleCriteria parameterizes the closed-form IRR models: shared
// caps, the high-P/E compression rules, and the exit-multiple tier
// tables each tiering scheme reads.
type EnsembleCriteria struct {
	ROICCap      float64 `yaml:"roic_cap" json:"roic_cap" validate:"gt=0"`
	HoldingYears int     `yaml:"holding_years" json:"holding_years" validate:"gte=1"`

	// Ceiling on the ROIC×reinvestment growth engine. The optimistic
	// models stay optimistic through their exit multiples, not through
	// an unbounded growth term.
	ReinvestmentGrowthCap float64 `yaml:"reinvestment_growth_cap" json:"reinvestment_growth_cap" validate:"gt=0"`

	ConservativeGrowthCap     float64 `yaml:"conservative_growth_cap" json:"conservative_growth_cap" validate:"gt=0"`
	ConservativeHistoricalCap float64 `yaml:"conservative_historical_cap" json:"conservative_historical_cap" validate:"gt=0"`
	HybridGrowthCap           float64 `yaml:"hybrid_growth_cap" json:"hybrid_growth_cap" validate:"gt=0"`
	HybridHistoricalCap       float64 `yaml:"hybrid_historical_cap" json:"hybrid_historical_cap" validate:"gt=0"`
	ImpliedIRRCap             float64 `yaml:"implied_irr_cap" json:"implied_irr_cap" validate:"gt=0"`

	// A current P/E beyond HighPERatio × tier P/E is "very expensive";
	// instead of collapsing to the tier multiple the models accept the
	// configured compression.
	HighPERatio      float64 `yaml:"high_pe_ratio" json:"high_pe_ratio" validate:"gt=1"`
	EliteCompression float64 `yaml:"elite_compression" json:"elite_compression" validate:"gt=0,lt=1"`
	HighCompression  float64 `yaml:"high_compression" json:"high_compression" validate:"gt=0,lt=1"`

	PEGBands        []PEGBand `yaml:"peg_bands" json:"peg_bands" validate:"min=1,dive"`
	DefaultPEGDrift float64   `yaml:"default_peg_drift" json:"default_peg_drift"`

	TwoFactorTiers   []ExitTier `yaml:"two_factor_tiers" json:"two_factor_tiers" validate:"min=1,dive"`
	ROICOnlyTiers    []ExitTier `yaml:"roic_only_tiers" json:"roic_only_tiers" validate:"min=1,dive"`
	ThreeFactorTiers []ExitTier `yaml:"three_factor_tiers" json:"three_factor_tiers" validate:"min=1,dive"`
	ROICLadderTiers  []ExitTier `yaml:"roic_ladder_tiers" json:"roic_ladder_tiers" validate:"min=1,dive"`
	ConsensusTiers   []ExitTier `yaml:"consensus_tiers" json:"consensus_tiers" validate:"min=1,dive"`
}

// ValuationCriteria holds the Tier-3 discounting, projection, ensemble
// and verdict parameters.
type ValuationCriteria struct {
	// WACC inputs
	RiskFreeRate      float64 `yaml:"risk_free_rate" json:"risk_free_rate" validate:"gt=0"`
	EquityRiskPremium float64 `yaml:"equity_risk_premium" json:"equity_risk_premium" validate:"gt=0"`
	BetaFloor         float64 `yaml:"beta_floor" json:"beta_floor" validate:"gt=0"`
	BetaCeiling       float64 `yaml:"beta_ceiling" json:"beta_ceiling" validate:"gt=0"`
	BetaDefault       float64 `yaml:"beta_default" json:"beta_default" validate:"gt=0"`
	CostOfDebtCap     float64 `yaml:"cost_of_debt_cap" json:"cost_of_debt_cap" validate:"gt=0"`
	DefaultTaxRate    float64 `yaml:"default_tax_rate" json:"default_tax_rate" validate:"gt=0,lt=1"`
	TaxRateCeiling    float64 `yaml:"tax_rate_ceiling" json:"tax_rate_ceiling" validate:"gt=0,lt=1"`
	WACCFloor         float64 `yaml:"wacc_floor" json:"wacc_floor" validate:"gt=0"`
	WACCCeiling       float64 `yaml:"wacc_ceiling" json:"wacc_ceiling" validate:"gt=0"`

	// Projection inputs
	CapitalReturnerReinvestment float64 `yaml:"capital_returner_reinvestment" json:"capital_returner_reinvestment" validate:"gt=0"`
	GrowthFloor                 float64 `yaml:"growth_floor" json:"growth_floor" validate:"gte=0"`
	GrowthCeiling               float64 `yaml:"growth_ceiling" json:"growth_ceiling" validate:"gt=0"`
	MatureGrowth                float64 `yaml:"mature_growth" json:"mature_growth" validate:"gt=0"`
	TerminalGrowth              float64 `yaml:"terminal_growth" json:"terminal_growth" validate:"gt=0"`
	ProjectionYears             int     `yaml:"projection_years" json:"projection_years" validate:"gte=2"`
	HighGrowthYears             int     `yaml:"high_growth_years" json:"high_growth_years" validate:"gte=1"`

	// Data sufficiency
	MinPeriods  int `yaml:"min_periods" json:"min_periods" validate:"gte=2"`
	ROIICWindow int `yaml:"roiic_window" json:"roiic_window" validate:"gte=1"`

	// Entry prices and verdicts
	EntryTargets    []float64 `yaml:"entry_targets" json:"entry_targets" validate:"min=1,dive,gt=0"`
	VerdictBuyMin   float64   `yaml:"verdict_buy_min" json:"verdict_buy_min" validate:"gt=0"`
	VerdictWatchMin float64   `yaml:"verdict_watch_min" json:"verdict_watch_min" validate:"gt=0"`
	VerdictHoldMin  float64   `yaml:"verdict_hold_min" json:"verdict_hold_min" validate:"gt=0"`

	Ensemble EnsembleCriteria `yaml:"ensemble" json:"ensemble"`
}

// VerdictFor maps a consensus expected return onto the action scale.
func (v ValuationCriteria) VerdictFor(irr float64) contracts.Verdict {
	switch {
	case irr >= v.VerdictBuyMin:
		return contracts.VerdictBuy
	case irr >= v.VerdictWatchMin:
		return contracts.VerdictWatch
	case irr >= v.VerdictHoldMin:
		return contracts.VerdictHold
	default:
		return contracts.VerdictExpensive
	}
}
