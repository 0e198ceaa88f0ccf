package screen

import (
	"fmt"
	"time"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
	"github.com/wonny/compounder/internal/valuation"
	"github.com/wonny/compounder/pkg/logger"
)

// Tier-1 criterion names; these are the keys persisted with results and
// referenced by overrides and flags.
const (
	CriterionHistory        = "history"
	CriterionROIIC          = "roiic"
	CriterionHistoricalROIC = "historical_roic"
	CriterionSpread         = "spread"
	CriterionRevenueGrowth  = "revenue_growth"
	CriterionFCFConversion  = "fcf_conversion"
	CriterionGrossMargin    = "gross_margin"
	CriterionCapexIntensity = "capex_intensity"
	CriterionLeverage       = "leverage"
	CriterionMarketCap      = "market_cap"
	CriterionPlausibility   = "roic_plausibility"
)

// Override names recorded on criterion results when the relaxation, not
// the primary test, carried the pass.
const (
	OverrideExGoodwill = "ex_goodwill_roic"
	OverrideROIIC      = "incremental_roic"
)

// Informational flags carried on the result without affecting pass/fail.
const (
	FlagLowReinvestment = "low_reinvestment"
	FlagNetCash         = "net_cash"
)

// Screener implements the Tier-1 hard filter: every criterion must
// pass, overrides are recorded by name, and a missing required input is
// a deterministic failure, never a silent pass.
// ⭐ SSOT: Tier-1 하드 필터 로직은 여기서만
type Screener struct {
	doc    *criteria.Document
	logger *logger.Logger
}

// NewScreener creates a Tier-1 screener.
func NewScreener(doc *criteria.Document, log *logger.Logger) *Screener {
	return &Screener{
		doc:    doc,
		logger: log.Module("tier1"),
	}
}

// Screen evaluates the ordered criterion list against one company. All
// criteria are evaluated even after a failure so the stored result
// shows the full picture.
func (s *Screener) Screen(f *contracts.Fundamentals, d *metrics.Derived) *contracts.ScreeningResult {
	h := s.doc.HardFilter

	result := &contracts.ScreeningResult{
		Ticker:    f.Ticker,
		Lineage:   f.Lineage(),
		CreatedAt: time.Now(),
	}

	result.Criteria = append(result.Criteria,
		s.checkHistory(f),
		s.checkROIIC(d),
		s.checkHistoricalROIC(d),
		s.checkSpread(f, d),
		s.checkRevenueGrowth(d),
		s.checkFCFConversion(d),
		s.checkGrossMargin(d),
		s.checkCapexIntensity(d),
		s.checkLeverage(d),
		s.checkMarketCap(d),
		s.checkPlausibility(f, d),
	)

	result.Passed = true
	for _, c := range result.Criteria {
		if !c.Passed {
			result.Passed = false
			result.Reasons = append(result.Reasons, c.Reason)
		}
	}

	// 재투자율 부족은 탈락 사유가 아니라 참고 플래그
	if d.HasReinvestment && d.ReinvestmentRate < h.ReinvestmentFlagBelow {
		result.Flags = append(result.Flags, FlagLowReinvestment)
	}
	if d.NetCash {
		result.Flags = append(result.Flags, FlagNetCash)
	}

	s.logger.WithFields(map[string]interface{}{
		"ticker":    f.Ticker,
		"passed":    result.Passed,
		"failed":    len(result.Reasons),
		"overrides": result.OverridesUsed(),
	}).Debug("Tier-1 screen evaluated")

	return result
}

func (s *Screener) checkHistory(f *contracts.Fundamentals) contracts.CriterionResult {
	min := s.doc.HardFilter.MinHistoryYears
	years := len(f.Periods)
	c := contracts.CriterionResult{
		Name:      CriterionHistory,
		Value:     float64(years),
		Threshold: float64(min),
		Passed:    years >= min,
	}
	if !c.Passed {
		c.Reason = fmt.Sprintf("insufficient data: history (%d periods, need %d)", years, min)
	}
	return c
}

func (s *Screener) checkROIIC(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionROIIC, Threshold: h.ROIICMin}
	if !d.HasROIIC {
		c.Missing = true
		c.Reason = "insufficient data: roiic"
		return c
	}
	c.Value = d.ROIIC
	c.Passed = d.ROIIC >= h.ROIICMin
	if !c.Passed {
		c.Reason = fmt.Sprintf("incremental ROIC %.1f%% below %.0f%% floor", d.ROIIC*100, h.ROIICMin*100)
	}
	return c
}

// checkHistoricalROIC accepts the ex-goodwill reading as an alternative
// so serial acquirers are judged on operating economics, not purchase
// accounting.
func (s *Screener) checkHistoricalROIC(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionHistoricalROIC, Threshold: h.HistoricalROICMin}
	if !d.HasROIC {
		c.Missing = true
		c.Reason = "insufficient data: roic"
		return c
	}

	c.Value = d.BestROIC()
	switch {
	case c.Value >= h.HistoricalROICMin:
		c.Passed = true
	case d.HasROICExGoodwill && d.BestROICExGoodwill() >= h.HistoricalROICMin:
		c.Passed = true
		c.Override = OverrideExGoodwill
		c.Reason = fmt.Sprintf("passed ex-goodwill: %.1f%%", d.BestROICExGoodwill()*100)
	default:
		c.Reason = fmt.Sprintf("ROIC %.1f%% < %.0f%% min", c.Value*100, h.HistoricalROICMin*100)
	}
	return c
}

func (s *Screener) checkSpread(f *contracts.Fundamentals, d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionSpread, Threshold: h.SpreadMin}
	if !d.HasROIC {
		c.Missing = true
		c.Reason = "insufficient data: roic"
		return c
	}

	wacc := valuation.ComputeWACC(s.doc.Valuation, f, d)
	c.Value = d.BestROIC() - wacc.Value
	c.Passed = c.Value >= h.SpreadMin
	if !c.Passed {
		c.Reason = fmt.Sprintf("ROIC-WACC spread %.1fppts < %.0fppts min", c.Value*100, h.SpreadMin*100)
	}
	return c
}

func (s *Screener) checkRevenueGrowth(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionRevenueGrowth, Threshold: h.RevenueGrowthMin}
	if !d.HasRevenueCAGR {
		c.Missing = true
		c.Reason = "insufficient data: revenue_growth"
		return c
	}
	c.Value = d.RevenueCAGR
	c.Passed = d.RevenueCAGR >= h.RevenueGrowthMin
	if !c.Passed {
		c.Reason = fmt.Sprintf("revenue growth %.1f%% < %.0f%% min", d.RevenueCAGR*100, h.RevenueGrowthMin*100)
	}
	return c
}

// checkFCFConversion holds the primary bar, but a company converting at
// the lower bar while compounding new capital above the override floor
// is earning its keep.
func (s *Screener) checkFCFConversion(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionFCFConversion, Threshold: h.FCFConversionMin}
	if !d.HasFCFConversion {
		c.Missing = true
		c.Reason = "insufficient data: fcf_conversion"
		return c
	}

	c.Value = d.FCFConversion
	switch {
	case c.Value >= h.FCFConversionMin:
		c.Passed = true
	case c.Value >= h.FCFConversionOverride && d.HasROIIC && d.ROIIC >= h.ROIICOverrideFloor:
		c.Passed = true
		c.Override = OverrideROIIC
		c.Reason = fmt.Sprintf("conversion %.0f%% accepted: incremental ROIC %.1f%%", c.Value*100, d.ROIIC*100)
	default:
		c.Reason = fmt.Sprintf("FCF conversion %.0f%% < %.0f%% min", c.Value*100, h.FCFConversionMin*100)
	}
	return c
}

// checkGrossMargin gates on the level and on erosion beyond tolerance;
// an unknown trend defers to the history criterion.
func (s *Screener) checkGrossMargin(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{
		Name:      CriterionGrossMargin,
		Value:     d.GrossMargin,
		Threshold: h.GrossMarginMin,
	}
	if !d.HasGrossMargin {
		c.Missing = true
		c.Reason = "insufficient data: gross_margin"
		return c
	}
	if d.GrossMargin < h.GrossMarginMin {
		c.Reason = fmt.Sprintf("gross margin %.0f%% < %.0f%% min", d.GrossMargin*100, h.GrossMarginMin*100)
		return c
	}
	if d.GrossMarginTrend != metrics.TrendUnknown && d.GrossMarginDelta < -h.MarginDeclineTolerance {
		c.Reason = fmt.Sprintf("gross margin eroded %.1fppts, tolerance %.0fppts",
			-d.GrossMarginDelta*100, h.MarginDeclineTolerance*100)
		return c
	}
	c.Passed = true
	return c
}

// checkCapexIntensity overrides heavy spenders whose incremental ROIC
// proves the capex is compounding. No reported capex is a pass: nothing
// spent, nothing to cap.
func (s *Screener) checkCapexIntensity(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionCapexIntensity, Threshold: h.CapexToRevenueMax}
	if !d.HasCapex {
		c.Passed = true
		c.Missing = true
		c.Reason = "no capex reported"
		return c
	}

	c.Value = d.CapexToRevenue
	switch {
	case c.Value <= h.CapexToRevenueMax:
		c.Passed = true
	case d.HasROIIC && d.ROIIC >= h.ROIICOverrideFloor:
		c.Passed = true
		c.Override = OverrideROIIC
		c.Reason = fmt.Sprintf("capex %.1f%% accepted: incremental ROIC %.1f%%", c.Value*100, d.ROIIC*100)
	default:
		c.Reason = fmt.Sprintf("capex/revenue %.1f%% > %.0f%% max", c.Value*100, h.CapexToRevenueMax*100)
	}
	return c
}

func (s *Screener) checkLeverage(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionLeverage, Threshold: h.NetDebtEBITDAMax}
	if d.NetCash {
		c.Passed = true
		c.Value = d.NetDebtEBITDA
		c.Reason = "net cash"
		return c
	}
	if !d.HasLeverage {
		c.Missing = true
		c.Reason = "insufficient data: net_debt_ebitda"
		return c
	}
	c.Value = d.NetDebtEBITDA
	c.Passed = c.Value <= h.NetDebtEBITDAMax
	if !c.Passed {
		c.Reason = fmt.Sprintf("net debt %.1fx EBITDA > %.1fx max", c.Value, h.NetDebtEBITDAMax)
	}
	return c
}

func (s *Screener) checkMarketCap(d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter
	c := contracts.CriterionResult{Name: CriterionMarketCap, Threshold: h.MinMarketCap}
	if d.MarketCap <= 0 {
		c.Missing = true
		c.Reason = "insufficient data: market_cap"
		return c
	}
	c.Value = d.MarketCap
	c.Passed = c.Value >= h.MinMarketCap
	if !c.Passed {
		c.Reason = fmt.Sprintf("market cap $%.1fB < $%.0fB min", c.Value/1e9, h.MinMarketCap/1e9)
	}
	return c
}

// checkPlausibility fails ROIC readings no real business produces.
// Fee-based industries report thin invested capital, so they get a
// tighter cap instead of a free pass.
func (s *Screener) checkPlausibility(f *contracts.Fundamentals, d *metrics.Derived) contracts.CriterionResult {
	h := s.doc.HardFilter

	cap := h.ROICPlausibilityCap
	for _, industry := range h.ROICCappedIndustries {
		if industry == f.Profile.Industry {
			cap = h.ROICCappedIndustryCap
			break
		}
	}

	roic := d.ROIC
	if d.HasROICExGoodwill {
		roic = d.ROICExGoodwill
	}

	c := contracts.CriterionResult{
		Name:      CriterionPlausibility,
		Value:     roic,
		Threshold: cap,
		Passed:    roic <= cap,
	}
	if !c.Passed {
		c.Reason = fmt.Sprintf("ROIC %.0f%% above plausibility cap %.0f%%: data error suspected", roic*100, cap*100)
	}
	return c
}
