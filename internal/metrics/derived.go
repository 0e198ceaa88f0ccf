package metrics

import (
	"math"
	"sort"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/pkg/logger"
)

// Trend classifies the gross-margin trajectory over the growth window.
type Trend string

const (
	TrendExpanding Trend = "expanding"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
	TrendUnknown   Trend = "unknown"
)

const (
	// marginTrendDelta separates expanding/declining from stable:
	// ±100bps of revenue over the window.
	marginTrendDelta = 0.01

	// requiredCashRatio is the share of revenue counted as operating
	// cash; only the excess above it leaves invested capital.
	requiredCashRatio = 0.01

	// roiicCap bounds incremental ROIC against denominator noise: a
	// tiny ΔIC turns ordinary NOPAT growth into absurd ratios.
	roiicCap = 2.0

	// defaultHistoricalGrowth stands in when no positive trailing
	// growth rate survives.
	defaultHistoricalGrowth = 0.05

	// pegUnavailable is the sentinel for names without a usable P/E or
	// EPS growth; every drift band reads it as very expensive.
	pegUnavailable = 99.0
)

// Derived is every ratio the tiers read, computed fresh from one
// Fundamentals snapshot and never persisted. Absent inputs surface as
// Has* flags, not silent zeros, so the screen can record the exact
// missing field.
// ⭐ SSOT: 파생 지표 계산 결과는 이 구조체로만 전달
type Derived struct {
	Ticker string

	// Profitability
	TaxRate             float64
	TaxDefaulted        bool
	NOPAT               float64
	InvestedCapital     float64
	ROIC                float64
	HasROIC             bool
	ROICAvg             float64 // trailing average over the history window
	ROICExGoodwill      float64
	ROICExGoodwillAvg   float64
	HasROICExGoodwill   bool
	OperatingMargin     float64
	GrossMargin         float64
	HasGrossMargin      bool
	GrossMarginDelta    float64 // newest minus oldest over the window
	GrossMarginTrend    Trend
	OwnerEarnings       float64
	OwnerEarningsPS     float64

	// Incremental returns
	ROIIC    float64
	HasROIIC bool

	// Reinvestment
	ReinvestmentRate float64 // negative means net capital return
	HasReinvestment  bool

	// Cash economics
	FCFConversion    float64 // trailing ΣFCF / ΣNetIncome
	HasFCFConversion bool
	CapexToRevenue   float64
	HasCapex         bool
	SBCToFCF         float64 // clamped [0,1]

	// Leverage
	NetDebt       float64
	NetDebtEBITDA float64
	HasLeverage   bool
	NetCash       bool

	// Growth
	RevenueCAGR     float64 // over the configured growth window
	HasRevenueCAGR  bool
	RevenueCAGR5y   float64
	EPSCAGR5y       float64
	FCFPerShareCAGR float64 // 5y, per share
	HistoricalGrowth float64 // median positive trailing growth

	// Per-share and market
	EPS           float64
	FCFPerShare   float64
	BuybackYield  float64 // annualized 5y share-count reduction
	DividendYield float64
	PE            float64
	PFCF          float64
	PEG           float64
	Price         float64
	MarketCap     float64
	Shares        float64
}

// Calculator derives metrics under one criteria document. The document
// supplies windows and sanitization bounds; it never supplies values.
// ⭐ SSOT: 파생 지표 계산은 여기서만
type Calculator struct {
	doc    *criteria.Document
	logger *logger.Logger
}

// NewCalculator creates a derived-metrics calculator.
func NewCalculator(doc *criteria.Document, log *logger.Logger) *Calculator {
	return &Calculator{
		doc:    doc,
		logger: log.Module("metrics"),
	}
}

// Compute derives the full metric set from one snapshot. It fails only
// when the latest period is unusable; individual metrics that lack
// history come back with their Has flag down.
func (c *Calculator) Compute(f *contracts.Fundamentals) (*Derived, error) {
	latest := f.Latest()
	if latest == nil {
		return nil, contracts.NewInsufficientDataError(f.Ticker, "periods", "no annual periods cached")
	}
	if !latest.HasCoreFields() {
		return nil, contracts.NewInsufficientDataError(f.Ticker, "core_fields", "latest period missing revenue or share count")
	}

	d := &Derived{Ticker: f.Ticker}
	periods := f.Periods

	d.TaxRate, d.TaxDefaulted = c.effectiveTaxRate(latest)
	d.NOPAT = latest.OperatingIncome * (1 - d.TaxRate)

	c.computeCapitalReturns(d, periods)
	c.computeIncrementalROIC(d, periods)
	c.computeCashEconomics(d, periods, latest)
	c.computeGrowth(d, periods)
	c.computeMarket(d, f, latest)

	c.logger.WithFields(map[string]interface{}{
		"ticker": d.Ticker,
		"roic":   d.ROIC,
		"roiic":  d.ROIIC,
		"growth": d.RevenueCAGR,
	}).Debug("Derived metrics computed")

	return d, nil
}

// effectiveTaxRate sanitizes the reported rate: negative rates (credits)
// and rates above the ceiling (one-time charges) fall back to the
// configured default.
func (c *Calculator) effectiveTaxRate(p *contracts.FundamentalPeriod) (float64, bool) {
	v := c.doc.Valuation
	if p.IncomeBeforeTax <= 0 {
		return v.DefaultTaxRate, true
	}
	rate := p.IncomeTaxExpense / p.IncomeBeforeTax
	if rate < 0 || rate > v.TaxRateCeiling {
		return v.DefaultTaxRate, true
	}
	return rate, false
}

// investedCapital returns equity plus debt, net of excess cash. Cash up
// to 1% of revenue stays in as operating cash. A non-positive result
// falls back to half of total assets, matching how thin-equity balance
// sheets are handled upstream.
func investedCapital(p contracts.FundamentalPeriod) float64 {
	excess := math.Max(0, p.CashAndEquivalents+p.ShortTermInvestments-p.Revenue*requiredCashRatio)
	ic := p.ShareholdersEquity + p.TotalDebt - excess
	if ic <= 0 {
		ic = p.TotalAssets * 0.5
	}
	return ic
}

func (c *Calculator) computeCapitalReturns(d *Derived, periods []contracts.FundamentalPeriod) {
	years := c.doc.HardFilter.HistoricalROICYears
	if years > len(periods) {
		years = len(periods)
	}

	var roics, roicsExGW []float64
	for i := 0; i < years; i++ {
		p := periods[i]
		ic := investedCapital(p)
		if ic <= 0 {
			continue
		}
		nopat := p.OperatingIncome * (1 - d.TaxRate)
		roics = append(roics, nopat/ic)

		if adj := ic - p.Goodwill; adj > 0 {
			roicsExGW = append(roicsExGW, nopat/adj)
		}
	}

	if len(roics) > 0 {
		d.ROIC = roics[0]
		d.ROICAvg = mean(roics)
		d.HasROIC = true
	}
	if len(roicsExGW) > 0 {
		d.ROICExGoodwill = roicsExGW[0]
		d.ROICExGoodwillAvg = mean(roicsExGW)
		d.HasROICExGoodwill = true
	}
	d.InvestedCapital = investedCapital(periods[0])

	latest := periods[0]
	if latest.Revenue > 0 {
		d.GrossMargin = latest.GrossMargin()
		d.OperatingMargin = latest.OperatingIncome / latest.Revenue
		// 공급자는 미보고 항목을 0으로 내려보낸다; 매출총이익 0은
		// 값이 아니라 결측이다
		d.HasGrossMargin = latest.GrossProfit > 0
	}

	// Margin trend compares the newest margin to the oldest inside the
	// growth window.
	window := c.doc.HardFilter.RevenueGrowthYears
	if window >= len(periods) {
		window = len(periods) - 1
	}
	if window < 1 {
		d.GrossMarginTrend = TrendUnknown
		return
	}
	oldest := periods[window]
	if latest.Revenue <= 0 || oldest.Revenue <= 0 {
		d.GrossMarginTrend = TrendUnknown
		return
	}
	d.GrossMarginDelta = latest.GrossMargin() - oldest.GrossMargin()
	switch {
	case d.GrossMarginDelta > marginTrendDelta:
		d.GrossMarginTrend = TrendExpanding
	case d.GrossMarginDelta < -marginTrendDelta:
		d.GrossMarginTrend = TrendDeclining
	default:
		d.GrossMarginTrend = TrendStable
	}
}

// computeIncrementalROIC measures the return on each new dollar of
// capital: ΔNOPAT over ΔIC across the trailing window, with invested
// capital read as total assets less current liabilities.
func (c *Calculator) computeIncrementalROIC(d *Derived, periods []contracts.FundamentalPeriod) {
	window := c.doc.Valuation.ROIICWindow
	if window > len(periods)-1 {
		window = len(periods) - 1
	}
	if window < 1 {
		return
	}

	now, then := periods[0], periods[window]
	icNow := now.TotalAssets - now.TotalCurrentLiab
	icThen := then.TotalAssets - then.TotalCurrentLiab
	if now.TotalAssets <= 0 || then.TotalAssets <= 0 {
		return
	}

	d.HasROIIC = true
	deltaIC := icNow - icThen
	if deltaIC <= 0 {
		// Shrinking capital base: incremental return is undefined, and
		// zero keeps the screen's bar doing the judging.
		d.ROIIC = 0
		return
	}
	deltaNOPAT := (now.OperatingIncome - then.OperatingIncome) * (1 - d.TaxRate)
	d.ROIIC = clamp(deltaNOPAT/deltaIC, -roiicCap, roiicCap)
}

func (c *Calculator) computeCashEconomics(d *Derived, periods []contracts.FundamentalPeriod, latest *contracts.FundamentalPeriod) {
	// FCF conversion pools the trailing window so one working-capital
	// swing cannot flatter or sink the ratio.
	years := c.doc.HardFilter.HistoricalROICYears
	if years > len(periods) {
		years = len(periods)
	}
	var sumFCF, sumNI float64
	for i := 0; i < years; i++ {
		sumFCF += periods[i].FreeCashFlow
		sumNI += periods[i].NetIncome
	}
	if sumNI > 0 {
		d.FCFConversion = sumFCF / sumNI
		d.HasFCFConversion = true
	}

	if latest.Revenue > 0 && latest.CapEx > 0 {
		d.CapexToRevenue = latest.CapEx / latest.Revenue
		d.HasCapex = true
	}

	if latest.FreeCashFlow > 0 {
		d.SBCToFCF = clamp(latest.StockComp/latest.FreeCashFlow, 0, 1)
	}

	d.OwnerEarnings = latest.NetIncome + latest.DepreciationAmort - latest.CapEx
	if latest.DilutedShares > 0 {
		d.OwnerEarningsPS = d.OwnerEarnings / latest.DilutedShares
	}

	// Reinvestment: net capex plus acquisitions per dollar of NOPAT.
	// Unclamped; asset-light names legitimately go negative.
	if d.NOPAT > 0 {
		d.ReinvestmentRate = (latest.CapEx - latest.DepreciationAmort + math.Abs(latest.AcquisitionsNet)) / d.NOPAT
		d.HasReinvestment = true
	}

	d.NetDebt = latest.NetDebt()
	d.NetCash = d.NetDebt < 0
	if latest.EBITDA > 0 {
		d.NetDebtEBITDA = d.NetDebt / latest.EBITDA
		d.HasLeverage = true
	} else if d.NetCash {
		d.HasLeverage = true
	}
}

func (c *Calculator) computeGrowth(d *Derived, periods []contracts.FundamentalPeriod) {
	window := c.doc.HardFilter.RevenueGrowthYears
	if len(periods) > window {
		d.RevenueCAGR = cagr(periods[0].Revenue, periods[window].Revenue, window)
		d.HasRevenueCAGR = periods[0].Revenue > 0 && periods[window].Revenue > 0
	}

	if len(periods) > 4 {
		now, then := periods[0], periods[4]
		d.RevenueCAGR5y = cagr(now.Revenue, then.Revenue, 5)

		epsNow, epsThen := dilutedEPS(now), dilutedEPS(then)
		if epsNow > 0 && epsThen > 0 {
			d.EPSCAGR5y = cagr(epsNow, epsThen, 5)
		}

		if now.DilutedShares > 0 && then.DilutedShares > 0 {
			fcfNow := now.FreeCashFlow / now.DilutedShares
			fcfThen := then.FreeCashFlow / then.DilutedShares
			if fcfNow > 0 && fcfThen > 0 {
				d.FCFPerShareCAGR = cagr(fcfNow, fcfThen, 5)
			}
			// Share count shrinking is a return of capital; annualize
			// the reduction as a yield.
			d.BuybackYield = math.Pow(then.DilutedShares/now.DilutedShares, 0.2) - 1
		}
	}

	d.HistoricalGrowth = medianPositive(d.EPSCAGR5y, d.FCFPerShareCAGR, d.RevenueCAGR5y)
}

func (c *Calculator) computeMarket(d *Derived, f *contracts.Fundamentals, latest *contracts.FundamentalPeriod) {
	d.Price = f.Quote.Price
	if d.Price <= 0 {
		d.Price = f.Profile.Price
	}
	d.Shares = f.Quote.SharesOutstanding
	if d.Shares <= 0 {
		d.Shares = latest.DilutedShares
	}
	d.MarketCap = f.Quote.MarketCap
	if d.MarketCap <= 0 {
		d.MarketCap = f.Profile.MarketCap
	}
	if d.MarketCap <= 0 && d.Price > 0 {
		d.MarketCap = d.Price * d.Shares
	}

	d.EPS = dilutedEPS(*latest)
	if latest.DilutedShares > 0 {
		d.FCFPerShare = latest.FreeCashFlow / latest.DilutedShares
	}

	if d.Price > 0 && d.EPS > 0 {
		d.PE = d.Price / d.EPS
	}
	if d.Price > 0 && d.FCFPerShare > 0 {
		d.PFCF = d.Price / d.FCFPerShare
	}

	d.PEG = pegUnavailable
	if d.PE > 0 && d.EPSCAGR5y > 0.01 {
		d.PEG = d.PE / (d.EPSCAGR5y * 100)
	}

	if d.Price > 0 && d.Shares > 0 {
		d.DividendYield = latest.DividendsPaid / (d.Price * d.Shares)
	}
}

// FCFYieldAdjusted is the SBC-adjusted free-cash-flow yield at the
// current price, the base return component of every closed-form model.
func (d *Derived) FCFYieldAdjusted() float64 {
	if d.Price <= 0 || d.FCFPerShare <= 0 {
		return 0
	}
	return d.FCFPerShare * (1 - d.SBCToFCF) / d.Price
}

// BestROIC returns the higher of the current and trailing-average ROIC,
// the reading the hard filter judges.
func (d *Derived) BestROIC() float64 {
	return math.Max(d.ROIC, d.ROICAvg)
}

// BestROICExGoodwill mirrors BestROIC on the ex-goodwill variants.
func (d *Derived) BestROICExGoodwill() float64 {
	return math.Max(d.ROICExGoodwill, d.ROICExGoodwillAvg)
}

func dilutedEPS(p contracts.FundamentalPeriod) float64 {
	if p.EPSDiluted != 0 {
		return p.EPSDiluted
	}
	if p.DilutedShares > 0 {
		return p.NetIncome / p.DilutedShares
	}
	return 0
}

// cagr annualizes end over start; degenerate inputs return 0 rather
// than complex numbers.
func cagr(end, start float64, years int) float64 {
	if start <= 0 || end <= 0 || years <= 0 {
		return 0
	}
	return math.Pow(end/start, 1/float64(years)) - 1
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// medianPositive returns the upper median of the positive inputs, or
// the default growth when none are positive.
func medianPositive(xs ...float64) float64 {
	var pos []float64
	for _, x := range xs {
		if x > 0 {
			pos = append(pos, x)
		}
	}
	if len(pos) == 0 {
		return defaultHistoricalGrowth
	}
	sort.Float64s(pos)
	return pos[len(pos)/2]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
