package contracts

import "time"

// FundamentalPeriod is one fiscal year of reported line items for one
// ticker, keyed by (Ticker, PeriodEnd). Periods are immutable once
// fetched; a refresh replaces the whole trailing window.
// ⭐ SSOT: 원본 재무 데이터는 이 구조체로만 전달
type FundamentalPeriod struct {
	Ticker     string    `json:"ticker"`
	PeriodEnd  time.Time `json:"period_end"`
	FiscalYear int       `json:"fiscal_year"`
	Currency   string    `json:"currency"`

	// Income statement
	Revenue          float64 `json:"revenue"`
	GrossProfit      float64 `json:"gross_profit"`
	OperatingIncome  float64 `json:"operating_income"`
	EBITDA           float64 `json:"ebitda"`
	NetIncome        float64 `json:"net_income"`
	InterestExpense  float64 `json:"interest_expense"`
	IncomeBeforeTax  float64 `json:"income_before_tax"`
	IncomeTaxExpense float64 `json:"income_tax_expense"`
	EPSDiluted       float64 `json:"eps_diluted"`

	// Cash flow statement
	OperatingCashFlow float64 `json:"operating_cash_flow"`
	CapEx             float64 `json:"capex"`
	FreeCashFlow      float64 `json:"free_cash_flow"`
	DepreciationAmort float64 `json:"depreciation_amortization"`
	DividendsPaid     float64 `json:"dividends_paid"`
	BuybacksNet       float64 `json:"buybacks_net"`
	StockComp         float64 `json:"stock_based_compensation"`
	AcquisitionsNet   float64 `json:"acquisitions_net"`

	// Balance sheet
	TotalDebt            float64 `json:"total_debt"`
	CashAndEquivalents   float64 `json:"cash_and_equivalents"`
	ShortTermInvestments float64 `json:"short_term_investments"`
	ShareholdersEquity   float64 `json:"shareholders_equity"`
	Goodwill             float64 `json:"goodwill"`
	TotalAssets          float64 `json:"total_assets"`
	TotalCurrentLiab     float64 `json:"total_current_liabilities"`

	// Shares
	DilutedShares float64 `json:"diluted_shares"`
}

// NetDebt is total debt minus cash and short-term investments. Negative
// means a net-cash balance sheet.
func (p FundamentalPeriod) NetDebt() float64 {
	return p.TotalDebt - p.CashAndEquivalents - p.ShortTermInvestments
}

// GrossMargin returns gross profit over revenue, or 0 when revenue is
// missing.
func (p FundamentalPeriod) GrossMargin() float64 {
	if p.Revenue <= 0 {
		return 0
	}
	return p.GrossProfit / p.Revenue
}

// HasCoreFields reports whether the period carries the line items every
// downstream computation depends on. Providers report absent values as
// zero, so a zero in any core field marks the period unusable.
func (p FundamentalPeriod) HasCoreFields() bool {
	return p.Revenue > 0 && p.DilutedShares > 0 && !p.PeriodEnd.IsZero()
}

// CompanyProfile is the slow-moving identity record for one ticker.
type CompanyProfile struct {
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	Industry  string    `json:"industry"`
	Exchange  string    `json:"exchange"`
	Currency  string    `json:"currency"`
	MarketCap float64   `json:"market_cap"`
	Price     float64   `json:"price"`
	Beta      float64   `json:"beta"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Quote is a point-in-time price snapshot. Tier-3 reads the quote once
// per run; nothing here is streaming.
type Quote struct {
	Ticker            string    `json:"ticker"`
	Price             float64   `json:"price"`
	MarketCap         float64   `json:"market_cap"`
	SharesOutstanding float64   `json:"shares_outstanding"`
	PE                float64   `json:"pe"`
	Source            string    `json:"source"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// Fundamentals bundles everything the screening and valuation stages
// read for one ticker: profile, quote, and the trailing annual periods
// ordered newest first. All tiers of one run see the same bundle.
type Fundamentals struct {
	Ticker    string             `json:"ticker"`
	Profile   CompanyProfile     `json:"profile"`
	Quote     Quote              `json:"quote"`
	Periods   []FundamentalPeriod `json:"periods"`
	FetchedAt time.Time          `json:"fetched_at"`
	// Stale marks a bundle served past its freshness window after a
	// transient refresh failure. Downstream records inherit the flag.
	Stale bool `json:"stale,omitempty"`
}

// Latest returns the most recent period, or nil when none are loaded.
func (f *Fundamentals) Latest() *FundamentalPeriod {
	if len(f.Periods) == 0 {
		return nil
	}
	return &f.Periods[0]
}

// PeriodYears returns how many annual periods the bundle carries.
func (f *Fundamentals) PeriodYears() int {
	return len(f.Periods)
}

// HasHistory reports whether at least n annual periods are present.
func (f *Fundamentals) HasHistory(n int) bool {
	return len(f.Periods) >= n
}

// Lineage identifies the exact snapshot this bundle was read from, so
// downstream records can name their inputs.
func (f *Fundamentals) Lineage() Lineage {
	ends := make([]time.Time, 0, len(f.Periods))
	for _, p := range f.Periods {
		ends = append(ends, p.PeriodEnd)
	}
	return Lineage{
		Ticker:     f.Ticker,
		PeriodEnds: ends,
		FetchedAt:  f.FetchedAt,
		Stale:      f.Stale,
	}
}

// Lineage names the cached snapshot a derived record was computed from.
// Every screening, scoring, and valuation record carries one.
type Lineage struct {
	Ticker     string      `json:"ticker"`
	PeriodEnds []time.Time `json:"period_ends"`
	FetchedAt  time.Time   `json:"fetched_at"`
	Stale      bool        `json:"stale,omitempty"`
}
