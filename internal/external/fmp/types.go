package fmp

// Wire payloads for the FMP stable API. Statement values arrive in the
// reported currency with outflows negative; normalization into
// contracts types flips outflow magnitudes positive.

type incomeStatement struct {
	Date              string  `json:"date"`
	ReportedCurrency  string  `json:"reportedCurrency"`
	Revenue           float64 `json:"revenue"`
	GrossProfit       float64 `json:"grossProfit"`
	OperatingIncome   float64 `json:"operatingIncome"`
	EBITDA            float64 `json:"ebitda"`
	NetIncome         float64 `json:"netIncome"`
	InterestExpense   float64 `json:"interestExpense"`
	IncomeBeforeTax   float64 `json:"incomeBeforeTax"`
	IncomeTaxExpense  float64 `json:"incomeTaxExpense"`
	DepreciationAmort float64 `json:"depreciationAndAmortization"`
	EPS               float64 `json:"eps"`
	EPSDiluted        float64 `json:"epsDiluted"`
	SharesBasic       float64 `json:"weightedAverageShsOut"`
	SharesDiluted     float64 `json:"weightedAverageShsOutDil"`
}

type balanceSheet struct {
	Date                 string  `json:"date"`
	ShareholdersEquity   float64 `json:"totalStockholdersEquity"`
	TotalDebt            float64 `json:"totalDebt"`
	CashAndEquivalents   float64 `json:"cashAndCashEquivalents"`
	ShortTermInvestments float64 `json:"shortTermInvestments"`
	Goodwill             float64 `json:"goodwill"`
	TotalAssets          float64 `json:"totalAssets"`
	TotalCurrentLiab     float64 `json:"totalCurrentLiabilities"`
}

type cashFlowStatement struct {
	Date              string  `json:"date"`
	OperatingCashFlow float64 `json:"operatingCashFlow"`
	CapEx             float64 `json:"capitalExpenditure"`
	FreeCashFlow      float64 `json:"freeCashFlow"`
	DepreciationAmort float64 `json:"depreciationAndAmortization"`
	StockComp         float64 `json:"stockBasedCompensation"`
	DividendsPaid     float64 `json:"dividendsPaid"`
	BuybacksNet       float64 `json:"commonStockRepurchased"`
	AcquisitionsNet   float64 `json:"acquisitionsNet"`
}

type profilePayload struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"companyName"`
	Sector    string  `json:"sector"`
	Industry  string  `json:"industry"`
	Exchange  string  `json:"exchangeShortName"`
	Currency  string  `json:"currency"`
	MarketCap float64 `json:"marketCap"`
	Price     float64 `json:"price"`
	Beta      float64 `json:"beta"`
}

type quotePayload struct {
	Symbol            string  `json:"symbol"`
	Price             float64 `json:"price"`
	MarketCap         float64 `json:"marketCap"`
	SharesOutstanding float64 `json:"sharesOutstanding"`
	PE                float64 `json:"pe"`
}

type screenerCompany struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"companyName"`
	Sector    string  `json:"sector"`
	Industry  string  `json:"industry"`
	Exchange  string  `json:"exchangeShortName"`
	MarketCap float64 `json:"marketCap"`
	Price     float64 `json:"price"`
}
