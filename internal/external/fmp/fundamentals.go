package fmp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/wonny/compounder/internal/contracts"
)

// Statements fetches up to years trailing annual periods, newest first.
// The three statement endpoints are merged by period-end date; income is
// authoritative for which periods exist.
// ⭐ SSOT: 재무제표 수집은 이 함수에서만
func (c *Client) Statements(ctx context.Context, ticker string, years int) ([]contracts.FundamentalPeriod, error) {
	params := func() url.Values {
		return url.Values{
			"symbol": {ticker},
			"period": {"annual"},
			"limit":  {strconv.Itoa(years)},
		}
	}

	var income []incomeStatement
	if err := c.getJSON(ctx, ticker, "statements", "income-statement", params(), &income); err != nil {
		return nil, err
	}
	if len(income) == 0 {
		return nil, contracts.NewPermanentError(ticker, "statements", errors.New("no annual statements"))
	}

	var balance []balanceSheet
	if err := c.getJSON(ctx, ticker, "statements", "balance-sheet-statement", params(), &balance); err != nil {
		return nil, err
	}

	var cashflow []cashFlowStatement
	if err := c.getJSON(ctx, ticker, "statements", "cash-flow-statement", params(), &cashflow); err != nil {
		return nil, err
	}

	return mergeStatements(ticker, income, balance, cashflow)
}

func mergeStatements(ticker string, income []incomeStatement, balance []balanceSheet, cashflow []cashFlowStatement) ([]contracts.FundamentalPeriod, error) {
	balByDate := make(map[string]balanceSheet, len(balance))
	for _, b := range balance {
		balByDate[b.Date] = b
	}
	cfByDate := make(map[string]cashFlowStatement, len(cashflow))
	for _, cf := range cashflow {
		cfByDate[cf.Date] = cf
	}

	periods := make([]contracts.FundamentalPeriod, 0, len(income))
	for _, inc := range income {
		end, err := time.Parse("2006-01-02", inc.Date)
		if err != nil {
			return nil, contracts.NewPermanentError(ticker, "statements", fmt.Errorf("bad period end %q: %w", inc.Date, err))
		}

		p := contracts.FundamentalPeriod{
			Ticker:            ticker,
			PeriodEnd:         end,
			FiscalYear:        end.Year(),
			Currency:          inc.ReportedCurrency,
			Revenue:           inc.Revenue,
			GrossProfit:       inc.GrossProfit,
			OperatingIncome:   inc.OperatingIncome,
			EBITDA:            inc.EBITDA,
			NetIncome:         inc.NetIncome,
			InterestExpense:   math.Abs(inc.InterestExpense),
			IncomeBeforeTax:   inc.IncomeBeforeTax,
			IncomeTaxExpense:  inc.IncomeTaxExpense,
			DepreciationAmort: inc.DepreciationAmort,
			EPSDiluted:        inc.EPSDiluted,
			DilutedShares:     inc.SharesDiluted,
		}
		if p.EPSDiluted == 0 {
			p.EPSDiluted = inc.EPS
		}
		if p.DilutedShares == 0 {
			p.DilutedShares = inc.SharesBasic
		}

		if bal, ok := balByDate[inc.Date]; ok {
			p.ShareholdersEquity = bal.ShareholdersEquity
			p.TotalDebt = bal.TotalDebt
			p.CashAndEquivalents = bal.CashAndEquivalents
			p.ShortTermInvestments = bal.ShortTermInvestments
			p.Goodwill = bal.Goodwill
			p.TotalAssets = bal.TotalAssets
			p.TotalCurrentLiab = bal.TotalCurrentLiab
		}

		if cf, ok := cfByDate[inc.Date]; ok {
			p.OperatingCashFlow = cf.OperatingCashFlow
			p.CapEx = math.Abs(cf.CapEx)
			p.FreeCashFlow = cf.FreeCashFlow
			if p.FreeCashFlow == 0 && p.OperatingCashFlow != 0 {
				p.FreeCashFlow = p.OperatingCashFlow - p.CapEx
			}
			if cf.DepreciationAmort != 0 {
				p.DepreciationAmort = cf.DepreciationAmort
			}
			// Outflow magnitudes stored positive.
			p.StockComp = math.Abs(cf.StockComp)
			p.DividendsPaid = math.Abs(cf.DividendsPaid)
			p.BuybacksNet = math.Abs(cf.BuybacksNet)
			p.AcquisitionsNet = math.Abs(cf.AcquisitionsNet)
		}

		periods = append(periods, p)
	}

	sort.Slice(periods, func(i, j int) bool {
		return periods[i].PeriodEnd.After(periods[j].PeriodEnd)
	})
	return periods, nil
}
