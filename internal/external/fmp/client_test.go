package fmp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/httputil"
	"github.com/wonny/compounder/pkg/logger"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := httputil.New(logger.NewNop()).WithRetry(1, time.Millisecond)
	return NewClient(httpClient, logger.NewNop(), "test-key", server.URL), server
}

func TestStatementsMergesPeriods(t *testing.T) {
	var gotAPIKey, gotPeriod, gotLimit string

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAPIKey = r.URL.Query().Get("apikey")
		gotPeriod = r.URL.Query().Get("period")
		gotLimit = r.URL.Query().Get("limit")

		switch r.URL.Path {
		case "/income-statement":
			fmt.Fprint(w, `[
				{"date":"2025-06-30","reportedCurrency":"USD","revenue":245000000000,"grossProfit":171000000000,"operatingIncome":109000000000,"ebitda":136000000000,"netIncome":88000000000,"incomeBeforeTax":107000000000,"incomeTaxExpense":19000000000,"interestExpense":2900000000,"eps":11.86,"epsDiluted":11.80,"weightedAverageShsOut":7433000000,"weightedAverageShsOutDil":7447000000},
				{"date":"2024-06-30","reportedCurrency":"USD","revenue":211000000000,"grossProfit":146000000000,"operatingIncome":88000000000,"ebitda":105000000000,"netIncome":72000000000,"incomeBeforeTax":89000000000,"incomeTaxExpense":17000000000,"interestExpense":1900000000,"eps":9.72,"epsDiluted":9.68,"weightedAverageShsOut":7431000000,"weightedAverageShsOutDil":7446000000}
			]`)
		case "/balance-sheet-statement":
			fmt.Fprint(w, `[
				{"date":"2025-06-30","totalStockholdersEquity":268000000000,"totalDebt":67000000000,"cashAndCashEquivalents":18000000000,"shortTermInvestments":57000000000,"goodwill":119000000000,"totalAssets":512000000000,"totalCurrentLiabilities":125000000000},
				{"date":"2024-06-30","totalStockholdersEquity":238000000000,"totalDebt":67000000000,"cashAndCashEquivalents":18000000000,"shortTermInvestments":57000000000,"goodwill":119000000000,"totalAssets":484000000000,"totalCurrentLiabilities":118000000000}
			]`)
		case "/cash-flow-statement":
			fmt.Fprint(w, `[
				{"date":"2025-06-30","operatingCashFlow":118000000000,"capitalExpenditure":-44000000000,"freeCashFlow":74000000000,"depreciationAndAmortization":22000000000,"stockBasedCompensation":10700000000,"dividendsPaid":-22000000000,"commonStockRepurchased":-17000000000,"acquisitionsNet":-69000000000},
				{"date":"2024-06-30","operatingCashFlow":87000000000,"capitalExpenditure":-28000000000,"freeCashFlow":59000000000,"depreciationAndAmortization":14000000000,"stockBasedCompensation":9600000000,"dividendsPaid":-20000000000,"commonStockRepurchased":-16000000000,"acquisitionsNet":-1600000000}
			]`)
		default:
			http.NotFound(w, r)
		}
	})

	client, _ := newTestClient(t, handler)

	periods, err := client.Statements(context.Background(), "MSFT", 5)
	if err != nil {
		t.Fatalf("Statements failed: %v", err)
	}

	if gotAPIKey != "test-key" {
		t.Errorf("expected apikey test-key, got %q", gotAPIKey)
	}
	if gotPeriod != "annual" {
		t.Errorf("expected period=annual, got %q", gotPeriod)
	}
	if gotLimit != "5" {
		t.Errorf("expected limit=5, got %q", gotLimit)
	}

	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}

	latest := periods[0]
	if latest.FiscalYear != 2025 {
		t.Errorf("expected newest-first ordering, got fiscal year %d first", latest.FiscalYear)
	}
	if latest.Revenue != 245000000000 {
		t.Errorf("revenue = %.0f, want 245000000000", latest.Revenue)
	}
	if latest.ShareholdersEquity != 268000000000 {
		t.Errorf("expected balance sheet merged by date, equity = %.0f", latest.ShareholdersEquity)
	}
	// 유출 항목은 절대값으로 정규화
	if latest.CapEx != 44000000000 {
		t.Errorf("expected capex stored positive, got %.0f", latest.CapEx)
	}
	if latest.DividendsPaid != 22000000000 {
		t.Errorf("expected dividends stored positive, got %.0f", latest.DividendsPaid)
	}
	if latest.EPSDiluted != 11.80 {
		t.Errorf("eps diluted = %.2f, want 11.80", latest.EPSDiluted)
	}
	if latest.DilutedShares != 7447000000 {
		t.Errorf("diluted shares = %.0f, want 7447000000", latest.DilutedShares)
	}
}

func TestMergeStatementsFallbacks(t *testing.T) {
	income := []incomeStatement{
		{
			Date: "2025-12-31", Revenue: 1000, NetIncome: 200,
			EPS: 2.5, SharesBasic: 80, // diluted fields absent
		},
	}
	cashflow := []cashFlowStatement{
		{Date: "2025-12-31", OperatingCashFlow: 300, CapEx: -50}, // freeCashFlow absent
	}

	periods, err := mergeStatements("TEST", income, nil, cashflow)
	if err != nil {
		t.Fatalf("mergeStatements failed: %v", err)
	}
	if len(periods) != 1 {
		t.Fatalf("expected 1 period, got %d", len(periods))
	}

	p := periods[0]
	if p.EPSDiluted != 2.5 {
		t.Errorf("expected basic EPS fallback, got %.2f", p.EPSDiluted)
	}
	if p.DilutedShares != 80 {
		t.Errorf("expected basic share count fallback, got %.0f", p.DilutedShares)
	}
	if p.FreeCashFlow != 250 {
		t.Errorf("expected FCF = OCF - capex = 250, got %.0f", p.FreeCashFlow)
	}
	// 대차대조표 누락 연도는 0으로 남는다 (다운스트림에서 데이터 부족 처리)
	if p.ShareholdersEquity != 0 {
		t.Errorf("expected zero equity without balance sheet, got %.0f", p.ShareholdersEquity)
	}
}

func TestMergeStatementsBadDate(t *testing.T) {
	income := []incomeStatement{{Date: "not-a-date", Revenue: 1}}

	_, err := mergeStatements("TEST", income, nil, nil)
	if err == nil {
		t.Fatal("expected error for malformed period end")
	}
	if !contracts.IsPermanent(err) {
		t.Errorf("expected permanent classification, got %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
	}{
		{"auth rejected", http.StatusUnauthorized, `{"error":"invalid key"}`, false},
		{"forbidden", http.StatusForbidden, ``, false},
		{"unknown symbol", http.StatusNotFound, ``, false},
		{"rate limited", http.StatusTooManyRequests, ``, true},
		{"server error", http.StatusInternalServerError, ``, true},
		{"malformed payload", http.StatusOK, `{not json`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))

			_, err := client.Profile(context.Background(), "AAPL")
			if err == nil {
				t.Fatal("expected error")
			}
			if contracts.IsTransient(err) != tc.wantTransient {
				t.Errorf("IsTransient = %v, want %v (err: %v)", contracts.IsTransient(err), tc.wantTransient, err)
			}
			if contracts.IsPermanent(err) == tc.wantTransient {
				t.Errorf("IsPermanent = %v, want %v", contracts.IsPermanent(err), !tc.wantTransient)
			}
		})
	}
}

func TestProfile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profile" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[{"symbol":"AAPL","companyName":"Apple Inc.","sector":"Technology","industry":"Consumer Electronics","exchangeShortName":"NASDAQ","currency":"USD","marketCap":3400000000000,"price":226.5,"beta":1.24}]`)
	}))

	profile, err := client.Profile(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Profile failed: %v", err)
	}
	if profile.Name != "Apple Inc." {
		t.Errorf("name = %q, want Apple Inc.", profile.Name)
	}
	if profile.Beta != 1.24 {
		t.Errorf("beta = %.2f, want 1.24", profile.Beta)
	}
	if profile.FetchedAt.IsZero() {
		t.Error("expected FetchedAt stamp")
	}
}

func TestProfileEmptyIsPermanent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))

	_, err := client.Profile(context.Background(), "ZZZCORP")
	if err == nil {
		t.Fatal("expected error for empty profile")
	}
	if !contracts.IsPermanent(err) {
		t.Errorf("expected permanent classification, got %v", err)
	}
}

func TestQuote(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"AAPL","price":226.5,"marketCap":3400000000000,"sharesOutstanding":15100000000,"pe":34.6}]`)
	}))

	quote, err := client.Quote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	if quote.Price != 226.5 {
		t.Errorf("price = %.2f, want 226.5", quote.Price)
	}
	if quote.Source != "fmp" {
		t.Errorf("source = %q, want fmp", quote.Source)
	}
}

func TestQuoteZeroPriceIsPermanent(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"HALT","price":0}]`)
	}))

	_, err := client.Quote(context.Background(), "HALT")
	if err == nil {
		t.Fatal("expected error for zero price")
	}
	if !contracts.IsPermanent(err) {
		t.Errorf("expected permanent classification, got %v", err)
	}
}

func TestUniverse(t *testing.T) {
	var gotQuery map[string]string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/company-screener" {
			http.NotFound(w, r)
			return
		}
		gotQuery = map[string]string{
			"marketCapMoreThan": r.URL.Query().Get("marketCapMoreThan"),
			"isEtf":             r.URL.Query().Get("isEtf"),
			"isFund":            r.URL.Query().Get("isFund"),
			"isActivelyTrading": r.URL.Query().Get("isActivelyTrading"),
			"limit":             r.URL.Query().Get("limit"),
		}
		fmt.Fprint(w, `[
			{"symbol":"AAPL","companyName":"Apple Inc.","sector":"Technology","industry":"Consumer Electronics","exchangeShortName":"NASDAQ","marketCap":3400000000000,"price":226.5},
			{"symbol":"V","companyName":"Visa Inc.","sector":"Financial Services","industry":"Credit Services","exchangeShortName":"NYSE","marketCap":560000000000,"price":280.1}
		]`)
	}))

	profiles, err := client.Universe(context.Background(), 10_000_000_000, 10000)
	if err != nil {
		t.Fatalf("Universe failed: %v", err)
	}

	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}
	if profiles[1].Ticker != "V" {
		t.Errorf("ticker = %q, want V", profiles[1].Ticker)
	}

	want := map[string]string{
		"marketCapMoreThan": "10000000000",
		"isEtf":             "false",
		"isFund":            "false",
		"isActivelyTrading": "true",
		"limit":             "10000",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}
