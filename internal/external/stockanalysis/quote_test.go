package stockanalysis

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/httputil"
	"github.com/wonny/compounder/pkg/logger"
)

const overviewHTML = `<!DOCTYPE html>
<html><body>
<div id="main">
  <h1>NVIDIA Corporation (NVDA)</h1>
  <div class="quote">
    <div class="text-4xl font-bold" data-test="quote-price">183.16</div>
    <div class="text-xl">+2.31 (1.28%)</div>
  </div>
  <table class="stats">
    <tr><td>Market Cap</td><td>4,467.15B</td></tr>
    <tr><td>Revenue (ttm)</td><td>165.22B</td></tr>
    <tr><td>Shares Out</td><td>24.39B</td></tr>
    <tr><td>PE Ratio</td><td>52.37</td></tr>
    <tr><td>Dividend</td><td>$0.04 (0.02%)</td></tr>
  </table>
</div>
</body></html>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpClient := httputil.New(logger.NewNop()).WithRetry(1, time.Millisecond)
	return NewClient(httpClient, logger.NewNop(), server.URL)
}

func approx(t *testing.T, name string, got, want, tol float64) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Errorf("%s = %v, want %v (±%v)", name, got, want, tol)
	}
}

func TestQuoteParsesOverviewPage(t *testing.T) {
	var gotPath, gotUA string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, overviewHTML)
	}))

	quote, err := client.Quote(context.Background(), "NVDA")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}

	if gotPath != "/stocks/nvda/" {
		t.Errorf("path = %q, want /stocks/nvda/", gotPath)
	}
	// 브라우저 모양의 요청이어야 함
	if gotUA == "" || gotUA == "Go-http-client/1.1" {
		t.Errorf("User-Agent = %q, want a browser UA", gotUA)
	}

	if quote.Ticker != "NVDA" {
		t.Errorf("Ticker = %q", quote.Ticker)
	}
	approx(t, "Price", quote.Price, 183.16, 1e-9)
	approx(t, "MarketCap", quote.MarketCap, 4467.15e9, 1e3)
	approx(t, "SharesOutstanding", quote.SharesOutstanding, 24.39e9, 1e3)
	approx(t, "PE", quote.PE, 52.37, 1e-9)
	if quote.Source != Source {
		t.Errorf("Source = %q, want %q", quote.Source, Source)
	}
	if quote.FetchedAt.IsZero() {
		t.Error("FetchedAt not stamped")
	}
}

// 통계 테이블이 안 읽혀도 가격만 있으면 주식수는 시총으로 복원한다.
func TestQuoteDerivesMissingFields(t *testing.T) {
	page := `<html><body>
	<div class="text-4xl">100.00</div>
	<table><tr><td>Market Cap</td><td>50.0B</td></tr></table>
	</body></html>`
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))

	quote, err := client.Quote(context.Background(), "comp")
	if err != nil {
		t.Fatalf("Quote failed: %v", err)
	}
	approx(t, "Price", quote.Price, 100, 1e-9)
	approx(t, "SharesOutstanding", quote.SharesOutstanding, 500e6, 1)
}

func TestQuoteClassifiesFailures(t *testing.T) {
	t.Run("page without a price is permanent", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `<html><body><p>layout changed</p></body></html>`)
		}))

		_, err := client.Quote(context.Background(), "NVDA")
		if !contracts.IsPermanent(err) {
			t.Errorf("expected permanent error, got %v", err)
		}
	})

	t.Run("unknown symbol is permanent", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))

		_, err := client.Quote(context.Background(), "NOPE")
		if !contracts.IsPermanent(err) {
			t.Errorf("expected permanent error, got %v", err)
		}
	})

	t.Run("server trouble is transient", func(t *testing.T) {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))

		_, err := client.Quote(context.Background(), "NVDA")
		if !contracts.IsTransient(err) {
			t.Errorf("expected transient error, got %v", err)
		}
	})
}

func TestParseScaled(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"4,467.15B", 4467.15e9},
		{"165.22M", 165.22e6},
		{"1.04T", 1.04e12},
		{"900K", 900e3},
		{"12345", 12345},
		{"n/a", 0},
		{"", 0},
	}
	for _, tc := range cases {
		approx(t, "parseScaled("+tc.in+")", parseScaled(tc.in), tc.want, 1e-3)
	}
}
