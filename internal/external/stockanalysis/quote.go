package stockanalysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/httputil"
	"github.com/wonny/compounder/pkg/logger"
)

const defaultBaseURL = "https://stockanalysis.com"

// Source is the quote source label stamped on scraped quotes.
const Source = "stockanalysis"

// 정적 페이지라도 봇 차단을 피하려면 브라우저 모양의 요청이 필요하다
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Client scrapes stockanalysis.com overview pages as the fallback quote
// source when the primary provider fails or runs out of budget. Parsing
// is best effort on purpose: a page layout we cannot read is a permanent
// failure for that ticker, never a guessed number.
// Implements contracts.QuoteProvider.
// ⭐ SSOT: stockanalysis.com 스크레이핑은 여기서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a stockanalysis scraper. baseURL is overridable for
// tests; empty means the production site.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("stockanalysis"),
		baseURL:    baseURL,
	}
}

// Quote fetches and parses the overview page for one ticker.
func (c *Client) Quote(ctx context.Context, ticker string) (*contracts.Quote, error) {
	pageURL := fmt.Sprintf("%s/stocks/%s/", c.baseURL, strings.ToLower(ticker))

	headers := map[string]string{
		"User-Agent":      userAgents[rand.IntN(len(userAgents))],
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         c.baseURL + "/",
	}

	resp, err := c.httpClient.GetWith(ctx, pageURL, headers)
	if err != nil {
		return nil, contracts.NewTransientError(ticker, "quote", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to parse
	case resp.StatusCode == http.StatusNotFound:
		return nil, contracts.NewPermanentError(ticker, "quote", errors.New("unknown symbol"))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, contracts.NewTransientError(ticker, "quote", fmt.Errorf("status %d after retries", resp.StatusCode))
	default:
		return nil, contracts.NewPermanentError(ticker, "quote", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	quote, err := c.parseOverview(resp.Body, ticker)
	if err != nil {
		return nil, contracts.NewPermanentError(ticker, "quote", err)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": quote.Ticker,
		"price":  quote.Price,
		"source": Source,
	}).Debug("Scraped fallback quote")
	return quote, nil
}

var priceRe = regexp.MustCompile(`^\$?\d[\d,]*(\.\d+)?$`)

// parseOverview pulls the price from the quote header and the rest from
// the label/value pairs of the statistics table.
func (c *Client) parseOverview(body io.Reader, ticker string) (*contracts.Quote, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("unreadable page: %w", err)
	}

	quote := &contracts.Quote{
		Ticker:    strings.ToUpper(ticker),
		Source:    Source,
		FetchedAt: time.Now(),
	}

	// 가격은 데이터 속성이 있으면 그걸, 없으면 헤더의 큰 숫자를 쓴다
	priceText := strings.TrimSpace(doc.Find(`[data-test="quote-price"]`).First().Text())
	if priceText == "" {
		doc.Find("div.text-4xl").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if priceRe.MatchString(text) {
				priceText = text
				return false
			}
			return true
		})
	}
	quote.Price = parseNumber(priceText)
	if quote.Price <= 0 {
		return nil, errors.New("price not found in page")
	}

	doc.Find("table td").Each(func(i int, cell *goquery.Selection) {
		label := strings.TrimSpace(cell.Text())
		value := strings.TrimSpace(cell.Next().Text())
		if value == "" {
			return
		}
		switch label {
		case "Market Cap":
			quote.MarketCap = parseScaled(value)
		case "Shares Out", "Shares Outstanding":
			quote.SharesOutstanding = parseScaled(value)
		case "PE Ratio":
			quote.PE = parseNumber(value)
		}
	})

	// 둘 중 하나만 읽혀도 나머지는 가격으로 복원한다
	if quote.SharesOutstanding <= 0 && quote.MarketCap > 0 {
		quote.SharesOutstanding = quote.MarketCap / quote.Price
	}
	if quote.MarketCap <= 0 && quote.SharesOutstanding > 0 {
		quote.MarketCap = quote.Price * quote.SharesOutstanding
	}

	return quote, nil
}

// parseNumber reads a plain decimal, tolerating $ signs and commas.
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return 0
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseScaled reads site-style abbreviated figures: "3,456.78B" → 3.45678e12.
func parseScaled(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	mult := 1.0
	switch s[len(s)-1] {
	case 'T':
		mult = 1e12
		s = s[:len(s)-1]
	case 'B':
		mult = 1e9
		s = s[:len(s)-1]
	case 'M':
		mult = 1e6
		s = s[:len(s)-1]
	case 'K':
		mult = 1e3
		s = s[:len(s)-1]
	}
	return parseNumber(s) * mult
}
