package fmp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/httputil"
	"github.com/wonny/compounder/pkg/logger"
)

const defaultBaseURL = "https://financialmodelingprep.com/stable"

// Client handles communication with the Financial Modeling Prep API.
// Implements contracts.FundamentalsProvider and contracts.UniverseProvider.
// ⭐ SSOT: FMP API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewClient creates a new FMP client. baseURL is overridable for tests;
// empty means the production endpoint. The API key is never logged.
func NewClient(httpClient *httputil.Client, log *logger.Logger, apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("fmp"),
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

// getJSON fetches one endpoint and decodes the body into out. Failures
// come back classified: auth, unknown symbol and malformed payloads are
// permanent; exhausted retries on 429/5xx and network faults are
// transient.
func (c *Client) getJSON(ctx context.Context, ticker, op, endpoint string, params url.Values, out any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)
	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		// The retrying client already exhausted its attempts.
		return contracts.NewTransientError(ticker, op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return contracts.NewPermanentError(ticker, op, fmt.Errorf("authentication rejected (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return contracts.NewPermanentError(ticker, op, errors.New("unknown symbol"))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, resp.Body)
		return contracts.NewTransientError(ticker, op, fmt.Errorf("status %d after retries", resp.StatusCode))
	default:
		return contracts.NewPermanentError(ticker, op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return contracts.NewPermanentError(ticker, op, fmt.Errorf("malformed payload: %w", err))
	}
	return nil
}
