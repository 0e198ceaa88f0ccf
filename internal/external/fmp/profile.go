package fmp

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/wonny/compounder/internal/contracts"
)

// Profile fetches the company identity record.
func (c *Client) Profile(ctx context.Context, ticker string) (*contracts.CompanyProfile, error) {
	var payload []profilePayload
	if err := c.getJSON(ctx, ticker, "profile", "profile", url.Values{"symbol": {ticker}}, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, contracts.NewPermanentError(ticker, "profile", errors.New("empty profile"))
	}

	p := payload[0]
	return &contracts.CompanyProfile{
		Ticker:    ticker,
		Name:      p.Name,
		Sector:    p.Sector,
		Industry:  p.Industry,
		Exchange:  p.Exchange,
		Currency:  p.Currency,
		MarketCap: p.MarketCap,
		Price:     p.Price,
		Beta:      p.Beta,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Quote fetches the current price snapshot.
func (c *Client) Quote(ctx context.Context, ticker string) (*contracts.Quote, error) {
	var payload []quotePayload
	if err := c.getJSON(ctx, ticker, "quote", "quote", url.Values{"symbol": {ticker}}, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 || payload[0].Price <= 0 {
		return nil, contracts.NewPermanentError(ticker, "quote", errors.New("no quote"))
	}

	q := payload[0]
	return &contracts.Quote{
		Ticker:            ticker,
		Price:             q.Price,
		MarketCap:         q.MarketCap,
		SharesOutstanding: q.SharesOutstanding,
		PE:                q.PE,
		Source:            "fmp",
		FetchedAt:         time.Now().UTC(),
	}, nil
}
