package fmp

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/compounder/internal/contracts"
)

// Universe pulls the candidate screen: actively trading operating
// companies above the market-cap floor, with ETFs and funds excluded at
// the provider. Name- and industry-level exclusions are applied by the
// universe builder, not here.
func (c *Client) Universe(ctx context.Context, minMarketCap float64, limit int) ([]contracts.CompanyProfile, error) {
	params := url.Values{
		"marketCapMoreThan": {strconv.FormatFloat(minMarketCap, 'f', 0, 64)},
		"isEtf":             {"false"},
		"isFund":            {"false"},
		"isActivelyTrading": {"true"},
		"limit":             {strconv.Itoa(limit)},
	}

	var rows []screenerCompany
	if err := c.getJSON(ctx, "*", "screener", "company-screener", params, &rows); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	profiles := make([]contracts.CompanyProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, contracts.CompanyProfile{
			Ticker:    r.Symbol,
			Name:      r.Name,
			Sector:    r.Sector,
			Industry:  r.Industry,
			Exchange:  r.Exchange,
			MarketCap: r.MarketCap,
			Price:     r.Price,
			FetchedAt: now,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"count":   len(profiles),
		"min_cap": minMarketCap,
	}).Info("Screener universe fetched")

	return profiles, nil
}
