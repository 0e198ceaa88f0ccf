package universe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/pkg/logger"
)

type fakeScreener struct {
	profiles []contracts.CompanyProfile
	err      error

	gotMinCap float64
	gotLimit  int
}

func (f *fakeScreener) Universe(ctx context.Context, minMarketCap float64, limit int) ([]contracts.CompanyProfile, error) {
	f.gotMinCap = minMarketCap
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles, nil
}

func testCriteria() criteria.UniverseCriteria {
	return criteria.Default().Universe
}

func TestBuilderBuild(t *testing.T) {
	screener := &fakeScreener{
		profiles: []contracts.CompanyProfile{
			{Ticker: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", Industry: "Software - Infrastructure", MarketCap: 3100e9},
			{Ticker: "SPY", Name: "SPDR S&P 500 ETF Trust", Sector: "Financial Services", Industry: "Asset Management", MarketCap: 500e9},
			{Ticker: "BRK.B", Name: "Berkshire Hathaway Inc.", Sector: "Financial Services", Industry: "Insurance - Diversified", MarketCap: 900e9},
			{Ticker: "JPM", Name: "JPMorgan Chase & Co.", Sector: "Financial Services", Industry: "Banks - Diversified", MarketCap: 600e9},
			{Ticker: "XOM", Name: "Exxon Mobil Corporation", Sector: "Energy", Industry: "Oil & Gas Integrated", MarketCap: 470e9},
			{Ticker: "MO", Name: "Altria Group, Inc.", Sector: "Consumer Defensive", Industry: "Tobacco", MarketCap: 95e9},
			{Ticker: "TINY", Name: "Tiny Software Inc.", Sector: "Technology", Industry: "Software - Application", MarketCap: 4e9},
			{Ticker: "MSFT", Name: "Microsoft Corporation", Sector: "Technology", Industry: "Software - Infrastructure", MarketCap: 3100e9},
		},
	}
	b := NewBuilder(screener, testCriteria(), logger.NewNop())

	u, err := b.Build(context.Background())
	require.NoError(t, err)

	// 스크리너 호출이 기준 문서의 값을 그대로 쓰는지
	assert.Equal(t, 10_000_000_000.0, screener.gotMinCap)
	assert.Equal(t, 10000, screener.gotLimit)

	// MSFT는 통과(중복은 한 번만), BRK.B는 화이트리스트로 산업 제외를 이긴다
	assert.Equal(t, []string{"MSFT", "BRK-B"}, u.Tickers)

	assert.Contains(t, u.Excluded["SPY"], "name token")
	assert.Contains(t, u.Excluded["JPM"], "excluded sector")
	assert.Contains(t, u.Excluded["XOM"], "excluded sector")
	assert.Contains(t, u.Excluded["MO"], "excluded industry")
	assert.Contains(t, u.Excluded["TINY"], "below floor")

	assert.Equal(t, "screener", u.Source)
	assert.Equal(t, 2, u.Size())
}

func TestBuilderBuildPropagatesProviderFailure(t *testing.T) {
	screener := &fakeScreener{err: errors.New("status 503 after retries")}
	b := NewBuilder(screener, testCriteria(), logger.NewNop())

	_, err := b.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screener pull")
}

func TestBuilderFromList(t *testing.T) {
	b := NewBuilder(nil, testCriteria(), logger.NewNop())

	// 명시적 목록은 섹터/산업 제외를 적용하지 않는다
	u := b.FromList([]string{"jpm", "BRK.B", "brkb", "not a ticker!", "XOM"})

	assert.Equal(t, []string{"JPM", "BRK-B", "XOM"}, u.Tickers)
	assert.Equal(t, "invalid symbol", u.Excluded["not a ticker!"])
	assert.Equal(t, "args", u.Source)
}

func TestBuilderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickers.txt")
	content := "# watchlist\naapl\nBRK.B\n\n  msft  \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	b := NewBuilder(nil, testCriteria(), logger.NewNop())
	u, err := b.FromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "BRK-B", "MSFT"}, u.Tickers)
	assert.Equal(t, "file", u.Source)

	_, err = b.FromFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
