package acquire

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/pkg/logger"
	"github.com/wonny/compounder/pkg/redis"
)

// Config controls cache freshness and fetch depth.
type Config struct {
	FundamentalsTTL time.Duration // 이 기간 안의 스냅샷은 공급자를 건너뛴다
	QuoteTTL        time.Duration
	StatementYears  int
}

// Gateway is the single acquisition path every pipeline stage reads
// through: durable cache first, provider only for missing or expired
// tickers, every successful fetch written back before it is returned.
// The shared token bucket and the cross-process minute budget ride on
// the provider's HTTP client, so workers fan out freely here.
// ⭐ SSOT: 펀더멘털 획득 경로는 여기서만
type Gateway struct {
	provider contracts.FundamentalsProvider
	fallback contracts.QuoteProvider // nil이면 폴백 없음
	store    contracts.CacheStore
	quotes   *redis.Cache // nil이면 시세 캐시 없음
	cfg      Config
	logger   *logger.Logger
}

// NewGateway wires the acquisition path. fallback and quotes may be
// nil; the gateway degrades to provider-only quotes.
func NewGateway(
	provider contracts.FundamentalsProvider,
	fallback contracts.QuoteProvider,
	store contracts.CacheStore,
	quotes *redis.Cache,
	cfg Config,
	log *logger.Logger,
) *Gateway {
	return &Gateway{
		provider: provider,
		fallback: fallback,
		store:    store,
		quotes:   quotes,
		cfg:      cfg,
		logger:   log.Module("acquire"),
	}
}

// Fetch returns the fundamentals bundle for a ticker, reading the cache
// first. An expired bundle is refreshed; when the refresh fails
// transiently the expired snapshot is served with Stale set, because a
// flaky provider should not empty the pipeline. Permanent failures
// propagate so the ticker is excluded, never defaulted.
func (g *Gateway) Fetch(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, contracts.NewPermanentError(ticker, "normalize", err)
	}

	cached, err := g.store.GetFundamentals(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if cached != nil && time.Since(cached.FetchedAt) < g.cfg.FundamentalsTTL {
		g.logger.WithFields(map[string]interface{}{
			"ticker":  ticker,
			"periods": len(cached.Periods),
			"age":     time.Since(cached.FetchedAt).Round(time.Minute).String(),
		}).Debug("Cache hit")
		g.attachQuote(ctx, cached)
		return cached, nil
	}

	fresh, err := g.Refresh(ctx, ticker)
	if err != nil {
		if cached != nil && contracts.IsTransient(err) {
			// 일시 장애는 만료된 스냅샷이라도 표시해서 내보낸다
			cached.Stale = true
			g.logger.WithError(err).WithFields(map[string]interface{}{
				"ticker": ticker,
				"age":    time.Since(cached.FetchedAt).Round(time.Hour).String(),
			}).Warn("Serving stale fundamentals after transient fetch failure")
			g.attachQuote(ctx, cached)
			return cached, nil
		}
		return nil, err
	}

	g.attachQuote(ctx, fresh)
	return fresh, nil
}

// Refresh fetches a ticker from the provider unconditionally and writes
// it through the cache before returning. The scheduler's quarterly full
// refresh calls this directly to bypass the freshness window.
func (g *Gateway) Refresh(ctx context.Context, ticker string) (*contracts.Fundamentals, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, contracts.NewPermanentError(ticker, "normalize", err)
	}

	profile, err := g.provider.Profile(ctx, ticker)
	if err != nil {
		return nil, err
	}
	periods, err := g.provider.Statements(ctx, ticker, g.cfg.StatementYears)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, contracts.NewPermanentError(ticker, "statements",
			errors.New("no annual periods reported"))
	}

	f := &contracts.Fundamentals{
		Ticker:    ticker,
		Profile:   *profile,
		Periods:   periods,
		FetchedAt: time.Now().UTC(),
	}

	// 반환 전에 먼저 기록한다. 기록 실패는 곧 결과 계보의 유실이라
	// 성공으로 치지 않는다.
	if err := g.store.SaveFundamentals(ctx, f); err != nil {
		return nil, err
	}

	g.logger.WithFields(map[string]interface{}{
		"ticker":  ticker,
		"periods": len(periods),
	}).Debug("Fetched fundamentals")
	return f, nil
}

// FetchQuote returns a price snapshot: redis cache, then the primary
// provider, then the scraping fallback. Whichever source answers is
// cached for QuoteTTL.
func (g *Gateway) FetchQuote(ctx context.Context, ticker string) (*contracts.Quote, error) {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, contracts.NewPermanentError(ticker, "normalize", err)
	}

	if g.quotes != nil {
		var q contracts.Quote
		found, err := g.quotes.Get(ctx, redis.QuoteKey(ticker), &q)
		if err == nil && found {
			return &q, nil
		}
	}

	q, err := g.provider.Quote(ctx, ticker)
	if err != nil && g.fallback != nil {
		g.logger.WithError(err).WithField("ticker", ticker).
			Debug("Primary quote failed, trying fallback")
		fq, ferr := g.fallback.Quote(ctx, ticker)
		if ferr != nil {
			// 1차 공급자의 오류 분류가 더 의미 있으니 그걸 돌려준다
			return nil, err
		}
		q, err = fq, nil
	}
	if err != nil {
		return nil, err
	}

	if g.quotes != nil {
		// A failed Set is not fatal; the quote is still returned
		_ = g.quotes.Set(ctx, redis.QuoteKey(ticker), q, g.cfg.QuoteTTL)
	}
	return q, nil
}

// attachQuote overlays a fresh price snapshot on the bundle. Quotes are
// never part of the durable bundle; a failed quote leaves the zero
// value and downstream market math falls back to the profile snapshot.
func (g *Gateway) attachQuote(ctx context.Context, f *contracts.Fundamentals) {
	q, err := g.FetchQuote(ctx, f.Ticker)
	if err != nil {
		g.logger.WithError(err).WithField("ticker", f.Ticker).
			Warn("Quote unavailable, falling back to profile snapshot")
		return
	}
	f.Quote = *q
}

// Invalidate drops a ticker from the durable cache and the quote cache.
func (g *Gateway) Invalidate(ctx context.Context, ticker string) error {
	ticker, err := NormalizeTicker(ticker)
	if err != nil {
		return err
	}
	if g.quotes != nil {
		_ = g.quotes.Delete(ctx, redis.QuoteKey(ticker))
	}
	return g.store.Invalidate(ctx, ticker)
}
