package universe

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wonny/compounder/internal/acquire"
	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/pkg/logger"
)

// Universe is the resolved candidate list for one run.
type Universe struct {
	Tickers  []string          `json:"tickers"`
	Excluded map[string]string `json:"excluded"` // ticker → reason
	Source   string            `json:"source"`   // screener | file | args
	BuiltAt  time.Time         `json:"built_at"`
}

// Size returns how many tickers survived the pull.
func (u *Universe) Size() int {
	return len(u.Tickers)
}

// Builder constructs the investable universe: screener pull, name-token
// and industry exclusions, whitelist, normalization, dedupe. Explicit
// lists (file, CLI args) skip the exclusions: whoever typed the ticker
// wants it screened.
// ⭐ SSOT: 유니버스 생성은 여기서만
type Builder struct {
	provider contracts.UniverseProvider
	crit     criteria.UniverseCriteria
	logger   *logger.Logger
}

// NewBuilder creates a new universe Builder.
func NewBuilder(provider contracts.UniverseProvider, crit criteria.UniverseCriteria, log *logger.Logger) *Builder {
	return &Builder{
		provider: provider,
		crit:     crit,
		logger:   log.Module("universe"),
	}
}

// Build pulls the provider screen and applies the exclusion rules.
func (b *Builder) Build(ctx context.Context) (*Universe, error) {
	profiles, err := b.provider.Universe(ctx, b.crit.MinMarketCap, b.crit.ScreenerLimit)
	if err != nil {
		return nil, fmt.Errorf("screener pull: %w", err)
	}

	whitelist := make(map[string]bool, len(b.crit.Whitelist))
	for _, w := range b.crit.Whitelist {
		if t, err := acquire.NormalizeTicker(w); err == nil {
			whitelist[t] = true
		}
	}

	u := &Universe{
		Excluded: make(map[string]string),
		Source:   "screener",
		BuiltAt:  time.Now().UTC(),
	}
	seen := make(map[string]bool, len(profiles))

	// 스크리너 정렬(대형주 우선)을 유지한다
	for _, p := range profiles {
		ticker, err := acquire.NormalizeTicker(p.Ticker)
		if err != nil {
			u.Excluded[p.Ticker] = "invalid symbol"
			continue
		}
		if seen[ticker] {
			continue
		}
		seen[ticker] = true

		if reason := b.checkExclusion(ticker, p, whitelist); reason != "" {
			u.Excluded[ticker] = reason
			continue
		}
		u.Tickers = append(u.Tickers, ticker)
	}

	b.logger.WithFields(map[string]interface{}{
		"pulled":   len(profiles),
		"kept":     len(u.Tickers),
		"excluded": len(u.Excluded),
	}).Info("Universe built")

	return u, nil
}

// checkExclusion returns the exclusion reason, or "" to keep the
// ticker.
func (b *Builder) checkExclusion(ticker string, p contracts.CompanyProfile, whitelist map[string]bool) string {
	// 1. 이름 토큰: ETF/펀드류는 화이트리스트와 무관하게 거른다
	name := strings.ToUpper(p.Name)
	for _, tok := range b.crit.ExcludedNameTokens {
		if strings.Contains(name, tok) {
			return fmt.Sprintf("name token (%s)", tok)
		}
	}

	// 2. 시가총액 하한: 스크리너가 걸렀어야 하지만 응답을 믿지 않는다
	if p.MarketCap < b.crit.MinMarketCap {
		return fmt.Sprintf("market cap $%.1fB below floor", p.MarketCap/1e9)
	}

	// 3. 섹터/산업 제외: 화이트리스트 종목은 여기를 건너뛴다
	if whitelist[ticker] {
		return ""
	}
	for _, s := range b.crit.ExcludedSectors {
		if p.Sector == s {
			return fmt.Sprintf("excluded sector (%s)", s)
		}
	}
	for _, ind := range b.crit.ExcludedIndustries {
		if p.Industry == ind {
			return fmt.Sprintf("excluded industry (%s)", ind)
		}
	}

	return ""
}

// FromList builds a universe from an explicit ticker list. Invalid
// entries are recorded, not silently dropped.
func (b *Builder) FromList(raw []string) *Universe {
	u := &Universe{
		Excluded: make(map[string]string),
		Source:   "args",
		BuiltAt:  time.Now().UTC(),
	}
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		ticker, err := acquire.NormalizeTicker(r)
		if err != nil {
			u.Excluded[strings.TrimSpace(r)] = "invalid symbol"
			continue
		}
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		u.Tickers = append(u.Tickers, ticker)
	}
	return u
}

// FromFile builds a universe from a ticker-per-line file. Blank lines
// and #-comments are skipped.
func (b *Builder) FromFile(path string) (*Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticker file: %w", err)
	}
	defer f.Close()

	var raw []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ticker file: %w", err)
	}

	u := b.FromList(raw)
	u.Source = "file"

	b.logger.WithFields(map[string]interface{}{
		"path": path,
		"kept": len(u.Tickers),
	}).Info("Universe loaded from file")

	return u, nil
}
