package screen

import (
	"fmt"
	"time"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
	"github.com/wonny/compounder/pkg/logger"
)

// Tier-2 component names.
const (
	ComponentROIIC         = "incremental_roic"
	ComponentRunway        = "reinvestment_runway"
	ComponentRevenueGrowth = "revenue_growth"
	ComponentFCFConversion = "fcf_conversion"
	ComponentMarginTrend   = "gross_margin_trend"
	ComponentCapex         = "capex_efficiency"
)

// Scorer implements the Tier-2 quality score: six monotone step
// components summing to at most 100. It runs on Tier-1 survivors only;
// the full score is always exposed, advancement is a separate cutoff.
// ⭐ SSOT: Tier-2 품질 점수 산정은 여기서만
type Scorer struct {
	doc    *criteria.Document
	logger *logger.Logger
}

// NewScorer creates a Tier-2 scorer.
func NewScorer(doc *criteria.Document, log *logger.Logger) *Scorer {
	return &Scorer{
		doc:    doc,
		logger: log.Module("tier2"),
	}
}

// Score grades one Tier-1 survivor. Screening is the Tier-1 result the
// caller gated on; scoring a non-survivor is allowed (the full score is
// informative either way) but logged, since tiers are defined on
// survivors.
func (s *Scorer) Score(f *contracts.Fundamentals, d *metrics.Derived, screening *contracts.ScreeningResult) *contracts.QualityScore {
	q := s.doc.Quality

	if screening != nil && !screening.Passed {
		s.logger.WithField("ticker", f.Ticker).Warn("scoring a ticker that failed the hard filter")
	}

	score := &contracts.QualityScore{
		Ticker:    f.Ticker,
		Lineage:   f.Lineage(),
		CreatedAt: time.Now(),
	}

	score.Components = append(score.Components,
		s.scoreROIIC(d),
		s.scoreRunway(d),
		s.scoreRevenueGrowth(d),
		s.scoreFCFConversion(d),
		s.scoreMarginTrend(d),
		s.scoreCapex(d),
	)

	var total float64
	for _, c := range score.Components {
		total += c.Points
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	score.Score = total
	score.Tier = q.TierFor(total)
	score.Advances = total >= q.AdvanceMin

	s.logger.WithFields(map[string]interface{}{
		"ticker":   f.Ticker,
		"score":    score.Score,
		"tier":     score.Tier,
		"advances": score.Advances,
	}).Debug("Tier-2 score assigned")

	return score
}

// walkSteps awards the first step the value clears; tables are ordered
// best-first.
func walkSteps(steps []criteria.Step, value float64) float64 {
	for _, st := range steps {
		if value >= st.Above {
			return st.Points
		}
	}
	return 0
}

func maxPoints(steps []criteria.Step) float64 {
	best := 0.0
	for _, st := range steps {
		if st.Points > best {
			best = st.Points
		}
	}
	return best
}

func (s *Scorer) scoreROIIC(d *metrics.Derived) contracts.ScoreComponent {
	q := s.doc.Quality
	c := contracts.ScoreComponent{Name: ComponentROIIC, Max: maxPoints(q.ROIICSteps)}
	if !d.HasROIIC {
		c.Detail = "no incremental ROIC"
		return c
	}
	c.Value = d.ROIIC
	c.Points = walkSteps(q.ROIICSteps, d.ROIIC)
	return c
}

// scoreRunway proxies the reinvestable opportunity with market cap,
// scaled up when proven growth says the addressable market is bigger
// than the cap alone suggests.
func (s *Scorer) scoreRunway(d *metrics.Derived) contracts.ScoreComponent {
	q := s.doc.Quality
	c := contracts.ScoreComponent{Name: ComponentRunway, Max: maxPoints(q.RunwayCapSteps)}
	if d.MarketCap <= 0 {
		c.Detail = "no market cap"
		return c
	}

	mult := 1.0
	for _, gm := range q.RunwayGrowthMultipliers {
		if d.RevenueCAGR >= gm.Above {
			mult = gm.Multiplier
			break
		}
	}
	effective := d.MarketCap * mult

	c.Value = effective
	c.Points = q.RunwayBasePoints
	for _, st := range q.RunwayCapSteps {
		if effective >= st.Above {
			c.Points = st.Points
			break
		}
	}
	c.Detail = fmt.Sprintf("$%.0fB × %.1f", d.MarketCap/1e9, mult)
	return c
}

func (s *Scorer) scoreRevenueGrowth(d *metrics.Derived) contracts.ScoreComponent {
	q := s.doc.Quality
	c := contracts.ScoreComponent{Name: ComponentRevenueGrowth, Max: maxPoints(q.GrowthSteps)}
	if !d.HasRevenueCAGR {
		c.Detail = "no growth history"
		return c
	}
	c.Value = d.RevenueCAGR
	c.Points = walkSteps(q.GrowthSteps, d.RevenueCAGR)
	return c
}

func (s *Scorer) scoreFCFConversion(d *metrics.Derived) contracts.ScoreComponent {
	q := s.doc.Quality
	c := contracts.ScoreComponent{Name: ComponentFCFConversion, Max: maxPoints(q.FCFConversionSteps)}
	if !d.HasFCFConversion {
		c.Detail = "no conversion history"
		return c
	}
	c.Value = d.FCFConversion
	c.Points = walkSteps(q.FCFConversionSteps, d.FCFConversion)
	return c
}

func (s *Scorer) scoreMarginTrend(d *metrics.Derived) contracts.ScoreComponent {
	q := s.doc.Quality
	c := contracts.ScoreComponent{
		Name:   ComponentMarginTrend,
		Max:    q.MarginExpandingPoints,
		Value:  d.GrossMarginDelta,
		Detail: string(d.GrossMarginTrend),
	}
	switch d.GrossMarginTrend {
	case metrics.TrendExpanding:
		c.Points = q.MarginExpandingPoints
	case metrics.TrendStable:
		c.Points = q.MarginStablePoints
	default:
		// declining과 unknown 모두 0점
		c.Points = q.MarginDecliningPoints
	}
	return c
}

// scoreCapex rewards asset-light economics; a missing ratio scores the
// neutral midpoint because absence of capex detail is not evidence
// either way.
func (s *Scorer) scoreCapex(d *metrics.Derived) contracts.ScoreComponent {
	q := s.doc.Quality
	c := contracts.ScoreComponent{Name: ComponentCapex}
	for _, st := range q.CapexSteps {
		if st.Points > c.Max {
			c.Max = st.Points
		}
	}
	if !d.HasCapex {
		c.Points = q.CapexMissingPoints
		c.Detail = "missing, neutral"
		return c
	}
	c.Value = d.CapexToRevenue
	for _, st := range q.CapexSteps {
		if c.Value < st.Below {
			c.Points = st.Points
			return c
		}
	}
	return c
}
