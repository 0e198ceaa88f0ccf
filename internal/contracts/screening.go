package contracts

import "time"

// CriterionResult records one hard-filter check: the measured value, the
// bar it was held to, and, when the primary test failed but a documented
// relaxation saved it, which override fired.
type CriterionResult struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
	// Override names the relaxation that passed this criterion after the
	// primary test failed. Empty means the primary test decided it.
	Override string `json:"override,omitempty"`
	// Missing marks a criterion that failed because a required input was
	// absent rather than out of range.
	Missing bool   `json:"missing,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ScreeningResult is the Tier-1 verdict for one ticker in one run.
type ScreeningResult struct {
	RunID     string            `json:"run_id"`
	Ticker    string            `json:"ticker"`
	Lineage   Lineage           `json:"lineage"`
	Passed    bool              `json:"passed"`
	Criteria  []CriterionResult `json:"criteria"`
	Flags     []string          `json:"flags,omitempty"`
	Reasons   []string          `json:"reasons,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// FailedCriteria returns the names of every criterion that did not pass.
func (r *ScreeningResult) FailedCriteria() []string {
	var names []string
	for _, c := range r.Criteria {
		if !c.Passed {
			names = append(names, c.Name)
		}
	}
	return names
}

// OverridesUsed returns the overrides that carried otherwise-failing
// criteria, in evaluation order.
func (r *ScreeningResult) OverridesUsed() []string {
	var used []string
	for _, c := range r.Criteria {
		if c.Passed && c.Override != "" {
			used = append(used, c.Override)
		}
	}
	return used
}

// Tier labels a quality-score band.
type Tier string

const (
	TierExceptional Tier = "EXCEPTIONAL"
	TierElite       Tier = "ELITE"
	TierQuality     Tier = "QUALITY"
	TierReview      Tier = "REVIEW"
)

// Rank orders tiers best-first: EXCEPTIONAL=0 .. REVIEW=3.
func (t Tier) Rank() int {
	switch t {
	case TierExceptional:
		return 0
	case TierElite:
		return 1
	case TierQuality:
		return 2
	default:
		return 3
	}
}

// Advances reports whether the tier continues to valuation under the
// default cutoff: ELITE and above. The scorer records the actual
// decision on the QualityScore, since the cutoff is configurable.
func (t Tier) Advances() bool {
	return t.Rank() <= 1
}

// ScoreComponent is one bounded slice of the composite quality score.
type ScoreComponent struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
	Max    float64 `json:"max"`
	Value  float64 `json:"value"`
	Detail string  `json:"detail,omitempty"`
}

// QualityScore is the Tier-2 composite for one ticker in one run. Score
// is the sum of the component points and stays within [0, 100].
type QualityScore struct {
	RunID      string           `json:"run_id"`
	Ticker     string           `json:"ticker"`
	Lineage    Lineage          `json:"lineage"`
	Score      float64          `json:"score"`
	Tier       Tier             `json:"tier"`
	Advances   bool             `json:"advances"`
	Components []ScoreComponent `json:"components"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Advance reports whether the ticker proceeds to Tier-3 valuation, as
// decided by the scorer against the configured cutoff.
func (q *QualityScore) Advance() bool {
	return q.Advances
}
