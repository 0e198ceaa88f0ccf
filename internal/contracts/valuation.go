package contracts

import "time"

// Verdict maps a consensus expected return onto an action label.
type Verdict string

const (
	VerdictBuy       Verdict = "BUY"
	VerdictWatch     Verdict = "WATCH"
	VerdictHold      Verdict = "HOLD"
	VerdictExpensive Verdict = "EXPENSIVE"
)

// ModelEstimate is one valuation model's annualized expected return.
// Non-convergent models stay in the record with Converged=false and are
// excluded from the consensus.
type ModelEstimate struct {
	Tag       string  `json:"tag"`
	Name      string  `json:"name"`
	IRR       float64 `json:"irr"`
	Converged bool    `json:"converged"`
	Detail    string  `json:"detail,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// WACC is the per-ticker discount rate with the inputs that produced it,
// kept for the report rather than recomputed.
type WACC struct {
	Value         float64 `json:"value"`
	CostOfEquity  float64 `json:"cost_of_equity"`
	CostOfDebt    float64 `json:"cost_of_debt_after_tax"`
	EquityWeight  float64 `json:"equity_weight"`
	DebtWeight    float64 `json:"debt_weight"`
	BetaRaw       float64 `json:"beta_raw"`
	BetaAdjusted  float64 `json:"beta_adjusted"`
	BetaDefaulted bool    `json:"beta_defaulted,omitempty"`
	Clamped       bool    `json:"clamped,omitempty"`
}

// EntryPrices are the prices at which the consensus cash-flow stream
// returns each target rate. Buy15 <= Buy12 <= Buy10 by construction.
type EntryPrices struct {
	Excellent float64 `json:"excellent"` // 15% required return
	Good      float64 `json:"good"`      // 12%
	Fair      float64 `json:"fair"`      // 10%
}

// ValuationResult is the Tier-3 output for one ticker in one run. When
// the inputs are degenerate the ticker is recorded as not valuable with
// a reason instead of a fabricated consensus.
type ValuationResult struct {
	RunID   string  `json:"run_id"`
	Ticker  string  `json:"ticker"`
	Lineage Lineage `json:"lineage"`

	Valuable bool   `json:"valuable"`
	Reason   string `json:"reason,omitempty"`

	WACC        WACC    `json:"wacc"`
	GrowthRate  float64 `json:"growth_rate"`
	GrowthBasis string  `json:"growth_basis,omitempty"`

	ProjectedFCFF  []float64 `json:"projected_fcff,omitempty"`
	TerminalValue  float64   `json:"terminal_value,omitempty"`
	IntrinsicValue float64   `json:"intrinsic_value"`
	CurrentPrice   float64   `json:"current_price"`
	MarginOfSafety float64   `json:"margin_of_safety"`

	Models          []ModelEstimate `json:"models"`
	ConsensusIRR    float64         `json:"consensus_irr"`
	IRRSpread       float64         `json:"irr_spread"`
	ModelsConverged int             `json:"models_converged"`
	ModelsTotal     int             `json:"models_total"`

	EntryPrices EntryPrices `json:"entry_prices"`
	Verdict     Verdict     `json:"verdict"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Upside returns intrinsic value over price minus one, or 0 when the
// price is missing.
func (v *ValuationResult) Upside() float64 {
	if v.CurrentPrice <= 0 {
		return 0
	}
	return v.IntrinsicValue/v.CurrentPrice - 1
}

// ConvergenceRate returns the converged fraction of the ensemble.
func (v *ValuationResult) ConvergenceRate() float64 {
	if v.ModelsTotal == 0 {
		return 0
	}
	return float64(v.ModelsConverged) / float64(v.ModelsTotal)
}
