package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
	"github.com/wonny/compounder/pkg/logger"
)

// Engine prices companies that cleared the quality gates: a 15-year
// FCFF projection for intrinsic value, an eight-model IRR ensemble for
// the verdict, and an entry-price ladder for the buy list.
// ⭐ SSOT: 내재가치/기대수익률 산출은 여기서만
type Engine struct {
	doc    *criteria.Document
	logger *logger.Logger
}

// NewEngine creates a valuation engine bound to one criteria document.
func NewEngine(doc *criteria.Document, log *logger.Logger) *Engine {
	return &Engine{
		doc:    doc,
		logger: log.Module("valuation"),
	}
}

// Value prices one company. Thin inputs return a result marked
// unvaluable with the reason; only a genuinely impossible computation
// (terminal growth at or above the discount rate) returns an error.
func (e *Engine) Value(f *contracts.Fundamentals, d *metrics.Derived, score *contracts.QualityScore) (*contracts.ValuationResult, error) {
	v := e.doc.Valuation

	result := &contracts.ValuationResult{
		Ticker:    f.Ticker,
		Lineage:   f.Lineage(),
		CreatedAt: time.Now(),
	}

	if len(f.Periods) < v.MinPeriods {
		result.Reason = fmt.Sprintf("insufficient history: %d periods, need %d", len(f.Periods), v.MinPeriods)
		return result, nil
	}

	latest := f.Latest()
	baseFCF := latest.FreeCashFlow
	if baseFCF <= 0 {
		result.Reason = "no positive free cash flow to project"
		return result, nil
	}
	if !ensembleInputsUsable(d) {
		result.Reason = "no usable market quote"
		return result, nil
	}

	wacc := ComputeWACC(v, f, d)
	g, basis := growthRate(v, d)

	proj, err := project(f.Ticker, v, baseFCF, g, wacc.Value)
	if err != nil {
		return nil, err
	}

	netDebt := d.NetDebt
	equity := proj.equityValue(netDebt)
	intrinsic := equity / d.Shares

	models := runEnsemble(v, d, proj, netDebt)
	consensusIRR, spread, converged := consensus(models)

	result.Valuable = true
	result.WACC = wacc
	result.GrowthRate = g
	result.GrowthBasis = basis
	result.ProjectedFCFF = proj.FCFF
	result.TerminalValue = proj.TerminalValue
	result.IntrinsicValue = intrinsic
	result.CurrentPrice = d.Price
	result.MarginOfSafety = math.Max(intrinsic/d.Price-1, 0)
	result.Models = models
	result.ConsensusIRR = consensusIRR
	result.IRRSpread = spread
	result.ModelsConverged = converged
	result.ModelsTotal = len(models)
	result.EntryPrices = entryPrices(v, baseFCF, g, netDebt, d.Shares)
	result.Verdict = v.VerdictFor(consensusIRR)

	fields := map[string]interface{}{
		"ticker":    f.Ticker,
		"wacc":      wacc.Value,
		"growth":    g,
		"basis":     basis,
		"intrinsic": intrinsic,
		"consensus": consensusIRR,
		"verdict":   result.Verdict,
	}
	if score != nil {
		fields["tier"] = score.Tier
	}
	e.logger.WithFields(fields).Debug("Valuation complete")

	return result, nil
}
