package valuation

import (
	"math"

	"github.com/wonny/compounder/internal/contracts"
	"github.com/wonny/compounder/internal/criteria"
	"github.com/wonny/compounder/internal/metrics"
)

// Growth bases recorded on the valuation result.
const (
	GrowthBasisRevenue     = "revenue_growth"
	GrowthBasisSustainable = "sustainable_growth"
)

// growthRate picks the first-phase projection growth. Capital returners
// (reinvestment below the threshold) grow at their revenue CAGR; heavy
// reinvestors get the lesser of revenue CAGR and ROIIC×reinvestment, so
// to compound faster than revenue they must first earn it on new
// capital. Result is clamped to the configured band.
func growthRate(v criteria.ValuationCriteria, d *metrics.Derived) (float64, string) {
	g := d.RevenueCAGR
	basis := GrowthBasisRevenue

	if d.ReinvestmentRate >= v.CapitalReturnerReinvestment {
		sustainable := 0.0
		if d.ROIIC > 0 && d.ReinvestmentRate > 0 {
			sustainable = d.ROIIC * d.ReinvestmentRate
		}
		if sustainable > 0 {
			g = math.Min(d.RevenueCAGR, sustainable)
			basis = GrowthBasisSustainable
		}
	}

	return math.Max(v.GrowthFloor, math.Min(g, v.GrowthCeiling)), basis
}

// projection is a full FCFF path: explicit years plus the perpetuity.
type projection struct {
	FCFF            []float64 // nominal, year 1..N
	PVExplicit      float64
	TerminalValue   float64 // nominal at year N
	PVTerminal      float64
	EnterpriseValue float64
}

// project runs the three-phase schedule: years 1..HighGrowthYears at g,
// then a straight-line fade to the mature rate by the final year, then
// a Gordon perpetuity at the terminal rate. A discount rate at or below
// terminal growth means the perpetuity diverges, and that is the
// criteria document's problem to fix, not ours to paper over.
func project(ticker string, v criteria.ValuationCriteria, baseFCF, g, discount float64) (*projection, error) {
	if discount <= v.TerminalGrowth {
		return nil, contracts.NewComputationError(ticker, "terminal_value",
			"discount rate does not exceed terminal growth; perpetuity diverges")
	}

	years := v.ProjectionYears
	fade := years - v.HighGrowthYears

	p := &projection{FCFF: make([]float64, 0, years)}
	fcf := baseFCF
	for year := 1; year <= years; year++ {
		growth := g
		if year > v.HighGrowthYears && fade > 0 {
			progress := float64(year-v.HighGrowthYears) / float64(fade)
			growth = g - (g-v.MatureGrowth)*progress
		}
		fcf *= 1 + growth
		p.FCFF = append(p.FCFF, fcf)
		p.PVExplicit += fcf / math.Pow(1+discount, float64(year))
	}

	terminalFCF := p.FCFF[years-1] * (1 + v.TerminalGrowth)
	p.TerminalValue = terminalFCF / (discount - v.TerminalGrowth)
	p.PVTerminal = p.TerminalValue / math.Pow(1+discount, float64(years))
	p.EnterpriseValue = p.PVExplicit + p.PVTerminal
	return p, nil
}

// equityValue nets debt off the enterprise value, floored at zero.
func (p *projection) equityValue(netDebt float64) float64 {
	return math.Max(p.EnterpriseValue-netDebt, 0)
}

// entryPrice inverts the projection to the price paying the target
// return. Closed form on the yield identity: the buyer's return is the
// FCF yield plus retained growth, so the price clears at
// FCF / (target − 0.6g), with the required yield floored to keep the
// inversion finite for fast growers.
func entryPrice(baseFCF, g, netDebt, shares, target float64) float64 {
	if shares <= 0 {
		return 0
	}
	const retention = 0.6
	const yieldFloor = 0.02

	required := target - g*retention
	if required < yieldFloor {
		required = yieldFloor
	}
	impliedEV := baseFCF / required
	return math.Max((impliedEV-netDebt)/shares, 0)
}

// entryPrices computes the ladder at the configured target returns.
// Targets are validated descending; a short list repeats its last rung.
func entryPrices(v criteria.ValuationCriteria, baseFCF, g, netDebt, shares float64) contracts.EntryPrices {
	target := func(i int) float64 {
		if i >= len(v.EntryTargets) {
			i = len(v.EntryTargets) - 1
		}
		return v.EntryTargets[i]
	}
	return contracts.EntryPrices{
		Excellent: entryPrice(baseFCF, g, netDebt, shares, target(0)),
		Good:      entryPrice(baseFCF, g, netDebt, shares, target(1)),
		Fair:      entryPrice(baseFCF, g, netDebt, shares, target(2)),
	}
}
