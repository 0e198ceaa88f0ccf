package contracts

import (
	"reflect"
	"testing"
)

func TestFailedCriteria(t *testing.T) {
	r := &ScreeningResult{
		Ticker: "INTC",
		Criteria: []CriterionResult{
			{Name: "roiic", Passed: false, Reason: "roiic 8.0% below 25.0%"},
			{Name: "historical_roic", Passed: true},
			{Name: "roic_spread", Passed: false, Missing: true, Reason: "missing WACC inputs"},
		},
	}

	want := []string{"roiic", "roic_spread"}
	if got := r.FailedCriteria(); !reflect.DeepEqual(got, want) {
		t.Errorf("FailedCriteria() = %v, want %v", got, want)
	}
}

func TestOverridesUsed(t *testing.T) {
	r := &ScreeningResult{
		Ticker: "V",
		Criteria: []CriterionResult{
			{Name: "roiic", Passed: true},
			{Name: "fcf_conversion", Passed: true, Override: "high_capex_phase"},
			{Name: "gross_margin", Passed: true, Override: "margin_trend_stable"},
			{Name: "leverage", Passed: false, Override: ""},
		},
	}

	want := []string{"high_capex_phase", "margin_trend_stable"}
	if got := r.OverridesUsed(); !reflect.DeepEqual(got, want) {
		t.Errorf("OverridesUsed() = %v, want %v", got, want)
	}
}

func TestTierRankOrdering(t *testing.T) {
	ordered := []Tier{TierExceptional, TierElite, TierQuality, TierReview}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Rank() >= ordered[i].Rank() {
			t.Errorf("%s rank %d should precede %s rank %d",
				ordered[i-1], ordered[i-1].Rank(), ordered[i], ordered[i].Rank())
		}
	}
}

func TestTierAdvances(t *testing.T) {
	tests := []struct {
		tier Tier
		want bool
	}{
		{TierExceptional, true},
		{TierElite, true},
		{TierQuality, false},
		{TierReview, false},
	}

	for _, tt := range tests {
		if got := tt.tier.Advances(); got != tt.want {
			t.Errorf("Advances(%s) = %v, want %v", tt.tier, got, tt.want)
		}
	}
}

func TestQualityScoreAdvance(t *testing.T) {
	// 전진 여부는 스코어러가 기록한 값을 그대로 따른다
	review := &QualityScore{Ticker: "DOCU", Score: 55, Tier: TierReview}
	if review.Advance() {
		t.Error("REVIEW tier must not advance to valuation")
	}

	quality := &QualityScore{Ticker: "MA", Score: 85, Tier: TierExceptional, Advances: true}
	if !quality.Advance() {
		t.Error("EXCEPTIONAL tier must advance to valuation")
	}
}
