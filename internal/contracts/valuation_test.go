package contracts

import (
	"math"
	"testing"
)

func TestValuationUpside(t *testing.T) {
	v := &ValuationResult{IntrinsicValue: 150, CurrentPrice: 100}
	if got := v.Upside(); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Upside() = %v, want 0.5", got)
	}

	noPrice := &ValuationResult{IntrinsicValue: 150}
	if got := noPrice.Upside(); got != 0 {
		t.Errorf("Upside() without price = %v, want 0", got)
	}
}

func TestConvergenceRate(t *testing.T) {
	v := &ValuationResult{ModelsConverged: 5, ModelsTotal: 7}
	if got := v.ConvergenceRate(); math.Abs(got-5.0/7.0) > 1e-9 {
		t.Errorf("ConvergenceRate() = %v, want %v", got, 5.0/7.0)
	}

	empty := &ValuationResult{}
	if got := empty.ConvergenceRate(); got != 0 {
		t.Errorf("ConvergenceRate() with no models = %v, want 0", got)
	}
}
