package contracts

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestAcquireErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		transient bool
		permanent bool
	}{
		{
			name:      "transient timeout",
			err:       NewTransientError("AAPL", "statements", errors.New("context deadline exceeded")),
			transient: true,
		},
		{
			name:      "permanent unknown ticker",
			err:       NewPermanentError("ZZZZ", "profile", errors.New("status 404")),
			permanent: true,
		},
		{
			name: "wrapped transient keeps classification",
			err:  fmt.Errorf("fetch: %w", NewTransientError("MSFT", "quote", errors.New("status 503"))),

			transient: true,
		},
		{
			name: "plain error is neither",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.transient)
			}
			if got := IsPermanent(tt.err); got != tt.permanent {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.permanent)
			}
		})
	}
}

func TestAcquireErrorMessage(t *testing.T) {
	err := NewTransientError("AAPL", "statements", errors.New("status 429"))
	msg := err.Error()
	for _, want := range []string{"AAPL", "statements", "transient", "429"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestAcquireErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := NewTransientError("NVDA", "quote", inner)

	if !errors.Is(err, inner) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError("SNOW", "revenue_history", "need 4 periods, have 2")

	if !IsInsufficientData(err) {
		t.Error("IsInsufficientData() = false, want true")
	}
	if IsTransient(err) || IsPermanent(err) || IsComputation(err) {
		t.Error("sufficiency error must not match other classes")
	}
	msg := err.Error()
	if !strings.Contains(msg, "SNOW") || !strings.Contains(msg, "revenue_history") {
		t.Errorf("Error() = %q, missing ticker or field", msg)
	}
}

func TestComputationError(t *testing.T) {
	err := NewComputationError("KO", "terminal_value", "terminal growth 3.00% >= discount rate 2.80%")

	if !IsComputation(err) {
		t.Error("IsComputation() = false, want true")
	}
	if IsInsufficientData(err) {
		t.Error("computation error must not match sufficiency class")
	}
	if !strings.Contains(err.Error(), "terminal_value") {
		t.Errorf("Error() = %q, missing operation", err.Error())
	}
}
