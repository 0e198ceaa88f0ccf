package contracts

import (
	"errors"
	"fmt"
)

// Error taxonomy. Acquisition failures are transient (retryable) or
// permanent; data-sufficiency failures exclude one ticker with a recorded
// reason; computation failures scope to a single model or valuation.
// Only checkpoint-store and configuration failures abort a whole run.
// ⭐ SSOT: 에러 분류는 여기서만 정의

// AcquireError wraps a provider failure with its classification.
type AcquireError struct {
	Ticker    string
	Op        string // e.g. "statements", "profile", "quote"
	Transient bool
	Err       error
}

func (e *AcquireError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s fetch failed for %s (%s): %v", e.Op, e.Ticker, kind, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// NewTransientError marks a retryable acquisition failure (timeout,
// rate-limit response, 5xx).
func NewTransientError(ticker, op string, err error) *AcquireError {
	return &AcquireError{Ticker: ticker, Op: op, Transient: true, Err: err}
}

// NewPermanentError marks a non-retryable acquisition failure (unknown
// ticker, malformed payload, auth failure).
func NewPermanentError(ticker, op string, err error) *AcquireError {
	return &AcquireError{Ticker: ticker, Op: op, Transient: false, Err: err}
}

// InsufficientDataError reports a missing field or too little trailing
// history for a required window. Never a silent default.
type InsufficientDataError struct {
	Ticker string
	Field  string
	Detail string
}

func (e *InsufficientDataError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("insufficient data for %s: %s (%s)", e.Ticker, e.Field, e.Detail)
	}
	return fmt.Sprintf("insufficient data for %s: %s", e.Ticker, e.Field)
}

// NewInsufficientDataError reports a data-sufficiency failure.
func NewInsufficientDataError(ticker, field, detail string) *InsufficientDataError {
	return &InsufficientDataError{Ticker: ticker, Field: field, Detail: detail}
}

// ComputationError reports degenerate valuation inputs: terminal rate at
// or above the discount rate, zero denominators, non-convergent
// root-finding.
type ComputationError struct {
	Ticker string
	Op     string
	Detail string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation failed for %s in %s: %s", e.Ticker, e.Op, e.Detail)
}

// NewComputationError reports a computation failure.
func NewComputationError(ticker, op, detail string) *ComputationError {
	return &ComputationError{Ticker: ticker, Op: op, Detail: detail}
}

// IsTransient reports whether err is a retryable acquisition failure.
func IsTransient(err error) bool {
	var ae *AcquireError
	return errors.As(err, &ae) && ae.Transient
}

// IsPermanent reports whether err is a non-retryable acquisition failure.
func IsPermanent(err error) bool {
	var ae *AcquireError
	return errors.As(err, &ae) && !ae.Transient
}

// IsInsufficientData reports whether err is a data-sufficiency failure.
func IsInsufficientData(err error) bool {
	var ide *InsufficientDataError
	return errors.As(err, &ide)
}

// IsComputation reports whether err is a computation failure.
func IsComputation(err error) bool {
	var ce *ComputationError
	return errors.As(err, &ce)
}
