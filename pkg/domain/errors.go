package domain

import (
	"fmt"
	"time"
)

// ConfigurationError marks a defect in the workflow definition or the
// valuation assumptions: dangling edge references, duplicate node ids,
// scenario probabilities not summing to one. Always fatal, raised before
// or instead of execution.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// NewConfigurationError builds a ConfigurationError from a format string.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// FailureClass categorizes a failure of the external text-generation
// service. Only the first three classes are retried.
type FailureClass string

const (
	FailureRateLimited FailureClass = "rate_limited"
	FailureTimeout     FailureClass = "timeout"
	FailureTransient   FailureClass = "transient_error"
	FailurePermanent   FailureClass = "permanent_error"
)

// Retryable reports whether the class warrants a backoff-and-retry.
func (c FailureClass) Retryable() bool {
	return c == FailureRateLimited || c == FailureTimeout || c == FailureTransient
}

// ExternalError wraps a failure from the text-generation collaborator
// with its failure class. RetryAfter, when non-zero, is the delay the
// service asked for.
type ExternalError struct {
	Class      FailureClass
	RetryAfter time.Duration
	Err        error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external service failure (%s): %v", e.Class, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// DegenerateComputationError is raised when the terminal-value
// denominator is not positive: discount rate at or below terminal growth
// produces negative or absurd valuations and must never be coerced to a
// default.
type DegenerateComputationError struct {
	Scenario       string
	DiscountRate   float64
	TerminalGrowth float64
}

func (e *DegenerateComputationError) Error() string {
	return fmt.Sprintf("degenerate computation in scenario %q: discount rate %.4f <= terminal growth %.4f",
		e.Scenario, e.DiscountRate, e.TerminalGrowth)
}
