package domain

import (
	"errors"
	"fmt"
)

// Error types for consistent error handling across the service.

// ErrSummarizerUnavailable is returned when no summary could be produced.
var ErrSummarizerUnavailable = errors.New("summarizer unavailable")

// ErrNothingToAnalyze is returned by a manual refresh over an empty ledger.
var ErrNothingToAnalyze = errors.New("no transactions to analyze")

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// Unwrap lets errors.Is match a timeout against ErrSummarizerUnavailable.
func (e *ErrTimeout) Unwrap() error {
	return ErrSummarizerUnavailable
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

func (e *ErrCircuitOpen) Unwrap() error {
	return ErrSummarizerUnavailable
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}
