// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// Configuration errors
	ErrMisconfigured = errors.New("misconfigured")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Infrastructure errors
	ErrStorage            = errors.New("storage failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "ledger", "tier", "leaderboard"
	Op      string // Operation that failed, e.g., "ApplyDelta", "Resolve"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// GAMIFICATION ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// Ledger errors
var (
	// ErrInvalidDelta is returned when a delta or an absolute override would
	// take a balance below zero. Nothing is written in that case.
	ErrInvalidDelta = NewDomainError("ledger", "ApplyDelta", ErrValidation, "resulting balance would be negative")

	// ErrPersistence wraps any storage failure that aborts the unit of work.
	ErrPersistence = NewDomainError("ledger", "Persist", ErrStorage, "persistence failure")

	ErrUserNotFound = NewDomainError("user", "Find", ErrNotFound, "user not found")
)

// Tier errors
var (
	// ErrTierConfiguration means the tier table is unusable, e.g. no tier covers 0 points.
	ErrTierConfiguration = NewDomainError("tier", "Validate", ErrMisconfigured, "invalid tier configuration")
)

// Achievement errors
var (
	// ErrDuplicateUnlock marks an already recorded (user, achievement) pair.
	// Callers treat it as a no-op.
	ErrDuplicateUnlock = NewDomainError("achievement", "Unlock", ErrAlreadyExists, "achievement already unlocked")

	ErrUnknownCriteria      = NewDomainError("achievement", "ParseCriteria", ErrInvalidFormat, "unrecognized criteria")
	ErrDuplicateAchievement = NewDomainError("achievement", "Load", ErrAlreadyExists, "duplicate achievement name")
)

// Leaderboard errors
var (
	ErrUnknownPeriod = NewDomainError("leaderboard", "ParsePeriod", ErrInvalidInput, "unknown period")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsRetryable checks if the operation can be retried by the caller.
// The engine itself never retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// Persistence wraps a storage error as ErrPersistence with operation context.
func Persistence(domain, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrPersistence) {
		return err
	}
	return WrapError(domain, op, ErrPersistence, "storage operation failed", err)
}
