// Package gameerr defines the failure taxonomy shared by every engine
// operation. Callers are expected to branch on the error kind: validation and
// eligibility failures need changed inputs, state conflicts need a re-fetch,
// store failures are fatal to the single call.
package gameerr

import (
	"errors"
	"fmt"
)

// ValidationError rejects malformed input before any mutation
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NewValidation creates a ValidationError with a formatted reason
func NewValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// StateConflictError signals that the entity is not in the state the caller
// assumed. Expected under concurrency; the caller should re-fetch, not retry.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("state conflict: %s", e.Reason)
}

// NewStateConflict creates a StateConflictError with a formatted reason
func NewStateConflict(format string, args ...any) *StateConflictError {
	return &StateConflictError{Reason: fmt.Sprintf(format, args...)}
}

// EligibilityError signals a user-facing refusal (banned target, insufficient
// funds). Not retryable without changed inputs.
type EligibilityError struct {
	Reason string
}

func (e *EligibilityError) Error() string {
	return fmt.Sprintf("not eligible: %s", e.Reason)
}

// NewEligibility creates an EligibilityError with a formatted reason
func NewEligibility(format string, args ...any) *EligibilityError {
	return &EligibilityError{Reason: fmt.Sprintf(format, args...)}
}

// ExpiredError signals that the session's deadline has passed
type ExpiredError struct {
	Reason string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("expired: %s", e.Reason)
}

// NewExpired creates an ExpiredError with a formatted reason
func NewExpired(format string, args ...any) *ExpiredError {
	return &ExpiredError{Reason: fmt.Sprintf(format, args...)}
}

// StoreError wraps a persistence failure. Fatal to the single call; the
// surrounding transaction rolls back so no partial ledger effects remain.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store failure in %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStore wraps err as a StoreError for the named operation
func NewStore(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsStateConflict reports whether err is a StateConflictError
func IsStateConflict(err error) bool {
	var e *StateConflictError
	return errors.As(err, &e)
}

// IsEligibility reports whether err is an EligibilityError
func IsEligibility(err error) bool {
	var e *EligibilityError
	return errors.As(err, &e)
}

// IsExpired reports whether err is an ExpiredError
func IsExpired(err error) bool {
	var e *ExpiredError
	return errors.As(err, &e)
}

// IsStore reports whether err is a StoreError
func IsStore(err error) bool {
	var e *StoreError
	return errors.As(err, &e)
}
