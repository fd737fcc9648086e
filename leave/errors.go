/*
errors.go - Error taxonomy for the leave engine

PURPOSE:
  Every failure the engine reports falls into one of four categories. Callers
  classify with errors.Is against the sentinels; the structured types carry
  the message shown to the employee or manager.

ERROR CATEGORIES:
  1. Validation  - malformed input, date ordering, missing fields
  2. Policy      - max-per-request, pending gate, retroactive dates, exhausted balance
  3. State       - request already finalized, self-approval
  4. Persistence - store or transaction failure (always fully rolled back)

  Not-found is reported separately so the HTTP layer can answer 404.

SEE ALSO:
  - evaluator.go: raises validation and policy errors
  - lifecycle.go: raises state conflicts, wraps persistence failures
  - api/handlers.go: maps categories to HTTP status codes
*/
package leave

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation      = errors.New("validation error")
	ErrPolicyViolation = errors.New("policy violation")
	ErrStateConflict   = errors.New("state conflict")
	ErrPersistence     = errors.New("persistence failure")
	ErrNotFound        = errors.New("not found")

	// ErrSelfAction is a state conflict: a non-master principal acting on
	// their own request.
	ErrSelfAction = errors.New("self action forbidden")

	// ErrDuplicatePending is returned by stores when the pending-request
	// uniqueness guard rejects an insert.
	ErrDuplicatePending = errors.New("pending request already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func validationf(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// PolicyCode identifies which rule rejected a request.
type PolicyCode string

const (
	CodeMaxDaysExceeded       PolicyCode = "max_days_exceeded"
	CodePendingRequestExists  PolicyCode = "pending_request_exists"
	CodeRetroactiveNotAllowed PolicyCode = "retroactive_not_allowed"
	CodeAllowanceExhausted    PolicyCode = "annual_allowance_exhausted"
	CodeAnnualCapExceeded     PolicyCode = "annual_cap_exceeded"
	CodeSplitRequired         PolicyCode = "split_required"
)

// PolicyViolationError reports a business rule rejection. Remaining is set
// when the rule is a balance and the figure is meaningful to the caller.
// Decision is set when a split proposal is available instead.
type PolicyViolationError struct {
	Code      PolicyCode
	Message   string
	Remaining *int
	Decision  *Decision
}

func (e *PolicyViolationError) Error() string { return e.Message }

func (e *PolicyViolationError) Unwrap() error { return ErrPolicyViolation }

// ConflictCode identifies the kind of state conflict.
type ConflictCode string

const (
	ConflictFinalized  ConflictCode = "already_finalized"
	ConflictSelfAction ConflictCode = "self_action"
	ConflictInUse      ConflictCode = "in_use"
)

// StateConflictError reports an operation the current state does not allow:
// an illegal transition on a request, or removing configuration still in use.
type StateConflictError struct {
	Code      ConflictCode
	RequestID string
	Message   string
}

func (e *StateConflictError) Error() string { return e.Message }

func (e *StateConflictError) Unwrap() []error {
	if e.Code == ConflictSelfAction {
		return []error{ErrStateConflict, ErrSelfAction}
	}
	return []error{ErrStateConflict}
}

// NotFoundError reports a missing leave type or request.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// PersistenceError wraps a store failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to the caller's input or
// the state of their data, and resubmitting unchanged will fail again.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrPolicyViolation) ||
		errors.Is(err, ErrStateConflict)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden returns true for self-action attempts.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrSelfAction)
}

// classify leaves engine errors untouched and wraps anything else as a
// persistence failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrPersistence) {
		return err
	}
	if errors.Is(err, ErrDuplicatePending) {
		return pendingExists()
	}
	return &PersistenceError{Op: op, Err: err}
}

// LeaveTypeInUse is returned by stores refusing to delete a leave type that
// requests still reference.
func LeaveTypeInUse(id string) *StateConflictError {
	return &StateConflictError{
		Code:    ConflictInUse,
		Message: fmt.Sprintf("Leave type %q is used by existing leave requests and cannot be deleted.", id),
	}
}

func pendingExists() *PolicyViolationError {
	return &PolicyViolationError{
		Code:    CodePendingRequestExists,
		Message: "You already have a leave request pending approval. Please wait for it to be processed before submitting a new one.",
	}
}
