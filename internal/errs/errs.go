// internal/errs/errs.go

// Package errs defines the typed failures returned by the circulation engine.
//
// Every failure carries a Code (a stable, machine-readable identifier such as
// ITEM_UNAVAILABLE) and a Kind. Kinds are sentinel errors, so callers classify
// a failure with errors.Is:
//
//	if errors.Is(err, errs.ErrConflict) {
//	    // the transition is illegal in the current state
//	}
//
// The underlying cause, when there is one, stays reachable through the same
// errors.Is / errors.As chain.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kinds.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrIneligible        = errors.New("member ineligible")
	ErrOwnershipMismatch = errors.New("ownership mismatch")
	ErrRateLimited       = errors.New("rate limited")
)

// Code identifies a failure independently of its human-readable message.
type Code string

const (
	CodeInvalidArgument     Code = "INVALID_ARGUMENT"
	CodeItemNotFound        Code = "ITEM_NOT_FOUND"
	CodeMemberNotFound      Code = "MEMBER_NOT_FOUND"
	CodeLoanNotFound        Code = "LOAN_NOT_FOUND"
	CodeFineNotFound        Code = "FINE_NOT_FOUND"
	CodeReservationNotFound Code = "RESERVATION_NOT_FOUND"
	CodeLendingNotFound     Code = "LENDING_NOT_FOUND"
	CodeAlreadyExists       Code = "ALREADY_EXISTS"
	CodeItemUnavailable     Code = "ITEM_UNAVAILABLE"
	CodeNoActiveLending     Code = "NO_ACTIVE_LENDING"
	CodeAlreadyReserved     Code = "ALREADY_RESERVED"
	CodeNotWaiting          Code = "NOT_WAITING"
	CodeFineAlreadyPaid     Code = "FINE_ALREADY_PAID"
	CodeMemberIneligible    Code = "MEMBER_INELIGIBLE"
	CodeOwnerMismatch       Code = "OWNER_MISMATCH"
	CodeRateLimited         Code = "RATE_LIMITED"
)

// Error is the concrete failure type. Kind is one of the sentinel kinds above.
type Error struct {
	Code    Code
	Kind    error
	Message string
	Cause   error
}

// Error formats the failure as "<CODE>: <message>" with the cause appended.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, sanitize(e.Message))
	if e.Cause != nil {
		return fmt.Sprintf("%s (cause: %v)", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// NewValidationError reports a malformed or missing argument.
func NewValidationError(param, reason string) *Error {
	return &Error{
		Code:    CodeInvalidArgument,
		Kind:    ErrValidation,
		Message: fmt.Sprintf("%s %s", param, reason),
	}
}

// NewValueIsRequiredError reports an empty required argument.
func NewValueIsRequiredError(param string) *Error {
	return NewValidationError(param, "is required")
}

// NewNotFoundError reports a missing record identified by id.
func NewNotFoundError(code Code, id string) *Error {
	return &Error{
		Code:    code,
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("%q does not exist", id),
	}
}

// NewConflictError reports a transition that is illegal in the current state.
func NewConflictError(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Kind:    ErrConflict,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewConflictErrorWithCause is NewConflictError keeping the underlying cause.
func NewConflictErrorWithCause(code Code, cause error, format string, args ...any) *Error {
	err := NewConflictError(code, format, args...)
	err.Cause = cause
	return err
}

// NewIneligibleError reports a member who may not borrow right now.
func NewIneligibleError(memberID, reason string) *Error {
	return &Error{
		Code:    CodeMemberIneligible,
		Kind:    ErrIneligible,
		Message: fmt.Sprintf("member %q %s", memberID, reason),
	}
}

// NewOwnershipMismatchError reports a request by a member who does not hold the loan.
func NewOwnershipMismatchError(barcode, memberID string) *Error {
	return &Error{
		Code:    CodeOwnerMismatch,
		Kind:    ErrOwnershipMismatch,
		Message: fmt.Sprintf("item %q is not on loan to member %q", barcode, memberID),
	}
}

// NewRateLimitedError reports a request refused by a rate limiter.
func NewRateLimitedError(what string) *Error {
	return &Error{
		Code:    CodeRateLimited,
		Kind:    ErrRateLimited,
		Message: fmt.Sprintf("%s rate limit exceeded", what),
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or nil if there
// is none. A cause carrying another kind does not change the answer.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func sanitize(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
