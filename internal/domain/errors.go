package domain

import (
	"errors"
	"fmt"
)

// Business failures. Services wrap these in one of the typed errors below so
// handlers can pick a status from the type and a code from the sentinel.
var (
	ErrNotFound                 = errors.New("not found")
	ErrValidation               = errors.New("validation error")
	ErrInsufficientCapacity     = errors.New("insufficient capacity")
	ErrPackageUnavailable       = errors.New("package unavailable")
	ErrTripUnavailable          = errors.New("trip unavailable")
	ErrKycNotVerified           = errors.New("kyc not verified")
	ErrInvalidState             = errors.New("invalid state")
	ErrInvalidDeliveryCode      = errors.New("invalid delivery code")
	ErrDeliveryAttemptsExceeded = errors.New("delivery attempts exceeded")
	ErrDuplicateReview          = errors.New("duplicate review")
	ErrForbidden                = errors.New("forbidden")
	ErrProviderUnavailable      = errors.New("provider unavailable")
)

// DomainError keeps backward compatibility for generic codes.
type DomainError struct {
	Code string
	Err  error
}

func (e DomainError) Error() string {
	if e.Err == nil {
		return e.Code
	}
	if e.Code == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e DomainError) Unwrap() error {
	return e.Err
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Unwrap always reaches ErrNotFound so errors.Is works whatever the cause was.
func (e NotFoundError) Unwrap() []error {
	if e.Err == nil || errors.Is(e.Err, ErrNotFound) {
		return []error{ErrNotFound}
	}
	return []error{ErrNotFound, e.Err}
}

type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrValidation
	}
	return e.Err
}

// ConflictError is a business rule rejection: the request was well formed but
// the current state of the marketplace does not allow it.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type ForbiddenError struct {
	Msg string
	Err error
}

func (e ForbiddenError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "forbidden"
}

func (e ForbiddenError) Unwrap() error {
	if e.Err == nil {
		return ErrForbidden
	}
	return e.Err
}

// UnavailableError marks a transient failure of an external collaborator
// (payment processor, storage). Callers may retry.
type UnavailableError struct {
	Msg string
	Err error
}

func (e UnavailableError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "service unavailable"
}

func (e UnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProviderUnavailable}
	}
	return []error{ErrProviderUnavailable, e.Err}
}

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target) || errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target ForbiddenError
	return errors.As(err, &target)
}

func IsUnavailable(err error) bool {
	var target UnavailableError
	return errors.As(err, &target)
}

// InvalidState builds the rejection for a transition attempted from the wrong status.
func InvalidState(resource, from, action string) error {
	return ConflictError{
		Resource: resource,
		Msg:      fmt.Sprintf("cannot %s from status %s", action, from),
		Err:      ErrInvalidState,
	}
}

var codes = []struct {
	err  error
	code string
}{
	{ErrInsufficientCapacity, "insufficient_capacity"},
	{ErrPackageUnavailable, "package_unavailable"},
	{ErrTripUnavailable, "trip_unavailable"},
	{ErrKycNotVerified, "kyc_not_verified"},
	{ErrInvalidState, "invalid_state"},
	{ErrInvalidDeliveryCode, "invalid_delivery_code"},
	{ErrDeliveryAttemptsExceeded, "delivery_attempts_exceeded"},
	{ErrDuplicateReview, "duplicate_review"},
	{ErrNotFound, "not_found"},
	{ErrForbidden, "forbidden"},
	{ErrValidation, "validation_error"},
	{ErrProviderUnavailable, "provider_unavailable"},
}

// Code returns the stable machine-readable tag for err, or "internal_error".
func Code(err error) string {
	if err == nil {
		return ""
	}
	var de DomainError
	if errors.As(err, &de) && de.Code != "" {
		return de.Code
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	if IsValidation(err) {
		return "validation_error"
	}
	return "internal_error"
}
