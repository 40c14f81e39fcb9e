// Package apperr defines the error kinds shared by the onboarding packages.
//
// Each concrete error matches a sentinel through errors.Is, so callers can
// branch on the kind without caring about the details:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrDataIntegrity = errors.New("data integrity violation")
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
)

// DataIntegrityError reports curriculum data that cannot be trusted, such as a
// lesson pointing at a day that does not exist or duplicated ordering keys.
type DataIntegrityError struct {
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return "data integrity: " + e.Reason
}

func (e *DataIntegrityError) Is(target error) bool { return target == ErrDataIntegrity }

// DataIntegrity builds a DataIntegrityError from a format string.
func DataIntegrity(format string, args ...any) error {
	return &DataIntegrityError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a lookup for a resource that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// InvalidInputError reports a request rejected before any computation ran.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input: %s %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput builds an InvalidInputError.
func InvalidInput(field, reason string) error {
	return &InvalidInputError{Field: field, Reason: reason}
}

// Forbidden wraps ErrForbidden with a reason.
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}
