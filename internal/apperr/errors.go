// Package apperr holds the error taxonomy shared by the store, service and transport layers.
package apperr

import (
	"errors"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidQuery     = errors.New("invalid search query")
	ErrConflict         = errors.New("conflict")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrValidation       = errors.New("validation failed")
)

// ValidationError reports malformed client input, keyed by field name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError converts an ozzo-validation error into a ValidationError.
// Errors that are not field errors are reported under the "input" key.
func NewValidationError(err error) *ValidationError {
	ve := &ValidationError{Fields: map[string]string{}}
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fe := range errs {
			ve.Fields[field] = fe.Error()
		}
		return ve
	}
	ve.Fields["input"] = err.Error()
	return ve
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
