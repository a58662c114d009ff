package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a resource is not found
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConflict is returned when a conditional write lost a race with another
// writer. The caller re-reads and recomputes before trying again.
type ErrConflict struct {
	Resource string
	ID       string
}

func (e *ErrConflict) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Resource, e.ID)
}

// ErrUnauthorized is returned when authentication fails
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrValidation is returned when validation fails. Never retried.
type ErrValidation struct {
	Message string
	Fields  map[string]string
}

func (e *ErrValidation) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "validation failed"
	}
	if len(e.Fields) == 0 {
		return msg
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return msg + " (" + strings.Join(parts, "; ") + ")"
}

// NewValidation builds an ErrValidation for a single field.
func NewValidation(field, format string, args ...interface{}) *ErrValidation {
	msg := fmt.Sprintf(format, args...)
	return &ErrValidation{
		Message: msg,
		Fields:  map[string]string{field: msg},
	}
}

// ErrExternal is returned when an external dependency (the payment processor)
// fails. Retryable failures leave local state untouched so a retry is safe.
type ErrExternal struct {
	Service   string
	Retryable bool
	Err       error
}

func (e *ErrExternal) Error() string {
	kind := "permanent"
	if e.Retryable {
		kind = "retryable"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s failure", e.Service, kind)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Service, kind, e.Err)
}

func (e *ErrExternal) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err wraps an ErrNotFound.
func IsNotFound(err error) bool {
	var target *ErrNotFound
	return stderrors.As(err, &target)
}

// IsConflict reports whether err wraps an ErrConflict.
func IsConflict(err error) bool {
	var target *ErrConflict
	return stderrors.As(err, &target)
}

// IsValidation reports whether err wraps an ErrValidation.
func IsValidation(err error) bool {
	var target *ErrValidation
	return stderrors.As(err, &target)
}

// IsRetryable reports whether err wraps a retryable ErrExternal.
func IsRetryable(err error) bool {
	var target *ErrExternal
	return stderrors.As(err, &target) && target.Retryable
}
