package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors shared by services and mapped to HTTP status codes by the controllers.
var (
	ErrNotFound       = errors.New("not found")
	ErrValidation     = errors.New("validation failed")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrAuthorNotFound = errors.New("author is not a registered admin")
	ErrDuplicateEmail = errors.New("email already in use")
	ErrDependency     = errors.New("dependency failure")
)

// ValidationError carries per-field messages for user-correctable input errors.
// errors.Is(err, ErrValidation) reports true for any *ValidationError.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records msg for field. The first message for a field wins.
func (e *ValidationError) Add(field, msg string) {
	if _, ok := e.Fields[field]; ok {
		return
	}
	e.Fields[field] = msg
}

// HasErrors reports whether any field failed.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns e when it holds failures, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

// Messages returns "field: message" pairs sorted by field name.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+e.Fields[k])
	}
	return out
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// DependencyError wraps a failure of the database, object storage, mailer or identity provider.
// The wrapped error is for logs only and must not be shown to callers.
type DependencyError struct {
	Op  string
	Err error
}

// NewDependencyError wraps err as a DependencyError for op. A nil err yields nil.
func NewDependencyError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DependencyError{Op: op, Err: err}
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func (e *DependencyError) Is(target error) bool {
	return target == ErrDependency
}

// ImageIDTakenError reports a client-chosen image id that already belongs to another image.
type ImageIDTakenError struct {
	ID string
}

func (e *ImageIDTakenError) Error() string {
	return fmt.Sprintf("image id %s is already in use", e.ID)
}
