package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is an error that knows its HTTP status.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinels for errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrPrecondition    = errors.New("precondition failed")
	ErrInvalidContent  = errors.New("invalid content")
	ErrExternalService = errors.New("external service failure")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
)

type (
	// NotFoundError means a referenced document or version does not exist.
	NotFoundError struct {
		Resource string
		ID       string
	}

	// PreconditionError means the action is not allowed in the current state.
	PreconditionError struct {
		Message string
	}

	// InvalidContentError carries every structural error of a rejected tree.
	InvalidContentError struct {
		Errors []string
	}

	// ExternalServiceError wraps a failure reported by the extraction or
	// rendering service. Message is propagated verbatim.
	ExternalServiceError struct {
		Service string
		Message string
		Err     error
	}

	// ConflictError means another writer changed the document first.
	ConflictError struct {
		Message string
	}

	// ForbiddenError means the caller's role may not perform the action.
	ForbiddenError struct {
		Role   string
		Action string
	}
)

func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

func NewPrecondition(format string, args ...any) *PreconditionError {
	return &PreconditionError{Message: fmt.Sprintf(format, args...)}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *PreconditionError) Error() string { return e.Message }

func (e *InvalidContentError) Error() string {
	return "invalid content: " + strings.Join(e.Errors, "; ")
}

func (e *ExternalServiceError) Error() string { return e.Message }

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ConflictError) Error() string { return e.Message }

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %s may not %s", e.Role, e.Action)
}

func (e *NotFoundError) StatusCode() int        { return http.StatusNotFound }
func (e *PreconditionError) StatusCode() int    { return http.StatusConflict }
func (e *InvalidContentError) StatusCode() int  { return http.StatusUnprocessableEntity }
func (e *ExternalServiceError) StatusCode() int { return http.StatusBadGateway }
func (e *ConflictError) StatusCode() int        { return http.StatusConflict }
func (e *ForbiddenError) StatusCode() int       { return http.StatusForbidden }

func (e *NotFoundError) Is(target error) bool        { return target == ErrNotFound }
func (e *PreconditionError) Is(target error) bool    { return target == ErrPrecondition }
func (e *InvalidContentError) Is(target error) bool  { return target == ErrInvalidContent }
func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }
func (e *ConflictError) Is(target error) bool        { return target == ErrConflict }
func (e *ForbiddenError) Is(target error) bool       { return target == ErrForbidden }

// StatusCode maps any error to an HTTP status, defaulting to 500.
func StatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	return http.StatusInternalServerError
}
