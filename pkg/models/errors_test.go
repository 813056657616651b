package models

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		sentinel error
	}{
		{"not found", NewNotFound("document", "d1"), http.StatusNotFound, ErrNotFound},
		{"precondition", NewPrecondition("approve requires %s", StatusV2Completed), http.StatusConflict, ErrPrecondition},
		{"invalid content", &InvalidContentError{Errors: []string{"root must be an object"}}, http.StatusUnprocessableEntity, ErrInvalidContent},
		{"external", &ExternalServiceError{Service: "extraction", Message: "boom"}, http.StatusBadGateway, ErrExternalService},
		{"conflict", &ConflictError{Message: "busy"}, http.StatusConflict, ErrConflict},
		{"forbidden", &ForbiddenError{Role: "VIEWER", Action: "approve"}, http.StatusForbidden, ErrForbidden},
		{"wrapped", fmt.Errorf("execute: %w", NewNotFound("version", "v1")), http.StatusNotFound, ErrNotFound},
		{"plain", errors.New("disk full"), http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, StatusCode(tt.err))
			if tt.sentinel != nil {
				assert.ErrorIs(t, tt.err, tt.sentinel)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "document d1 not found", NewNotFound("document", "d1").Error())
	assert.Equal(t, "invalid content: a; b", (&InvalidContentError{Errors: []string{"a", "b"}}).Error())
	assert.Equal(t, "role VIEWER may not approve", (&ForbiddenError{Role: "VIEWER", Action: "approve"}).Error())

	cause := errors.New("connection refused")
	ext := &ExternalServiceError{Service: "extraction", Message: "extraction service unreachable", Err: cause}
	assert.ErrorIs(t, ext, cause)
	assert.NotErrorIs(t, ext, ErrNotFound)
}

func TestWorkflowStatusOrdinal(t *testing.T) {
	assert.Equal(t, 0, StatusUploaded.Ordinal())
	assert.Equal(t, 10, StatusCompleted.Ordinal())
	assert.False(t, WorkflowStatus("ARCHIVED").Valid())
	assert.Equal(t, "V2", Version2.Short())
	assert.False(t, VersionType("VERSION_3").Valid())
}
