// Package response writes JSON bodies and the error envelope shared by all handlers.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rezkam/tasklens/internal/domain"
)

// Error codes used in the envelope.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []ErrorField `json:"details"`
}

// ErrorField describes a field-specific error.
type ErrorField struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// BadRequest sends a 400 for requests that could not be decoded.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, CodeInvalidRequest, message, http.StatusBadRequest)
}

// ValidationError sends a 400 validation error with field details.
func ValidationError(w http.ResponseWriter, field, issue string) {
	write(w, http.StatusBadRequest, ErrorResponse{
		Error: ErrorDetail{
			Code:    CodeValidationError,
			Message: "validation failed",
			Details: []ErrorField{{Field: field, Issue: issue}},
		},
	})
}

// NotFound sends a 404 Not Found error.
func NotFound(w http.ResponseWriter, resource string) {
	Error(w, CodeNotFound, resource+" not found", http.StatusNotFound)
}

// InternalError logs err and sends a generic 500 so internals never reach the client.
func InternalError(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		slog.ErrorContext(r.Context(), "Internal server error", "error", err)
	}
	Error(w, CodeInternalError, "an internal error occurred", http.StatusInternalServerError)
}

// Error sends an error envelope with no field details.
func Error(w http.ResponseWriter, code, message string, statusCode int) {
	write(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: []ErrorField{},
		},
	})
}

// FromDomainError maps domain errors to HTTP responses.
func FromDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Validation errors (400)
	case errors.Is(err, domain.ErrTitleRequired):
		ValidationError(w, "title", "required field missing")
	case errors.Is(err, domain.ErrTitleTooLong):
		ValidationError(w, "title", "must be 255 characters or less")
	case errors.Is(err, domain.ErrInvalidTaskPriority):
		ValidationError(w, "priority", "must be one of low, medium, high")
	case errors.Is(err, domain.ErrInvalidStatusFilter):
		ValidationError(w, "status", "must be one of all, active, completed")
	case errors.Is(err, domain.ErrInvalidID):
		ValidationError(w, "id", "invalid ID format")
	case errors.Is(err, domain.ErrValidation):
		Error(w, CodeValidationError, err.Error(), http.StatusBadRequest)

	// Not found errors (404)
	case errors.Is(err, domain.ErrTaskNotFound):
		NotFound(w, "task")
	case errors.Is(err, domain.ErrSuggestionNotFound):
		NotFound(w, "suggestion")
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, "resource")

	default:
		InternalError(w, r, err)
	}
}
