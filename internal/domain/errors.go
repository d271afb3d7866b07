package domain

import (
	"errors"
	"fmt"
)

// Root error categories. Callers classify failures with errors.Is against these.
var (
	// ErrValidation indicates caller input was rejected before reaching storage.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrService indicates the text-generation service failed or returned unusable content.
	ErrService = errors.New("generation service failed")
)

// Validation errors.
var (
	ErrTitleRequired       = fmt.Errorf("%w: title is required", ErrValidation)
	ErrTitleTooLong        = fmt.Errorf("%w: title must be at most %d characters", ErrValidation, MaxTitleLength)
	ErrInvalidTaskPriority = fmt.Errorf("%w: invalid task priority", ErrValidation)
	ErrInvalidStatusFilter = fmt.Errorf("%w: invalid status filter", ErrValidation)
	ErrInvalidID           = fmt.Errorf("%w: invalid ID format", ErrValidation)
)

// Lookup errors.
var (
	ErrTaskNotFound       = fmt.Errorf("%w: task", ErrNotFound)
	ErrSuggestionNotFound = fmt.Errorf("%w: suggestion", ErrNotFound)
)

// Generation errors.
var (
	// ErrGeneratorUnavailable is recorded when no generator is configured.
	ErrGeneratorUnavailable = fmt.Errorf("%w: generator not configured", ErrService)

	// ErrMalformedOutput indicates generated text failed schema validation.
	ErrMalformedOutput = fmt.Errorf("%w: malformed output", ErrService)
)
