package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations
var (
	// Authentication
	ErrUnauthorized = errors.New("unauthorized")

	// Ticket validation
	ErrNameRequired        = errors.New("name is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrTypeRequired        = errors.New("type is required")
	ErrInvalidStatus       = errors.New("invalid ticket status")

	// Conversation validation
	ErrRoomIDRequired    = errors.New("room id is required")
	ErrSenderRequired    = errors.New("sender is required")
	ErrInvalidIdentifier = errors.New("identifier is not well formed")
	ErrInvalidRating     = errors.New("feedback rating must be between 1 and 5")
	ErrInvalidResolved   = errors.New("feedback resolved must be Yes or No")

	// Not found
	ErrTicketNotFound       = errors.New("ticket not found")
	ErrConversationNotFound = errors.New("conversation not found")

	// Dependencies
	ErrDependency = errors.New("upstream dependency failed")

	// Generic
	ErrInternal    = errors.New("internal server error")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for transport responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases

func NewValidationError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "VALIDATION_ERROR",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

// NewDependencyError marks a failed call to the store or an external
// collaborator. Detail stays in the log; the caller sees a generic
// failure and no retry is attempted.
func NewDependencyError(err error) *AppError {
	return &AppError{
		Err:        fmt.Errorf("%w: %w", ErrDependency, err),
		Message:    "A required dependency is unavailable",
		Code:       "DEPENDENCY_ERROR",
		StatusCode: 502,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// Code extracts the machine-readable code from err, falling back to a
// coarse classification of the known sentinels.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case errors.Is(err, ErrTicketNotFound), errors.Is(err, ErrConversationNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNameRequired), errors.Is(err, ErrDescriptionRequired),
		errors.Is(err, ErrTypeRequired), errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrRoomIDRequired), errors.Is(err, ErrSenderRequired),
		errors.Is(err, ErrInvalidIdentifier), errors.Is(err, ErrInvalidRating),
		errors.Is(err, ErrInvalidResolved):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrDependency):
		return "DEPENDENCY_ERROR"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL_ERROR"
	}
}

// ValidationErrors holds multiple field validation errors
type ValidationErrors struct {
	Errors map[string][]string `json:"errors"`
}

func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors: make(map[string][]string),
	}
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors[field] = append(v.Errors[field], message)
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed: %d field(s) have errors", len(v.Errors))
}
