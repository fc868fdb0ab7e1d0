package users

import (
	"fmt"
)

// User error types
const (
	UserErrorTypeValidationFailed = "validation_failed"
	UserErrorTypeDuplicateEmail   = "duplicate_email"
	UserErrorTypeNotFound         = "not_found"
)

// UserError represents errors related to administrator operations
type UserError struct {
	Type    string
	Message string
	Cause   error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("user error [%s]: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("user error [%s]: %s", e.Type, e.Message)
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

// NewValidationFailedError creates an error for malformed input
func NewValidationFailedError(cause error) *UserError {
	return &UserError{
		Type:    UserErrorTypeValidationFailed,
		Message: "ValidationError",
		Cause:   cause,
	}
}

// NewDuplicateEmailError creates an error for an email uniqueness violation
func NewDuplicateEmailError(message string) *UserError {
	return &UserError{
		Type:    UserErrorTypeDuplicateEmail,
		Message: message,
	}
}

// NewUserNotFoundError creates an error for when no administrator matches an id
func NewUserNotFoundError(message string) *UserError {
	return &UserError{
		Type:    UserErrorTypeNotFound,
		Message: message,
	}
}
