package errors

import (
	"errors"
	"fmt"
)

const (
	ErrorTypeDatabaseError       = "DATABASE_ERROR"
	ErrorTypeValidation          = "VALIDATION_ERROR"
	ErrorTypeInvalidRequest      = "INVALID_REQUEST"
	ErrorTypeUnknown             = "UNKNOWN_ERROR"
)

// GeneralField is the error key used for failures that are not tied to a single input field.
const GeneralField = "general"

// FieldErrors maps an input field name to its ordered, non-empty list of violation messages.
type FieldErrors map[string][]string

// Add appends a message to the given field.
func (fe FieldErrors) Add(field, message string) {
	fe[field] = append(fe[field], message)
}

// General builds a FieldErrors with a single message under the general key.
func General(message string) FieldErrors {
	return FieldErrors{GeneralField: {message}}
}

type AppError struct {
	Type    string
	Message string
	Err     error
	Fields  FieldErrors
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(errType, message string, err error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// NewValidationError reports user input that failed field-level rules. It is never a server fault.
func NewValidationError(message string, fields FieldErrors) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Fields:  fields,
	}
}

func NewInvalidRequestError(message string, err error) *AppError {
	return NewAppError(ErrorTypeInvalidRequest, message, err)
}

// NewDatabaseError wraps an I/O or constraint failure of the record store.
func NewDatabaseError(message string, err error) *AppError {
	return NewAppError(ErrorTypeDatabaseError, message, err)
}

func GetErrorType(err error) string {
	if err == nil {
		return ""
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}

	return ErrorTypeUnknown
}

// IsValidationError reports whether err carries field-level validation failures.
func IsValidationError(err error) bool {
	return GetErrorType(err) == ErrorTypeValidation
}

// IsDatabaseError reports whether err originated in the record store.
func IsDatabaseError(err error) bool {
	return GetErrorType(err) == ErrorTypeDatabaseError
}

// GetFieldErrors returns the field map attached to err, or nil.
func GetFieldErrors(err error) FieldErrors {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}
