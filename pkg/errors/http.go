package errors

import (
	"errors"
	"net/http"
)

const fallbackMessage = "An unexpected error occurred"

var statusByType = map[string]int{
	ErrorTypeValidation:          http.StatusBadRequest,
	ErrorTypeInvalidRequest:      http.StatusBadRequest,
	ErrorTypeDatabaseError:       http.StatusInternalServerError,
}

// HTTPStatusCode maps an error to the status its handler should answer with. Unclassified errors are 500.
func HTTPStatusCode(err error) int {
	if status, ok := statusByType[GetErrorType(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetHumanReadableMessage returns the client-safe message of an AppError. Anything else yields a generic
// message so driver and stack details never reach a response.
func GetHumanReadableMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallbackMessage
}
