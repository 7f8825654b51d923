package utils

import (
	"errors"
	"net/http"
)

// AppError is the error type surfaced at the HTTP boundary. Kind is the
// stable tag clients can switch on; every kind maps to one status code.
type AppError struct {
	Kind       string
	StatusCode int
	Message    string
}

func (e *AppError) Error() string {
	return e.Message
}

// IsClientError reports whether the error is the caller's fault (4xx).
// Client errors are logged at a lower severity than server errors.
func (e *AppError) IsClientError() bool {
	return e.StatusCode < http.StatusInternalServerError
}

func NewBadRequestError(message string) *AppError {
	return &AppError{Kind: "BAD_REQUEST", StatusCode: http.StatusBadRequest, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: "NOT_FOUND", StatusCode: http.StatusNotFound, Message: message}
}

func NewDatabaseError(message string) *AppError {
	return &AppError{Kind: "DATABASE_ERROR", StatusCode: http.StatusInternalServerError, Message: message}
}

func NewStorageError(message string) *AppError {
	return &AppError{Kind: "STORAGE_ERROR", StatusCode: http.StatusInternalServerError, Message: message}
}

func NewInternalError(message string) *AppError {
	return &AppError{Kind: "INTERNAL_ERROR", StatusCode: http.StatusInternalServerError, Message: message}
}

func NewExternalAPIError(message string) *AppError {
	return &AppError{Kind: "EXTERNAL_API_ERROR", StatusCode: http.StatusBadGateway, Message: message}
}

// AsAppError extracts the AppError from err, or wraps unknown errors as a
// generic internal error so no raw error text leaks to clients.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError("Internal server error")
}
