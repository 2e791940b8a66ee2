package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/joeyportfolio/portfolio/internal/store"
)

type ErrorType string

const (
	ValidationError         ErrorType = "VALIDATION_ERROR"
	NotFoundError           ErrorType = "NOT_FOUND"
	StoreError              ErrorType = "STORE_ERROR"
	ServiceUnavailableError ErrorType = "SERVICE_UNAVAILABLE"
	ServerError             ErrorType = "SERVER_ERROR"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Raw        error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Raw
}

// GetHTTPStatus returns the status the error should be rendered with.
func (e *AppError) GetHTTPStatus() int {
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return getHTTPStatus(e.Type)
}

// New creates a new AppError
func New(errType ErrorType, message string, detail string) *AppError {
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     detail,
		HTTPStatus: getHTTPStatus(errType),
	}
}

// Wrap wraps a raw error with AppError context
func Wrap(err error, errType ErrorType, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:       errType,
		Message:    message,
		Detail:     err.Error(),
		HTTPStatus: getHTTPStatus(errType),
		Raw:        err,
	}
}

func NotFound(entity string, id interface{}) *AppError {
	return &AppError{
		Type:       NotFoundError,
		Message:    fmt.Sprintf("%s not found", entity),
		Detail:     fmt.Sprintf("ID: %v", id),
		HTTPStatus: http.StatusNotFound,
	}
}

func ValidationFailed(message string, details string) *AppError {
	return &AppError{
		Type:       ValidationError,
		Message:    message,
		Detail:     details,
		HTTPStatus: http.StatusBadRequest,
	}
}

func InternalServerError(message string) *AppError {
	return &AppError{
		Type:       ServerError,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
	}
}

func ServiceUnavailable(message string, detail string) *AppError {
	return &AppError{
		Type:       ServiceUnavailableError,
		Message:    message,
		Detail:     detail,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// NewStoreError maps a record store failure onto an AppError by its kind.
// The raw store message never reaches the client.
func NewStoreError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch store.KindOf(err) {
	case store.KindConstraintViolation:
		return &AppError{
			Type:       ValidationError,
			Message:    "Feedback was rejected by the store",
			Detail:     "rating must be between 1 and 5 and name and message must be present",
			HTTPStatus: http.StatusUnprocessableEntity,
			Raw:        err,
		}
	case store.KindNetwork:
		return &AppError{
			Type:       ServiceUnavailableError,
			Message:    "Record store is unreachable",
			Detail:     "Please try again later",
			HTTPStatus: http.StatusServiceUnavailable,
			Raw:        err,
		}
	default:
		return &AppError{
			Type:       StoreError,
			Message:    "Store operation failed",
			Detail:     "Please try again later",
			HTTPStatus: http.StatusInternalServerError,
			Raw:        err,
		}
	}
}

func getHTTPStatus(errType ErrorType) int {
	switch errType {
	case ValidationError:
		return http.StatusBadRequest
	case NotFoundError:
		return http.StatusNotFound
	case ServiceUnavailableError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
