package common

import (
	"errors"
	"net/http"
)

// Sentinel errors for the fare engine. ErrServiceDegraded is an internal
// marker only: a degraded geo provider is always resolved by a documented
// substitution and must never surface to the caller as a failure.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrValidation         = errors.New("validation error")
	ErrInternalServer     = errors.New("internal server error")
	ErrNoRouteFound       = errors.New("no drivable route between depart and arrival")
	ErrServiceDegraded    = errors.New("external geo service degraded")
	ErrInsufficientCorpus = errors.New("insufficient trip corpus for classifier")
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the wrapped error for errors.Is checks.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Message: message,
		Err:     ErrUnauthorized,
	}
}

func NewBadRequestError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:      http.StatusBadRequest,
		ErrorCode: "VALIDATION_ERROR",
		Message:   message,
		Err:       ErrValidation,
	}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}

// NewNoRouteError signals that the routing provider could not produce any
// route between the requested endpoints. No fallback distance can be trusted
// to represent drivable geometry, so this is fatal to the estimate.
func NewNoRouteError(message string) *AppError {
	return &AppError{
		Code:      http.StatusBadGateway,
		ErrorCode: "NO_ROUTE_FOUND",
		Message:   message,
		Err:       ErrNoRouteFound,
	}
}
