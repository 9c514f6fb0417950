package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"QuantLab/internal/domain/quanterr"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

func NotFoundErrorf(format string, a ...interface{}) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", fmt.Sprintf(format, a...), http.StatusNotFound)
}

func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// FromQuantError maps an analysis failure to an AppError. Input the engine
// cannot use is 422, an out-of-range parameter is 400, anything else 500.
// Errors that already are an *AppError pass through.
func FromQuantError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	kind, ok := quanterr.KindOf(err)
	if !ok {
		return InternalError("analysis failed").WithError(err)
	}
	code := "ERR_" + strings.ToUpper(string(kind))
	switch kind {
	case quanterr.KindInsufficientData, quanterr.KindDegenerateInput:
		return NewAppError(code, "", err.Error(), http.StatusUnprocessableEntity).WithError(err)
	case quanterr.KindInvalidParameter:
		return NewAppError(code, "", err.Error(), http.StatusBadRequest).WithError(err)
	default:
		return InternalError("analysis failed").WithError(err)
	}
}
