package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sales-dashboard/internal/aggregate"
)

type ErrorCode string

const (
	CodeInternal       ErrorCode = "INTERNAL_ERROR"
	CodeValidation     ErrorCode = "VALIDATION_ERROR"
	CodeNotFound       ErrorCode = "NOT_FOUND"
	CodeBadRequest     ErrorCode = "BAD_REQUEST"
	CodeUnprocessable  ErrorCode = "UNPROCESSABLE"
	CodeRateLimit      ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeServiceUnavail ErrorCode = "SERVICE_UNAVAILABLE"
)

type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Timestamp:  time.Now().UTC(),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: getStatusCode(code),
		Cause:      err,
		Timestamp:  time.Now().UTC(),
	}
}

func Internal(message string) *AppError {
	return New(CodeInternal, message)
}

func InternalWrap(err error, message string) *AppError {
	return Wrap(err, CodeInternal, message)
}

func Validation(message string) *AppError {
	return New(CodeValidation, message)
}

func ValidationWrap(err error, message string) *AppError {
	return Wrap(err, CodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

func BadRequestWrap(err error, message string) *AppError {
	return Wrap(err, CodeBadRequest, message)
}

func Unprocessable(err error, message string) *AppError {
	return Wrap(err, CodeUnprocessable, message)
}

// FromAggregation maps aggregation failures onto API errors: a missing input
// column is unprocessable data, an unknown dimension or strategy is a bad
// request, anything else is internal.
func FromAggregation(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var mce *aggregate.MissingColumnError
	switch {
	case errors.As(err, &mce):
		e := Unprocessable(err, "required column missing from input data")
		e.Details = mce.Error()
		return e
	case errors.Is(err, aggregate.ErrUnknownDimension), errors.Is(err, aggregate.ErrUnknownStrategy):
		e := BadRequestWrap(err, "invalid aggregation parameter")
		e.Details = err.Error()
		return e
	default:
		return InternalWrap(err, "aggregation failed")
	}
}

func RateLimit(message string) *AppError {
	return New(CodeRateLimit, message)
}

func ServiceUnavailable(message string) *AppError {
	return New(CodeServiceUnavail, message)
}

func getStatusCode(code ErrorCode) int {
	switch code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnprocessable:
		return http.StatusUnprocessableEntity
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeServiceUnavail:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Success bool      `json:"success"`
}

func WriteError(w http.ResponseWriter, logger *slog.Logger, err error, requestID string) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal("An unexpected error occurred")
		appErr.Cause = err
	}

	appErr.RequestID = requestID

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	response := ErrorResponse{
		Error:   appErr,
		Success: false,
	}

	if encodeErr := json.NewEncoder(w).Encode(response); encodeErr != nil {
		logger.Error("failed to encode error response",
			"encode_error", encodeErr,
			"original_error", err,
			"request_id", requestID,
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	logLevel := slog.LevelError
	if appErr.StatusCode < 500 {
		logLevel = slog.LevelWarn
	}

	logger.Log(context.Background(), logLevel, "request failed",
		"error_code", appErr.Code,
		"error_message", appErr.Message,
		"status_code", appErr.StatusCode,
		"request_id", requestID,
		"cause", appErr.Cause,
	)
}

type SuccessResponse struct {
	Data    any  `json:"data"`
	Success bool `json:"success"`
}

func WriteSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := SuccessResponse{
		Data:    data,
		Success: true,
	}

	_ = json.NewEncoder(w).Encode(response)
}

func WriteSuccessWithHeaders(w http.ResponseWriter, data any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteSuccess(w, data)
}
