package utils

import (
	"net/http"

	"solar-sync/internal/common/constants"
)

// StandardResponse API 응답 형식
type StandardResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse 성공 응답
func SuccessResponse(message string, data interface{}) StandardResponse {
	return StandardResponse{
		Status:  constants.ResponseSuccess,
		Message: message,
		Data:    data,
	}
}

// ErrorResponse 오류 응답
func ErrorResponse(message string) StandardResponse {
	return StandardResponse{
		Status:  constants.ResponseError,
		Message: message,
	}
}

// AppError HTTP 상태 코드를 가진 애플리케이션 오류
type AppError struct {
	Code    int    // HTTP status code (e.g., 404, 400, 500)
	Message string // User-facing message
	err     error  // Internal-facing error for logging purposes
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.err
}

// NewAppError 코드와 원본 오류로 AppError 생성
func NewAppError(code int, message string, originalError error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		err:     originalError,
	}
}

// NewNotFoundError creates a 404 Not Found error.
func NewNotFoundError(message string, originalError ...error) *AppError {
	return newWithOptional(http.StatusNotFound, message, originalError)
}

// NewBadRequestError creates a 400 Bad Request error.
func NewBadRequestError(message string, originalError ...error) *AppError {
	return newWithOptional(http.StatusBadRequest, message, originalError)
}

// NewForbiddenError creates a 403 Forbidden error.
func NewForbiddenError(message string, originalError ...error) *AppError {
	return newWithOptional(http.StatusForbidden, message, originalError)
}

// NewConflictError creates a 409 Conflict error.
func NewConflictError(message string, originalError ...error) *AppError {
	return newWithOptional(http.StatusConflict, message, originalError)
}

// NewInternalServerError creates a 500 Internal Server Error.
func NewInternalServerError(message string, originalError error) *AppError {
	return NewAppError(http.StatusInternalServerError, message, originalError)
}

func newWithOptional(code int, message string, originalError []error) *AppError {
	e := &AppError{
		Code:    code,
		Message: message,
	}
	if len(originalError) > 0 {
		e.err = originalError[0]
	}
	return e
}
