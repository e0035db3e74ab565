// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resilience

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrorResponse represents the standard error response format of the API
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorCode represents standard error codes used across the service
type ErrorCode string

const (
	// Client errors (4xx)
	ErrorCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrorCodeInvalidQuery ErrorCode = "INVALID_QUERY"
	ErrorCodeNotFound     ErrorCode = "NOT_FOUND"

	// Server errors (5xx)
	ErrorCodeInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrorCodeRetrievalFailure   ErrorCode = "RETRIEVAL_FAILURE"
	ErrorCodeGenerationFailure  ErrorCode = "GENERATION_FAILURE"
	ErrorCodeSystemUnavailable  ErrorCode = "SYSTEM_UNAVAILABLE"
	ErrorCodeDependencyFailure  ErrorCode = "DEPENDENCY_FAILURE"
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ServiceError represents an error with additional context for proper handling
type ServiceError struct {
	Message    string
	Code       ErrorCode
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Internal
}

// ToErrorResponse converts a ServiceError to an ErrorResponse
func (e *ServiceError) ToErrorResponse(requestID string) ErrorResponse {
	return ErrorResponse{
		Error:     e.Message,
		Code:      string(e.Code),
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

// NewServiceError creates a new ServiceError with the given parameters
func NewServiceError(message string, code ErrorCode, statusCode int, internal error) *ServiceError {
	return &ServiceError{
		Message:    message,
		Code:       code,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeBadRequest, http.StatusBadRequest, internal)
}

// NewInvalidQueryError creates an error for a question that failed validation.
// The message is shown to the user as-is.
func NewInvalidQueryError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeInvalidQuery, http.StatusBadRequest, internal)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeNotFound, http.StatusNotFound, internal)
}

// NewInternalError creates a new internal server error
func NewInternalError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeInternalError, http.StatusInternalServerError, internal)
}

// NewRetrievalFailure marks a single retrieval agent failure
func NewRetrievalFailure(agent string, internal error) *ServiceError {
	return NewServiceError(fmt.Sprintf("retrieval from %s failed", agent), ErrorCodeRetrievalFailure, http.StatusBadGateway, internal)
}

// NewGenerationFailure marks a failed text generation call
func NewGenerationFailure(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeGenerationFailure, http.StatusBadGateway, internal)
}

// NewSystemUnavailable wraps an unexpected pipeline failure
func NewSystemUnavailable(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeSystemUnavailable, http.StatusServiceUnavailable, internal)
}

// NewServiceUnavailableError creates a new service unavailable error
func NewServiceUnavailableError(message string, internal error) *ServiceError {
	return NewServiceError(message, ErrorCodeServiceUnavailable, http.StatusServiceUnavailable, internal)
}

// AsServiceError checks if an error is or wraps a ServiceError
func AsServiceError(err error, target **ServiceError) bool {
	if err == nil {
		return false
	}
	return errors.As(err, target)
}

// IsCode reports whether err carries the given error code
func IsCode(err error, code ErrorCode) bool {
	var serviceErr *ServiceError
	return AsServiceError(err, &serviceErr) && serviceErr.Code == code
}

// ErrorHandler provides utilities for handling and formatting errors
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler with the given logger
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorHandler{logger: logger}
}

// WrapError wraps an error with a user-friendly message and proper error code
func (eh *ErrorHandler) WrapError(err error, operation string) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if AsServiceError(err, &serviceErr) {
		return serviceErr
	}

	userMessage := getUserFriendlyMessage(err, operation)
	code, statusCode := categorizeError(err)

	eh.logger.Error("Error occurred during operation",
		zap.String("operation", operation),
		zap.Error(err),
		zap.String("user_message", userMessage),
		zap.String("error_code", string(code)))

	return NewServiceError(userMessage, code, statusCode, err)
}

// getUserFriendlyMessage converts technical errors to user-friendly messages
func getUserFriendlyMessage(err error, operation string) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return "The operation is taking longer than expected. Please try again."
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset"):
		return "Unable to connect to the service. Please try again later."
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "does not exist"):
		return "The requested record was not found."
	case strings.Contains(errStr, "invalid"):
		return "The request is invalid. Please check your input and try again."
	default:
		return fmt.Sprintf("An error occurred while %s. Please try again.", operation)
	}
}

// categorizeError determines the error code and HTTP status code
func categorizeError(err error) (ErrorCode, int) {
	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset"):
		return ErrorCodeDependencyFailure, http.StatusBadGateway
	case strings.Contains(errStr, "not found"):
		return ErrorCodeNotFound, http.StatusNotFound
	case strings.Contains(errStr, "invalid"):
		return ErrorCodeBadRequest, http.StatusBadRequest
	case strings.Contains(errStr, "unavailable") || strings.Contains(errStr, "timeout"):
		return ErrorCodeServiceUnavailable, http.StatusServiceUnavailable
	default:
		return ErrorCodeInternalError, http.StatusInternalServerError
	}
}

// Respond writes err as a JSON error response and aborts the gin context
func (eh *ErrorHandler) Respond(c *gin.Context, err error, operation string) {
	serviceErr := eh.WrapError(err, operation)
	if serviceErr == nil {
		serviceErr = NewInternalError("An unknown error occurred", nil)
	}
	c.AbortWithStatusJSON(serviceErr.StatusCode, serviceErr.ToErrorResponse(c.GetHeader("X-Request-ID")))
}

// LogError logs err with its error code and cause. Retrieval and generation
// failures are logged as warnings since the pipeline degrades around them;
// anything else is an error.
func (eh *ErrorHandler) LogError(err error, operation string, fields ...zap.Field) {
	if err == nil || eh == nil {
		return
	}

	logFields := append([]zap.Field{
		zap.String("operation", operation),
		zap.Error(err),
	}, fields...)

	level := zapcore.ErrorLevel
	var serviceErr *ServiceError
	if AsServiceError(err, &serviceErr) {
		logFields = append(logFields,
			zap.String("error_code", string(serviceErr.Code)),
			zap.Int("status_code", serviceErr.StatusCode))
		if serviceErr.Internal != nil {
			logFields = append(logFields, zap.NamedError("cause", serviceErr.Internal))
		}
		switch serviceErr.Code {
		case ErrorCodeRetrievalFailure, ErrorCodeGenerationFailure:
			level = zapcore.WarnLevel
		}
	}

	if ce := eh.logger.Check(level, "Operation failed"); ce != nil {
		ce.Write(logFields...)
	}
}
