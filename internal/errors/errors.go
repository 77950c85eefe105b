package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryClient   ErrorCategory = "client"
	CategoryServer   ErrorCategory = "server"
	CategoryExternal ErrorCategory = "external"
)

// Common error codes
const (
	// Client errors (4xx)
	CodeValidationError = "VALIDATION_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeRateLimited     = "RATE_LIMIT_EXCEEDED"

	// Authentication specific
	CodeInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"
	CodeTokenInvalid        = "TOKEN_INVALID"
	CodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
	CodeEmailExists         = "AUTH_EMAIL_ALREADY_EXISTS"
	CodeUserNotFound        = "USER_NOT_FOUND"

	// Server errors (5xx)
	CodeInternalError       = "INTERNAL_ERROR"
	CodeDatabaseError       = "DATABASE_ERROR"
	CodePasswordResetFailed = "PASSWORD_RESET_FAILED"
	CodeResetEmailFailed    = "RESET_EMAIL_FAILED"
)

// AppError represents a structured application error
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Category   ErrorCategory  `json:"-"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithCause sets the underlying cause of the error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// ErrorResponse is the JSON structure returned to clients
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details
type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// New creates a new AppError
func New(code string, message string, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Category:   category,
		HTTPStatus: httpStatus,
	}
}

// Client error constructors

func BadRequest(message string) *AppError {
	return New(CodeInvalidRequest, message, CategoryClient, http.StatusBadRequest)
}

func ValidationError(message string) *AppError {
	return New(CodeValidationError, message, CategoryClient, http.StatusBadRequest)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, message, CategoryClient, http.StatusUnauthorized)
}

// InvalidCredentials covers both the missing-user and wrong-password login
// paths. Constant shape so clients cannot tell which one happened.
func InvalidCredentials() *AppError {
	return New(CodeInvalidCredentials, "invalid email or password", CategoryClient, http.StatusUnauthorized)
}

func TokenInvalid() *AppError {
	return New(CodeTokenInvalid, "invalid or expired access token", CategoryClient, http.StatusUnauthorized)
}

func RefreshTokenInvalid() *AppError {
	return New(CodeRefreshTokenInvalid, "invalid or expired refresh token", CategoryClient, http.StatusUnauthorized)
}

// ResetTokenInvalid is raised when a password-reset token matches no user or
// has expired. 404 with the TOKEN_INVALID code, per the reset-link contract.
func ResetTokenInvalid() *AppError {
	return New(CodeTokenInvalid, "invalid or expired reset token", CategoryClient, http.StatusNotFound)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, CategoryClient, http.StatusForbidden)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), CategoryClient, http.StatusNotFound)
}

func UserNotFound() *AppError {
	return New(CodeUserNotFound, "user does not exist", CategoryClient, http.StatusNotFound)
}

func EmailExists() *AppError {
	return New(CodeEmailExists, "email already in use", CategoryClient, http.StatusConflict)
}

// RateLimited carries the retry-after hint so the route layer can surface it
// as a Retry-After header.
func RateLimited(retryAfterSeconds int) *AppError {
	return New(CodeRateLimited, "too many attempts, please try again later", CategoryClient, http.StatusTooManyRequests).
		WithDetails(map[string]any{"retryAfterSeconds": retryAfterSeconds})
}

// Server error constructors

func InternalError(message string) *AppError {
	return New(CodeInternalError, message, CategoryServer, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return New(CodeDatabaseError, message, CategoryServer, http.StatusInternalServerError)
}

func PasswordResetFailed() *AppError {
	return New(CodePasswordResetFailed, "failed to update password", CategoryServer, http.StatusInternalServerError)
}

func ResetEmailFailed() *AppError {
	return New(CodeResetEmailFailed, "failed to send reset email", CategoryExternal, http.StatusInternalServerError)
}

// RetryAfterSeconds extracts the retry-after hint from a rate-limit error,
// or 0 if the error carries none.
func RetryAfterSeconds(err error) int {
	appErr, ok := err.(*AppError)
	if !ok || appErr.Details == nil {
		return 0
	}
	if retry, ok := appErr.Details["retryAfterSeconds"].(int); ok {
		return retry
	}
	return 0
}

// WriteError writes an error response to the HTTP response writer
func WriteError(w http.ResponseWriter, requestID string, err error) {
	var appErr *AppError

	switch e := err.(type) {
	case *AppError:
		appErr = e
	default:
		// Wrap unknown errors as internal errors
		appErr = InternalError("an unexpected error occurred").WithCause(err)
	}

	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	if retry := RetryAfterSeconds(appErr); retry > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
	}

	resp := ErrorResponse{
		Error: ErrorBody{
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
			Details:   appErr.Details,
		},
	}

	w.WriteHeader(appErr.HTTPStatus)
	json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes a JSON response with the request ID header
func WriteJSON(w http.ResponseWriter, requestID string, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	if requestID != "" {
		w.Header().Set("X-Request-ID", requestID)
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// IsRetryable returns true if the error is worth retrying
func IsRetryable(err error) bool {
	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}
	return appErr.Category == CategoryExternal || appErr.Code == CodeDatabaseError
}
