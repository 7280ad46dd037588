package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrValidation is returned when input is malformed or incomplete.
	ErrValidation = errors.New("validation error")
	// ErrInvalidEmailFormat is returned when an email address cannot be parsed.
	ErrInvalidEmailFormat = errors.New("invalid email format")
	// ErrDuplicateEmail is returned when a finalized account already owns the email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrVerificationRequired is returned when signup is attempted before the email is verified.
	ErrVerificationRequired = errors.New("email verification required")
	// ErrInvalidToken is returned when a confirmation token is unknown, superseded or expired.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrInvalidCredentials is returned for both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUnauthenticated is returned when a request has no resolvable session.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller lacks the required role or approval.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrProvider is returned when the credential store call fails.
	ErrProvider = errors.New("credential provider error")
)

// ValidationError carries a user-facing message for a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validation builds a ValidationError for the given field.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Provider wraps an upstream credential store failure.
func Provider(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrProvider, op, err)
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors with Korean user-facing messages.
// Anything unrecognised becomes a generic 500 so internal detail never leaks.
func MapErrorToHTTP(err error) *HTTPError {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return NewHTTPError(http.StatusBadRequest, verr.Message, "VALIDATION_ERROR")
	case errors.Is(err, ErrInvalidEmailFormat):
		return NewHTTPError(http.StatusBadRequest, "올바른 이메일 형식이 아닙니다.", "INVALID_EMAIL_FORMAT")
	case errors.Is(err, ErrValidation):
		return NewHTTPError(http.StatusBadRequest, "입력값이 올바르지 않습니다.", "VALIDATION_ERROR")
	case errors.Is(err, ErrDuplicateEmail):
		return NewHTTPError(http.StatusConflict, "이미 가입된 이메일입니다.", "DUPLICATE_EMAIL")
	case errors.Is(err, ErrVerificationRequired):
		return NewHTTPError(http.StatusBadRequest, "이메일 인증을 먼저 완료해주세요.", "VERIFICATION_REQUIRED")
	case errors.Is(err, ErrInvalidToken):
		return NewHTTPError(http.StatusBadRequest, "인증 링크가 유효하지 않거나 만료되었습니다.", "INVALID_TOKEN")
	case errors.Is(err, ErrInvalidCredentials):
		return NewHTTPError(http.StatusUnauthorized, "이메일 또는 비밀번호가 올바르지 않습니다.", "INVALID_CREDENTIALS")
	case errors.Is(err, ErrUnauthenticated):
		return NewHTTPError(http.StatusUnauthorized, "로그인이 필요합니다.", "UNAUTHENTICATED")
	case errors.Is(err, ErrForbidden):
		return NewHTTPError(http.StatusForbidden, "접근 권한이 없습니다.", "FORBIDDEN")
	case errors.Is(err, ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "요청한 항목을 찾을 수 없습니다.", "NOT_FOUND")
	case errors.Is(err, ErrProvider):
		return NewHTTPError(http.StatusBadGateway, "인증 서비스와 통신 중 오류가 발생했습니다. 잠시 후 다시 시도해주세요.", "PROVIDER_ERROR")
	default:
		return NewHTTPError(http.StatusInternalServerError, "서버 오류가 발생했습니다.", "INTERNAL_ERROR")
	}
}
