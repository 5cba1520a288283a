package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidCredentials      = errors.New("invalid identifier or password")
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrUnauthorized            = errors.New("unauthorized access")
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserInactive      = errors.New("user account is deactivated")
	ErrInvalidUserRole   = errors.New("invalid user role")

	ErrInvalidInput = errors.New("invalid input data")
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// Error codes used across services. Handlers map them to HTTP statuses
// through StatusCode.
const (
	CodeAuthMissing  = "AUTH_MISSING"
	CodeAuthInvalid  = "AUTH_INVALID"
	CodeAuthExpired  = "AUTH_EXPIRED"
	CodeAuthInactive = "AUTH_INACTIVE"

	CodeForbidden = "FORBIDDEN"
	CodeNotFound  = "NOT_FOUND"

	CodeValidation      = "VALIDATION_ERROR"
	CodeWeakPassword    = "WEAK_PASSWORD"
	CodeDuplicateField  = "DUPLICATE_FIELD"
	CodeDuplicateDevice = "DUPLICATE_DEVICE"
	CodeAlreadyLocked   = "ALREADY_LOCKED"
	CodeNotLocked       = "NOT_LOCKED"
	CodeConflict        = "CONFLICT"

	CodeTransient = "TRANSIENT_ERROR"
)

type AppError struct {
	Code    string
	Message string
	Err     error
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

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StatusCode resolves the HTTP status for an error. Unknown errors are
// treated as transient server failures.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case CodeAuthMissing, CodeAuthInvalid, CodeAuthExpired, CodeAuthInactive:
			return http.StatusUnauthorized
		case CodeForbidden:
			return http.StatusForbidden
		case CodeNotFound:
			return http.StatusNotFound
		case CodeValidation, CodeWeakPassword, CodeDuplicateField, CodeDuplicateDevice,
			CodeAlreadyLocked, CodeNotLocked, CodeConflict:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUserInactive):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInsufficientPermissions):
		return http.StatusForbidden
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrWeakPassword):
		return http.StatusBadRequest
	}

	return http.StatusInternalServerError
}
