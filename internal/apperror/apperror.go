package apperror

import (
	"errors"
	"fmt"
)

// Sentinel errors for the API's failure taxonomy. Handlers map these to
// HTTP status codes with errors.Is; services return them wrapped in an
// *AppError carrying the human-readable message.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrAuth         = errors.New("invalid credentials")
	ErrBidRejected  = errors.New("bid rejected")
	ErrTooLarge     = errors.New("payload too large")
	ErrUnauthorized = errors.New("unauthorized")
)

type AppError struct {
	Err     error  // sentinel from the set above
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s already exists: %s", resource, id),
	}
}

// AuthFailed returns the generic credentials error. The message is identical
// for unknown-user and wrong-password so responses carry no enumeration
// signal.
func AuthFailed() *AppError {
	return &AppError{
		Err:     ErrAuth,
		Message: "invalid credentials",
	}
}

// BidRejected covers business-rule refusals on the bid path: amount not
// above the current bid, or the auction already closed (when close
// enforcement is on).
func BidRejected(message string) *AppError {
	return &AppError{
		Err:     ErrBidRejected,
		Message: message,
	}
}

func TooLarge(message string) *AppError {
	return &AppError{
		Err:     ErrTooLarge,
		Message: message,
	}
}

// Unauthorized returns an AppError for requests lacking a valid admin token.
// HTTP handlers map this to 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}
