package domain

import "errors"

var (
	// ErrSessionNotFound covers both missing and foreign-owned sessions.
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidSessionID   = errors.New("invalid session id")
	ErrEmptyMessage       = errors.New("message cannot be empty")
	ErrMessageTooLong     = errors.New("message is too long")
	ErrTitleTooLong       = errors.New("title is too long")
	ErrInvalidPreferences = errors.New("invalid preferences")
	ErrProcessingFailed   = errors.New("failed to process message")
)

// IsValidation reports whether err should be reported to the caller as a bad request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidSessionID) ||
		errors.Is(err, ErrEmptyMessage) ||
		errors.Is(err, ErrMessageTooLong) ||
		errors.Is(err, ErrTitleTooLong) ||
		errors.Is(err, ErrInvalidPreferences)
}
