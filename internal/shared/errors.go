package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// SafeMessager is implemented by errors that carry a message fit for end users.
type SafeMessager interface {
	SafeMessage() string
}

// UserSafeMessage returns a message that can be shown to end users.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var sm SafeMessager
	if errors.As(err, &sm) {
		return sm.SafeMessage()
	}
	if errors.Is(err, ErrNotFound) {
		return "The requested record was not found."
	}
	return "Something went wrong. Please try again."
}
