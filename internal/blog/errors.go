package blog

import (
	"errors"
	"strings"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrUsernameTaken   = errors.New("username already taken")
	ErrInvalidLogin    = errors.New("incorrect username or password")
	ErrInvalidUpload   = errors.New("invalid upload")
)

// ValidationError is a user-facing input problem. Message is rendered
// verbatim next to the form that caused it.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// InvalidUpload reports a file whose extension is not accepted.
func InvalidUpload(allowed []string) error {
	return &ValidationError{
		Message: "Image must be one of: " + strings.Join(allowed, " "),
		Err:     ErrInvalidUpload,
	}
}

// Message returns the user-visible text of a validation error, or "" if err
// is not one.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return ""
}
