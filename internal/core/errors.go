package core

import "errors"

var (
	// ErrNotFound is returned for missing records and for records outside
	// the caller's scope, so the two cases cannot be told apart.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is the generic denial for disallowed actions.
	ErrUnauthorized = errors.New("not authorized")

	ErrConflict = errors.New("already exists")
)

// ValidationError reports a malformed input field on the write path.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
