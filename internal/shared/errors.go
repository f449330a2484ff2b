package shared

import "errors"

// Error kinds. Domain packages wrap one of these so the HTTP layer can pick a status.
var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness or state-machine violation.
	ErrConflict = errors.New("conflict")
	// ErrBusinessRule indicates a request that is well formed but not allowed by stock rules.
	ErrBusinessRule = errors.New("business rule violated")
	// ErrUnauthorized indicates a missing or expired session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the user lacks the required permission.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("usuario o contraseña inválidos")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("falta el token CSRF")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("token CSRF inválido")
)

// kindError attaches a kind to a domain error while keeping its own message.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// NewError builds a sentinel that prints msg and matches kind with errors.Is.
func NewError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

// Validation wraps a message as a validation error.
func Validation(msg string) error {
	return NewError(ErrValidation, msg)
}
