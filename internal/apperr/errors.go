// Package apperr defines the error kinds shared by every layer of the vault service.
package apperr

import "errors"

// Error kinds. Every condition reported by an operation matches exactly one of these
// through errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrPathOutsideVault = errors.New("path is outside the vault directory")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrMalformedSection = errors.New("malformed section")
	ErrIO               = errors.New("io failure")
)

// Error is a named condition belonging to one kind.
type Error struct {
	Kind error
	Msg  string
}

// New returns a condition of the given kind.
func New(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	if e == nil || e.Msg == "" {
		return "error"
	}
	return e.Msg
}

// Unwrap exposes the kind so errors.Is(err, ErrNotFound) holds for a not-found condition.
func (e *Error) Unwrap() error {
	return e.Kind
}

var kinds = []error{
	ErrInvalidInput,
	ErrPathOutsideVault,
	ErrNotFound,
	ErrAlreadyExists,
	ErrMalformedSection,
	ErrIO,
}

// KindOf returns the kind err belongs to, or nil when err is outside the taxonomy.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
