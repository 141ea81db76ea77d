package attendance

import (
	"github.com/pkg/errors"
)

// ErrEmptyDraft is returned (wrapped in a ValidationError) when a commit has
// no entry with a status.
var ErrEmptyDraft = errors.New("select a status for at least one student")

// FieldError is used to indicate an error with a specific field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is a recoverable, user-actionable failure. It never
// touches persisted state.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		return "validation failed"
	}
	return err.Err.Error()
}

func (err *ValidationError) Unwrap() error { return err.Err }

// TransportError wraps any failure coming back from a Store.
type TransportError struct {
	Op  string
	Err error
}

func (err *TransportError) Error() string {
	return "attendance store: " + err.Op + ": " + err.Err.Error()
}

func (err *TransportError) Unwrap() error { return err.Err }

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransport(err) || IsValidation(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsTransport reports whether err came from the store.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// ErrInvalidRange is returned when a statistics range ends before it starts.
var ErrInvalidRange = errors.New("date range ends before it starts")
