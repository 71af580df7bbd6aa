package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// ConflictError is a business-rule violation (duplicate submission,
// already-graded, already-enrolled, ...). Code is a stable symbolic
// identifier callers can branch on without matching messages.
type ConflictError struct {
	Code    string
	Message string
}

func NewConflictError(code, msg string) error {
	return &ConflictError{Code: code, Message: msg}
}

func (err ConflictError) Error() string {
	return err.Message
}

// ConflictCode returns the symbolic code of err if it is a ConflictError; "" otherwise.
func ConflictCode(err error) string {
	if cerr, ok := errors.Cause(err).(*ConflictError); ok {
		return cerr.Code
	}
	return ""
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
