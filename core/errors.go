package core

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrForbidden is returned by services when the acting user lacks the rights for an operation.
	ErrForbidden = errors.New("permission denied")

	// ErrOrderIndexConflict is returned by repositories when an order_index unique constraint fails.
	ErrOrderIndexConflict = errors.New("order_index already in use")
)

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

func NewFieldValidationError(field, msg string) error {
	return &ValidationError{Err: errors.New(msg), Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return fmt.Sprintf("%s: %s", err.Fields[0].Field, err.Fields[0].Error)
		}
		return ""
	}
	return err.Err.Error()
}

// DBError carries a database error the way the database reported it.
type DBError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (err DBError) Error() string {
	return err.Message
}

// IsConstraintViolation reports whether the error is an integrity constraint violation (SQLSTATE class 23).
func (err DBError) IsConstraintViolation() bool {
	return len(err.Code) == 5 && err.Code[:2] == "23"
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
	_, ok := pkgerrors.Cause(err).(*shutdown)
	return ok
}
