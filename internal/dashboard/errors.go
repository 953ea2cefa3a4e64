package dashboard

import (
	"errors"
	"strings"

	"github.com/0xChaser/EasyBooking/internal/api"
)

var (
	// ErrActionDisabled is returned when an action is not available for the
	// current status of its target. Nothing is sent to the backend.
	ErrActionDisabled = errors.New("action not available")
	ErrNotOpen        = errors.New("dialog is not open")
	ErrNotMounted     = errors.New("list is not mounted")
	// ErrDeclined is returned when the user did not confirm a destructive action.
	ErrDeclined = errors.New("action not confirmed")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError is a client-side form check that failed before dispatch.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// Is lets callers treat client and server validation failures alike.
func (e *ValidationError) Is(target error) bool {
	return target == api.ErrValidation
}

// Field returns the message recorded for field, if any.
func (e *ValidationError) Field(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
