package optimization

import (
	"errors"
	"fmt"
)

// Error carries component and operation context alongside the message so a
// failed evaluation can be traced without a stack dump.
type Error struct {
	// Message describes what went wrong.
	Message string
	// Op is the operation that failed.
	Op string
	// Component is the package or subsystem the failure belongs to.
	Component string
	// Err is the wrapped cause, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	prefix := ""
	switch {
	case e.Component != "" && e.Op != "":
		prefix = e.Component + ": " + e.Op + ": "
	case e.Component != "":
		prefix = e.Component + ": "
	case e.Op != "":
		prefix = e.Op + ": "
	}
	if e.Err != nil {
		return fmt.Sprintf("%s%s: %v", prefix, e.Message, e.Err)
	}
	return prefix + e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation records the failing operation.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent records the owning component.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates an error with the given message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// NewErrorf creates an error with a formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps an existing error with additional context. Returns nil when
// err is nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}

// WrapErrorf wraps an existing error with formatted context. Returns nil when
// err is nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: fmt.Sprintf(format, args...), Err: err}
}

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
