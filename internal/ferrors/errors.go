// Package ferrors provides a classified error type used across the server so
// that providers can distinguish recoverable conditions (parse failures,
// missing targets) from genuine bugs without resorting to panics.
package ferrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for logging and for command-handler responses.
type Code string

const (
	CodeParse      Code = "parse"
	CodeResolve    Code = "resolve"
	CodeIO         Code = "io"
	CodeValidation Code = "validation"
	CodeCollection Code = "collection"
	CodeInternal   Code = "internal"
)

// Fields carries structured context for logging.
type Fields map[string]any

// Classified is a structured error carrying a code, a component name, and
// optional context fields for logging.
type Classified struct {
	Code      Code
	Component string
	Message   string
	Context   Fields
	Cause     error
}

func (e *Classified) Error() string {
	msg := e.Message
	if e.Component != "" {
		msg = fmt.Sprintf("[%s] %s", e.Component, msg)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Classified) Unwrap() error { return e.Cause }

// Builder provides a fluent interface for constructing a Classified error.
type Builder struct {
	err *Classified
}

// New starts building a Classified error with the given code and message.
func New(code Code, message string) *Builder {
	return &Builder{err: &Classified{Code: code, Message: message, Context: Fields{}}}
}

func (b *Builder) WithComponent(component string) *Builder {
	b.err.Component = component
	return b
}

func (b *Builder) WithCause(cause error) *Builder {
	b.err.Cause = cause
	return b
}

func (b *Builder) WithContext(fields Fields) *Builder {
	for k, v := range fields {
		b.err.Context[k] = v
	}
	return b
}

func (b *Builder) Build() *Classified { return b.err }

// As reports whether err is (or wraps) a *Classified, writing it into target.
func As(err error, target **Classified) bool {
	return errors.As(err, target)
}

// CodeOf returns the code of a classified error wrapped in err, or "" if err
// does not wrap a *Classified.
func CodeOf(err error) Code {
	var c *Classified
	if As(err, &c) {
		return c.Code
	}
	return ""
}
