package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a failure raised while processing an application.
type Kind string

const (
	KindUnknown       Kind = ""
	KindConfiguration Kind = "configuration"
	KindTransport     Kind = "transport"
	KindEnvironment   Kind = "environment"
	KindSubprocess    Kind = "subprocess"
)

// Error attaches a Kind to an underlying error.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause walk through classified errors.
func (e *Error) Cause() error {
	return e.Err
}

// NewError classifies err. A nil err yields nil.
func NewError(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

func ConfigurationErrorf(format string, args ...interface{}) error {
	return NewError(KindConfiguration, errors.Errorf(format, args...))
}

func EnvironmentErrorf(format string, args ...interface{}) error {
	return NewError(KindEnvironment, errors.Errorf(format, args...))
}

// KindOf returns the outermost Kind found in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitError reports a command that ran and exited with a non-zero status.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s exited with status %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}
