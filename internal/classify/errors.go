package classify

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by Classify matches exactly one of
// these with errors.Is.
var (
	// ErrConfiguration means no credential is configured; the service was
	// never called.
	ErrConfiguration = errors.New("classifier not configured")
	// ErrService means the text-generation service failed, timed out, or
	// kept failing after the retry.
	ErrService = errors.New("classification service failed")
	// ErrMalformedResponse means the service replied with something that is
	// not a JSON object of the expected shape.
	ErrMalformedResponse = errors.New("malformed classification response")
	// ErrValidation means the input or the parsed response violates a
	// field constraint.
	ErrValidation = errors.New("invalid classification")
)

// ClassificationError pairs a failure kind with its cause.
type ClassificationError struct {
	Kind error
	Err  error
}

func (e *ClassificationError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

// Is reports whether target is the failure kind.
func (e *ClassificationError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *ClassificationError) Unwrap() error {
	return e.Err
}

func fail(kind, err error) *ClassificationError {
	return &ClassificationError{Kind: kind, Err: err}
}
