package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes shared by the feature adapter, the inference pipeline and the
// serving layer. Callers test for them with errors.Is.
var (
	// ErrValidation marks malformed or incomplete input. It is surfaced to
	// clients as a rejection and never reaches the classifier.
	ErrValidation = errors.New("validation error")

	// ErrArtifact marks a model or imputer artifact that failed to load.
	// It is fatal at startup.
	ErrArtifact = errors.New("artifact error")

	// ErrInference marks a shape mismatch between a feature row and the
	// loaded artifacts at scoring time. Retrying yields the same failure.
	ErrInference = errors.New("inference error")

	// ErrNotFound is returned by stores when a key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by stores when a unique key is already taken.
	ErrConflict = errors.New("already exists")

	// ErrUnauthorized marks bad credentials or an invalid session.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError lists the offending fields of a rejected input.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Reason, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError for the given fields.
func NewValidationError(reason string, fields ...string) *ValidationError {
	return &ValidationError{Fields: fields, Reason: reason}
}

// ArtifactError wraps a load failure of a named artifact.
func ArtifactError(path string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrArtifact, path, err)
}

// InferenceError wraps a scoring-time failure.
func InferenceError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInference, fmt.Sprintf(format, args...))
}
