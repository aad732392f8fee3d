package quest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput marks user data the engine refuses to accept.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition marks a navigation request from a position the
	// quest graph does not know. It indicates a programming error.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrConfiguration marks a quest type whose configuration is incomplete.
	ErrConfiguration = errors.New("configuration error")
)

// InputError describes why a single field was rejected.
type InputError struct {
	Field  Field
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Is lets errors.Is match an InputError against ErrInvalidInput.
func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInputError returns an InputError for the given field.
func NewInputError(field Field, format string, args ...any) *InputError {
	return &InputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// TransitionError reports a navigation request the graph cannot serve.
func TransitionError(phase Phase, step StepID, reason string) error {
	return fmt.Errorf("%w: %s/%s: %s", ErrInvalidTransition, phase, step, reason)
}

// ConfigError wraps ErrConfiguration with the quest type it concerns.
func ConfigError(questType string, format string, args ...any) error {
	return fmt.Errorf("%w: quest type %q: %s", ErrConfiguration, questType, fmt.Sprintf(format, args...))
}
