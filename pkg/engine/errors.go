package engine

import (
	"errors"
	"fmt"
)

// IncompleteStepsMessage is shown when a final submission skips a required step.
const IncompleteStepsMessage = "Please complete all required steps before submitting."

var (
	// ErrValidationFailed signals that the current step has field errors.
	ErrValidationFailed = errors.New("engine: validation failed")
	// ErrIncompleteSteps signals that a non-optional step was never completed.
	ErrIncompleteSteps = errors.New("engine: " + IncompleteStepsMessage)
	// ErrSessionClosed is returned once the session was submitted or saved as draft.
	ErrSessionClosed = errors.New("engine: session closed")
	// ErrNoSubmitter is returned by Submit when no Submitter was configured.
	ErrNoSubmitter = errors.New("engine: submitter is not configured")
	// ErrStepOutOfRange is returned for step numbers outside the form.
	ErrStepOutOfRange = errors.New("engine: step out of range")
	// ErrUnknownField is returned for field names the form does not declare.
	ErrUnknownField = errors.New("engine: unknown field")
)

// TransportError wraps a collaborator failure. The wrapped error is meant to
// be shown to the user as is; local state is left untouched.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return "engine: transport error"
	}
	return fmt.Sprintf("engine: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// UserMessage returns the collaborator's error text without engine prefixes.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Err != nil {
		return transportErr.Err.Error()
	}
	if errors.Is(err, ErrIncompleteSteps) {
		return IncompleteStepsMessage
	}
	return err.Error()
}
