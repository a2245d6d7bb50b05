package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidFlow  = errors.New("invalid flow definition")
	ErrFlowComplete = errors.New("flow already complete")
	ErrUnknownStep  = errors.New("unknown step")
	ErrUnknownFlow  = errors.New("unknown flow")
	ErrNoPrevious   = errors.New("no previous step")
	ErrNoTransition = errors.New("no transition matches")
	ErrNotStarted   = errors.New("flow session not started")
	ErrNavigation   = errors.New("navigation failed")
)

// ValidationError is returned when a step submission is blocked
type ValidationError struct {
	Step    string
	Missing []string // required fields left empty
	Foreign []string // fields the step does not own
	Invalid []string // fields with a value of the wrong kind
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Foreign) > 0 {
		parts = append(parts, "not owned by step: "+strings.Join(e.Foreign, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "wrong kind: "+strings.Join(e.Invalid, ", "))
	}
	return fmt.Sprintf("step %s: %s", e.Step, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Foreign) == 0 && len(e.Invalid) == 0
}

func invalidFlow(flow, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidFlow, flow, fmt.Sprintf(format, args...))
}
