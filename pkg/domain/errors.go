package domain

import (
	"errors"
	"fmt"
)

// ErrStepNotFound is returned when a route does not match any registered step.
var ErrStepNotFound = errors.New("step not found")

// ErrRecordNotFound is returned when a key cannot be found in a RecordStore.
var ErrRecordNotFound = errors.New("record not found")

// ErrInvalidDirection is returned for an unknown navigation direction.
var ErrInvalidDirection = errors.New("invalid direction")

// ConfigError reports a registry defect: a referenced step or branch does not exist.
// It is a programming error and is never recovered from with a fallback route.
type ConfigError struct {
	Step   StepID
	Edge   string
	Target StepID
}

func (e *ConfigError) Error() string {
	if e.Target == StepNone {
		return fmt.Sprintf("step %q has no %q edge", e.Step, e.Edge)
	}
	return fmt.Sprintf("step %q edge %q points to unregistered step %q", e.Step, e.Edge, e.Target)
}
