package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter  EventType = "step_enter"
	EventStepLeave  EventType = "step_leave"
	EventValidation EventType = "validation"
	EventSubmit     EventType = "submit"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	DeviceID  string    `json:"device_id"`
}

// StepEvent represents entry into or exit from a step.
type StepEvent struct {
	EventBase
	StepID    StepID    `json:"step_id"`
	Route     string    `json:"route"`
	Direction Direction `json:"direction,omitempty"`
	Target    string    `json:"target,omitempty"`
}

// ValidationEvent reports the result of a forward attempt's validation.
type ValidationEvent struct {
	EventBase
	StepID  StepID   `json:"step_id"`
	Valid   bool     `json:"valid"`
	Invalid []string `json:"invalid,omitempty"`
}

// SubmitEvent reports a submission attempt.
type SubmitEvent struct {
	EventBase
	SubmissionID string        `json:"submission_id,omitempty"`
	Duration     time.Duration `json:"duration"`
	Err          error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter  func(context.Context, *StepEvent)
	OnStepLeave  func(context.Context, *StepEvent)
	OnValidation func(context.Context, *ValidationEvent)
	OnSubmit     func(context.Context, *SubmitEvent)
}

// Combine returns hooks calling h first and then other.
func (h LifecycleHooks) Combine(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepEnter:  chain(h.OnStepEnter, other.OnStepEnter),
		OnStepLeave:  chain(h.OnStepLeave, other.OnStepLeave),
		OnValidation: chain(h.OnValidation, other.OnValidation),
		OnSubmit:     chain(h.OnSubmit, other.OnSubmit),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
