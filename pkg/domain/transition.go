package domain

import "fmt"

// DirectionKind classifies a navigation request.
type DirectionKind string

const (
	DirectionForward  DirectionKind = "forward"
	DirectionBackward DirectionKind = "backward"
	DirectionBranch   DirectionKind = "branch"
)

// Direction is a navigation request made by a step.
type Direction struct {
	Kind   DirectionKind `json:"kind"`
	Branch Branch        `json:"branch,omitempty"`
}

// Forward requests the step's declared next target.
func Forward() Direction { return Direction{Kind: DirectionForward} }

// Backward requests the step's declared previous target (or history back).
func Backward() Direction { return Direction{Kind: DirectionBackward} }

// ToBranch requests the named alternate target.
func ToBranch(b Branch) Direction { return Direction{Kind: DirectionBranch, Branch: b} }

func (d Direction) String() string {
	if d.Kind == DirectionBranch {
		return fmt.Sprintf("%s(%s)", d.Kind, d.Branch)
	}
	return string(d.Kind)
}

// Target is the outcome of a transition computation.
type Target struct {
	Step  StepID `json:"step,omitempty"`
	Route string `json:"route,omitempty"`

	// HistoryBack means "no previous step defined, use the client's history".
	HistoryBack bool `json:"history_back,omitempty"`
}

// Phase is the lifecycle position of a step instance.
type Phase string

const (
	PhaseMounted       Phase = "mounted"
	PhaseValidating    Phase = "validating"
	PhaseReady         Phase = "ready"
	PhaseBlocked       Phase = "blocked"
	PhaseCommitting    Phase = "committing"
	PhaseTransitioning Phase = "transitioning"
	PhaseUnmounted     Phase = "unmounted"
)
