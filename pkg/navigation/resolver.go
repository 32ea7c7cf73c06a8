// Package navigation resolves routes to steps and computes step-to-step transitions.
package navigation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
)

// Rule is a conditional branch declared by a step: when When holds, the step
// leaves through Branch instead of its forward edge.
type Rule struct {
	Branch domain.Branch
	When   func(values domain.Fields, snap schema.Snapshot) bool
}

// Resolver answers "which step is this route" and "where does this step go".
type Resolver struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used to report configuration errors.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver over reg.
func NewResolver(reg *registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{registry: reg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the underlying registry.
func (r *Resolver) Registry() *registry.Registry {
	return r.registry
}

// Resolve returns the step registered at route. Not found is an expected outcome.
func (r *Resolver) Resolve(route string) (domain.Step, error) {
	step, ok := r.registry.ByRoute(route)
	if !ok {
		return domain.Step{}, fmt.Errorf("%w: %s", domain.ErrStepNotFound, route)
	}
	return step, nil
}

// Transition computes the target of leaving step in the given direction.
//
// Backward without a previous step yields a HistoryBack target. A missing branch
// or an edge to an unregistered step is a *domain.ConfigError.
func (r *Resolver) Transition(step domain.Step, dir domain.Direction) (domain.Target, error) {
	switch dir.Kind {
	case domain.DirectionForward:
		if step.Props.Next == domain.StepNone {
			return domain.Target{}, r.configError(&domain.ConfigError{Step: step.ID, Edge: "next"})
		}
		return r.target(step, "next", step.Props.Next)

	case domain.DirectionBackward:
		if step.Props.Previous == domain.StepNone {
			return domain.Target{HistoryBack: true}, nil
		}
		return r.target(step, "previous", step.Props.Previous)

	case domain.DirectionBranch:
		id, ok := step.Props.Others[dir.Branch]
		if !ok {
			return domain.Target{}, r.configError(&domain.ConfigError{Step: step.ID, Edge: string(dir.Branch)})
		}
		return r.target(step, string(dir.Branch), id)
	}
	return domain.Target{}, fmt.Errorf("%w: %q", domain.ErrInvalidDirection, dir.Kind)
}

func (r *Resolver) target(from domain.Step, edge string, id domain.StepID) (domain.Target, error) {
	to, ok := r.registry.Step(id)
	if !ok {
		return domain.Target{}, r.configError(&domain.ConfigError{Step: from.ID, Edge: edge, Target: id})
	}
	return domain.Target{Step: to.ID, Route: to.Route()}, nil
}

func (r *Resolver) configError(err *domain.ConfigError) error {
	r.logger.Error("registry configuration error", "step", err.Step, "edge", err.Edge, "target", err.Target)
	return err
}

// Choose evaluates rules in declared order; the first that holds wins.
// With no match the step goes forward.
func (r *Resolver) Choose(rules []Rule, values domain.Fields, snap schema.Snapshot) domain.Direction {
	for _, rule := range rules {
		if rule.When != nil && rule.When(values, snap) {
			return domain.ToBranch(rule.Branch)
		}
	}
	return domain.Forward()
}

// RouteRecorder persists the route a device is on.
type RouteRecorder interface {
	SetRoute(ctx context.Context, route string) (bool, error)
}

// Navigator applies computed targets to a device.
type Navigator struct {
	logger *slog.Logger
}

// NewNavigator creates a Navigator.
func NewNavigator(logger *slog.Logger) *Navigator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Navigator{logger: logger}
}

// Apply moves the device from route to target. It reports whether the route changed;
// a target equal to the source, or a history-back target, changes nothing.
func (n *Navigator) Apply(ctx context.Context, rec RouteRecorder, from string, target domain.Target) (bool, error) {
	if target.HistoryBack || target.Route == "" {
		return false, nil
	}
	if registry.Normalize(from) == registry.Normalize(target.Route) {
		return false, nil
	}
	changed, err := rec.SetRoute(ctx, target.Route)
	if err != nil {
		return false, fmt.Errorf("failed to record route: %w", err)
	}
	if changed {
		n.logger.Debug("route changed", "from", from, "to", target.Route)
	}
	return changed, nil
}
