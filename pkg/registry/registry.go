// Package registry holds the static step graph of the wizard.
//
// Flows are pure functions of their section key. A Registry indexes the concatenated
// flows by step ID and by full route; it is built once and never mutated.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// Registry is an immutable index of steps.
type Registry struct {
	steps    []domain.Step
	byID     map[domain.StepID]int
	byRoute  map[string]int
	start    domain.StepID
	terminal domain.StepID
}

// Option configures a Registry.
type Option func(*Registry)

// WithStart overrides the entry step (defaults to the first registered step).
func WithStart(id domain.StepID) Option {
	return func(r *Registry) { r.start = id }
}

// WithTerminal names the step allowed to have no forward edge.
func WithTerminal(id domain.StepID) Option {
	return func(r *Registry) { r.terminal = id }
}

// New indexes the given flows in order. Duplicate IDs or routes are rejected.
func New(flows [][]domain.Step, opts ...Option) (*Registry, error) {
	r := &Registry{
		byID:    make(map[domain.StepID]int),
		byRoute: make(map[string]int),
	}
	for _, flow := range flows {
		for _, step := range flow {
			if step.ID == domain.StepNone {
				return nil, fmt.Errorf("step at %q has no id", step.Route())
			}
			if _, dup := r.byID[step.ID]; dup {
				return nil, fmt.Errorf("duplicate step id %q", step.ID)
			}
			route := Normalize(step.Route())
			if other, dup := r.byRoute[route]; dup {
				return nil, fmt.Errorf("steps %q and %q share route %q", r.steps[other].ID, step.ID, route)
			}
			r.byID[step.ID] = len(r.steps)
			r.byRoute[route] = len(r.steps)
			r.steps = append(r.steps, step)
		}
	}
	if len(r.steps) > 0 {
		r.start = r.steps[0].ID
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Default returns the wizard's registry: the welcome flow followed by the submit-steps flow.
func Default() *Registry {
	r, err := New(
		[][]domain.Step{
			WelcomeSteps(domain.SectionWelcome),
			SubmitSteps(domain.SectionSubmitSteps),
		},
		WithStart(domain.StepWelcomeLocale),
		WithTerminal(domain.StepThankYou),
	)
	if err != nil {
		panic(fmt.Sprintf("registry: invalid default flows: %v", err))
	}
	return r
}

// Normalize strips a trailing slash (except for "/") so "/welcome/" matches "/welcome".
func Normalize(route string) string {
	if len(route) > 1 {
		route = strings.TrimRight(route, "/")
	}
	if route == "" {
		return "/"
	}
	return route
}

// Step returns the step with the given ID.
func (r *Registry) Step(id domain.StepID) (domain.Step, bool) {
	i, ok := r.byID[id]
	if !ok {
		return domain.Step{}, false
	}
	return r.steps[i], true
}

// ByRoute returns the step registered at the full route.
func (r *Registry) ByRoute(route string) (domain.Step, bool) {
	i, ok := r.byRoute[Normalize(route)]
	if !ok {
		return domain.Step{}, false
	}
	return r.steps[i], true
}

// Steps returns every step in registration order.
func (r *Registry) Steps() []domain.Step {
	out := make([]domain.Step, len(r.steps))
	copy(out, r.steps)
	return out
}

// Routes returns every registered route, sorted.
func (r *Registry) Routes() []string {
	routes := make([]string, 0, len(r.byRoute))
	for route := range r.byRoute {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}

// Start returns the entry step.
func (r *Registry) Start() domain.StepID {
	return r.start
}

// Terminal returns the step allowed to lack a forward edge.
func (r *Registry) Terminal() domain.StepID {
	return r.terminal
}

// Sections returns the distinct sections used by the registered steps, in first-use order.
func (r *Registry) Sections() []domain.Section {
	seen := make(map[domain.Section]bool)
	var out []domain.Section
	for _, s := range r.steps {
		if !seen[s.Props.Section] {
			seen[s.Props.Section] = true
			out = append(out, s.Props.Section)
		}
	}
	return out
}
