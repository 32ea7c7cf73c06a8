package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// Validate checks the registry for configuration defects: edges to unregistered steps,
// non-terminal steps without a forward edge, and steps unreachable from the start.
// Every defect is reported as a *domain.ConfigError inside the joined error.
func Validate(r *Registry) error {
	var errs []error

	if _, ok := r.Step(r.start); !ok {
		errs = append(errs, &domain.ConfigError{Step: r.start, Edge: "start", Target: r.start})
	}

	for _, step := range r.steps {
		if step.Props.Next == domain.StepNone && step.ID != r.terminal {
			errs = append(errs, &domain.ConfigError{Step: step.ID, Edge: "next"})
		}
		for _, label := range sortedEdges(step) {
			target := step.Edges()[label]
			if _, ok := r.Step(target); !ok {
				errs = append(errs, &domain.ConfigError{Step: step.ID, Edge: label, Target: target})
			}
		}
	}

	// Crawl from the start following forward and branch edges.
	visited := make(map[domain.StepID]bool)
	queue := []domain.StepID{r.start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true

		step, ok := r.Step(current)
		if !ok {
			continue
		}
		for label, target := range step.Edges() {
			if label == "previous" || visited[target] {
				continue
			}
			queue = append(queue, target)
		}
	}

	var unreachable []string
	for _, step := range r.steps {
		if !visited[step.ID] {
			unreachable = append(unreachable, string(step.ID))
		}
	}
	if len(unreachable) > 0 {
		errs = append(errs, fmt.Errorf("unreachable steps from %q: %s", r.start, strings.Join(unreachable, ", ")))
	}

	return errors.Join(errs...)
}

func sortedEdges(step domain.Step) []string {
	edges := step.Edges()
	labels := make([]string, 0, len(edges))
	for label := range edges {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
