package registry

import "github.com/aretw0/intake/pkg/domain"

// FlowBuilder assembles the steps of one flow with a fluent API.
type FlowBuilder struct {
	flow  domain.Flow
	steps []*StepBuilder
}

// NewFlow starts a flow whose steps read and write section.
func NewFlow(flow domain.Flow, section domain.Section) *FlowBuilder {
	flow.Section = section
	return &FlowBuilder{flow: flow}
}

// Add appends a step at path (relative to the flow root).
func (b *FlowBuilder) Add(id domain.StepID, path string) *StepBuilder {
	sb := &StepBuilder{
		step: domain.Step{
			ID:    id,
			Flow:  b.flow,
			Path:  path,
			Props: domain.Props{Section: b.flow.Section},
		},
	}
	b.steps = append(b.steps, sb)
	return sb
}

// Build returns the steps in declaration order.
func (b *FlowBuilder) Build() []domain.Step {
	out := make([]domain.Step, 0, len(b.steps))
	for _, sb := range b.steps {
		out = append(out, sb.Build())
	}
	return out
}

// StepBuilder configures one step.
type StepBuilder struct {
	step domain.Step
}

// Back sets the previous step.
func (s *StepBuilder) Back(id domain.StepID) *StepBuilder {
	s.step.Props.Previous = id
	return s
}

// Go sets the forward step.
func (s *StepBuilder) Go(id domain.StepID) *StepBuilder {
	s.step.Props.Next = id
	return s
}

// Branch adds a named alternate target.
func (s *StepBuilder) Branch(b domain.Branch, id domain.StepID) *StepBuilder {
	if s.step.Props.Others == nil {
		s.step.Props.Others = make(map[domain.Branch]domain.StepID)
	}
	s.step.Props.Others[b] = id
	return s
}

// Meta sets progress metadata.
func (s *StepBuilder) Meta(m domain.Metadata) *StepBuilder {
	s.step.Props.Metadata = m
	return s
}

// Build returns a copy of the configured step.
func (s *StepBuilder) Build() domain.Step {
	out := s.step
	if s.step.Props.Others != nil {
		out.Props.Others = make(map[domain.Branch]domain.StepID, len(s.step.Props.Others))
		for k, v := range s.step.Props.Others {
			out.Props.Others[k] = v
		}
	}
	return out
}
