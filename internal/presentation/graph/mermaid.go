package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/steps"
)

// Overlay marks the step a device currently sits on.
type Overlay struct {
	Current domain.StepID
	Start   domain.StepID
}

// GenerateMermaid produces a Mermaid flowchart of the wizard, one subgraph per flow.
// It applies semantic styling:
// - Start and terminal: ((Circle))
// - Recording: [[Subroutine]]
// - Form: [/Parallelogram/]
// - Info and submit: [Rectangle]
// Forward edges are solid, branches carry their name, and edges crossing flows are dotted.
func GenerateMermaid(list []domain.Step, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	flows := make(map[string]domain.Step, len(list))
	var order []string
	for _, s := range list {
		if _, seen := flows[s.Flow.Name]; !seen {
			order = append(order, s.Flow.Name)
		}
		flows[s.Flow.Name] = s
	}
	byID := make(map[domain.StepID]domain.Step, len(list))
	for _, s := range list {
		byID[s.ID] = s
	}

	for _, flow := range order {
		sb.WriteString(fmt.Sprintf("    subgraph %s[\"%s\"]\n", sanitizeMermaidID(flow), flows[flow].Flow.Root))
		for _, s := range list {
			if s.Flow.Name != flow {
				continue
			}
			sb.WriteString("        " + nodeLabel(s, overlay) + "\n")
		}
		sb.WriteString("    end\n")
	}

	for _, s := range list {
		from := sanitizeMermaidID(string(s.ID))
		if s.Props.Next != domain.StepNone {
			arrow := "-->"
			if crossesFlow(s, byID[s.Props.Next]) {
				arrow = "-.->"
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", from, arrow, sanitizeMermaidID(string(s.Props.Next))))
		}
		for _, b := range sortedBranches(s) {
			to := s.Props.Others[b]
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", from, b, sanitizeMermaidID(string(to))))
		}
	}

	if overlay != nil && overlay.Current != domain.StepNone {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light and dark themes
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(overlay.Current))))
	}

	return sb.String()
}

func nodeLabel(s domain.Step, overlay *Overlay) string {
	opener, closer := "[", "]"
	c, _ := steps.For(s.ID)
	switch {
	case overlay != nil && s.ID == overlay.Start, c.Kind == steps.KindTerminal:
		opener, closer = "((", "))"
	case c.Kind == steps.KindRecording:
		opener, closer = "[[", "]]"
	case c.Kind == steps.KindForm:
		opener, closer = "[/", "/]"
	}
	text := s.Route()
	if m := s.Props.Metadata; m.Total > 0 {
		text = fmt.Sprintf("%s <br/> %d/%d", text, m.Current, m.Total)
	}
	return fmt.Sprintf("%s%s\"%s\"%s", sanitizeMermaidID(string(s.ID)), opener, text, closer)
}

func crossesFlow(from, to domain.Step) bool {
	return to.ID != domain.StepNone && from.Flow.Name != to.Flow.Name
}

func sortedBranches(s domain.Step) []domain.Branch {
	out := make([]domain.Branch, 0, len(s.Props.Others))
	for b := range s.Props.Others {
		out = append(out, b)
	}
	slices.Sort(out)
	return out
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
