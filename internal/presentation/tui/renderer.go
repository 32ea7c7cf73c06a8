package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/steps"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(120),
	)
	if err != nil {
		return func(markdown string) (string, error) { return markdown, err }
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// Describe returns a Markdown overview of the wizard: one table per flow listing
// every step with its controller kind and outgoing edges.
func Describe(list []domain.Step) string {
	var sb strings.Builder
	flow := ""
	for _, s := range list {
		if s.Flow.Name != flow {
			flow = s.Flow.Name
			fmt.Fprintf(&sb, "\n## %s (`%s`, section `%s`)\n\n", flow, s.Flow.Root, s.Props.Section)
			sb.WriteString("| Route | Step | Kind | Next | Branches |\n")
			sb.WriteString("|---|---|---|---|---|\n")
		}
		kind := "-"
		if c, ok := steps.For(s.ID); ok {
			kind = string(c.Kind)
		}
		next := "-"
		if s.Props.Next != domain.StepNone {
			next = string(s.Props.Next)
		}
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s |\n", s.Route(), s.ID, kind, next, branches(s))
	}
	return strings.TrimLeft(sb.String(), "\n")
}

func branches(s domain.Step) string {
	if len(s.Props.Others) == 0 {
		return "-"
	}
	out := make([]string, 0, len(s.Props.Others))
	for b, target := range s.Props.Others {
		out = append(out, fmt.Sprintf("%s → %s", b, target))
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}
