package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
)

func TestGenerateMermaid(t *testing.T) {
	reg := registry.Default()
	out := graph.GenerateMermaid(reg.Steps(), &graph.Overlay{Start: reg.Start()})

	contains := []string{
		"graph TD\n",
		"subgraph welcome[\"/welcome\"]",
		"subgraph submit_steps[\"/submit-steps\"]",
		// start and terminal
		"welcome_locale((\"/welcome\"))",
		"submission_thank_you((\"/submit-steps/thank-you\"))",
		// recording
		"record_cough[[\"/submit-steps/step-record/cough\"]]",
		"questionary_vaccine[/\"/submit-steps/questionary/step3 <br/> 3/5\"/]",
		// form
		"welcome_consent[/",
		// edges
		"welcome_test_result -.-> record_cough",
		"record_cough -- \"manualUploadStep\" --> upload_cough",
		"questionary_symptoms -- \"covidSymptomsStep\" --> questionary_covid",
		"listen_speech --> questionary_intro",
		"submission_thank_you -.-> welcome_locale",
	}
	for _, want := range contains {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\nGot:\n%s", want, out)
		}
	}
	if strings.Contains(out, "classDef current") {
		t.Error("no overlay style expected without a current step")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	out := graph.GenerateMermaid(registry.Default().Steps(), &graph.Overlay{Current: domain.StepQuestionaryVaccine})
	if !strings.Contains(out, "class questionary_vaccine current;") {
		t.Errorf("expected current style, got:\n%s", out)
	}
}

func TestGenerateMermaid_Deterministic(t *testing.T) {
	steps := registry.Default().Steps()
	first := graph.GenerateMermaid(steps, nil)
	for i := 0; i < 5; i++ {
		if got := graph.GenerateMermaid(steps, nil); got != first {
			t.Fatal("output must not depend on map iteration order")
		}
	}
}
