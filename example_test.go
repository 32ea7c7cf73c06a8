package intake_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/domain"
)

// ExampleWizard_Forward walks the first welcome screens of one device.
func ExampleWizard_Forward() {
	wiz, err := intake.New()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	// Missing answers block the transition and commit nothing.
	out, err := wiz.Forward(ctx, "device-1", "/welcome", intake.Input{})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Phase, out.Validation.Invalid())

	out, err = wiz.Forward(ctx, "device-1", "/welcome", intake.Input{
		Values: domain.Fields{"language": "en", "country": "Canada"},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(out.Phase, out.To.Route)

	// Output:
	// blocked [country language]
	// unmounted /welcome/step-2
}

// ExampleWizard_View shows the parameters a presentation layer renders.
func ExampleWizard_View() {
	wiz, err := intake.New()
	if err != nil {
		log.Fatal(err)
	}

	view, err := wiz.View(context.Background(), "device-1", "/submit-steps/questionary/step3")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(view.Header.Title)
	fmt.Printf("%d/%d\n", view.Metadata.Current, view.Metadata.Total)
	fmt.Println(view.Back.Route)

	// Output:
	// questionary:vaccine.title
	// 3/5
	// /submit-steps/questionary/step2
}
