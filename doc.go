/*
Package intake is the step-flow engine of a multi-step health intake wizard.

The wizard walks a device through consent, three audio recordings, a short
questionnaire and a final submission. The engine owns the part that is not
presentation: which step a route is, what the step accepts, where it leads,
and what has been answered so far.

# Concept

Steps are declared once, in a static registry (pkg/registry). Every step has a
controller (pkg/steps) describing its header, its form schema, its defaults and
the branch rules evaluated after validation. Answers are accumulated per device
in a durable record (pkg/answers) behind a pluggable RecordStore, so a reload or
a restart resumes where the device left off. The last step hands the record to
the submission coordinator (pkg/submission), which sends one multipart request
and clears the record only after the backend confirms.

The host (HTTP server, CLI, test) owns I/O: it maps requests to View, Forward,
Back and Submit calls and renders what comes back.

# Usage

	wiz, err := intake.New(
		intake.WithRecordStore(store),
		intake.WithSubmitter(submission.NewClient(baseURL, submission.DefaultRoute, 0)),
	)
	if err != nil {
		log.Fatal(err)
	}

	view, err := wiz.View(ctx, device, "/welcome")
	// render view.Header, view.Form, view.Validation ...

	out, err := wiz.Forward(ctx, device, "/welcome", intake.Input{
		Values: domain.Fields{"language": "en", "country": "Chile"},
	})
	if out.Blocked() {
		// show out.Validation.Errors
	}
	// navigate to out.To.Route
*/
package intake
