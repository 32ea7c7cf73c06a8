package intake_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/locale"
	"github.com/aretw0/intake/pkg/submission"
)

var today = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type recordingSubmitter struct {
	mu       sync.Mutex
	payloads []*domain.Payload
	err      error
}

func (s *recordingSubmitter) Submit(_ context.Context, p *domain.Payload) (domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, p)
	if s.err != nil {
		return domain.Receipt{}, s.err
	}
	return domain.Receipt{SubmissionID: "sub-1"}, nil
}

type fixedLocator struct{ country string }

func (l fixedLocator) Locate(context.Context, string) (string, error) {
	return l.country, nil
}

func newWizard(t *testing.T, opts ...intake.Option) (*intake.Wizard, *recordingSubmitter) {
	t.Helper()
	sub := &recordingSubmitter{}
	opts = append([]intake.Option{
		intake.WithSubmitter(sub),
		intake.WithClock(func() time.Time { return today }),
	}, opts...)
	wiz, err := intake.New(opts...)
	require.NoError(t, err)
	return wiz, sub
}

func audio(size int) domain.Attachment {
	return domain.Attachment{Filename: "take.wav", ContentType: "audio/wav", Data: bytes.Repeat([]byte{1}, size)}
}

// forward posts values and requires the device to land on want.
func forward(t *testing.T, wiz *intake.Wizard, route string, in intake.Input, want string) {
	t.Helper()
	out, err := wiz.Forward(context.Background(), "dev-1", route, in)
	require.NoError(t, err, route)
	require.False(t, out.Blocked(), "%s blocked: %v", route, out.Validation.Invalid())
	require.Equal(t, want, out.To.Route, route)
}

func TestWizard_FullWalkthrough(t *testing.T) {
	ctx := context.Background()
	wiz, sub := newWizard(t, intake.WithSource("campaign-a"))

	view, err := wiz.View(ctx, "dev-1", "/welcome/")
	require.NoError(t, err)
	assert.Equal(t, domain.StepWelcomeLocale, view.Step.ID)
	assert.Equal(t, domain.PhaseBlocked, view.Phase, "nothing answered yet")
	assert.True(t, view.Back.HistoryBack)

	forward(t, wiz, "/welcome", intake.Input{Values: domain.Fields{"language": "es", "country": "Chile"}}, "/welcome/step-2")
	forward(t, wiz, "/welcome/step-2", intake.Input{}, "/welcome/step-3")
	forward(t, wiz, "/welcome/step-3", intake.Input{}, "/welcome/step-4")
	forward(t, wiz, "/welcome/step-4", intake.Input{Values: domain.Fields{
		"agreedConsentTerms":    true,
		"agreedPolicyTerms":     true,
		"agreedCovidCollection": true,
	}}, "/welcome/step-5")
	forward(t, wiz, "/welcome/step-5", intake.Input{Values: domain.Fields{"pcrTestResult": "true"}}, "/submit-steps/step-record/cough")

	forward(t, wiz, "/submit-steps/step-record/cough", intake.Input{Files: map[string]domain.Attachment{"recordingFile": audio(20 * 1024)}}, "/submit-steps/step-listen/cough")
	forward(t, wiz, "/submit-steps/step-listen/cough", intake.Input{}, "/submit-steps/step-record/breath")
	forward(t, wiz, "/submit-steps/step-record/breath", intake.Input{Files: map[string]domain.Attachment{"recordingFile": audio(20 * 1024)}}, "/submit-steps/step-listen/breath")
	forward(t, wiz, "/submit-steps/step-listen/breath", intake.Input{}, "/submit-steps/step-record/speech")
	forward(t, wiz, "/submit-steps/step-record/speech", intake.Input{Files: map[string]domain.Attachment{"recordingFile": audio(20 * 1024)}}, "/submit-steps/step-listen/speech")
	forward(t, wiz, "/submit-steps/step-listen/speech", intake.Input{}, "/submit-steps/questionary/step1")

	forward(t, wiz, "/submit-steps/questionary/step1", intake.Input{}, "/submit-steps/questionary/step1a")

	view, err = wiz.View(ctx, "dev-1", "/submit-steps/questionary/step1a")
	require.NoError(t, err)
	assert.Equal(t, "positive", view.Form["pcrTestResult"], "defaults follow the welcome answer")
	assert.Equal(t, "2024-05-10", view.Form["pcrTestDate"])

	forward(t, wiz, "/submit-steps/questionary/step1a", intake.Input{Values: domain.Fields{"testTaken": []string{"pcr"}}}, "/submit-steps/questionary/step2")
	forward(t, wiz, "/submit-steps/questionary/step2", intake.Input{Values: domain.Fields{
		"currentSymptoms": domain.MultiSelect{Selected: []string{"dryCough"}, Other: "itchy eyes"},
	}}, "/submit-steps/questionary/step2a")
	forward(t, wiz, "/submit-steps/questionary/step2a", intake.Input{Values: domain.Fields{"symptomsStartedDate": "2024-05-01"}}, "/submit-steps/questionary/step3")
	forward(t, wiz, "/submit-steps/questionary/step3", intake.Input{Values: domain.Fields{"vaccine": "two"}}, "/submit-steps/questionary/step4")
	forward(t, wiz, "/submit-steps/questionary/step4", intake.Input{Values: domain.Fields{"smokeLastSixMonths": "false"}}, "/submit-steps/questionary/step5")
	forward(t, wiz, "/submit-steps/questionary/step5", intake.Input{Values: domain.Fields{"ageGroup": "30-39", "biologicalSex": "female"}}, "/submit-steps/before-submit")

	out, err := wiz.Submit(ctx, "dev-1", "/submit-steps/before-submit", "captcha-token")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", out.SubmissionID)
	assert.Equal(t, "/submit-steps/thank-you", out.To.Route)

	require.Len(t, sub.payloads, 1)
	p := sub.payloads[0]
	for name, want := range map[string]string{
		"source":                 "campaign-a",
		"agreedConsentTerms":     "true",
		"pcrTestResult":          "true",
		"pcrTestResultUserInput": "positive",
		"pcrTestDate":            "2024-05-10",
		"currentSymptoms":        "dryCough",
		"otherSymptoms":          "itchy eyes",
		"symptomsStartedDate":    "2024-05-01",
		"vaccine":                "two",
		"ageGroup":               "30-39",
		"biologicalSex":          "female",
		"captchaValue":           "captcha-token",
	} {
		got, ok := p.Get(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	require.Len(t, p.Files, 3)
	assert.Equal(t, []string{"cough", "breath", "voice"}, []string{p.Files[0].Field, p.Files[1].Field, p.Files[2].Field})

	snap := wiz.Answers("dev-1").Snapshot(ctx)
	assert.Empty(t, snap[domain.SectionWelcome])
	assert.Empty(t, snap[domain.SectionSubmitSteps])
	assert.Equal(t, domain.StepThankYou, wiz.Resume(ctx, "dev-1").ID)

	forward(t, wiz, "/submit-steps/thank-you", intake.Input{}, "/welcome")
}

func TestWizard_BlockedForwardCommitsNothing(t *testing.T) {
	ctx := context.Background()
	wiz, _ := newWizard(t)

	out, err := wiz.Forward(ctx, "dev-1", "/welcome/step-4", intake.Input{Values: domain.Fields{"agreedConsentTerms": true}})
	require.NoError(t, err)
	assert.True(t, out.Blocked())
	assert.Equal(t, []string{"agreedCovidCollection", "agreedPolicyTerms"}, out.Validation.Invalid())
	assert.Empty(t, out.To.Route)

	fields, _ := wiz.Answers("dev-1").Read(ctx, domain.SectionWelcome)
	assert.Empty(t, fields)
	assert.Empty(t, wiz.Answers("dev-1").Route(ctx))
}

func TestWizard_ValidateHasNoSideEffects(t *testing.T) {
	ctx := context.Background()
	wiz, _ := newWizard(t)

	res, err := wiz.Validate(ctx, "dev-1", "/submit-steps/questionary/step3", domain.Fields{"vaccine": "seven"})
	require.NoError(t, err)
	assert.Equal(t, []string{"vaccine"}, res.Invalid())

	res, err = wiz.Validate(ctx, "dev-1", "/submit-steps/questionary/step3", domain.Fields{"vaccine": "one"})
	require.NoError(t, err)
	assert.True(t, res.Valid())

	fields, _ := wiz.Answers("dev-1").Read(ctx, domain.SectionSubmitSteps)
	assert.Empty(t, fields)
}

func TestWizard_BackDoesNotCommit(t *testing.T) {
	ctx := context.Background()
	wiz, _ := newWizard(t)

	out, err := wiz.Back(ctx, "dev-1", "/submit-steps/questionary/step4")
	require.NoError(t, err)
	assert.Equal(t, "/submit-steps/questionary/step3", out.To.Route)
	assert.Equal(t, domain.Backward(), out.Direction)

	out, err = wiz.Back(ctx, "dev-1", "/welcome")
	require.NoError(t, err)
	assert.True(t, out.To.HistoryBack)
	assert.Equal(t, domain.PhaseTransitioning, out.Phase)
}

func TestWizard_SymptomBranch(t *testing.T) {
	wiz, _ := newWizard(t)

	forward(t, wiz, "/submit-steps/questionary/step2", intake.Input{Values: domain.Fields{
		"currentSymptoms": domain.MultiSelect{Selected: []string{"headaches"}},
	}}, "/submit-steps/questionary/step3")
	forward(t, wiz, "/submit-steps/questionary/step2", intake.Input{Values: domain.Fields{
		"currentSymptoms": domain.MultiSelect{Selected: []string{"headaches", "breathShortness"}},
	}}, "/submit-steps/questionary/step2a")
}

func TestWizard_ShortAudioReturnsToRecording(t *testing.T) {
	wiz, _ := newWizard(t)

	forward(t, wiz, "/submit-steps/step-record/cough", intake.Input{Files: map[string]domain.Attachment{"recordingFile": audio(512)}}, "/submit-steps/step-listen/cough")
	forward(t, wiz, "/submit-steps/step-listen/cough", intake.Input{}, "/submit-steps/step-record/cough")
}

func TestWizard_ManualUploadEscape(t *testing.T) {
	ctx := context.Background()
	wiz, _ := newWizard(t)

	out, err := wiz.Forward(ctx, "dev-1", "/submit-steps/step-record/breath", intake.Input{Branch: domain.BranchManualUpload})
	require.NoError(t, err)
	assert.Equal(t, "/submit-steps/step-manual-upload/breath", out.To.Route)

	forward(t, wiz, "/submit-steps/step-manual-upload/breath", intake.Input{Files: map[string]domain.Attachment{"uploadedFile": audio(20 * 1024)}}, "/submit-steps/step-listen/breath")

	fields, ok := wiz.Answers("dev-1").Read(ctx, domain.SectionSubmitSteps)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"uploadedFile": "recordYourBreath/uploadedFile"}, fields["recordYourBreath"])

	_, err = wiz.Forward(ctx, "dev-1", "/submit-steps/questionary/step3", intake.Input{Branch: domain.BranchManualUpload})
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)
}

func TestWizard_RecordingWithoutFileIsBlocked(t *testing.T) {
	wiz, _ := newWizard(t)

	out, err := wiz.Forward(context.Background(), "dev-1", "/submit-steps/step-record/cough", intake.Input{
		Values: domain.Fields{"recordingFile": "recordYourCough/recordingFile"},
	})
	require.NoError(t, err)
	assert.True(t, out.Blocked(), "a reference without a held file is not a recording")
}

func TestWizard_SubmitFailureKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	wiz, sub := newWizard(t)
	sub.err = errors.New("503")

	forward(t, wiz, "/submit-steps/questionary/step3", intake.Input{Values: domain.Fields{"vaccine": "one"}}, "/submit-steps/questionary/step4")

	_, err := wiz.Submit(ctx, "dev-1", "/submit-steps/before-submit", "")
	var subErr *submission.SubmitError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, submission.ErrorKey, subErr.MessageKey)
	assert.Empty(t, sub.payloads, "missing recordings never reach the backend")

	fields, _ := wiz.Answers("dev-1").Read(ctx, domain.SectionSubmitSteps)
	assert.Equal(t, "one", fields["vaccine"])

	_, err = wiz.Submit(ctx, "dev-1", "/submit-steps/questionary/step3", "")
	assert.ErrorIs(t, err, intake.ErrNotSubmitStep)
}

func TestWizard_UnknownRoute(t *testing.T) {
	wiz, _ := newWizard(t)
	_, err := wiz.View(context.Background(), "dev-1", "/nowhere")
	assert.ErrorIs(t, err, domain.ErrStepNotFound)
}

func TestWizard_GuessPreselectsWelcome(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	guesser := locale.NewGuesser(
		locale.WithLocator(fixedLocator{country: "Brazil"}),
		locale.WithCache(store, domain.DefaultStoreName),
	)
	wiz, _ := newWizard(t, intake.WithRecordStore(store), intake.WithGuesser(guesser))

	g := wiz.Guess(ctx, "dev-1", "203.0.113.7", "")
	assert.Equal(t, "Brazil", g.Country)

	view, err := wiz.View(ctx, "dev-1", "/welcome")
	require.NoError(t, err)
	assert.Equal(t, "Brazil", view.Form["country"])
	assert.Equal(t, "pt", view.Form["language"])
	assert.Contains(t, view.Validation.Invalid(), "region", "Brazil asks for a state")
}

func TestWizard_ClinicalRequiresPatient(t *testing.T) {
	wiz, _ := newWizard(t, intake.WithClinical(true))

	out, err := wiz.Forward(context.Background(), "dev-1", "/welcome/step-2", intake.Input{})
	require.NoError(t, err)
	assert.True(t, out.Blocked())

	forward(t, wiz, "/welcome/step-2", intake.Input{Values: domain.Fields{"patientId": "1234567"}}, "/welcome/step-3")
}

func TestWizard_Hooks(t *testing.T) {
	ctx := context.Background()
	var (
		mu     sync.Mutex
		events []domain.EventType
	)
	record := func(e domain.EventType) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	hooks := domain.LifecycleHooks{
		OnStepEnter:  func(context.Context, *domain.StepEvent) { record(domain.EventStepEnter) },
		OnStepLeave:  func(context.Context, *domain.StepEvent) { record(domain.EventStepLeave) },
		OnValidation: func(context.Context, *domain.ValidationEvent) { record(domain.EventValidation) },
	}
	wiz, _ := newWizard(t, intake.WithLifecycleHooks(hooks))

	_, err := wiz.View(ctx, "dev-1", "/welcome/step-3")
	require.NoError(t, err)
	forward(t, wiz, "/welcome/step-3", intake.Input{}, "/welcome/step-4")

	assert.Equal(t, []domain.EventType{domain.EventStepEnter, domain.EventValidation, domain.EventStepLeave}, events)
}

func TestWizard_ForwardReportsDiff(t *testing.T) {
	wiz, _ := newWizard(t)

	out, err := wiz.Forward(context.Background(), "dev-1", "/submit-steps/questionary/step3", intake.Input{Values: domain.Fields{"vaccine": "one"}})
	require.NoError(t, err)
	require.NotNil(t, out.Diff)
	require.NotNil(t, out.Diff.Route)
	assert.Equal(t, "/submit-steps/questionary/step4", *out.Diff.Route)
	assert.Equal(t, "one", out.Diff.Sections[domain.SectionSubmitSteps]["vaccine"])
}

func TestWizard_ResetAll(t *testing.T) {
	ctx := context.Background()
	wiz, _ := newWizard(t)

	forward(t, wiz, "/submit-steps/questionary/step3", intake.Input{Values: domain.Fields{"vaccine": "one"}}, "/submit-steps/questionary/step4")
	require.NoError(t, wiz.ResetAll(ctx, "dev-1"))

	snap := wiz.Answers("dev-1").Snapshot(ctx)
	assert.Equal(t, domain.NewAnswers(), snap)
	assert.Equal(t, domain.StepWelcomeLocale, wiz.Resume(ctx, "dev-1").ID)
}
