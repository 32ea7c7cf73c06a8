package registry

import "github.com/aretw0/intake/pkg/domain"

// Recording kinds, in traversal order.
const (
	KindCough  = "cough"
	KindBreath = "breath"
	KindSpeech = "speech"
)

// Kinds lists every recording kind.
var Kinds = []string{KindCough, KindBreath, KindSpeech}

type recordingIDs struct {
	record, upload, listen domain.StepID
}

var recordings = map[string]recordingIDs{
	KindCough:  {domain.StepRecordCough, domain.StepUploadCough, domain.StepListenCough},
	KindBreath: {domain.StepRecordBreath, domain.StepUploadBreath, domain.StepListenBreath},
	KindSpeech: {domain.StepRecordSpeech, domain.StepUploadSpeech, domain.StepListenSpeech},
}

// RecordingStepIDs returns the record, upload and listen steps of a kind.
func RecordingStepIDs(kind string) (record, upload, listen domain.StepID, ok bool) {
	ids, ok := recordings[kind]
	return ids.record, ids.upload, ids.listen, ok
}

// KindOf returns the recording kind a step belongs to.
func KindOf(id domain.StepID) (string, bool) {
	for kind, ids := range recordings {
		if id == ids.record || id == ids.upload || id == ids.listen {
			return kind, true
		}
	}
	return "", false
}

// LogicKey returns the answer field a recording kind commits to (e.g. "recordYourCough").
func LogicKey(kind string) string {
	switch kind {
	case KindCough:
		return "recordYourCough"
	case KindBreath:
		return "recordYourBreath"
	case KindSpeech:
		return "recordYourSpeech"
	}
	return ""
}

// WelcomeSteps returns the welcome flow.
func WelcomeSteps(section domain.Section) []domain.Step {
	b := NewFlow(domain.FlowWelcome, section)

	b.Add(domain.StepWelcomeLocale, "").
		Go(domain.StepWelcomePatient)

	b.Add(domain.StepWelcomePatient, "/step-2").
		Back(domain.StepWelcomeLocale).
		Go(domain.StepWelcomeAbout)

	b.Add(domain.StepWelcomeAbout, "/step-3").
		Back(domain.StepWelcomePatient).
		Go(domain.StepWelcomeConsent)

	b.Add(domain.StepWelcomeConsent, "/step-4").
		Back(domain.StepWelcomeAbout).
		Go(domain.StepWelcomeTestResult).
		Meta(domain.Metadata{Current: 1, Total: 2, Dotted: true})

	b.Add(domain.StepWelcomeTestResult, "/step-5").
		Back(domain.StepWelcomeConsent).
		Go(domain.StepRecordCough).
		Meta(domain.Metadata{Current: 2, Total: 2, Dotted: true})

	return b.Build()
}

// RecordingSteps returns the record, manual-upload and listen steps of one kind,
// linked to prev before and next after.
func RecordingSteps(kind string, section domain.Section, prev, next domain.StepID) []domain.Step {
	ids, ok := recordings[kind]
	if !ok {
		return nil
	}
	meta := domain.Metadata{CurrentLogic: LogicKey(kind), ProgressCurrent: 1, ProgressTotal: 2}
	b := NewFlow(domain.FlowSubmitSteps, section)

	b.Add(ids.record, "/step-record/"+kind).
		Back(prev).
		Go(ids.listen).
		Branch(domain.BranchManualUpload, ids.upload).
		Meta(meta)

	b.Add(ids.upload, "/step-manual-upload/"+kind).
		Back(ids.record).
		Go(ids.listen).
		Meta(meta)

	b.Add(ids.listen, "/step-listen/"+kind).
		Back(ids.record).
		Go(next).
		Branch(domain.BranchShortAudio, ids.record).
		Meta(meta)

	return b.Build()
}

// QuestionarySteps returns the questionnaire, linked to prev before and next after.
func QuestionarySteps(section domain.Section, prev, next domain.StepID) []domain.Step {
	base := domain.Metadata{Total: 5, ProgressCurrent: 2, ProgressTotal: 2}
	at := func(current int) domain.Metadata {
		m := base
		m.Current = current
		return m
	}
	b := NewFlow(domain.FlowSubmitSteps, section)

	b.Add(domain.StepQuestionaryIntro, "/questionary/step1").
		Back(prev).
		Go(domain.StepQuestionaryTests).
		Meta(base)

	b.Add(domain.StepQuestionaryTests, "/questionary/step1a").
		Back(domain.StepQuestionaryIntro).
		Go(domain.StepQuestionarySymptoms).
		Meta(at(1))

	b.Add(domain.StepQuestionarySymptoms, "/questionary/step2").
		Back(domain.StepQuestionaryTests).
		Go(domain.StepQuestionaryVaccine).
		Branch(domain.BranchCovidSymptoms, domain.StepQuestionaryCovid).
		Meta(at(2))

	b.Add(domain.StepQuestionaryCovid, "/questionary/step2a").
		Back(domain.StepQuestionarySymptoms).
		Go(domain.StepQuestionaryVaccine).
		Meta(at(2))

	b.Add(domain.StepQuestionaryVaccine, "/questionary/step3").
		Back(domain.StepQuestionarySymptoms).
		Go(domain.StepQuestionarySmoke).
		Meta(at(3))

	b.Add(domain.StepQuestionarySmoke, "/questionary/step4").
		Back(domain.StepQuestionaryVaccine).
		Go(domain.StepQuestionaryProfile).
		Meta(at(4))

	b.Add(domain.StepQuestionaryProfile, "/questionary/step5").
		Back(domain.StepQuestionarySmoke).
		Go(next).
		Meta(at(5))

	return b.Build()
}

// SubmissionSteps returns the before-submit and thank-you steps.
// Leaving the thank-you step starts a new flow from the welcome screen.
func SubmissionSteps(section domain.Section, prev domain.StepID) []domain.Step {
	b := NewFlow(domain.FlowSubmitSteps, section)

	b.Add(domain.StepBeforeSubmit, "/before-submit").
		Back(prev).
		Go(domain.StepThankYou)

	b.Add(domain.StepThankYou, "/thank-you").
		Back(domain.StepBeforeSubmit).
		Go(domain.StepWelcomeLocale)

	return b.Build()
}

// SubmitSteps returns the whole submit-steps flow: recordings, questionnaire, submission.
func SubmitSteps(section domain.Section) []domain.Step {
	var steps []domain.Step
	prev := domain.StepWelcomeTestResult
	for i, kind := range Kinds {
		next := domain.StepQuestionaryIntro
		if i+1 < len(Kinds) {
			next, _, _, _ = RecordingStepIDs(Kinds[i+1])
		}
		steps = append(steps, RecordingSteps(kind, section, prev, next)...)
		_, _, prev, _ = RecordingStepIDs(kind)
	}
	steps = append(steps, QuestionarySteps(section, prev, domain.StepBeforeSubmit)...)
	steps = append(steps, SubmissionSteps(section, domain.StepQuestionaryProfile)...)
	return steps
}
