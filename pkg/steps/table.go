package steps

import (
	"errors"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/locale"
	"github.com/aretw0/intake/pkg/navigation"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/schema"
)

// Snapshot context keys filled by the runtime.
const (
	ContextGuessCountry  = "guessCountry"
	ContextGuessLanguage = "guessLanguage"
)

// MinAudioBytes is the smallest recording accepted by a listen step.
// Anything shorter sends the device back to record again.
const MinAudioBytes = 16 * 1024

// AudioSizeKey is the snapshot context key carrying the size of a kind's recording.
func AudioSizeKey(kind string) string {
	return "audioSize." + kind
}

// ErrUnsupportedCountry is the reason reported for a blocked country.
var ErrUnsupportedCountry = errors.New("unsupportedCountry")

var controllers = buildControllers()

func buildControllers() map[domain.StepID]Controller {
	list := []Controller{
		welcomeLocale(locale.Default()),
		{
			ID:     domain.StepWelcomePatient,
			Kind:   KindForm,
			Header: Header{LogoSize: "regular", Type: "null", Back: true},
			Schema: schema.Schema{
				"patientId": {
					Type:     schema.Pattern(`^\d{6,10}$`),
					Required: schema.WhenContext(domain.ContextClinical),
					Message:  "patientIdRequired",
				},
			},
		},
		{
			ID:     domain.StepWelcomeAbout,
			Kind:   KindInfo,
			Header: Header{Subtitle: "helpVirufy:title", Type: "secondary", LogoSize: "regular", Back: true},
		},
		{
			ID:     domain.StepWelcomeConsent,
			Kind:   KindForm,
			Header: Header{Subtitle: "consent:title", Type: "secondary", Back: true},
			Schema: schema.Schema{
				"agreedConsentTerms":    {Type: schema.True(), Required: schema.Always},
				"agreedPolicyTerms":     {Type: schema.True(), Required: schema.Always},
				"agreedCovidCollection": {Type: schema.True(), Required: schema.Always},
			},
		},
		{
			ID:     domain.StepWelcomeTestResult,
			Kind:   KindForm,
			Header: Header{Subtitle: "testResult:title", Type: "secondary", Back: true},
			Schema: schema.Schema{
				"pcrTestResult": {Type: schema.Enum("true", "false")},
			},
		},
		{
			ID:     domain.StepQuestionaryIntro,
			Kind:   KindInfo,
			Header: Header{Title: "questionary:headerQuestions", Type: "primary", Back: true},
		},
		questionaryTests(),
		{
			ID:     domain.StepQuestionarySymptoms,
			Kind:   KindForm,
			Header: Header{Title: "questionary:headerQuestions", Type: "primary", Back: true},
			Schema: schema.Schema{
				"currentSymptoms": {Type: schema.MultiSelect(SymptomOptions...), Required: schema.Always},
			},
			Branches: []navigation.Rule{
				{Branch: domain.BranchCovidSymptoms, When: selectedCovidSymptoms},
			},
		},
		{
			ID:     domain.StepQuestionaryCovid,
			Kind:   KindForm,
			Header: Header{Title: "questionary:headerQuestions", Type: "primary", Back: true},
			Schema: schema.Schema{
				"symptomsStartedDate": {Type: schema.Date(schema.NotFuture), Required: schema.Always},
			},
		},
		{
			ID:     domain.StepQuestionaryVaccine,
			Kind:   KindForm,
			Header: Header{Title: "questionary:vaccine.title", Type: "primary", Back: true},
			Schema: schema.Schema{
				"vaccine": {Type: schema.Enum(VaccineOptions...), Required: schema.Always, Message: "vaccineRequired"},
			},
		},
		{
			ID:     domain.StepQuestionarySmoke,
			Kind:   KindForm,
			Header: Header{Title: "questionary:smokeLastSixMonths.title", Type: "primary", Back: true},
			Schema: schema.Schema{
				"smokeLastSixMonths": {Type: schema.Enum(SmokeOptions...), Required: schema.Always, Message: "smokeLastSixMonthsRequired"},
				"yearsSmoking":       {Type: schema.Pattern(`^\d{1,3}$`)},
			},
		},
		{
			ID:     domain.StepQuestionaryProfile,
			Kind:   KindForm,
			Header: Header{Title: "questionary:headerQuestions", Type: "primary", Back: true},
			Schema: schema.Schema{
				"ageGroup":                {Type: schema.Enum(AgeGroupOptions...), Required: schema.Always},
				"biologicalSex":           {Type: schema.Enum(BiologicalSexOptions...), Required: schema.Always},
				"currentMedicalCondition": {Type: schema.MultiSelect(MedicalConditionOptions...)},
			},
		},
		{
			ID:     domain.StepBeforeSubmit,
			Kind:   KindSubmit,
			Header: Header{Title: "beforeSubmit:title", Type: "primary", Back: true},
		},
		{
			ID:     domain.StepThankYou,
			Kind:   KindTerminal,
			Header: Header{Type: "tertiary"},
		},
	}
	for _, kind := range registry.Kinds {
		list = append(list, recordingControllers(kind)...)
	}

	out := make(map[domain.StepID]Controller, len(list))
	for _, c := range list {
		out[c.ID] = c
	}
	return out
}

func welcomeLocale(table *locale.Table) Controller {
	country := schema.Custom("country", func(v any) error {
		name, _ := domain.AsString(v)
		if !table.Supported(name) {
			return ErrUnsupportedCountry
		}
		return nil
	})
	hasStates := func(values domain.Fields, _ schema.Snapshot) bool {
		name, ok := domain.AsString(values["country"])
		return ok && table.HasStates(name)
	}

	return Controller{
		ID:     domain.StepWelcomeLocale,
		Kind:   KindForm,
		Header: Header{Type: "tertiary", LogoSize: "big"},
		Schema: schema.Schema{
			"language":   {Type: schema.String(), Required: schema.Always},
			"country":    {Type: country, Required: schema.Always},
			"region":     {Type: schema.String(), Required: schema.WhenFunc(hasStates), Message: "regionRequired"},
			"patientId":  {Type: schema.String(), Required: schema.WhenContext(domain.ContextClinical)},
			"hospitalId": {Type: schema.String(), Required: schema.WhenContext(domain.ContextClinical)},
		},
		Defaults: func(_ domain.Fields, snap schema.Snapshot) domain.Fields {
			out := domain.Fields{}
			if c, ok := domain.AsString(snap.Context[ContextGuessCountry]); ok {
				out["country"] = c
			}
			if l, ok := domain.AsString(snap.Context[ContextGuessLanguage]); ok {
				out["language"] = l
			}
			return out
		},
	}
}

func questionaryTests() Controller {
	hasPcr := func(values domain.Fields, snap schema.Snapshot) bool {
		taken, ok := values["testTaken"]
		if !ok {
			taken = snap.Answers.Section(domain.SectionSubmitSteps)["testTaken"]
		}
		ms, ok := domain.AsMultiSelect(taken)
		return ok && ms.Contains("pcr")
	}

	return Controller{
		ID:     domain.StepQuestionaryTests,
		Kind:   KindForm,
		Header: Header{Title: "main:questionnaire", Type: "primary", Back: true},
		Schema: schema.Schema{
			"testTaken":     {Type: schema.Strings(TestOptions...)},
			"pcrTestDate":   {Type: schema.Date(schema.NotFuture), Required: schema.WhenFunc(hasPcr)},
			"pcrTestResult": {Type: schema.Enum(TestResultOptions...), Required: schema.WhenFunc(hasPcr)},
		},
		Defaults: func(_ domain.Fields, snap schema.Snapshot) domain.Fields {
			now := snap.Now
			if now.IsZero() {
				now = time.Now()
			}
			out := domain.Fields{"pcrTestDate": now.Format(schema.DateLayout)}
			switch v, _ := domain.AsString(snap.Answers.Section(domain.SectionWelcome)["pcrTestResult"]); v {
			case "true":
				out["pcrTestResult"] = "positive"
			case "false":
				out["pcrTestResult"] = "negative"
			}
			return out
		},
	}
}

func recordingControllers(kind string) []Controller {
	record, upload, listen, _ := registry.RecordingStepIDs(kind)
	header := Header{Title: "recording:" + kind + ".title", Type: "primary", Back: true}

	return []Controller{
		{
			ID:     record,
			Kind:   KindRecording,
			Header: header,
			Schema: schema.Schema{
				FieldRecordingFile: {Type: schema.String(), Required: schema.Always, Message: "recording:required"},
			},
			Escapes:   []domain.Branch{domain.BranchManualUpload},
			Recording: &Recording{Kind: kind, Field: FieldRecordingFile},
		},
		{
			ID:     upload,
			Kind:   KindRecording,
			Header: header,
			Schema: schema.Schema{
				FieldUploadedFile: {Type: schema.String(), Required: schema.Always, Message: "recording:required"},
			},
			Recording: &Recording{Kind: kind, Field: FieldUploadedFile},
		},
		{
			ID:     listen,
			Kind:   KindListen,
			Header: header,
			Branches: []navigation.Rule{
				{Branch: domain.BranchShortAudio, When: shortAudio(kind)},
			},
			Recording: &Recording{Kind: kind},
		},
	}
}

func selectedCovidSymptoms(values domain.Fields, _ schema.Snapshot) bool {
	ms, ok := domain.AsMultiSelect(values["currentSymptoms"])
	return ok && HasCovidSymptoms(ms)
}

// shortAudio holds when the kind's recording is missing or below MinAudioBytes.
func shortAudio(kind string) func(domain.Fields, schema.Snapshot) bool {
	return func(_ domain.Fields, snap schema.Snapshot) bool {
		switch size := snap.Context[AudioSizeKey(kind)].(type) {
		case int:
			return size < MinAudioBytes
		case int64:
			return size < MinAudioBytes
		case float64:
			return size < MinAudioBytes
		}
		return true
	}
}
