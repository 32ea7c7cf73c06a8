// Package submission turns a device's answers into the final multipart request
// and coordinates sending it exactly once per user action.
package submission

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/schema"
)

// ErrMissingRecording is returned when a required recording cannot be attached.
var ErrMissingRecording = errors.New("missing recording")

// Aux carries submission inputs that do not live in the answer store.
type Aux struct {
	// Source is the campaign tag of the deployment, sent when set.
	Source string

	// Captcha is the token produced by the captcha widget on the submit step.
	Captcha string
}

// AttachmentFunc looks up an in-memory attachment by reference.
type AttachmentFunc func(ref string) (domain.Attachment, bool)

type audioRef struct {
	RecordingFile string `mapstructure:"recordingFile"`
	UploadedFile  string `mapstructure:"uploadedFile"`
}

// ref prefers the live recording over a manual upload.
func (a audioRef) ref() string {
	if a.RecordingFile != "" {
		return a.RecordingFile
	}
	return a.UploadedFile
}

type welcomeAnswers struct {
	AgreedConsentTerms any `mapstructure:"agreedConsentTerms"`
	AgreedPolicyTerms  any `mapstructure:"agreedPolicyTerms"`
	PcrTestResult      any `mapstructure:"pcrTestResult"`
}

type submitAnswers struct {
	RecordYourCough  audioRef `mapstructure:"recordYourCough"`
	RecordYourBreath audioRef `mapstructure:"recordYourBreath"`
	RecordYourSpeech audioRef `mapstructure:"recordYourSpeech"`

	CurrentSymptoms         any `mapstructure:"currentSymptoms"`
	SymptomsStartedDate     any `mapstructure:"symptomsStartedDate"`
	AgeGroup                any `mapstructure:"ageGroup"`
	BiologicalSex           any `mapstructure:"biologicalSex"`
	Vaccine                 any `mapstructure:"vaccine"`
	SmokeLastSixMonths      any `mapstructure:"smokeLastSixMonths"`
	CurrentMedicalCondition any `mapstructure:"currentMedicalCondition"`
	PcrTestDate             any `mapstructure:"pcrTestDate"`
	PcrTestResult           any `mapstructure:"pcrTestResult"`
}

type audioPart struct {
	field    string
	fallback string
	ref      func(*submitAnswers) audioRef
}

var audioParts = []audioPart{
	{"cough", "filename.wav", func(s *submitAnswers) audioRef { return s.RecordYourCough }},
	{"breath", "filename_breath.wav", func(s *submitAnswers) audioRef { return s.RecordYourBreath }},
	{"voice", "filename_voice.wav", func(s *submitAnswers) audioRef { return s.RecordYourSpeech }},
}

func decodeSection(in domain.Fields, out any) error {
	return mapstructure.Decode(map[string]any(in), out)
}

// Project builds the payload from the whitelisted fields of the answer record.
// Optional fields are omitted when absent or empty.
func Project(answers domain.Answers, files AttachmentFunc, aux Aux) (*domain.Payload, error) {
	var welcome welcomeAnswers
	if err := decodeSection(answers.Section(domain.SectionWelcome), &welcome); err != nil {
		return nil, fmt.Errorf("failed to read %s answers: %w", domain.SectionWelcome, err)
	}
	var submit submitAnswers
	if err := decodeSection(answers.Section(domain.SectionSubmitSteps), &submit); err != nil {
		return nil, fmt.Errorf("failed to read %s answers: %w", domain.SectionSubmitSteps, err)
	}

	p := &domain.Payload{}
	optional := func(name string, v any) {
		if s, ok := text(v); ok {
			p.Add(name, s)
		}
	}

	if aux.Source != "" {
		p.Add("source", aux.Source)
	}
	p.Add("agreedConsentTerms", flag(welcome.AgreedConsentTerms))
	p.Add("agreedPolicyTerms", flag(welcome.AgreedPolicyTerms))
	optional("pcrTestResult", welcome.PcrTestResult)
	optional("pcrTestResultUserInput", submit.PcrTestResult)
	optional("pcrTestDate", submit.PcrTestDate)

	for _, part := range audioParts {
		ref := part.ref(&submit).ref()
		if ref == "" || files == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingRecording, part.field)
		}
		att, ok := files(ref)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRecording, part.field)
		}
		att.Field = part.field
		if att.Filename == "" {
			att.Filename = part.fallback
		}
		p.Files = append(p.Files, att)
	}

	if ms, ok := domain.AsMultiSelect(submit.CurrentSymptoms); ok {
		if len(ms.Selected) > 0 {
			p.Add("currentSymptoms", strings.Join(ms.Selected, ","))
		}
	}
	optional("symptomsStartedDate", submit.SymptomsStartedDate)
	optional("ageGroup", submit.AgeGroup)
	optional("biologicalSex", submit.BiologicalSex)
	optional("vaccine", submit.Vaccine)
	optional("smokeLastSixMonths", submit.SmokeLastSixMonths)

	if ms, ok := domain.AsMultiSelect(submit.CurrentMedicalCondition); ok {
		if len(ms.Selected) > 0 {
			p.Add("currentMedicalCondition", strings.Join(ms.Selected, ","))
		}
		optional("otherMedicalConditions", ms.Other)
	}
	if ms, ok := domain.AsMultiSelect(submit.CurrentSymptoms); ok {
		optional("otherSymptoms", ms.Other)
	}
	optional("captchaValue", aux.Captcha)

	return p, nil
}

// text renders an optional scalar; dates keep their calendar form.
func text(v any) (string, bool) {
	if t, ok := v.(time.Time); ok {
		if t.IsZero() {
			return "", false
		}
		return t.Format(schema.DateLayout), true
	}
	return domain.AsString(v)
}

func flag(v any) string {
	if s, ok := domain.AsString(v); ok && s == "true" {
		return "true"
	}
	return "false"
}
