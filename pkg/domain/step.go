package domain

// StepID identifies a wizard step. The set is closed: every value maps to exactly one
// controller and one edge set.
type StepID string

const (
	StepNone StepID = ""

	// Welcome flow
	StepWelcomeLocale     StepID = "welcome.locale"
	StepWelcomePatient    StepID = "welcome.patient"
	StepWelcomeAbout      StepID = "welcome.about"
	StepWelcomeConsent    StepID = "welcome.consent"
	StepWelcomeTestResult StepID = "welcome.test-result"

	// Recordings
	StepRecordCough  StepID = "record.cough"
	StepUploadCough  StepID = "upload.cough"
	StepListenCough  StepID = "listen.cough"
	StepRecordBreath StepID = "record.breath"
	StepUploadBreath StepID = "upload.breath"
	StepListenBreath StepID = "listen.breath"
	StepRecordSpeech StepID = "record.speech"
	StepUploadSpeech StepID = "upload.speech"
	StepListenSpeech StepID = "listen.speech"

	// Questionary
	StepQuestionaryIntro    StepID = "questionary.intro"
	StepQuestionaryTests    StepID = "questionary.tests"
	StepQuestionarySymptoms StepID = "questionary.symptoms"
	StepQuestionaryCovid    StepID = "questionary.covid"
	StepQuestionaryVaccine  StepID = "questionary.vaccine"
	StepQuestionarySmoke    StepID = "questionary.smoke"
	StepQuestionaryProfile  StepID = "questionary.profile"

	// Submission
	StepBeforeSubmit StepID = "submission.before-submit"
	StepThankYou     StepID = "submission.thank-you"
)

// Branch names an alternate navigation edge selected at runtime.
type Branch string

const (
	BranchManualUpload  Branch = "manualUploadStep"
	BranchShortAudio    Branch = "isShortAudioStep"
	BranchCovidSymptoms Branch = "covidSymptomsStep"
)

// Valid reports whether b is a known branch name.
func (b Branch) Valid() bool {
	switch b {
	case BranchManualUpload, BranchShortAudio, BranchCovidSymptoms:
		return true
	}
	return false
}

// Flow is a named sequence of steps sharing one answer section.
type Flow struct {
	Name    string  `json:"name"`
	Root    string  `json:"root"`
	Section Section `json:"section"`
}

var (
	FlowWelcome     = Flow{Name: "welcome", Root: "/welcome", Section: SectionWelcome}
	FlowSubmitSteps = Flow{Name: "submit-steps", Root: "/submit-steps", Section: SectionSubmitSteps}
)

// Metadata carries progress display data and step-specific flags.
type Metadata struct {
	Current         int    `json:"current,omitempty" yaml:"current,omitempty"`
	Total           int    `json:"total,omitempty" yaml:"total,omitempty"`
	ProgressCurrent int    `json:"progress_current,omitempty" yaml:"progress_current,omitempty"`
	ProgressTotal   int    `json:"progress_total,omitempty" yaml:"progress_total,omitempty"`
	CurrentLogic    string `json:"current_logic,omitempty" yaml:"current_logic,omitempty"`

	// Dotted marks steps shown with dot indicators (index among dotted steps of the flow).
	Dotted bool `json:"dotted,omitempty" yaml:"dotted,omitempty"`
}

// Props is the static configuration bag of a step.
type Props struct {
	Section  Section           `json:"section"`
	Previous StepID            `json:"previous,omitempty"`
	Next     StepID            `json:"next,omitempty"`
	Others   map[Branch]StepID `json:"others,omitempty"`
	Metadata Metadata          `json:"metadata"`
}

// Step is one screen of the wizard.
type Step struct {
	ID    StepID `json:"id"`
	Flow  Flow   `json:"flow"`
	Path  string `json:"path"`
	Props Props  `json:"props"`
}

// Route returns the full route of the step (flow root + path).
func (s Step) Route() string {
	return s.Flow.Root + s.Path
}

// Edges returns every step referenced by this step, keyed by edge label.
func (s Step) Edges() map[string]StepID {
	edges := make(map[string]StepID, 2+len(s.Props.Others))
	if s.Props.Previous != StepNone {
		edges["previous"] = s.Props.Previous
	}
	if s.Props.Next != StepNone {
		edges["next"] = s.Props.Next
	}
	for b, target := range s.Props.Others {
		edges[string(b)] = target
	}
	return edges
}
